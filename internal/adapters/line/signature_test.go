package line

import (
	"strings"
	"testing"
)

func TestValidateSignatureKnownVector(t *testing.T) {
	secret := []byte("test-channel-secret")
	body := []byte(`{"events":[{"type":"message"}]}`)
	signature := "t3LUo8vUQA+CBUc7+EBD1Gez+u/ExrSz324HjxbNDmM="

	if !ValidateSignature(body, signature, secret) {
		t.Fatal("ожидали успешную проверку для известного вектора")
	}
	if sign(body, secret) != signature {
		t.Fatal("подпись не совпала с ожидаемой")
	}
}

func TestValidateSignatureTamperedBody(t *testing.T) {
	secret := []byte("test-channel-secret")
	body := []byte(`{"events":[{"type":"message","text":"hello"}]}`)
	signature := sign(body, secret)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		if ValidateSignature(mutated, signature, secret) {
			t.Fatalf("подпись прошла для изменённого байта %d", i)
		}
	}
}

func TestValidateSignatureTamperedSignature(t *testing.T) {
	secret := []byte("test-channel-secret")
	body := []byte(`{"events":[]}`)
	signature := sign(body, secret)

	flipped := "A" + signature[1:]
	if flipped == signature {
		flipped = "B" + signature[1:]
	}
	if ValidateSignature(body, flipped, secret) {
		t.Fatal("подпись прошла для изменённой подписи")
	}
}

func TestValidateSignatureBadInput(t *testing.T) {
	secret := []byte("secret")
	body := []byte("payload")

	cases := []struct {
		name      string
		body      []byte
		signature string
		secret    []byte
	}{
		{"пустое тело", nil, sign(body, secret), secret},
		{"пустая подпись", body, "", secret},
		{"пустой секрет", body, sign(body, secret), nil},
		{"не base64", body, "%%%not-base64%%%", secret},
		{"чужой секрет", body, sign(body, []byte("another")), secret},
	}
	for _, tc := range cases {
		if ValidateSignature(tc.body, tc.signature, tc.secret) {
			t.Fatalf("%s: ожидали false", tc.name)
		}
	}
	// длинная подпись не должна приводить к панике
	if ValidateSignature(body, strings.Repeat("QUFBQQ==", 100), secret) {
		t.Fatal("ожидали false для подписи неверной длины")
	}
}

package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidateSignature проверяет подпись X-Line-Signature над сырым телом вебхука.
// Сравнение выполняется за константное время; любая ошибка разбора
// или пустой вход дают false, паники исключены.
func ValidateSignature(body []byte, signature string, channelSecret []byte) bool {
	if len(body) == 0 || signature == "" || len(channelSecret) == 0 {
		return false
	}
	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(provided, digest(body, channelSecret))
}

// sign возвращает подпись тела в том же виде, в каком её шлёт платформа.
func sign(body, channelSecret []byte) string {
	return base64.StdEncoding.EncodeToString(digest(body, channelSecret))
}

func digest(body, channelSecret []byte) []byte {
	mac := hmac.New(sha256.New, channelSecret)
	mac.Write(body)
	return mac.Sum(nil)
}

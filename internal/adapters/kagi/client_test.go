package kagi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"line-digest-bot/internal/domain"
)

func TestSummarizeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/summarize" {
			t.Errorf("неожиданный запрос: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req["url"] != "https://example.com/article" {
			t.Errorf("url = %q", req["url"])
		}
		if req["engine"] != "cecil" || req["target_language"] != "EN" {
			t.Errorf("engine = %q, target_language = %q", req["engine"], req["target_language"])
		}
		w.Write([]byte(`{"meta":{"id":"1"},"data":{"output":"Краткое содержание страницы."}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "cecil", "EN", time.Second)
	got, err := c.SummarizeURL(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("SummarizeURL() error = %v", err)
	}
	if got != "Краткое содержание страницы." {
		t.Errorf("output = %q", got)
	}
}

func TestSummarizeURLAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"meta":{},"data":null,"error":[{"code":1,"msg":"Invalid token"}]}`))
	}))
	defer srv.Close()

	c := NewClient("bad-key", srv.URL, "cecil", "EN", time.Second)
	_, err := c.SummarizeURL(context.Background(), "https://example.com")
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
	if upstream.Service != "kagi" {
		t.Errorf("Service = %q", upstream.Service)
	}
}

func TestSummarizeURLEmptyKey(t *testing.T) {
	c := NewClient("", "http://unused", "cecil", "EN", time.Second)
	if _, err := c.SummarizeURL(context.Background(), "https://example.com"); err == nil {
		t.Fatal("ожидалась ошибка при пустом ключе")
	}
}

func TestSummarizeURLEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"meta":{},"data":{"output":""}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "cecil", "EN", time.Second)
	if _, err := c.SummarizeURL(context.Background(), "https://example.com"); err == nil {
		t.Fatal("ожидалась ошибка при пустом ответе")
	}
}

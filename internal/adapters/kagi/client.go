package kagi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"line-digest-bot/internal/domain"
	"line-digest-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://kagi.com/api/v0"

// Client обращается к Kagi Universal Summarizer.
type Client struct {
	http           *http.Client
	baseURL        string
	apiKey         string
	engine         string
	targetLanguage string
}

var _ domain.URLSummarizer = (*Client)(nil)

// NewClient создаёт клиента Kagi.
func NewClient(apiKey, baseURL, engine, targetLanguage string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:           &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		apiKey:         apiKey,
		engine:         engine,
		targetLanguage: targetLanguage,
	}
}

type summarizeRequest struct {
	URL            string `json:"url"`
	Engine         string `json:"engine,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

type summarizeResponse struct {
	Data struct {
		Output string `json:"output"`
	} `json:"data"`
	Error []struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}

// SummarizeURL возвращает краткое содержание страницы по ссылке.
func (c *Client) SummarizeURL(ctx context.Context, pageURL string) (string, error) {
	if c.apiKey == "" {
		return "", domain.Upstream("kagi", errors.New("api key is empty"))
	}
	body, err := json.Marshal(summarizeRequest{
		URL:            pageURL,
		Engine:         c.engine,
		TargetLanguage: c.targetLanguage,
	})
	if err != nil {
		return "", domain.Upstream("kagi", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/summarize", bytes.NewReader(body))
	if err != nil {
		return "", domain.Upstream("kagi", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("kagi", "summarize", start, err)
		return "", domain.Upstream("kagi", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("kagi", "summarize", start, err)
		return "", domain.Upstream("kagi", err)
	}

	var parsed summarizeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		err = fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
		metrics.ObserveNetworkRequest("kagi", "summarize", start, err)
		return "", domain.Upstream("kagi", err)
	}
	if len(parsed.Error) > 0 {
		err = fmt.Errorf("%s (code %d)", parsed.Error[0].Msg, parsed.Error[0].Code)
		metrics.ObserveNetworkRequest("kagi", "summarize", start, err)
		return "", domain.Upstream("kagi", err)
	}
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		metrics.ObserveNetworkRequest("kagi", "summarize", start, err)
		return "", domain.Upstream("kagi", err)
	}

	output := strings.TrimSpace(parsed.Data.Output)
	if output == "" {
		err = errors.New("пустой ответ суммаризатора")
		metrics.ObserveNetworkRequest("kagi", "summarize", start, err)
		return "", domain.Upstream("kagi", err)
	}
	metrics.ObserveNetworkRequest("kagi", "summarize", start, nil)
	return output, nil
}

package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"line-digest-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://api.line.me"

// Client выполняет запросы к LINE Messaging API.
// Доставка выполняется не более одного раза, повторов нет.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient создаёт клиента с каналным токеном.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   token,
	}
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type broadcastRequest struct {
	Messages []Message `json:"messages"`
}

type apiErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// Push отправляет сообщения конкретному пользователю.
func (c *Client) Push(ctx context.Context, to string, messages []Message) error {
	return c.send(ctx, "push", "/v2/bot/message/push", pushRequest{To: to, Messages: messages})
}

// Reply отвечает на событие по reply-токену.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []Message) error {
	return c.send(ctx, "reply", "/v2/bot/message/reply", replyRequest{ReplyToken: replyToken, Messages: messages})
}

// Broadcast рассылает сообщения всем подписчикам канала.
func (c *Client) Broadcast(ctx context.Context, messages []Message) error {
	return c.send(ctx, "broadcast", "/v2/bot/message/broadcast", broadcastRequest{Messages: messages})
}

func (c *Client) send(ctx context.Context, operation, path string, payload any) error {
	if c.token == "" {
		return fmt.Errorf("line: channel token is empty")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("line: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("line", operation, start, err)
		return fmt.Errorf("line: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiErrorResponse
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Message != "" {
			err = fmt.Errorf("line: %s (status %d)", apiErr.Message, resp.StatusCode)
		} else {
			err = fmt.Errorf("line: unexpected status %d", resp.StatusCode)
		}
		metrics.ObserveNetworkRequest("line", operation, start, err)
		return err
	}
	metrics.ObserveNetworkRequest("line", operation, start, nil)
	return nil
}

package bot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"line-digest-bot/internal/adapters/line"
	"line-digest-bot/internal/domain"
	"line-digest-bot/internal/infra/metrics"
)

const maxBodyBytes = 1 << 20

// Broadcaster выполняет операции дневной рассылки.
type Broadcaster interface {
	LatestStories(ctx context.Context) ([]domain.Story, error)
	SendTodayStories(ctx context.Context) error
	SendDailySummary(ctx context.Context) error
}

// Dialog строит ответ на сообщение пользователя.
type Dialog interface {
	Reply(ctx context.Context, text string) (string, error)
}

// Replier отвечает на событие вебхука по reply-токену.
type Replier interface {
	Reply(ctx context.Context, replyToken string, messages []line.Message) error
}

// Handler привязывает HTTP-маршруты к сценариям бота.
type Handler struct {
	broadcast     Broadcaster
	dialog        Dialog
	messenger     Replier
	channelSecret []byte
	log           zerolog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(broadcast Broadcaster, dialog Dialog, messenger Replier, channelSecret string, logger zerolog.Logger) *Handler {
	return &Handler{
		broadcast:     broadcast,
		dialog:        dialog,
		messenger:     messenger,
		channelSecret: []byte(channelSecret),
		log:           logger,
	}
}

// Register вешает маршруты на роутер.
func (h *Handler) Register(r chi.Router) {
	r.Get("/hello", h.handleHello)
	r.Get("/getLatestTitle", h.handleLatestTitle)
	r.Get("/getLatestStories", h.handleLatestStories)
	r.Get("/sendTodayStories", h.handleSendTodayStories)
	r.Get("/broadcastDailySummary", h.handleBroadcastDailySummary)
	r.Post("/conversation", h.handleConversation)
	r.Post("/webhook", h.handleWebhook)
}

func (h *Handler) handleHello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "hello"})
}

func (h *Handler) handleLatestTitle(w http.ResponseWriter, r *http.Request) {
	stories, err := h.broadcast.LatestStories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(stories) == 0 {
		h.writeError(w, domain.ErrFeedEmpty)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": stories[0].Title})
}

func (h *Handler) handleLatestStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.broadcast.LatestStories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": stories})
}

func (h *Handler) handleSendTodayStories(w http.ResponseWriter, r *http.Request) {
	if err := h.broadcast.SendTodayStories(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) handleBroadcastDailySummary(w http.ResponseWriter, r *http.Request) {
	if err := h.broadcast.SendDailySummary(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type conversationRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	answer, err := h.dialog.Reply(r.Context(), req.Message)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": answer})
}

// handleWebhook принимает события платформы. Подпись проверяется по
// сырым байтам тела до любого разбора JSON.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	signature := r.Header.Get("X-Line-Signature")
	if !line.ValidateSignature(body, signature, h.channelSecret) {
		metrics.WebhookRejectedTotal.Inc()
		h.log.Warn().Str("remote", r.RemoteAddr).Msg("вебхук отклонён по подписи")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	for _, event := range req.Events {
		h.handleEvent(r.Context(), event)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleEvent(ctx context.Context, event line.WebhookEvent) {
	if event.Type != "message" || event.Message.Type != "text" || event.ReplyToken == "" {
		return
	}
	answer, err := h.dialog.Reply(ctx, event.Message.Text)
	if err != nil {
		h.log.Error().Err(err).Msg("ответ на сообщение не построен")
		return
	}
	if err := h.messenger.Reply(ctx, event.ReplyToken, []line.Message{line.NewTextMessage(answer)}); err != nil {
		h.log.Error().Err(err).Msg("ответ на вебхук не доставлен")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("запрос завершился ошибкой")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFromError переводит ошибки домена в HTTP-статусы.
func statusFromError(err error) int {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrFeedUnavailable):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrFeedEmpty), errors.Is(err, domain.ErrFeedMalformed):
		return http.StatusBadGateway
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

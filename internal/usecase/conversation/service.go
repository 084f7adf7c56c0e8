package conversation

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"line-digest-bot/internal/domain"
	"line-digest-bot/internal/infra/metrics"
)

// Тексты ответов пользователю. Отказ внешнего сервиса не считается
// ошибкой диалога: пользователь получает извинение, а не http-ошибку.
const (
	usageHint = "Send me a text to summarize, a link to summarize the page, " +
		"or \"translate <lang> <text>\" to translate."
	apology = "Sorry, I can't help with that right now. Please try again later."
)

const translateKeyword = "translate"

// Service разбирает входящие сообщения и выбирает обработчик.
type Service struct {
	summarizer domain.Summarizer
	urls       domain.URLSummarizer
	log        zerolog.Logger
}

// NewService создаёт диалоговый диспетчер.
func NewService(summarizer domain.Summarizer, urls domain.URLSummarizer, logger zerolog.Logger) *Service {
	return &Service{summarizer: summarizer, urls: urls, log: logger}
}

// Reply строит ответ на сообщение пользователя.
// Возвращаемая ошибка всегда nil для отказов внешних сервисов:
// в этом случае текст ответа — извинение.
func (s *Service) Reply(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.ConversationRequestsTotal.WithLabelValues("help").Inc()
		return usageHint, nil
	}

	if target, payload, ok := parseTranslate(text); ok {
		metrics.ConversationRequestsTotal.WithLabelValues("translate").Inc()
		return s.translate(ctx, payload, target), nil
	}

	if isBareURL(text) {
		metrics.ConversationRequestsTotal.WithLabelValues("summarize_url").Inc()
		return s.summarizeURL(ctx, text), nil
	}

	metrics.ConversationRequestsTotal.WithLabelValues("summarize").Inc()
	return s.summarizeText(ctx, text), nil
}

func (s *Service) translate(ctx context.Context, text, target string) string {
	if target == "" || text == "" {
		return usageHint
	}
	source, err := s.summarizer.DetectLanguage(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Msg("определение языка не удалось")
		return apology
	}
	// Текст уже на целевом языке — переводить нечего.
	if source == target {
		return text
	}
	translated, err := s.summarizer.Translate(ctx, text, target)
	if err != nil {
		s.log.Warn().Err(err).Str("target", target).Msg("перевод не удался")
		return apology
	}
	return translated
}

func (s *Service) summarizeURL(ctx context.Context, link string) string {
	summary, err := s.urls.SummarizeURL(ctx, link)
	if err != nil {
		s.log.Warn().Err(err).Str("url", link).Msg("суммаризация страницы не удалась")
		return apology
	}
	return summary
}

func (s *Service) summarizeText(ctx context.Context, text string) string {
	summary, err := s.summarizer.SummarizeStory(ctx, text, "")
	if err != nil {
		s.log.Warn().Err(err).Msg("суммаризация текста не удалась")
		return apology
	}
	return summary
}

// parseTranslate распознаёт команды "translate <lang> <text>"
// и "translate:<lang> <text>". Ключевое слово нечувствительно к регистру.
func parseTranslate(text string) (target, payload string, ok bool) {
	if len(text) < len(translateKeyword) || !strings.EqualFold(text[:len(translateKeyword)], translateKeyword) {
		return "", "", false
	}
	rest := text[len(translateKeyword):]
	if rest == "" {
		return "", "", true
	}
	switch rest[0] {
	case ':', ' ', '\t':
	default:
		// Слово вроде "translated" командой не является.
		return "", "", false
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	if rest == "" {
		return "", "", true
	}

	idx := strings.IndexAny(rest, " \t\n")
	if idx < 0 {
		return strings.ToLower(rest), "", true
	}
	return strings.ToLower(rest[:idx]), strings.TrimSpace(rest[idx:]), true
}

// isBareURL принимает только сообщение, целиком состоящее из одной ссылки.
func isBareURL(text string) bool {
	if strings.ContainsAny(text, " \t\n") {
		return false
	}
	u, err := url.Parse(text)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

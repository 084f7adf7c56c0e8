package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"line-digest-bot/internal/domain"
	"line-digest-bot/internal/infra/config"
	"line-digest-bot/internal/infra/openai"
)

// chatClient описывает минимальный контракт клиента модели.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI реализует domain.Summarizer поверх Chat Completions.
// Каждая операция — один вызов модели с собственным дедлайном.
type OpenAI struct {
	client         chatClient
	model          string
	translateModel string
	prompts        config.Prompts
	timeout        time.Duration
}

var _ domain.Summarizer = (*OpenAI)(nil)

// NewOpenAI создаёт суммаризатор. Если translateModel пуст,
// перевод использует основную модель.
func NewOpenAI(client chatClient, model, translateModel string, prompts config.Prompts, timeout time.Duration) *OpenAI {
	if translateModel == "" {
		translateModel = model
	}
	return &OpenAI{
		client:         client,
		model:          model,
		translateModel: translateModel,
		prompts:        prompts,
		timeout:        timeout,
	}
}

// SummarizeStory строит краткое содержание одной новости.
// Ссылка может быть пустой — тогда модель работает только по тексту.
func (s *OpenAI) SummarizeStory(ctx context.Context, title, link string) (string, error) {
	content := strings.TrimSpace(title)
	if link != "" {
		content = content + " " + link
	}
	return s.complete(ctx, s.model, s.prompts.SummarizeStory+" "+content)
}

// SummarizeDigest строит общий итог дня по всем новостям.
func (s *OpenAI) SummarizeDigest(ctx context.Context, stories []domain.Story) (domain.DigestSummary, error) {
	if len(stories) == 0 {
		return domain.DigestSummary{}, domain.ErrNoStories
	}
	var sb strings.Builder
	for _, story := range stories {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", story.Rank, story.Title, story.Link)
	}
	body, err := s.complete(ctx, s.model, s.prompts.SummarizeAll+" "+sb.String())
	if err != nil {
		return domain.DigestSummary{}, err
	}
	return domain.DigestSummary{GeneratedAt: time.Now().UTC(), Body: body}, nil
}

// DetectLanguage возвращает код языка текста в нижнем регистре.
func (s *OpenAI) DetectLanguage(ctx context.Context, text string) (string, error) {
	answer, err := s.complete(ctx, s.model, s.prompts.DetectLanguage+" "+text)
	if err != nil {
		return "", err
	}
	return normalizeLanguageCode(answer), nil
}

// Translate переводит текст на язык target. Код языка передаётся
// в начале содержимого в форме "код: текст".
func (s *OpenAI) Translate(ctx context.Context, text, target string) (string, error) {
	payload := target + ": " + text
	return s.complete(ctx, s.translateModel, s.prompts.Translate+" "+payload)
}

func (s *OpenAI) complete(ctx context.Context, model, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", domain.Upstream("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.Upstream("openai", errors.New("пустой ответ модели"))
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", domain.Upstream("openai", errors.New("пустой ответ модели"))
	}
	return answer, nil
}

// normalizeLanguageCode приводит ответ модели к короткому коду:
// нижний регистр, без кавычек и завершающей точки.
func normalizeLanguageCode(answer string) string {
	code := strings.ToLower(strings.TrimSpace(answer))
	code = strings.Trim(code, "\"'`")
	code = strings.TrimSuffix(code, ".")
	if idx := strings.IndexAny(code, " \n\t"); idx > 0 {
		code = code[:idx]
	}
	return code
}

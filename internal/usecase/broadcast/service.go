package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"line-digest-bot/internal/adapters/line"
	"line-digest-bot/internal/domain"
	"line-digest-bot/internal/infra/metrics"
)

// fallbackSummary подставляется в карточку при отказе суммаризации.
const fallbackSummary = "Summary unavailable"

const onceTTL = 24 * time.Hour

// Messenger отправляет сообщения всем подписчикам канала.
type Messenger interface {
	Broadcast(ctx context.Context, messages []line.Message) error
}

// Config задаёт параметры пакетной суммаризации и рассылки.
type Config struct {
	Concurrency  int
	BatchTimeout time.Duration
	MaxStories   int
}

// Service готовит и рассылает дневные подборки.
// Отказ суммаризации отдельной новости не валит рассылку:
// карточка получает текст-заглушку, остальные идут как есть.
type Service struct {
	feed       domain.FeedSource
	summarizer domain.Summarizer
	messenger  Messenger
	cache      domain.Cache
	queue      domain.BroadcastQueue
	cfg        Config
	log        zerolog.Logger
}

// NewService создаёт сервис рассылок. Кэш и очередь могут быть nil:
// без кэша пропадает только защита от повторной дневной рассылки.
func NewService(
	feed domain.FeedSource,
	summarizer domain.Summarizer,
	messenger Messenger,
	cache domain.Cache,
	queue domain.BroadcastQueue,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Service{
		feed:       feed,
		summarizer: summarizer,
		messenger:  messenger,
		cache:      cache,
		queue:      queue,
		cfg:        cfg,
		log:        logger,
	}
}

// LatestStories возвращает новости дня, обрезанные до лимита рассылки.
func (s *Service) LatestStories(ctx context.Context) ([]domain.Story, error) {
	stories, err := s.feed.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxStories > 0 && len(stories) > s.cfg.MaxStories {
		stories = stories[:s.cfg.MaxStories]
	}
	return stories, nil
}

// SummarizeStories суммирует новости параллельно, сохраняя порядок входа.
// Результат всегда полон: позиция i выхода соответствует позиции i входа.
func (s *Service) SummarizeStories(ctx context.Context, stories []domain.Story) ([]domain.SummarizedStory, error) {
	if len(stories) == 0 {
		return nil, domain.ErrNoStories
	}

	batchCtx := ctx
	if s.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, s.cfg.BatchTimeout)
		defer cancel()
	}

	results := make([]domain.SummarizedStory, len(stories))
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, story := range stories {
		select {
		case sem <- struct{}{}:
		case <-batchCtx.Done():
			// Не начатые позиции получают заглушку, уже запущенные дорабатывают.
			results[i] = degraded(story, batchCtx.Err())
			continue
		}

		wg.Add(1)
		go func(i int, story domain.Story) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := s.summarizer.SummarizeStory(batchCtx, story.Title, story.Link)
			if err != nil {
				s.log.Warn().Err(err).Int("rank", story.Rank).Msg("суммаризация новости не удалась")
				results[i] = degraded(story, err)
				return
			}
			results[i] = domain.SummarizedStory{Story: story, Summary: summary}
		}(i, story)
	}

	wg.Wait()
	return results, nil
}

func degraded(story domain.Story, err error) domain.SummarizedStory {
	return domain.SummarizedStory{Story: story, Summary: fallbackSummary, Err: err}
}

// SendTodayStories рассылает карусель новостей дня с суммаризациями.
func (s *Service) SendTodayStories(ctx context.Context) (err error) {
	defer func() { metrics.ObserveBroadcast(string(domain.BroadcastStories), err) }()

	stories, err := s.LatestStories(ctx)
	if err != nil {
		return err
	}
	items, err := s.SummarizeStories(ctx, stories)
	if err != nil {
		return err
	}
	msg, err := line.BuildStoriesCarousel(items)
	if err != nil {
		return err
	}
	if err = s.messenger.Broadcast(ctx, []line.Message{msg}); err != nil {
		return err
	}

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		}
	}
	s.log.Info().Int("stories", len(items)).Int("degraded", failed).Msg("карусель новостей разослана")
	return nil
}

// SendDailySummary рассылает общий итог дня одним сообщением.
func (s *Service) SendDailySummary(ctx context.Context) (err error) {
	defer func() { metrics.ObserveBroadcast(string(domain.BroadcastSummary), err) }()

	stories, err := s.LatestStories(ctx)
	if err != nil {
		return err
	}
	summary, err := s.summarizer.SummarizeDigest(ctx, stories)
	if err != nil {
		return err
	}
	if err = s.messenger.Broadcast(ctx, []line.Message{line.BuildSummaryBubble(summary)}); err != nil {
		return err
	}
	s.log.Info().Int("stories", len(stories)).Msg("итог дня разослан")
	return nil
}

// Enqueue публикует задачу рассылки в очередь.
func (s *Service) Enqueue(ctx context.Context, kind domain.BroadcastKind) (domain.BroadcastJob, error) {
	if s.queue == nil {
		return domain.BroadcastJob{}, errors.New("очередь рассылок не настроена")
	}
	job := domain.BroadcastJob{
		ID:         uuid.NewString(),
		Kind:       kind,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return domain.BroadcastJob{}, err
	}
	return job, nil
}

// RunJob выполняет задачу из очереди. Однодневный ключ в кэше
// гарантирует не более одной рассылки каждого вида в сутки;
// ручные эндпоинты этот замок не используют.
func (s *Service) RunJob(ctx context.Context, job domain.BroadcastJob) error {
	run := func() error { return s.dispatch(ctx, job.Kind) }
	if s.cache == nil {
		return run()
	}
	key := fmt.Sprintf("broadcast:%s:%s", job.Kind, time.Now().UTC().Format("2006-01-02"))
	return s.cache.Once(ctx, key, onceTTL, run)
}

func (s *Service) dispatch(ctx context.Context, kind domain.BroadcastKind) error {
	switch kind {
	case domain.BroadcastStories:
		return s.SendTodayStories(ctx)
	case domain.BroadcastSummary:
		return s.SendDailySummary(ctx)
	default:
		return fmt.Errorf("неизвестный вид рассылки: %q", kind)
	}
}

// RunWorker читает задачи из очереди до отмены контекста.
func (s *Service) RunWorker(ctx context.Context) error {
	if s.queue == nil {
		return errors.New("очередь рассылок не настроена")
	}
	for {
		job, err := s.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error().Err(err).Msg("чтение из очереди рассылок")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		s.log.Info().Str("job_id", job.ID).Str("kind", string(job.Kind)).Msg("задача рассылки получена")
		if err := s.RunJob(ctx, job); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("задача рассылки не выполнена")
		}
	}
}

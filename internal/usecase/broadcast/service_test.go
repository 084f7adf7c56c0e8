package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"line-digest-bot/internal/adapters/line"
	"line-digest-bot/internal/domain"
)

type fakeFeed struct {
	stories []domain.Story
	err     error
}

func (f *fakeFeed) Fetch(context.Context) ([]domain.Story, error) {
	return f.stories, f.err
}

type fakeSummarizer struct {
	mu         sync.Mutex
	inFlight   int32
	maxInUse   int32
	delay      time.Duration
	failRanks  map[int]bool
	digest     string
	digestErr  error
	storyCalls int
}

func (s *fakeSummarizer) SummarizeStory(ctx context.Context, title, _ string) (string, error) {
	cur := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&s.maxInUse)
		if cur <= prev || atomic.CompareAndSwapInt32(&s.maxInUse, prev, cur) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	s.storyCalls++
	rank := s.storyCalls
	s.mu.Unlock()
	if s.failRanks[rank] {
		return "", errors.New("модель недоступна")
	}
	return "summary of " + title, nil
}

func (s *fakeSummarizer) SummarizeDigest(_ context.Context, stories []domain.Story) (domain.DigestSummary, error) {
	if s.digestErr != nil {
		return domain.DigestSummary{}, s.digestErr
	}
	return domain.DigestSummary{GeneratedAt: time.Now().UTC(), Body: s.digest}, nil
}

func (s *fakeSummarizer) DetectLanguage(context.Context, string) (string, error) {
	return "en", nil
}

func (s *fakeSummarizer) Translate(context.Context, string, string) (string, error) {
	return "", errors.New("not implemented")
}

type fakeMessenger struct {
	mu       sync.Mutex
	messages [][]line.Message
	err      error
}

func (m *fakeMessenger) Broadcast(_ context.Context, messages []line.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, messages)
	return nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []domain.BroadcastJob
}

func (q *fakeQueue) Enqueue(_ context.Context, job domain.BroadcastJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context) (domain.BroadcastJob, error) {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			q.mu.Unlock()
			return job, nil
		}
		q.mu.Unlock()
		select {
		case <-ctx.Done():
			return domain.BroadcastJob{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type memCache struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemCache() *memCache {
	return &memCache{keys: make(map[string]struct{})}
}

func (c *memCache) Once(_ context.Context, key string, _ time.Duration, fn func() error) error {
	c.mu.Lock()
	if _, ok := c.keys[key]; ok {
		c.mu.Unlock()
		return nil
	}
	c.keys[key] = struct{}{}
	c.mu.Unlock()
	if err := fn(); err != nil {
		c.mu.Lock()
		delete(c.keys, key)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *memCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (c *memCache) Get(context.Context, string) ([]byte, error) {
	return nil, domain.ErrCacheMiss
}

func testStories(n int) []domain.Story {
	stories := make([]domain.Story, n)
	for i := range stories {
		stories[i] = domain.Story{
			Rank:  i + 1,
			Title: fmt.Sprintf("Story %d", i+1),
			Link:  fmt.Sprintf("https://example.com/%d", i+1),
		}
	}
	return stories
}

func newTestService(feed *fakeFeed, sum *fakeSummarizer, m *fakeMessenger, cache domain.Cache, queue domain.BroadcastQueue, cfg Config) *Service {
	return NewService(feed, sum, m, cache, queue, cfg, zerolog.Nop())
}

func TestSummarizeStoriesPreservesOrder(t *testing.T) {
	sum := &fakeSummarizer{delay: 2 * time.Millisecond}
	svc := newTestService(&fakeFeed{}, sum, &fakeMessenger{}, nil, nil, Config{Concurrency: 4})

	stories := testStories(8)
	results, err := svc.SummarizeStories(context.Background(), stories)
	if err != nil {
		t.Fatalf("SummarizeStories() error = %v", err)
	}
	if len(results) != len(stories) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(stories))
	}
	for i, res := range results {
		if res.Story.Rank != i+1 {
			t.Errorf("results[%d].Rank = %d, want %d", i, res.Story.Rank, i+1)
		}
		if res.Summary != "summary of "+res.Story.Title {
			t.Errorf("results[%d].Summary = %q", i, res.Summary)
		}
	}
}

func TestSummarizeStoriesBoundsConcurrency(t *testing.T) {
	sum := &fakeSummarizer{delay: 10 * time.Millisecond}
	svc := newTestService(&fakeFeed{}, sum, &fakeMessenger{}, nil, nil, Config{Concurrency: 2})

	if _, err := svc.SummarizeStories(context.Background(), testStories(6)); err != nil {
		t.Fatalf("SummarizeStories() error = %v", err)
	}
	if got := atomic.LoadInt32(&sum.maxInUse); got > 2 {
		t.Errorf("одновременных вызовов = %d, лимит 2", got)
	}
}

func TestSummarizeStoriesDegradesOnFailure(t *testing.T) {
	sum := &fakeSummarizer{failRanks: map[int]bool{2: true}}
	svc := newTestService(&fakeFeed{}, sum, &fakeMessenger{}, nil, nil, Config{Concurrency: 1})

	results, err := svc.SummarizeStories(context.Background(), testStories(3))
	if err != nil {
		t.Fatalf("SummarizeStories() error = %v", err)
	}
	if results[1].Summary != fallbackSummary || results[1].Err == nil {
		t.Errorf("results[1] = %+v, want заглушку с ошибкой", results[1])
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("соседние карточки не должны деградировать")
	}
}

func TestSummarizeStoriesEmptyInput(t *testing.T) {
	svc := newTestService(&fakeFeed{}, &fakeSummarizer{}, &fakeMessenger{}, nil, nil, Config{})
	if _, err := svc.SummarizeStories(context.Background(), nil); !errors.Is(err, domain.ErrNoStories) {
		t.Fatalf("error = %v, want ErrNoStories", err)
	}
}

func TestSummarizeStoriesBatchTimeout(t *testing.T) {
	sum := &fakeSummarizer{delay: 200 * time.Millisecond}
	svc := newTestService(&fakeFeed{}, sum, &fakeMessenger{}, nil, nil, Config{
		Concurrency:  1,
		BatchTimeout: 30 * time.Millisecond,
	})

	results, err := svc.SummarizeStories(context.Background(), testStories(4))
	if err != nil {
		t.Fatalf("SummarizeStories() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	degradedCount := 0
	for _, res := range results {
		if res.Err != nil {
			if res.Summary != fallbackSummary {
				t.Errorf("деградированная карточка без заглушки: %+v", res)
			}
			degradedCount++
		}
	}
	if degradedCount == 0 {
		t.Error("дедлайн пакета должен деградировать хотя бы одну карточку")
	}
}

func TestSendTodayStories(t *testing.T) {
	feed := &fakeFeed{stories: testStories(3)}
	m := &fakeMessenger{}
	svc := newTestService(feed, &fakeSummarizer{}, m, nil, nil, Config{Concurrency: 2, MaxStories: 10})

	if err := svc.SendTodayStories(context.Background()); err != nil {
		t.Fatalf("SendTodayStories() error = %v", err)
	}
	if len(m.messages) != 1 || len(m.messages[0]) != 1 {
		t.Fatalf("messages = %+v", m.messages)
	}
	carousel, ok := m.messages[0][0].Contents.(line.FlexCarousel)
	if !ok {
		t.Fatalf("Contents имеет тип %T, want FlexCarousel", m.messages[0][0].Contents)
	}
	if len(carousel.Contents) != 3 {
		t.Errorf("карточек = %d, want 3", len(carousel.Contents))
	}
}

func TestSendTodayStoriesCapsAtMaxStories(t *testing.T) {
	feed := &fakeFeed{stories: testStories(30)}
	m := &fakeMessenger{}
	svc := newTestService(feed, &fakeSummarizer{}, m, nil, nil, Config{Concurrency: 4, MaxStories: 5})

	if err := svc.SendTodayStories(context.Background()); err != nil {
		t.Fatalf("SendTodayStories() error = %v", err)
	}
	carousel := m.messages[0][0].Contents.(line.FlexCarousel)
	if len(carousel.Contents) != 5 {
		t.Errorf("карточек = %d, want 5", len(carousel.Contents))
	}
}

func TestSendTodayStoriesFeedError(t *testing.T) {
	feed := &fakeFeed{err: domain.ErrFeedEmpty}
	svc := newTestService(feed, &fakeSummarizer{}, &fakeMessenger{}, nil, nil, Config{})
	if err := svc.SendTodayStories(context.Background()); !errors.Is(err, domain.ErrFeedEmpty) {
		t.Fatalf("error = %v, want ErrFeedEmpty", err)
	}
}

func TestSendDailySummary(t *testing.T) {
	feed := &fakeFeed{stories: testStories(2)}
	m := &fakeMessenger{}
	svc := newTestService(feed, &fakeSummarizer{digest: "Сводка.\n\nДетали."}, m, nil, nil, Config{})

	if err := svc.SendDailySummary(context.Background()); err != nil {
		t.Fatalf("SendDailySummary() error = %v", err)
	}
	if len(m.messages) != 1 {
		t.Fatalf("messages = %+v", m.messages)
	}
	if _, ok := m.messages[0][0].Contents.(line.FlexBubble); !ok {
		t.Errorf("Contents имеет тип %T, want FlexBubble", m.messages[0][0].Contents)
	}
}

func TestRunJobOncePerDay(t *testing.T) {
	feed := &fakeFeed{stories: testStories(2)}
	m := &fakeMessenger{}
	svc := newTestService(feed, &fakeSummarizer{}, m, newMemCache(), nil, Config{Concurrency: 2})

	job := domain.BroadcastJob{ID: "job-1", Kind: domain.BroadcastStories}
	for i := 0; i < 3; i++ {
		if err := svc.RunJob(context.Background(), job); err != nil {
			t.Fatalf("RunJob() #%d error = %v", i, err)
		}
	}
	if len(m.messages) != 1 {
		t.Errorf("рассылок = %d, want 1: замок не сработал", len(m.messages))
	}
}

func TestRunJobRetriesAfterFailure(t *testing.T) {
	feed := &fakeFeed{err: domain.ErrFeedUnavailable}
	m := &fakeMessenger{}
	cache := newMemCache()
	svc := newTestService(feed, &fakeSummarizer{}, m, cache, nil, Config{Concurrency: 2})

	job := domain.BroadcastJob{ID: "job-1", Kind: domain.BroadcastStories}
	if err := svc.RunJob(context.Background(), job); err == nil {
		t.Fatal("ожидалась ошибка при недоступной ленте")
	}

	// Замок снят, следующая попытка проходит.
	feed.err = nil
	feed.stories = testStories(1)
	if err := svc.RunJob(context.Background(), job); err != nil {
		t.Fatalf("повторный RunJob() error = %v", err)
	}
	if len(m.messages) != 1 {
		t.Errorf("рассылок = %d, want 1", len(m.messages))
	}
}

func TestRunJobUnknownKind(t *testing.T) {
	svc := newTestService(&fakeFeed{}, &fakeSummarizer{}, &fakeMessenger{}, nil, nil, Config{})
	if err := svc.RunJob(context.Background(), domain.BroadcastJob{Kind: "bogus"}); err == nil {
		t.Fatal("ожидалась ошибка для неизвестного вида")
	}
}

func TestEnqueueAndWorker(t *testing.T) {
	feed := &fakeFeed{stories: testStories(2)}
	m := &fakeMessenger{}
	queue := &fakeQueue{}
	svc := newTestService(feed, &fakeSummarizer{}, m, nil, queue, Config{Concurrency: 2})

	job, err := svc.Enqueue(context.Background(), domain.BroadcastSummary)
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if job.ID == "" || job.Kind != domain.BroadcastSummary {
		t.Errorf("job = %+v", job)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.RunWorker(ctx) }()

	deadline := time.After(400 * time.Millisecond)
	for {
		m.mu.Lock()
		sent := len(m.messages)
		m.mu.Unlock()
		if sent == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("воркер не выполнил задачу вовремя")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("RunWorker() error = %v, want context.Canceled", err)
	}
}

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"line-digest-bot/internal/domain"
	"line-digest-bot/internal/infra/metrics"
)

const (
	maxFeedBytes = 4 << 20
	cacheKey     = "feed:stories"
)

// RetryPolicy задаёт параметры повторов для временных сбоев.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxElapsed  time.Duration
}

// Fetcher загружает и разбирает дневную ленту новостей.
// Возвращается либо полная последовательность в порядке документа,
// либо ошибка — частичных результатов не бывает.
type Fetcher struct {
	url      string
	http     *http.Client
	parser   *gofeed.Parser
	policy   RetryPolicy
	cache    domain.Cache
	cacheTTL time.Duration
	log      zerolog.Logger
}

var _ domain.FeedSource = (*Fetcher)(nil)

// NewFetcher создаёт Fetcher. Кэш может быть nil — тогда каждая
// выборка идёт в источник.
func NewFetcher(feedURL string, policy RetryPolicy, cache domain.Cache, cacheTTL time.Duration, logger zerolog.Logger) *Fetcher {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Fetcher{
		url:      feedURL,
		http:     &http.Client{Timeout: 20 * time.Second},
		parser:   gofeed.NewParser(),
		policy:   policy,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      logger,
	}
}

// Fetch возвращает новости дня, используя кэш при его наличии.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.Story, error) {
	if stories, ok := f.fromCache(ctx); ok {
		return stories, nil
	}

	start := time.Now()
	stories, err := f.fetchWithRetry(ctx)
	metrics.FeedFetchSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedFetchErrors.Inc()
		return nil, err
	}

	f.storeCache(ctx, stories)
	return stories, nil
}

// newBackOff настраивает экспоненциальную задержку: удвоение от базовой
// с ограничением сверху по интервалу и общему времени.
func (f *Fetcher) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.policy.BaseDelay
	bo.Multiplier = 2
	bo.MaxInterval = f.policy.MaxDelay
	bo.MaxElapsedTime = f.policy.MaxElapsed
	return bo
}

func (f *Fetcher) fetchWithRetry(ctx context.Context) ([]domain.Story, error) {
	bo := f.newBackOff()

	var stories []domain.Story
	operation := func() error {
		got, err := f.fetchOnce(ctx)
		if err != nil {
			if isTransient(err) {
				f.log.Warn().Err(err).Msg("временный сбой ленты, будет повтор")
				return err
			}
			return backoff.Permanent(err)
		}
		stories = got
		return nil
	}

	retries := uint64(f.policy.MaxAttempts - 1)
	err := backoff.Retry(operation, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), retries))
	if err != nil {
		if errors.Is(err, domain.ErrFeedMalformed) || errors.Is(err, domain.ErrFeedEmpty) || errors.Is(err, domain.ErrFeedUnavailable) {
			return nil, err
		}
		return nil, domain.FeedUnavailable(err)
	}
	return stories, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]domain.Story, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, domain.FeedUnavailable(err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос ленты: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &statusError{code: resp.StatusCode}
		}
		return nil, domain.FeedUnavailable(fmt.Errorf("http %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("чтение ленты: %w", err)
	}

	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedMalformed, err)
	}

	stories := storiesFromFeed(parsed)
	if len(stories) == 0 {
		return nil, domain.ErrFeedEmpty
	}
	return stories, nil
}

func (f *Fetcher) fromCache(ctx context.Context) ([]domain.Story, bool) {
	if f.cache == nil || f.cacheTTL <= 0 {
		return nil, false
	}
	raw, err := f.cache.Get(ctx, cacheKey)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			f.log.Warn().Err(err).Msg("кэш ленты недоступен")
		}
		return nil, false
	}
	var stories []domain.Story
	if err := json.Unmarshal(raw, &stories); err != nil || len(stories) == 0 {
		return nil, false
	}
	return stories, true
}

func (f *Fetcher) storeCache(ctx context.Context, stories []domain.Story) {
	if f.cache == nil || f.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(stories)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, cacheKey, raw, f.cacheTTL); err != nil {
		f.log.Warn().Err(err).Msg("не удалось сохранить ленту в кэш")
	}
}

// storiesFromFeed строит список новостей, сохраняя порядок документа.
// Дневная лента может паковать все новости в HTML-описание первого
// элемента — тогда ссылки извлекаются оттуда.
func storiesFromFeed(parsed *gofeed.Feed) []domain.Story {
	if len(parsed.Items) == 0 {
		return nil
	}
	if stories := storiesFromDigestHTML(parsed.Items[0]); len(stories) > 0 {
		return stories
	}

	stories := make([]domain.Story, 0, len(parsed.Items))
	rank := 1
	for _, item := range parsed.Items {
		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if title == "" || !isValidLink(link) {
			continue
		}
		var published time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}
		stories = append(stories, domain.Story{Rank: rank, Title: title, Link: link, PublishedAt: published})
		rank++
	}
	return stories
}

func storiesFromDigestHTML(item *gofeed.Item) []domain.Story {
	if !strings.Contains(item.Description, "storylink") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
	if err != nil {
		return nil
	}
	var published time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	}

	var stories []domain.Story
	rank := 1
	doc.Find("a.storylink, .storylink a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		href = strings.TrimSpace(href)
		title := strings.TrimSpace(sel.Text())
		if !ok || title == "" || !isValidLink(href) {
			return
		}
		stories = append(stories, domain.Story{Rank: rank, Title: title, Link: href, PublishedAt: published})
		rank++
	})
	return stories
}

func isValidLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("лента ответила http %d", e.code)
}

func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

package domain

import (
	"context"
	"time"
)

// FeedSource отдаёт новости дневной ленты в порядке публикации.
type FeedSource interface {
	Fetch(ctx context.Context) ([]Story, error)
}

// Summarizer выполняет запросы к языковой модели.
// Повторные попытки — ответственность вызывающего кода.
type Summarizer interface {
	SummarizeStory(ctx context.Context, title, link string) (string, error)
	SummarizeDigest(ctx context.Context, stories []Story) (DigestSummary, error)
	DetectLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, target string) (string, error)
}

// URLSummarizer строит краткое содержание веб-страницы по ссылке.
type URLSummarizer interface {
	SummarizeURL(ctx context.Context, url string) (string, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// BroadcastQueue передаёт задачи рассылки между процессами.
type BroadcastQueue interface {
	Enqueue(ctx context.Context, job BroadcastJob) error
	Pop(ctx context.Context) (BroadcastJob, error)
}

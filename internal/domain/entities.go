package domain

import "time"

// Story описывает одну новость из дневной ленты.
// Поля неизменяемы после разбора ленты.
type Story struct {
	Rank        int       `json:"rank"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
}

// SummarizedStory хранит результат суммаризации одной новости.
// При ошибке Summary содержит текст-заглушку, а Err — причину.
type SummarizedStory struct {
	Story   Story
	Summary string
	Err     error
}

// DigestSummary содержит общий итог дня по всем новостям.
type DigestSummary struct {
	GeneratedAt time.Time
	Body        string
}

// BroadcastKind определяет вид рассылки.
type BroadcastKind string

const (
	// BroadcastStories рассылает карусель новостей с суммаризациями.
	BroadcastStories BroadcastKind = "stories"
	// BroadcastSummary рассылает общий итог дня одним сообщением.
	BroadcastSummary BroadcastKind = "summary"
)

// BroadcastJob описывает задачу рассылки в очереди.
type BroadcastJob struct {
	ID         string        `json:"id"`
	Kind       BroadcastKind `json:"kind"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

package line

// WebhookRequest — тело вебхука LINE после проверки подписи.
// Разбирать его до успешной проверки подписи нельзя.
type WebhookRequest struct {
	Destination string         `json:"destination"`
	Events      []WebhookEvent `json:"events"`
}

// WebhookEvent описывает одно событие платформы.
// Message может отсутствовать в теле: нулевое значение отличимо
// по пустому Type и не требует проверки на nil.
type WebhookEvent struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken"`
	Timestamp  int64        `json:"timestamp"`
	Source     EventSource  `json:"source"`
	Message    EventMessage `json:"message"`
}

// EventSource указывает отправителя события.
type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// EventMessage содержит пользовательское сообщение.
type EventMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

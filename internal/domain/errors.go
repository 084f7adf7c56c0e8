package domain

import (
	"errors"
	"fmt"
)

// ErrFeedEmpty возвращается когда лента не содержит ни одной новости.
var ErrFeedEmpty = errors.New("лента не содержит новостей")

// ErrFeedMalformed возвращается при нечитаемом документе ленты.
var ErrFeedMalformed = errors.New("документ ленты повреждён")

// ErrFeedUnavailable возвращается после исчерпания повторных попыток.
var ErrFeedUnavailable = errors.New("лента недоступна")

// ErrNoStories возвращается при пустом входе оркестратора.
var ErrNoStories = errors.New("нет новостей для суммаризации")

// ErrTooManyStories возвращается когда карусель не вмещает все карточки.
var ErrTooManyStories = errors.New("слишком много новостей для одной карусели")

// ErrCacheMiss возвращается кэшем при отсутствии ключа.
var ErrCacheMiss = errors.New("ключ не найден в кэше")

// FeedUnavailable оборачивает последнюю причину в ErrFeedUnavailable.
func FeedUnavailable(cause error) error {
	return fmt.Errorf("%w: %v", ErrFeedUnavailable, cause)
}

// UpstreamError описывает отказ внешнего сервиса (модель, Kagi, LINE).
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream создаёт UpstreamError для сервиса.
func Upstream(service string, err error) error {
	return &UpstreamError{Service: service, Err: err}
}

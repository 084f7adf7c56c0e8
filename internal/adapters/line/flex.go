package line

import (
	"fmt"
	"strings"

	"line-digest-bot/internal/domain"
)

// Ограничения платформы и оформления карточек.
const (
	MaxCarouselBubbles = 12
	TitleRuneLimit     = 60
	SummaryRuneLimit   = 120

	accentColor  = "#1DB446"
	mutedColor   = "#8C8C8C"
	summaryColor = "#444444"
)

// BuildStoriesCarousel собирает карусель карточек по новостям дня.
// Порядок карточек совпадает с порядком входа; при превышении лимита
// платформы возвращается domain.ErrTooManyStories без частичного результата.
func BuildStoriesCarousel(items []domain.SummarizedStory) (Message, error) {
	if len(items) > MaxCarouselBubbles {
		return Message{}, fmt.Errorf("%w: %d > %d", domain.ErrTooManyStories, len(items), MaxCarouselBubbles)
	}

	bubbles := make([]FlexBubble, 0, len(items))
	for _, item := range items {
		bubbles = append(bubbles, storyBubble(item))
	}

	return Message{
		Type:    "flex",
		AltText: "Today's top stories",
		Contents: FlexCarousel{
			Type:     "carousel",
			Contents: bubbles,
		},
	}, nil
}

func storyBubble(item domain.SummarizedStory) FlexBubble {
	body := &FlexBox{
		Type:   "box",
		Layout: "vertical",
		Contents: []FlexComponent{
			FlexText{
				Type:   "text",
				Text:   fmt.Sprintf("#%d", item.Story.Rank),
				Weight: "bold",
				Size:   "sm",
				Color:  accentColor,
			},
			FlexText{
				Type:   "text",
				Text:   Truncate(item.Story.Title, TitleRuneLimit),
				Weight: "bold",
				Size:   "md",
				Wrap:   true,
				Margin: "md",
			},
			FlexText{
				Type:   "text",
				Text:   Truncate(item.Summary, SummaryRuneLimit),
				Size:   "sm",
				Color:  summaryColor,
				Wrap:   true,
				Margin: "md",
			},
		},
	}

	footer := &FlexBox{
		Type:   "box",
		Layout: "vertical",
		Contents: []FlexComponent{
			FlexButton{
				Type:   "button",
				Style:  "link",
				Height: "sm",
				Action: &FlexAction{
					Type:  "uri",
					Label: "Read more",
					URI:   item.Story.Link,
				},
			},
		},
	}

	return FlexBubble{Type: "bubble", Size: "kilo", Body: body, Footer: footer}
}

// BuildSummaryBubble собирает одно сообщение с общим итогом дня.
// Абзацы тела, разделённые пустой строкой, становятся секциями карточки.
func BuildSummaryBubble(summary domain.DigestSummary) Message {
	header := &FlexBox{
		Type:            "box",
		Layout:          "vertical",
		BackgroundColor: accentColor,
		PaddingAll:      "lg",
		Contents: []FlexComponent{
			FlexText{
				Type:   "text",
				Text:   "Daily Digest",
				Weight: "bold",
				Size:   "lg",
				Color:  "#FFFFFF",
			},
			FlexText{
				Type:  "text",
				Text:  summary.GeneratedAt.Format("2006-01-02"),
				Size:  "sm",
				Color: "#FFFFFF",
			},
		},
	}

	var contents []FlexComponent
	for i, section := range SplitSections(summary.Body) {
		if i > 0 {
			contents = append(contents, FlexSeparator{Type: "separator", Margin: "lg"})
		}
		contents = append(contents, FlexText{
			Type:   "text",
			Text:   section,
			Size:   "sm",
			Wrap:   true,
			Margin: "lg",
		})
	}
	if len(contents) == 0 {
		contents = append(contents, FlexText{Type: "text", Text: "No summary for today.", Size: "sm", Color: mutedColor, Wrap: true})
	}

	return Message{
		Type:    "flex",
		AltText: "Daily summary " + summary.GeneratedAt.Format("2006-01-02"),
		Contents: FlexBubble{
			Type:   "bubble",
			Header: header,
			Body:   &FlexBox{Type: "box", Layout: "vertical", Contents: contents},
		},
	}
}

// SplitSections режет текст на секции по пустым строкам, отбрасывая пустые.
func SplitSections(body string) []string {
	var sections []string
	for _, part := range strings.Split(body, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sections = append(sections, part)
	}
	return sections
}

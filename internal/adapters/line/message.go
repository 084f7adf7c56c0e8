package line

// Message описывает одно сообщение LINE Messaging API.
// Текстовое сообщение заполняет Text, flex-сообщение — AltText и Contents.
type Message struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	AltText  string        `json:"altText,omitempty"`
	Contents FlexContainer `json:"contents,omitempty"`
}

// NewTextMessage создаёт текстовое сообщение.
func NewTextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

// FlexContainer ограничивает допустимые верхнеуровневые flex-структуры.
type FlexContainer interface {
	flexContainer()
}

// FlexCarousel — горизонтальная карусель из нескольких карточек.
type FlexCarousel struct {
	Type     string       `json:"type"`
	Contents []FlexBubble `json:"contents"`
}

func (FlexCarousel) flexContainer() {}

// FlexBubble — одна карточка с необязательными шапкой, телом и футером.
type FlexBubble struct {
	Type   string   `json:"type"`
	Size   string   `json:"size,omitempty"`
	Header *FlexBox `json:"header,omitempty"`
	Body   *FlexBox `json:"body,omitempty"`
	Footer *FlexBox `json:"footer,omitempty"`
}

func (FlexBubble) flexContainer() {}

// FlexBox — контейнер компонентов с направлением раскладки.
type FlexBox struct {
	Type            string          `json:"type"`
	Layout          string          `json:"layout"`
	Spacing         string          `json:"spacing,omitempty"`
	BackgroundColor string          `json:"backgroundColor,omitempty"`
	PaddingAll      string          `json:"paddingAll,omitempty"`
	Contents        []FlexComponent `json:"contents"`
}

func (FlexBox) flexComponent() {}

// FlexComponent ограничивает допустимые элементы внутри FlexBox.
type FlexComponent interface {
	flexComponent()
}

// FlexText — текстовый элемент.
type FlexText struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Wrap   bool   `json:"wrap,omitempty"`
	Weight string `json:"weight,omitempty"`
	Size   string `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
	Margin string `json:"margin,omitempty"`
}

func (FlexText) flexComponent() {}

// FlexSeparator — горизонтальный разделитель.
type FlexSeparator struct {
	Type   string `json:"type"`
	Margin string `json:"margin,omitempty"`
}

func (FlexSeparator) flexComponent() {}

// FlexButton — кнопка с действием.
type FlexButton struct {
	Type   string      `json:"type"`
	Style  string      `json:"style,omitempty"`
	Height string      `json:"height,omitempty"`
	Action *FlexAction `json:"action"`
}

func (FlexButton) flexComponent() {}

// FlexAction — действие кнопки; для перехода по ссылке заполняется URI.
type FlexAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URI   string `json:"uri,omitempty"`
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts содержит шаблоны запросов к языковой модели.
// Текст вызова дописывается после шаблона через пробел.
type Prompts struct {
	SummarizeStory string `yaml:"summarize_story"`
	SummarizeAll   string `yaml:"summarize_all"`
	DetectLanguage string `yaml:"detect_language"`
	Translate      string `yaml:"translate"`
}

// DefaultPrompts возвращает встроенные шаблоны.
func DefaultPrompts() Prompts {
	return Prompts{
		SummarizeStory: "Summarize the following news story in 2-3 sentences. Title and link:",
		SummarizeAll:   "You are given today's top stories as numbered lines. Write a short digest: one overview paragraph, then one line per notable story. Separate logical sections with a blank line. Stories:",
		DetectLanguage: "Detect the language of the following text and answer with the language code only (for example: en, fr, zh-tw). Text:",
		Translate:      "Translate the text into the language given by the code before the colon. Answer with the translation only.",
	}
}

// LoadPrompts читает шаблоны из YAML-файла.
// При пустом пути возвращаются встроенные шаблоны; незаполненные
// поля файла также берутся из встроенных.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("чтение файла промптов: %w", err)
	}
	var loaded Prompts
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return Prompts{}, fmt.Errorf("разбор файла промптов: %w", err)
	}
	if loaded.SummarizeStory != "" {
		prompts.SummarizeStory = loaded.SummarizeStory
	}
	if loaded.SummarizeAll != "" {
		prompts.SummarizeAll = loaded.SummarizeAll
	}
	if loaded.DetectLanguage != "" {
		prompts.DetectLanguage = loaded.DetectLanguage
	}
	if loaded.Translate != "" {
		prompts.Translate = loaded.Translate
	}
	return prompts, nil
}

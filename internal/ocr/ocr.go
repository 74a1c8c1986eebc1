// Package ocr turns document files into plain text.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

type Language string

type ModelType string

const (
	Printed     ModelType = "printed"
	Handwritten ModelType = "handwritten"
	Mixed       ModelType = "mixed"
)

// Option is a code with its display name.
type Option struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var languages = []Option{
	{"ru", "Русский"},
	{"en", "Английский"},
	{"de", "Немецкий"},
	{"fr", "Французский"},
	{"es", "Испанский"},
	{"it", "Итальянский"},
}

var modelTypes = []Option{
	{string(Printed), "Печатный текст"},
	{string(Handwritten), "Рукописный текст"},
	{string(Mixed), "Смешанный текст"},
}

func Languages() []Option  { return append([]Option(nil), languages...) }
func ModelTypes() []Option { return append([]Option(nil), modelTypes...) }

// ParseLanguage validates a language code. Empty selects "ru".
func ParseLanguage(s string) (Language, error) {
	if s == "" {
		return "ru", nil
	}
	for _, o := range languages {
		if o.Code == s {
			return Language(s), nil
		}
	}
	return "", fmt.Errorf("unsupported language: %q", s)
}

// ParseModelType validates a model type. Empty selects Printed.
func ParseModelType(s string) (ModelType, error) {
	if s == "" {
		return Printed, nil
	}
	for _, o := range modelTypes {
		if o.Code == s {
			return ModelType(s), nil
		}
	}
	return "", fmt.Errorf("unsupported model type: %q", s)
}

// Input is one file to recognize.
type Input struct {
	Filename string
	Data     []byte
	Language Language
	Model    ModelType
}

// Source tells where recognized text came from.
type Source string

const (
	SourceTextLayer Source = "text_layer"
	SourceStub      Source = "stub"
	SourceRemote    Source = "remote"
)

// Result is recognized text plus how it was produced.
type Result struct {
	Text       string    `json:"recognized_text"`
	Source     Source    `json:"source"`
	Language   Language  `json:"language"`
	Model      ModelType `json:"model_type"`
	Confidence float64   `json:"confidence"`
}

// Recognizer extracts text from a document.
type Recognizer interface {
	Recognize(ctx context.Context, in Input) (*Result, error)
}

// TextStats summarizes recognized text.
type TextStats struct {
	TextLength     int `json:"text_length"`
	WordCount      int `json:"word_count"`
	CharacterCount int `json:"character_count"`
	LineCount      int `json:"line_count"`
}

// Stats counts characters, words and lines. CharacterCount excludes spaces.
func Stats(text string) TextStats {
	return TextStats{
		TextLength:     utf8.RuneCountInString(text),
		WordCount:      len(strings.Fields(text)),
		CharacterCount: utf8.RuneCountInString(strings.ReplaceAll(text, " ", "")),
		LineCount:      strings.Count(text, "\n") + 1,
	}
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

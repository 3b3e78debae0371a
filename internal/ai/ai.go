// Package ai defines the contracts of the external AI services used by the
// bot: speech-to-text, summarization and translation. Implementations live
// in the openai, gemini and deepl subpackages.
package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without usable content.
var ErrEmptyResponse = errors.New("provider returned an empty response")

// Transcription is the text recognized in an audio file.
type Transcription struct {
	Text  string
	Model string
}

// Transcriber converts an audio file on disk to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) (*Transcription, error)
}

// SummaryResult is the structured summary produced by an LLM.
type SummaryResult struct {
	// Language is the two letter IETF tag of the transcript.
	Language      string
	Topics        []string
	Hashtags      []string
	ReactionEmoji string

	Provider         string
	Model            string
	RequestID        string
	PromptTokens     int
	CompletionTokens int
	// Cost is in USD.
	Cost float64
}

// Summarizer condenses a transcript into topics.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*SummaryResult, error)
}

// Language is a target language offered by a translation provider.
type Language struct {
	Name    string
	IETFTag string
	Code    string
}

// Translator translates texts into a provider language code.
type Translator interface {
	Translate(ctx context.Context, texts []string, targetCode string) ([]string, error)
	TargetLanguages(ctx context.Context) ([]Language, error)
}

// Package openai implements speech-to-text and summarization on the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/summaree/summareebot/internal/ai"
	"github.com/summaree/summareebot/internal/config"
)

// ProviderName identifies this provider in summaries and metrics.
const ProviderName = "openai"

// Client implements ai.Transcriber and ai.Summarizer.
type Client struct {
	client               *gopenai.Client
	transcriptionModel   string
	summaryModel         string
	temperature          float32
	timeout              time.Duration
	promptPricePer1K     float64
	completionPricePer1K float64
	log                  *slog.Logger
}

var (
	_ ai.Transcriber = (*Client)(nil)
	_ ai.Summarizer  = (*Client)(nil)
)

// NewClient creates an OpenAI client from configuration.
func NewClient(cfg config.OpenAIConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.TranscriptionModel
	if model == "" {
		model = gopenai.Whisper1
	}

	return &Client{
		client:               gopenai.NewClientWithConfig(clientCfg),
		transcriptionModel:   model,
		summaryModel:         cfg.SummaryModel,
		temperature:          cfg.Temperature,
		timeout:              cfg.Timeout,
		promptPricePer1K:     cfg.PromptPricePer1K,
		completionPricePer1K: cfg.CompletionPricePer1K,
		log:                  log.With("component", "openai_client"),
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Transcribe sends an audio file to Whisper.
func (c *Client) Transcribe(ctx context.Context, filePath string) (*ai.Transcription, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateTranscription(ctx, gopenai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filePath,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	c.log.DebugContext(ctx, "Transcription received",
		"duration_ms", time.Since(start).Milliseconds(), "chars", len(resp.Text))

	return &ai.Transcription{
		Text:  strings.TrimSpace(resp.Text),
		Model: c.transcriptionModel,
	}, nil
}

// Summarize asks the chat model for a JSON summary of the transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (*ai.SummaryResult, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, errors.New("empty transcript")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model:       c.summaryModel,
		Temperature: c.temperature,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: ai.SummaryInstruction},
			{Role: gopenai.ChatMessageRoleUser, Content: transcript},
		},
		ResponseFormat: &gopenai.ChatCompletionResponseFormat{
			Type: gopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned: %w", ai.ErrEmptyResponse)
	}

	result, err := ai.ParseSummaryJSON(resp.Choices[0].Message.Content)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to parse summary response", "error", err, "request_id", resp.ID)
		return nil, err
	}

	result.Provider = ProviderName
	result.Model = resp.Model
	result.RequestID = resp.ID
	result.PromptTokens = resp.Usage.PromptTokens
	result.CompletionTokens = resp.Usage.CompletionTokens
	result.Cost = c.cost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	c.log.InfoContext(ctx, "Summary generated",
		"duration_ms", time.Since(start).Milliseconds(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"topics", len(result.Topics))
	return result, nil
}

func (c *Client) cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*c.promptPricePer1K +
		float64(completionTokens)/1000*c.completionPricePer1K
}

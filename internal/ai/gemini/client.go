// Package gemini implements summarization with Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/summaree/summareebot/internal/ai"
	"github.com/summaree/summareebot/internal/config"
)

// ProviderName identifies this provider in summaries and metrics.
const ProviderName = "gemini"

type sdkClient struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
}

// Option customizes the underlying genai client.
type Option func(*genai.ClientConfig)

// WithBaseURL points the client at another API host.
func WithBaseURL(url string) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
	}
}

// NewClient creates a Gemini summarizer with the provided configuration.
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	log *slog.Logger,
	opts ...Option,
) (ai.Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(clientCfg)
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	baseCfg := &genai.GenerateContentConfig{
		Temperature:       &cfg.Temperature,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: ai.SummaryInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    summarySchema,

		// Voice messages are private content the user asked us to condense.
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return &sdkClient{
		genaiClient:      gi,
		log:              logger,
		contentConfig:    baseCfg,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		code, ok := apiErrorCode(err)
		if !ok || (code != 500 && code != 503) {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}

		if i == c.maxRetries {
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, code, err)
		}

		c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", code)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	return nil, err
}

func apiErrorCode(err error) (int, bool) {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return 0, false
}

// Summarize asks Gemini for a schema-constrained JSON summary.
func (c *sdkClient) Summarize(ctx context.Context, transcript string) (*ai.SummaryResult, error) {
	if transcript == "" {
		return nil, errors.New("empty transcript")
	}
	c.log.DebugContext(ctx, "Generating summary", "chars", len(transcript))

	contents := []*genai.Content{genai.NewContentFromText(transcript, genai.RoleUser)}
	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, c.contentConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	text, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		return nil, err
	}

	result, err := ai.ParseSummaryJSON(text)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to parse summary JSON from Gemini response", "error", err, "response_text", text)
		return nil, err
	}

	result.Provider = ProviderName
	result.Model = c.defaultModelName
	if resp.ModelVersion != "" {
		result.Model = resp.ModelVersion
	}
	// The Gemini API backend of genai v1.10.0 drops responseId; only Vertex AI fills it.
	result.RequestID = resp.ResponseID
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("summary blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)

		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("summary returned no content, finish reason %s: %w", finishReason, ai.ErrEmptyResponse)
		}
		return "", ai.ErrEmptyResponse
	}

	return resp.Text(), nil
}

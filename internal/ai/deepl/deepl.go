// Package deepl is a small client for the DeepL translation REST API.
package deepl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/summaree/summareebot/internal/ai"
	"github.com/summaree/summareebot/internal/config"
)

const (
	proBaseURL  = "https://api.deepl.com"
	freeBaseURL = "https://api-free.deepl.com"

	// freeKeySuffix marks keys of the DeepL API Free plan.
	freeKeySuffix = ":fx"
	// maxErrorBody caps how much of an error response ends up in the error.
	maxErrorBody = 512
)

// duplicateTags picks the variant used when several languages share a tag.
var duplicateTags = map[string]string{
	"en": "EN-US",
	"pt": "PT-BR",
}

// Client implements ai.Translator.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

var _ ai.Translator = (*Client)(nil)

// NewClient creates a DeepL client. The host follows the key type unless
// cfg.BaseURL overrides it.
func NewClient(cfg config.DeepLConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepl API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = proBaseURL
		if strings.HasSuffix(cfg.APIKey, freeKeySuffix) {
			baseURL = freeBaseURL
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With("component", "deepl_client"),
	}, nil
}

type translateRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates texts into the DeepL language code, keeping their order.
func (c *Client) Translate(ctx context.Context, texts []string, targetCode string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if targetCode == "" {
		return nil, errors.New("target language code is required")
	}

	body, err := json.Marshal(translateRequest{Text: texts, TargetLang: targetCode})
	if err != nil {
		return nil, fmt.Errorf("failed to encode translate request: %w", err)
	}

	var resp translateResponse
	if err := c.do(ctx, http.MethodPost, "/v2/translate", bytes.NewReader(body), &resp); err != nil {
		return nil, fmt.Errorf("translate failed: %w", err)
	}
	if len(resp.Translations) != len(texts) {
		return nil, fmt.Errorf("translate returned %d texts for %d inputs", len(resp.Translations), len(texts))
	}

	out := make([]string, len(resp.Translations))
	for i, tr := range resp.Translations {
		out[i] = tr.Text
	}

	c.log.DebugContext(ctx, "Translated texts", "count", len(out), "target", targetCode)
	return out, nil
}

type languageJSON struct {
	Language string `json:"language"`
	Name     string `json:"name"`
}

// TargetLanguages lists the target languages, one per IETF tag.
func (c *Client) TargetLanguages(ctx context.Context) ([]ai.Language, error) {
	var languages []languageJSON
	if err := c.do(ctx, http.MethodGet, "/v2/languages?type=target", nil, &languages); err != nil {
		return nil, fmt.Errorf("failed to list target languages: %w", err)
	}
	return mapLanguages(languages), nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// APIError is a non-200 answer of the DeepL API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusForbidden:
		return "deepl: authorization failed"
	case 456:
		return "deepl: quota exceeded"
	}
	return fmt.Sprintf("deepl: status %d: %s", e.StatusCode, e.Message)
}

// mapLanguages derives IETF tags from DeepL codes and keeps one language
// per tag, the first one unless duplicateTags names another.
func mapLanguages(languages []languageJSON) []ai.Language {
	byTag := make(map[string]ai.Language, len(languages))
	var order []string

	for _, l := range languages {
		code := strings.ToUpper(l.Language)
		if len(code) < 2 {
			continue
		}
		tag := strings.ToLower(code[:2])
		lang := ai.Language{Name: l.Name, IETFTag: tag, Code: code}

		if _, seen := byTag[tag]; !seen {
			order = append(order, tag)
			byTag[tag] = lang
			continue
		}
		if duplicateTags[tag] == code {
			byTag[tag] = lang
		}
	}

	out := make([]ai.Language, 0, len(order))
	for _, tag := range order {
		out = append(out, byTag[tag])
	}
	return out
}

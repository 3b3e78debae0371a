package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summaree/summareebot/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.OpenAIConfig{
		APIKey:               "test-key",
		BaseURL:              srv.URL + "/v1",
		SummaryModel:         "gpt-4o-mini",
		Timeout:              5 * time.Second,
		PromptPricePer1K:     0.5,
		CompletionPricePer1K: 1.5,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()
	_, err := NewClient(config.OpenAIConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini-2024",
			"choices": [{"index": 0, "message": {"role": "assistant",
				"content": "{\"language\":\"en\",\"topics\":[\"Groceries\",\"Dinner at 8\"],\"hashtags\":[\"shopping\"],\"reaction_emoji\":\"🛒\"}"}}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 2000, "total_tokens": 3000}
		}`)
	})

	res, err := c.Summarize(context.Background(), "please buy milk, dinner is at eight")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	format, _ := got["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])

	assert.Equal(t, "en", res.Language)
	assert.Equal(t, []string{"Groceries", "Dinner at 8"}, res.Topics)
	assert.Equal(t, []string{"#shopping"}, res.Hashtags)
	assert.Equal(t, "🛒", res.ReactionEmoji)
	assert.Equal(t, ProviderName, res.Provider)
	assert.Equal(t, "gpt-4o-mini-2024", res.Model)
	assert.Equal(t, "chatcmpl-1", res.RequestID)
	assert.Equal(t, 1000, res.PromptTokens)
	assert.Equal(t, 2000, res.CompletionTokens)
	assert.InDelta(t, 3.5, res.Cost, 1e-9)
}

func TestSummarizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "no choices", body: `{"id":"x","choices":[]}`},
		{name: "no topics", body: `{"id":"x","choices":[{"message":{"role":"assistant","content":"{\"topics\":[]}"}}]}`},
		{name: "not json", body: `{"id":"x","choices":[{"message":{"role":"assistant","content":"- a bullet"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Summarize(context.Background(), "hello")
			assert.Error(t, err)
		})
	}

	t.Run("empty transcript", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
			t.Error("no request expected")
		})
		_, err := c.Summarize(context.Background(), "  ")
		assert.Error(t, err)
	})
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "voice.mp3", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text": "  hello world  "}`)
	})

	path := filepath.Join(t.TempDir(), "voice.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3fake"), 0o600))

	res, err := c.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.Equal(t, "whisper-1", res.Model)
}

func TestTranscribeAPIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad audio","type":"invalid_request_error"}}`)
	})

	path := filepath.Join(t.TempDir(), "voice.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := c.Transcribe(context.Background(), path)
	assert.ErrorContains(t, err, "bad audio")
}

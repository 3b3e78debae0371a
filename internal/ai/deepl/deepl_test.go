package deepl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summaree/summareebot/internal/ai"
	"github.com/summaree/summareebot/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.DeepLConfig{APIKey: "secret", BaseURL: srv.URL + "/"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestNewClientBaseURL(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name string
		cfg  config.DeepLConfig
		want string
	}{
		{name: "pro key", cfg: config.DeepLConfig{APIKey: "abc"}, want: proBaseURL},
		{name: "free key", cfg: config.DeepLConfig{APIKey: "abc:fx"}, want: freeBaseURL},
		{name: "override", cfg: config.DeepLConfig{APIKey: "abc:fx", BaseURL: "http://localhost:9000/"}, want: "http://localhost:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewClient(tt.cfg, log)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.baseURL)
		})
	}

	_, err := NewClient(config.DeepLConfig{}, log)
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/translate", r.URL.Path)
		assert.Equal(t, "DeepL-Auth-Key secret", r.Header.Get("Authorization"))

		var req translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "DE", req.TargetLang)
		assert.Equal(t, []string{"one", "two"}, req.Text)

		_, _ = io.WriteString(w, `{"translations":[{"detected_source_language":"EN","text":"eins"},{"detected_source_language":"EN","text":"zwei"}]}`)
	})

	got, err := c.Translate(context.Background(), []string{"one", "two"}, "DE")
	require.NoError(t, err)
	assert.Equal(t, []string{"eins", "zwei"}, got)
}

func TestTranslateNothing(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	got, err := c.Translate(context.Background(), nil, "DE")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTranslateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "quota",
			status: 456,
			body:   `{"message":"Quota exceeded"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, 456, apiErr.StatusCode)
				assert.ErrorContains(t, err, "quota exceeded")
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "authorization failed")
			},
		},
		{
			name:   "count mismatch",
			status: http.StatusOK,
			body:   `{"translations":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "0 texts for 1 inputs")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Translate(context.Background(), []string{"hello"}, "DE")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTargetLanguages(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/languages", r.URL.Path)
		assert.Equal(t, "target", r.URL.Query().Get("type"))
		_, _ = io.WriteString(w, `[
			{"language":"DE","name":"German"},
			{"language":"EN-GB","name":"English (British)"},
			{"language":"EN-US","name":"English (American)"},
			{"language":"PT-BR","name":"Portuguese (Brazilian)"},
			{"language":"PT-PT","name":"Portuguese (European)"},
			{"language":"ZH-HANS","name":"Chinese (simplified)"},
			{"language":"ZH-HANT","name":"Chinese (traditional)"}
		]`)
	})

	got, err := c.TargetLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ai.Language{
		{Name: "German", IETFTag: "de", Code: "DE"},
		{Name: "English (American)", IETFTag: "en", Code: "EN-US"},
		{Name: "Portuguese (Brazilian)", IETFTag: "pt", Code: "PT-BR"},
		{Name: "Chinese (simplified)", IETFTag: "zh", Code: "ZH-HANS"},
	}, got)
}

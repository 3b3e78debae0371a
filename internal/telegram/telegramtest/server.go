// Package telegramtest provides a fake Bot API server for tests.
package telegramtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
)

// Token is the bot token accepted by the fake server.
const Token = "123456:TEST-token"

// Call is one Bot API request received by the server.
type Call struct {
	Method string
	Fields map[string]string
	// Files maps multipart file fields to their file name.
	Files map[string]string
}

// Server records Bot API calls and answers them with canned results.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []Call
	results map[string]string
	errors  map[string]string
	files   map[string][]byte
	nextID  int
}

// NewServer starts a fake Bot API server closed with the test.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		results: make(map[string]string),
		errors:  make(map[string]string),
		files:   make(map[string][]byte),
		nextID:  100,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Bot returns a client talking to the server.
func (s *Server) Bot(t *testing.T, opts ...bot.Option) *bot.Bot {
	t.Helper()
	opts = append([]bot.Option{bot.WithServerURL(s.URL), bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(Token, opts...)
	if err != nil {
		t.Fatalf("failed to create bot: %v", err)
	}
	return b
}

// SetResult makes method answer with the given JSON result.
func (s *Server) SetResult(method, resultJSON string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[method] = resultJSON
}

// SetError makes method fail with a Bot API error description.
func (s *Server) SetError(method, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[method] = description
}

// SetFile serves content under /file/bot<token>/<path>.
func (s *Server) SetFile(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = content
}

// Calls returns the recorded calls, optionally filtered by method.
func (s *Server) Calls(methods ...string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(methods) == 0 {
		return append([]Call(nil), s.calls...)
	}
	var out []Call
	for _, c := range s.calls {
		for _, m := range methods {
			if c.Method == m {
				out = append(out, c)
			}
		}
	}
	return out
}

// Last returns the most recent call of method and whether there was one.
func (s *Server) Last(method string) (Call, bool) {
	calls := s.Calls(method)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if path, ok := strings.CutPrefix(r.URL.Path, "/file/bot"+Token+"/"); ok {
		s.mu.Lock()
		content, found := s.files[path]
		s.mu.Unlock()
		if !found {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(content)
		return
	}

	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+Token+"/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	call := Call{Method: method, Fields: map[string]string{}, Files: map[string]string{}}
	if err := r.ParseMultipartForm(32 << 20); err == nil && r.MultipartForm != nil {
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				call.Fields[k] = v[0]
			}
		}
		for k, v := range r.MultipartForm.File {
			if len(v) > 0 {
				call.Files[k] = v[0].Filename
			}
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	description, failing := s.errors[method]
	result, found := s.results[method]
	if !found {
		result = s.defaultResult(call)
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusBadRequest)
		desc, _ := json.Marshal(description)
		_, _ = fmt.Fprintf(w, `{"ok":false,"error_code":400,"description":%s}`, desc)
		return
	}
	_, _ = fmt.Fprintf(w, `{"ok":true,"result":%s}`, result)
}

// defaultResult must be called with mu held.
func (s *Server) defaultResult(call Call) string {
	switch call.Method {
	case "sendMessage", "sendDocument", "sendInvoice", "editMessageText", "editMessageReplyMarkup":
		s.nextID++
		chatID := call.Fields["chat_id"]
		if chatID == "" {
			chatID = "0"
		}
		msg := map[string]any{
			"message_id": s.nextID,
			"date":       0,
			"chat":       map[string]any{"id": json.Number(chatID), "type": "private"},
			"text":       call.Fields["text"],
		}
		raw, _ := json.Marshal(msg)
		return string(raw)
	case "getMyCommands":
		return "[]"
	default:
		return "true"
	}
}

// Package pipeline turns an audio file into a stored transcript and a
// summary in the language of the chat.
package pipeline

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/summaree/summareebot/internal/ai"
	"github.com/summaree/summareebot/internal/audio"
	"github.com/summaree/summareebot/internal/database"
	"github.com/summaree/summareebot/internal/metrics"
)

// TranslationModel is recorded on summaries produced by translating topics.
const TranslationModel = "deepl"

var (
	// ErrEmptyTranscription is returned when speech-to-text finds no words.
	ErrEmptyTranscription = errors.New("transcription is empty")
	// ErrFileTooLarge is returned for files the Bot API does not let us download.
	ErrFileTooLarge = audio.ErrFileTooLarge
)

// Downloader fetches a Telegram file to a local path and returns its size.
type Downloader interface {
	DownloadFile(ctx context.Context, fileID, dst string, maxSize int64) (int64, error)
}

// Transcoder converts an audio file to mp3.
type Transcoder interface {
	ToMP3(ctx context.Context, in string) (string, error)
}

// Deps holds the collaborators of the Service.
type Deps struct {
	Store       database.Store
	Downloader  Downloader
	Transcoder  Transcoder
	Transcriber ai.Transcriber
	Summarizer  ai.Summarizer
	Translator  ai.Translator
	Logger      *slog.Logger

	MaxFileSize int64
	TempDir     string
}

// Service runs the transcription and summarization pipeline.
type Service struct {
	store       database.Store
	downloader  Downloader
	transcoder  Transcoder
	transcriber ai.Transcriber
	summarizer  ai.Summarizer
	translator  ai.Translator
	log         *slog.Logger
	maxFileSize int64
	tempDir     string
}

// NewService creates a Service.
func NewService(deps Deps) *Service {
	return &Service{
		store:       deps.Store,
		downloader:  deps.Downloader,
		transcoder:  deps.Transcoder,
		transcriber: deps.Transcriber,
		summarizer:  deps.Summarizer,
		translator:  deps.Translator,
		log:         deps.Logger.With("component", "pipeline"),
		maxFileSize: deps.MaxFileSize,
		tempDir:     deps.TempDir,
	}
}

// Request is one audio file to summarize for a chat.
type Request struct {
	File   audio.File
	UserID int64
	ChatID int64
	// Target is the summary language of the chat.
	Target *database.Language
}

// Result is the outcome of Process.
type Result struct {
	Transcript *database.Transcript
	// InputLanguage is the detected transcript language, nil when unknown.
	InputLanguage *database.Language
	// Summary is in the target language.
	Summary *database.Summary
	// Cost is what this call spent on the summarizer, in USD.
	Cost float64
	// Cached is set when nothing new had to be generated.
	Cached bool
}

// Process returns the transcript and target-language summary of a file,
// reusing stored results wherever possible.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	if req.Target == nil {
		return nil, errors.New("target language is required")
	}

	transcript, cached, err := s.transcript(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &Result{Transcript: transcript}
	if transcript.InputLanguageID.Valid {
		if res.InputLanguage, err = s.store.GetLanguage(ctx, transcript.InputLanguageID.Int64); err != nil {
			return nil, err
		}
	}

	target, err := s.store.GetSummary(ctx, transcript.ID, req.Target.ID)
	if err != nil {
		return nil, err
	}
	if target != nil {
		res.Summary = target
		res.Cached = cached
		s.log.DebugContext(ctx, "Reusing stored summary", "transcript_id", transcript.ID, "summary_id", target.ID)
		return res, nil
	}

	var source *database.Summary
	if res.InputLanguage != nil {
		if source, err = s.store.GetSummary(ctx, transcript.ID, res.InputLanguage.ID); err != nil {
			return nil, err
		}
	}

	if source == nil {
		generated, err := s.summarize(ctx, res, req)
		if err != nil {
			return nil, err
		}
		res.Cost = generated.Cost

		if res.InputLanguage == nil {
			// Unknown source language: store only the translated summary.
			res.Summary, err = s.translateSummary(ctx, transcript.ID, generated.Topics, req, generated)
			return res, err
		}

		source, err = s.saveSummary(ctx, &database.Summary{
			TranscriptID:     transcript.ID,
			LanguageID:       res.InputLanguage.ID,
			Model:            generated.Model,
			RequestID:        generated.RequestID,
			PromptTokens:     generated.PromptTokens,
			CompletionTokens: generated.CompletionTokens,
			TotalCost:        generated.Cost,
			UserID:           nullInt64(req.UserID),
			Topics:           topics(generated.Topics),
		})
		if err != nil {
			return nil, err
		}
		metrics.SummariesTotal.WithLabelValues(generated.Provider).Inc()
		metrics.SummaryCostTotal.Add(generated.Cost)
	}

	if source.LanguageID == req.Target.ID {
		res.Summary = source
		return res, nil
	}

	res.Summary, err = s.translateSummary(ctx, transcript.ID, source.TopicTexts(), req, nil)
	return res, err
}

// transcript finds or creates the transcript of the requested file. The bool
// reports whether it was already stored.
func (s *Service) transcript(ctx context.Context, req Request) (*database.Transcript, bool, error) {
	file := req.File
	t, err := s.store.GetTranscriptByFileUniqueID(ctx, file.FileUniqueID)
	if err != nil {
		return nil, false, err
	}
	if t != nil {
		metrics.TranscriptionsTotal.WithLabelValues("cached").Inc()
		return t, true, nil
	}

	if s.maxFileSize > 0 && file.FileSize > s.maxFileSize {
		metrics.TranscriptionsTotal.WithLabelValues("too_large").Inc()
		return nil, false, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, file.FileSize)
	}

	dir, err := os.MkdirTemp(s.tempDir, "summaree-*")
	if err != nil {
		return nil, false, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.WarnContext(ctx, "Failed to remove temp dir", "dir", dir, "error", err)
		}
	}()

	path := filepath.Join(dir, audio.ExtractFileName(file))
	size, err := s.downloader.DownloadFile(ctx, file.FileID, path, s.maxFileSize)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			metrics.TranscriptionsTotal.WithLabelValues("too_large").Inc()
		}
		return nil, false, fmt.Errorf("failed to download file: %w", err)
	}

	hash, err := fileSHA256(path)
	if err != nil {
		return nil, false, err
	}
	if t, err = s.store.GetTranscriptBySHA256(ctx, hash); err != nil {
		return nil, false, err
	}
	if t != nil {
		metrics.TranscriptionsTotal.WithLabelValues("cached").Inc()
		s.log.DebugContext(ctx, "Reusing transcript with identical content", "transcript_id", t.ID)
		return t, true, nil
	}

	if audio.NeedsTranscode(path) {
		if path, err = s.transcoder.ToMP3(ctx, path); err != nil {
			metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
			return nil, false, err
		}
	}

	start := time.Now()
	transcription, err := s.transcriber.Transcribe(ctx, path)
	metrics.ObserveAI("transcribe", start)
	if err != nil {
		metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
		return nil, false, err
	}
	if strings.TrimSpace(transcription.Text) == "" {
		metrics.TranscriptionsTotal.WithLabelValues("empty").Inc()
		return nil, false, ErrEmptyTranscription
	}

	if file.FileSize == 0 {
		file.FileSize = size
	}
	t = &database.Transcript{
		FileID:       file.FileID,
		FileUniqueID: file.FileUniqueID,
		SHA256Hash:   hash,
		Duration:     file.Duration,
		MimeType:     file.MimeType,
		FileSize:     file.FileSize,
		Result:       transcription.Text,
		UserID:       nullInt64(req.UserID),
		ChatID:       nullInt64(req.ChatID),
	}
	if err := s.store.CreateTranscript(ctx, t); err != nil {
		// Another update may have stored the same file meanwhile.
		if existing, getErr := s.store.GetTranscriptByFileUniqueID(ctx, file.FileUniqueID); getErr == nil && existing != nil {
			return existing, true, nil
		}
		return nil, false, err
	}

	metrics.TranscriptionsTotal.WithLabelValues("new").Inc()
	s.log.InfoContext(ctx, "Transcribed file", "transcript_id", t.ID, "duration", t.Duration, "chars", len(t.Result))
	return t, false, nil
}

// summarize runs the summarizer and records the detected language, hashtags
// and reaction emoji on the transcript.
func (s *Service) summarize(ctx context.Context, res *Result, req Request) (*ai.SummaryResult, error) {
	start := time.Now()
	generated, err := s.summarizer.Summarize(ctx, res.Transcript.Result)
	metrics.ObserveAI("summarize", start)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transcript %d: %w", res.Transcript.ID, err)
	}

	if generated.Language != "" {
		if res.InputLanguage, err = s.store.GetLanguageByTag(ctx, generated.Language); err != nil {
			return nil, err
		}
	}
	if res.InputLanguage == nil {
		s.log.WarnContext(ctx, "Transcript language is not supported", "language", generated.Language, "transcript_id", res.Transcript.ID)
	}

	t := res.Transcript
	t.Hashtags = strings.Join(generated.Hashtags, " ")
	t.ReactionEmoji = generated.ReactionEmoji
	t.InputLanguageID = sql.NullInt64{}
	if res.InputLanguage != nil {
		t.InputLanguageID = nullInt64(res.InputLanguage.ID)
	}
	if err := s.store.UpdateTranscriptAnalysis(ctx, t.ID, t.InputLanguageID, t.Hashtags, t.ReactionEmoji); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Summarized transcript", "transcript_id", t.ID, "user_id", req.UserID,
		"provider", generated.Provider, "topics", len(generated.Topics), "cost", generated.Cost)
	return generated, nil
}

// translateSummary stores the target-language summary built from texts. When
// origin is set the summary carries its model data and cost.
func (s *Service) translateSummary(ctx context.Context, transcriptID int64, texts []string, req Request, origin *ai.SummaryResult) (*database.Summary, error) {
	start := time.Now()
	translated, err := s.translator.Translate(ctx, texts, req.Target.Code)
	metrics.ObserveAI("translate", start)
	if err != nil {
		return nil, fmt.Errorf("failed to translate summary into %s: %w", req.Target.Code, err)
	}
	metrics.TranslationsTotal.WithLabelValues("summary").Inc()

	summary := &database.Summary{
		TranscriptID: transcriptID,
		LanguageID:   req.Target.ID,
		Model:        TranslationModel,
		UserID:       nullInt64(req.UserID),
		Topics:       topics(translated),
	}
	if origin != nil {
		summary.Model = origin.Model
		summary.RequestID = origin.RequestID
		summary.PromptTokens = origin.PromptTokens
		summary.CompletionTokens = origin.CompletionTokens
		summary.TotalCost = origin.Cost
		metrics.SummariesTotal.WithLabelValues(origin.Provider).Inc()
		metrics.SummaryCostTotal.Add(origin.Cost)
	}
	return s.saveSummary(ctx, summary)
}

func (s *Service) saveSummary(ctx context.Context, summary *database.Summary) (*database.Summary, error) {
	if err := s.store.CreateSummary(ctx, summary); err != nil {
		if existing, getErr := s.store.GetSummary(ctx, summary.TranscriptID, summary.LanguageID); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return summary, nil
}

// TranscriptText is a full transcript, possibly translated.
type TranscriptText struct {
	Text string
	// Language is the language of Text, nil when unknown.
	Language *database.Language
}

// FullTranscript returns the stored transcript text, translated into target
// when target is set and differs from the transcript language.
func (s *Service) FullTranscript(ctx context.Context, transcriptID int64, target *database.Language) (*TranscriptText, error) {
	t, err := s.store.GetTranscript(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("transcript %d not found", transcriptID)
	}

	out := &TranscriptText{Text: t.Result}
	if t.InputLanguageID.Valid {
		if out.Language, err = s.store.GetLanguage(ctx, t.InputLanguageID.Int64); err != nil {
			return nil, err
		}
	}
	if target == nil || (out.Language != nil && out.Language.ID == target.ID) {
		return out, nil
	}

	start := time.Now()
	translated, err := s.translator.Translate(ctx, []string{t.Result}, target.Code)
	metrics.ObserveAI("translate", start)
	if err != nil {
		return nil, fmt.Errorf("failed to translate transcript %d: %w", transcriptID, err)
	}
	metrics.TranslationsTotal.WithLabelValues("transcript").Inc()

	out.Text = translated[0]
	out.Language = target
	return out, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open downloaded file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash downloaded file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func topics(texts []string) []database.Topic {
	out := make([]database.Topic, len(texts))
	for i, text := range texts {
		out[i] = database.Topic{Position: i, Text: text}
	}
	return out
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

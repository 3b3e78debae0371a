package database

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *sqlxStore) GetTranscript(ctx context.Context, id int64) (*Transcript, error) {
	t, err := get[Transcript](ctx, s, `SELECT * FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript %d: %w", id, err)
	}
	return t, nil
}

func (s *sqlxStore) GetTranscriptByFileUniqueID(ctx context.Context, fileUniqueID string) (*Transcript, error) {
	t, err := get[Transcript](ctx, s, `SELECT * FROM transcripts WHERE file_unique_id = ?`, fileUniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript by file %q: %w", fileUniqueID, err)
	}
	return t, nil
}

func (s *sqlxStore) GetTranscriptBySHA256(ctx context.Context, hash string) (*Transcript, error) {
	t, err := get[Transcript](ctx, s, `SELECT * FROM transcripts WHERE sha256_hash = ?`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript by hash: %w", err)
	}
	return t, nil
}

func (s *sqlxStore) CreateTranscript(ctx context.Context, transcript *Transcript) error {
	if transcript == nil {
		return fmt.Errorf("cannot save nil transcript")
	}
	if transcript.FileUniqueID == "" || transcript.SHA256Hash == "" {
		return fmt.Errorf("transcript must have a file unique id and a hash")
	}

	ts := utcNow()
	transcript.CreatedAt = ts
	transcript.UpdatedAt = ts

	result, err := s.q.NamedExecContext(ctx, `
		INSERT INTO transcripts (file_id, file_unique_id, sha256_hash, duration, mime_type, file_size, result,
			input_language_id, hashtags, reaction_emoji, user_id, chat_id, created_at, updated_at)
		VALUES (:file_id, :file_unique_id, :sha256_hash, :duration, :mime_type, :file_size, :result,
			:input_language_id, :hashtags, :reaction_emoji, :user_id, :chat_id, :created_at, :updated_at)`, transcript)
	if err != nil {
		return fmt.Errorf("failed to save transcript %q: %w", transcript.FileUniqueID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read transcript id: %w", err)
	}
	transcript.ID = id

	s.logger.DebugContext(ctx, "Transcript saved", "transcript_id", id, "file_unique_id", transcript.FileUniqueID)
	return nil
}

func (s *sqlxStore) UpdateTranscriptAnalysis(ctx context.Context, id int64, inputLanguageID sql.NullInt64, hashtags, reactionEmoji string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE transcripts SET input_language_id = ?, hashtags = ?, reaction_emoji = ?, updated_at = ?
		WHERE id = ?`, inputLanguageID, hashtags, reactionEmoji, utcNow(), id)
	if err != nil {
		return fmt.Errorf("failed to update transcript %d: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) GetSummary(ctx context.Context, transcriptID, languageID int64) (*Summary, error) {
	summary, err := get[Summary](ctx, s, `SELECT * FROM summaries WHERE transcript_id = ? AND language_id = ?`, transcriptID, languageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary of transcript %d: %w", transcriptID, err)
	}
	if summary == nil {
		return nil, nil
	}

	if err := s.q.SelectContext(ctx, &summary.Topics,
		`SELECT * FROM topics WHERE summary_id = ? ORDER BY position`, summary.ID); err != nil {
		return nil, fmt.Errorf("failed to get topics of summary %d: %w", summary.ID, err)
	}
	return summary, nil
}

func (s *sqlxStore) CreateSummary(ctx context.Context, summary *Summary) error {
	if summary == nil {
		return fmt.Errorf("cannot save nil summary")
	}
	if len(summary.Topics) == 0 {
		return fmt.Errorf("summary of transcript %d has no topics", summary.TranscriptID)
	}

	return s.WithTx(ctx, func(tx Store) error {
		ts := tx.(*sqlxStore)
		summary.CreatedAt = utcNow()

		result, err := ts.q.NamedExecContext(ctx, `
			INSERT INTO summaries (transcript_id, language_id, model, request_id, prompt_tokens, completion_tokens,
				total_cost, user_id, created_at)
			VALUES (:transcript_id, :language_id, :model, :request_id, :prompt_tokens, :completion_tokens,
				:total_cost, :user_id, :created_at)`, summary)
		if err != nil {
			return fmt.Errorf("failed to save summary of transcript %d: %w", summary.TranscriptID, err)
		}
		if summary.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read summary id: %w", err)
		}

		for i := range summary.Topics {
			topic := &summary.Topics[i]
			topic.SummaryID = summary.ID
			topic.Position = i
			res, err := ts.q.NamedExecContext(ctx,
				`INSERT INTO topics (summary_id, position, text) VALUES (:summary_id, :position, :text)`, topic)
			if err != nil {
				return fmt.Errorf("failed to save topic %d of summary %d: %w", i, summary.ID, err)
			}
			if topic.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read topic id: %w", err)
			}
		}
		return nil
	})
}

func (s *sqlxStore) CountUserSummaries(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := s.q.GetContext(ctx, &count, `SELECT COUNT(*) FROM summaries WHERE user_id = ?`, userID); err != nil {
		return 0, fmt.Errorf("failed to count summaries of user %d: %w", userID, err)
	}
	return count, nil
}

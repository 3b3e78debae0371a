package database

import (
	"context"
	"fmt"
	"time"
)

// UsageStats counts summaries, distinct users and spend since the given time.
// A zero time counts everything.
func (s *sqlxStore) UsageStats(ctx context.Context, since time.Time) (*UsageStats, error) {
	var stats UsageStats
	err := s.q.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS summaries,
			COUNT(DISTINCT user_id) AS users,
			COALESCE(SUM(total_cost), 0) AS total_cost
		FROM summaries WHERE created_at >= ?`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to compute usage stats: %w", err)
	}
	return &stats, nil
}

func (s *sqlxStore) TopUsers(ctx context.Context, limit int) ([]UserUsage, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []UserUsage
	err := s.q.SelectContext(ctx, &rows, `
		SELECT u.id AS user_id, u.username, u.first_name,
			COUNT(s.id) AS summaries,
			COALESCE(SUM(s.total_cost), 0) AS total_cost
		FROM summaries s JOIN users u ON u.id = s.user_id
		GROUP BY u.id
		ORDER BY summaries DESC, total_cost DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top users: %w", err)
	}
	return rows, nil
}

// DatasetRows returns every transcript with the topics of the summary in its own language.
func (s *sqlxStore) DatasetRows(ctx context.Context) ([]DatasetRow, error) {
	var rows []DatasetRow
	err := s.q.SelectContext(ctx, &rows, `
		SELECT t.id AS transcript_id, t.result AS transcript, l.ietf_tag AS language, s.id AS summary_id
		FROM transcripts t
		JOIN summaries s ON s.transcript_id = t.id AND s.language_id = t.input_language_id
		JOIN languages l ON l.id = s.language_id
		ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset rows: %w", err)
	}

	for i := range rows {
		if err := s.q.SelectContext(ctx, &rows[i].Topics,
			`SELECT text FROM topics WHERE summary_id = ? ORDER BY position`, rows[i].SummaryID); err != nil {
			return nil, fmt.Errorf("failed to load topics of summary %d: %w", rows[i].SummaryID, err)
		}
	}
	return rows, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yusufkecer/health-data-client/internal/domain"
)

type SummaryRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db, now: time.Now}
}

// Upsert stores the summary for userID and date, replacing an older
// snapshot of the same day.
func (r *SummaryRepository) Upsert(ctx context.Context, userID, date string, summary domain.DailySummary) error {
	if summary == nil {
		summary = domain.DailySummary{}
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary %s: %w", date, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO daily_summaries (user_id, date, payload, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE payload = VALUES(payload), fetched_at = VALUES(fetched_at)`,
		userID, date, payload, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary %s: %w", date, err)
	}
	return nil
}

// GetByDate returns nil, nil when no snapshot exists for that day.
func (r *SummaryRepository) GetByDate(ctx context.Context, userID, date string) (*domain.ArchivedSummary, error) {
	var (
		s       domain.ArchivedSummary
		payload []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, date, payload, fetched_at
		 FROM daily_summaries WHERE user_id = ? AND date = ?`, userID, date,
	).Scan(&s.UserID, &s.Date, &payload, &s.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary %s: %w", date, err)
	}
	if err := json.Unmarshal(payload, &s.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary %s: %w", date, err)
	}
	return &s, nil
}

// GetByUserID returns every archived day for userID as a history mapping.
func (r *SummaryRepository) GetByUserID(ctx context.Context, userID string) (domain.AggregatedHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, payload FROM daily_summaries
		 WHERE user_id = ?
		 ORDER BY date ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	history := domain.AggregatedHistory{}
	for rows.Next() {
		var (
			date    string
			payload []byte
			summary domain.DailySummary
		)
		if err := rows.Scan(&date, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if err := json.Unmarshal(payload, &summary); err != nil {
			return nil, fmt.Errorf("failed to decode summary %s: %w", date, err)
		}
		history[date] = summary
	}
	return history, rows.Err()
}

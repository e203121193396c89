package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yusufkecer/health-data-client/internal/domain"
)

type SampleRepository struct {
	db *sql.DB
}

func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// InsertIgnore stores records keyed by their backend id. Records already
// archived are left untouched, so re-running an archive never duplicates a
// reading. It returns how many rows were new.
func (r *SampleRepository) InsertIgnore(ctx context.Context, userID, metricType string, records []domain.MetricRecord) (int64, error) {
	var (
		placeholders []string
		args         []interface{}
	)
	for _, rec := range records {
		key := rec.ID()
		if key == "" {
			continue
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("failed to encode sample %s: %w", key, err)
		}
		placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
		args = append(args, userID, metricType, key, rec.Timestamp(), payload)
	}
	if len(placeholders) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO realtime_samples (user_id, metric_type, record_key, timestamp_ms, payload)
		 VALUES `+strings.Join(placeholders, ", "),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s samples: %w", metricType, err)
	}
	return result.RowsAffected()
}

// Latest returns up to limit archived samples of metricType, newest first.
func (r *SampleRepository) Latest(ctx context.Context, userID, metricType string, limit int) ([]domain.ArchivedSample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, metric_type, record_key, timestamp_ms, payload
		 FROM realtime_samples
		 WHERE user_id = ? AND metric_type = ?
		 ORDER BY timestamp_ms DESC, record_key ASC
		 LIMIT ?`, userID, metricType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	samples := []domain.ArchivedSample{}
	for rows.Next() {
		var (
			s       domain.ArchivedSample
			payload []byte
		)
		if err := rows.Scan(&s.UserID, &s.MetricType, &s.RecordKey, &s.TimestampMs, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		if err := json.Unmarshal(payload, &s.Record); err != nil {
			return nil, fmt.Errorf("failed to decode sample %s: %w", s.RecordKey, err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

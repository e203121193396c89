package service

import (
	"context"
	"fmt"
	"log"

	"github.com/yusufkecer/health-data-client/internal/domain"
)

// Source is the health database read side the archiver pulls from.
type Source interface {
	RealtimeMetric(ctx context.Context, metricType string, limit int) ([]domain.MetricRecord, error)
	AggregatedHistory(ctx context.Context) (domain.AggregatedHistory, error)
}

type SummaryStore interface {
	Upsert(ctx context.Context, userID, date string, summary domain.DailySummary) error
}

type SampleStore interface {
	InsertIgnore(ctx context.Context, userID, metricType string, records []domain.MetricRecord) (int64, error)
}

// ArchiveService copies a user's health data into the local archive.
// It uses the strict client so a failed fetch is never archived as "no
// data".
type ArchiveService struct {
	userID    string
	source    Source
	summaries SummaryStore
	samples   SampleStore
}

func NewArchiveService(userID string, source Source, summaries SummaryStore, samples SampleStore) *ArchiveService {
	return &ArchiveService{
		userID:    userID,
		source:    source,
		summaries: summaries,
		samples:   samples,
	}
}

// ArchiveHistory snapshots every daily summary, oldest first, and returns
// how many days were written.
func (s *ArchiveService) ArchiveHistory(ctx context.Context) (int, error) {
	history, err := s.source.AggregatedHistory(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch history: %w", err)
	}

	written := 0
	for _, date := range history.Dates() {
		if err := s.summaries.Upsert(ctx, s.userID, date, history[date]); err != nil {
			return written, err
		}
		written++
	}

	log.Printf("[archive] %s: archived %d daily summaries", s.userID, written)
	return written, nil
}

// ArchiveRealtime stores the last limit readings of each metric type and
// returns how many readings were new.
func (s *ArchiveService) ArchiveRealtime(ctx context.Context, metricTypes []string, limit int) (int64, error) {
	var inserted int64
	for _, metric := range metricTypes {
		records, err := s.source.RealtimeMetric(ctx, metric, limit)
		if err != nil {
			return inserted, fmt.Errorf("failed to fetch %s: %w", metric, err)
		}

		n, err := s.samples.InsertIgnore(ctx, s.userID, metric, records)
		if err != nil {
			return inserted, err
		}
		inserted += n
		log.Printf("[archive] %s: %s fetched %d, new %d", s.userID, metric, len(records), n)
	}
	return inserted, nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufkecer/health-data-client/internal/domain"
)

type fakeSource struct {
	history domain.AggregatedHistory
	records map[string][]domain.MetricRecord
	err     error
	limits  []int
}

func (f *fakeSource) RealtimeMetric(_ context.Context, metricType string, limit int) ([]domain.MetricRecord, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.records[metricType], nil
}

func (f *fakeSource) AggregatedHistory(context.Context) (domain.AggregatedHistory, error) {
	return f.history, f.err
}

type fakeSummaries struct {
	dates []string
	err   error
}

func (f *fakeSummaries) Upsert(_ context.Context, _ string, date string, _ domain.DailySummary) error {
	if f.err != nil {
		return f.err
	}
	f.dates = append(f.dates, date)
	return nil
}

type fakeSamples struct {
	seen map[string]bool
}

func (f *fakeSamples) InsertIgnore(_ context.Context, userID, metricType string, records []domain.MetricRecord) (int64, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	var n int64
	for _, r := range records {
		key := userID + "/" + metricType + "/" + r.ID()
		if !f.seen[key] {
			f.seen[key] = true
			n++
		}
	}
	return n, nil
}

func TestArchiveHistory(t *testing.T) {
	source := &fakeSource{history: domain.AggregatedHistory{
		"2026-02-02": {"steps": map[string]any{"total": 2.0}},
		"2026-01-30": {},
		"2026-02-01": {"steps": map[string]any{"total": 1.0}},
	}}
	summaries := &fakeSummaries{}
	svc := NewArchiveService("uid", source, summaries, &fakeSamples{})

	n, err := svc.ArchiveHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"2026-01-30", "2026-02-01", "2026-02-02"}, summaries.dates)
}

func TestArchiveHistory_FetchFailureWritesNothing(t *testing.T) {
	summaries := &fakeSummaries{}
	svc := NewArchiveService("uid", &fakeSource{err: errors.New("connection refused")}, summaries, &fakeSamples{})

	n, err := svc.ArchiveHistory(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, summaries.dates)
}

func TestArchiveHistory_StoreFailure(t *testing.T) {
	source := &fakeSource{history: domain.AggregatedHistory{"2026-01-01": {}}}
	svc := NewArchiveService("uid", source, &fakeSummaries{err: errors.New("disk full")}, &fakeSamples{})

	_, err := svc.ArchiveHistory(context.Background())
	assert.ErrorContains(t, err, "disk full")
}

func TestArchiveRealtime_Idempotent(t *testing.T) {
	source := &fakeSource{records: map[string][]domain.MetricRecord{
		domain.MetricHeartRate: {{"id": "a", "timestamp": 2.0}, {"id": "b", "timestamp": 1.0}},
		domain.MetricHRV:       {{"id": "c", "timestamp": 3.0}},
	}}
	samples := &fakeSamples{}
	svc := NewArchiveService("uid", source, &fakeSummaries{}, samples)
	metrics := []string{domain.MetricHeartRate, domain.MetricHRV}

	n, err := svc.ArchiveRealtime(context.Background(), metrics, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []int{10, 10}, source.limits)

	n, err = svc.ArchiveRealtime(context.Background(), metrics, 10)
	require.NoError(t, err)
	assert.Zero(t, n, "second run stores nothing new")
}

func TestArchiveRealtime_FetchFailure(t *testing.T) {
	svc := NewArchiveService("uid", &fakeSource{err: errors.New("timeout")}, &fakeSummaries{}, &fakeSamples{})

	_, err := svc.ArchiveRealtime(context.Background(), []string{domain.MetricHeartRate}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch heartRate")
}

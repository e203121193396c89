package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufkecer/health-data-client/internal/domain"
)

const (
	testUserID = "uid-1"
	testDate   = "2026-02-03"
	testDBErr  = "connection refused"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestSummaryRepository_Upsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSummaryRepository(db)
	fetched := time.Date(2026, 2, 3, 21, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fetched }

	mock.ExpectExec("INSERT INTO daily_summaries").
		WithArgs(testUserID, testDate, []byte(`{"steps":{"total":8421}}`), fetched).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), testUserID, testDate, domain.DailySummary{
		"steps": map[string]any{"total": 8421},
	})
	require.NoError(t, err)
}

func TestSummaryRepository_UpsertNilSummary(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSummaryRepository(db)

	mock.ExpectExec("INSERT INTO daily_summaries").
		WithArgs(testUserID, testDate, []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), testUserID, testDate, nil))
}

func TestSummaryRepository_UpsertError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSummaryRepository(db)

	mock.ExpectExec("INSERT INTO daily_summaries").WillReturnError(errors.New(testDBErr))

	err := repo.Upsert(context.Background(), testUserID, testDate, domain.DailySummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), testDBErr)
}

func TestSummaryRepository_GetByDate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSummaryRepository(db)
	fetched := time.Date(2026, 2, 3, 21, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT user_id, date, payload, fetched_at").
		WithArgs(testUserID, testDate).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "date", "payload", "fetched_at"}).
			AddRow(testUserID, testDate, []byte(`{"steps":{"total":10}}`), fetched))

	got, err := repo.GetByDate(context.Background(), testUserID, testDate)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testDate, got.Date)
	assert.Equal(t, fetched, got.FetchedAt)
	assert.Equal(t, domain.DailySummary{"steps": map[string]any{"total": 10.0}}, got.Summary)
}

func TestSummaryRepository_GetByDateNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSummaryRepository(db)

	mock.ExpectQuery("SELECT user_id, date, payload, fetched_at").
		WithArgs(testUserID, testDate).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByDate(context.Background(), testUserID, testDate)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSummaryRepository_GetByUserID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSummaryRepository(db)

	mock.ExpectQuery("SELECT date, payload FROM daily_summaries").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"date", "payload"}).
			AddRow("2026-02-01", []byte(`{"steps":{"total":1}}`)).
			AddRow("2026-02-02", []byte(`{}`)))

	history, err := repo.GetByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, domain.AggregatedHistory{
		"2026-02-01": {"steps": map[string]any{"total": 1.0}},
		"2026-02-02": {},
	}, history)
}

func TestSummaryRepository_GetByUserIDEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSummaryRepository(db)

	mock.ExpectQuery("SELECT date, payload FROM daily_summaries").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"date", "payload"}))

	history, err := repo.GetByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestSummaryRepository_GetByUserIDBadPayload(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSummaryRepository(db)

	mock.ExpectQuery("SELECT date, payload FROM daily_summaries").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"date", "payload"}).AddRow(testDate, []byte(`[1,2]`)))

	_, err := repo.GetByUserID(context.Background(), testUserID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode summary")
}

func TestSampleRepository_InsertIgnore(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSampleRepository(db)

	records := []domain.MetricRecord{
		{"id": "k2", "timestamp": 300.0, "value": 75.0},
		{"value": 1.0},
		{"id": "k1", "timestamp": 100.0, "value": 61.0},
	}

	mock.ExpectExec("INSERT IGNORE INTO realtime_samples .* VALUES \\(\\?, \\?, \\?, \\?, \\?\\), \\(\\?, \\?, \\?, \\?, \\?\\)$").
		WithArgs(
			testUserID, domain.MetricHeartRate, "k2", 300.0, []byte(`{"id":"k2","timestamp":300,"value":75}`),
			testUserID, domain.MetricHeartRate, "k1", 100.0, []byte(`{"id":"k1","timestamp":100,"value":61}`),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.InsertIgnore(context.Background(), testUserID, domain.MetricHeartRate, records)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSampleRepository_InsertIgnoreNothing(t *testing.T) {
	db, _ := newMock(t)
	repo := NewSampleRepository(db)

	n, err := repo.InsertIgnore(context.Background(), testUserID, domain.MetricHRV, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSampleRepository_InsertIgnoreError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSampleRepository(db)

	mock.ExpectExec("INSERT IGNORE INTO realtime_samples").WillReturnError(errors.New(testDBErr))

	_, err := repo.InsertIgnore(context.Background(), testUserID, domain.MetricHRV,
		[]domain.MetricRecord{{"id": "k", "timestamp": 1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert hrv samples")
}

func TestSampleRepository_Latest(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSampleRepository(db)

	mock.ExpectQuery("SELECT user_id, metric_type, record_key, timestamp_ms, payload").
		WithArgs(testUserID, domain.MetricHeartRate, 2).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "metric_type", "record_key", "timestamp_ms", "payload"}).
			AddRow(testUserID, domain.MetricHeartRate, "k2", 300.0, []byte(`{"id":"k2","timestamp":300}`)).
			AddRow(testUserID, domain.MetricHeartRate, "k1", 100.0, []byte(`{"id":"k1","timestamp":100}`)))

	samples, err := repo.Latest(context.Background(), testUserID, domain.MetricHeartRate, 2)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "k2", samples[0].RecordKey)
	assert.Equal(t, 300.0, samples[0].TimestampMs)
	assert.Equal(t, "k2", samples[0].Record.ID())
}

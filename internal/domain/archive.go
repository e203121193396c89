package domain

import "time"

// ArchivedSummary is a daily summary snapshot stored in the archive.
type ArchivedSummary struct {
	UserID    string       `json:"user_id"`
	Date      string       `json:"date"`
	Summary   DailySummary `json:"summary"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// ArchivedSample is a realtime reading stored in the archive.
type ArchivedSample struct {
	UserID      string       `json:"user_id"`
	MetricType  string       `json:"metric_type"`
	RecordKey   string       `json:"record_key"`
	TimestampMs float64      `json:"timestamp_ms"`
	Record      MetricRecord `json:"record"`
}

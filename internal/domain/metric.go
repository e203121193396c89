package domain

import (
	"encoding/json"
	"sort"
	"strconv"
)

// DateLayout is the calendar date format used for daily summary keys.
const DateLayout = "2006-01-02"

// Metric types written by the watch app. Any other string is still a valid
// metric type; the backend does not restrict them.
const (
	MetricHeartRate       = "heartRate"
	MetricHRV             = "hrv"
	MetricRespiratoryRate = "respiratoryRate"
	MetricBloodOxygen     = "bloodOxygen"
	MetricStepCount       = "stepCount"
	MetricDistance        = "distance"
	MetricActiveEnergy    = "activeEnergy"
	MetricStandTime       = "standTime"
	MetricFlightsClimbed  = "flightsClimbed"
)

// RealtimeMetrics lists the metric types synced as realtime streams.
var RealtimeMetrics = []string{
	MetricHeartRate,
	MetricHRV,
	MetricRespiratoryRate,
	MetricBloodOxygen,
}

// MetricRecord is a single timestamped reading. Fields beyond "timestamp"
// and "id" are whatever the writer stored.
type MetricRecord map[string]any

// ID returns the backend key injected when the record was listed.
func (r MetricRecord) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Timestamp returns the reading time in milliseconds, or 0 when the field is
// missing or not numeric.
func (r MetricRecord) Timestamp() float64 {
	switch v := r["timestamp"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// DailySummary is the aggregated document for one calendar date, keyed by
// metric name.
type DailySummary map[string]any

// AggregatedHistory maps a YYYY-MM-DD date to its daily summary.
type AggregatedHistory map[string]DailySummary

// Dates returns the history's dates in ascending order.
func (h AggregatedHistory) Dates() []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

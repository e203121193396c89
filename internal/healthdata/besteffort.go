package healthdata

import (
	"context"
	"log"

	"github.com/yusufkecer/health-data-client/internal/domain"
)

// BestEffort wraps a Client so reads never fail: errors are logged and the
// empty value is returned instead. Callers cannot tell "no data" from "the
// request failed"; use the Client directly when that matters.
type BestEffort struct {
	client *Client
}

// BestEffort returns the degrade-to-empty view of c.
func (c *Client) BestEffort() *BestEffort {
	return &BestEffort{client: c}
}

// RealtimeMetric is Client.RealtimeMetric, returning [] on failure.
func (b *BestEffort) RealtimeMetric(ctx context.Context, metricType string, limit int) []domain.MetricRecord {
	records, err := b.client.RealtimeMetric(ctx, metricType, limit)
	if err != nil {
		log.Printf("[healthdata] RealtimeMetric %s: %v", metricType, err)
		return []domain.MetricRecord{}
	}
	return records
}

// DailySummary is Client.DailySummary, returning {} on failure.
func (b *BestEffort) DailySummary(ctx context.Context, date string) domain.DailySummary {
	if date == "" {
		date = b.client.Today()
	}
	summary, err := b.client.DailySummary(ctx, date)
	if err != nil {
		log.Printf("[healthdata] DailySummary %s: %v", date, err)
		return domain.DailySummary{}
	}
	return summary
}

// AggregatedHistory is Client.AggregatedHistory, returning {} on failure.
func (b *BestEffort) AggregatedHistory(ctx context.Context) domain.AggregatedHistory {
	history, err := b.client.AggregatedHistory(ctx)
	if err != nil {
		log.Printf("[healthdata] AggregatedHistory: %v", err)
		return domain.AggregatedHistory{}
	}
	return history
}

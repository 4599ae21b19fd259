package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/bootstobeats/stepfinder/internal/model"
	"github.com/bootstobeats/stepfinder/internal/store"
)

// MetricsSnapshot holds a point-in-time view of search activity.
type MetricsSnapshot struct {
	// Search metrics (within lookback window).
	SearchTotal    int     `json:"search_total"`
	SearchComplete int     `json:"search_complete"`
	SearchFailed   int     `json:"search_failed"`
	SearchActive   int     `json:"search_active"`
	SearchFailRate float64 `json:"search_fail_rate"`
	CostUSD        float64 `json:"cost_usd"`
	CacheHits      int     `json:"cache_hits"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	AvgTokens      int     `json:"avg_tokens"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of search metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	searches, err := c.store.ListSearches(ctx, store.SearchFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list searches")
	}

	snap.SearchTotal = len(searches)
	var totalCost float64
	var totalTokens int

	for _, sr := range searches {
		switch sr.Status {
		case model.SearchStatusComplete:
			snap.SearchComplete++
		case model.SearchStatusFailed:
			snap.SearchFailed++
		default:
			snap.SearchActive++
		}
		if sr.Outcome != nil {
			totalCost += sr.Outcome.TotalCost
			totalTokens += sr.Outcome.Usage.InputTokens + sr.Outcome.Usage.OutputTokens
			if sr.Outcome.FromCache {
				snap.CacheHits++
			}
		}
	}

	snap.CostUSD = totalCost
	if snap.SearchTotal > 0 {
		finished := snap.SearchComplete + snap.SearchFailed
		if finished > 0 {
			snap.SearchFailRate = float64(snap.SearchFailed) / float64(finished)
		}
		snap.AvgTokens = totalTokens / snap.SearchTotal
	}
	if snap.SearchComplete > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(snap.SearchComplete)
	}

	return snap, nil
}

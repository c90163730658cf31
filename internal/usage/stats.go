package usage

import (
	"math"

	"github.com/cxusage/cxusage/internal/pricing"
)

// Stats is the summary block for one ranged view of an aggregate.
// EstimatedCost is nil when not a single model in the view could be
// priced; a view that priced some models reports the partial sum.
type Stats struct {
	Start           string   `json:"start"`
	End             string   `json:"end"`
	Days            int      `json:"days"`
	ActiveDays      int      `json:"active_days"`
	Sessions        int      `json:"sessions"`
	TotalTokens     int64    `json:"total_tokens"`
	InputTokens     int64    `json:"input_tokens"`
	OutputTokens    int64    `json:"output_tokens"`
	ReasoningTokens int64    `json:"reasoning_tokens"`
	CachedTokens    int64    `json:"cached_tokens"`
	AvgPerDay       int64    `json:"avg_per_day"`
	AvgPerSession   int64    `json:"avg_per_session"`
	CacheRate       float64  `json:"cache_rate"`
	EstimatedCost   *float64 `json:"estimated_cost"`
}

// ComputeStats derives the summary block for the given view. An empty
// view yields all-zero counts and a nil cost estimate.
func ComputeStats(agg *Aggregate, view RangedView) Stats {
	stats := Stats{Start: view.Start, End: view.End}
	if view.Empty() {
		return stats
	}
	stats.Days = view.Len()

	for i := view.StartIndex; i <= view.EndIndex; i++ {
		stats.TotalTokens += agg.Daily.Total[i]
		stats.InputTokens += agg.Daily.Input[i]
		stats.OutputTokens += agg.Daily.Output[i]
		stats.ReasoningTokens += agg.Daily.Reasoning[i]
		stats.CachedTokens += agg.Daily.Cached[i]
		if agg.Daily.Total[i] > 0 {
			stats.ActiveDays++
		}
	}

	// A session counts when its span overlaps the view's closed interval.
	for _, span := range agg.Sessions {
		if span.Start <= view.End && span.End >= view.Start {
			stats.Sessions++
		}
	}

	if stats.ActiveDays > 0 {
		stats.AvgPerDay = int64(math.Round(float64(stats.TotalTokens) / float64(stats.ActiveDays)))
	}
	if stats.Sessions > 0 {
		stats.AvgPerSession = int64(math.Round(float64(stats.TotalTokens) / float64(stats.Sessions)))
	}
	if stats.InputTokens > 0 {
		stats.CacheRate = float64(stats.CachedTokens) / float64(stats.InputTokens)
	}

	stats.EstimatedCost = estimateCost(agg, view)
	return stats
}

// estimateCost sums per-model costs over the view. Models without a
// price are skipped; if none priced, the estimate itself is nil.
func estimateCost(agg *Aggregate, view RangedView) *float64 {
	book := agg.Book()
	var sum float64
	priced := 0
	for model, rec := range agg.ModelTotals(view) {
		price, ok := book.Resolve(model)
		if !ok {
			continue
		}
		if c := pricing.CostUSD(rec, &price); c != nil {
			sum += *c
			priced++
		}
	}
	if priced == 0 {
		return nil
	}
	return &sum
}

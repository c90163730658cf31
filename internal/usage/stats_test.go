package usage

import (
	"math"
	"testing"

	"github.com/cxusage/cxusage/internal/pricing"
)

// testAggregate builds a small three-day aggregate with one idle day.
func testAggregate() *Aggregate {
	rate := 0.50
	return &Aggregate{
		Range: DateRange{Start: "2026-02-01", End: "2026-02-03"},
		Daily: DailySeries{
			Labels:    []string{"2026-02-01", "2026-02-02", "2026-02-03"},
			Total:     []int64{100, 0, 60},
			Input:     []int64{80, 0, 40},
			Output:    []int64{20, 0, 20},
			Reasoning: []int64{5, 0, 2},
			Cached:    []int64{40, 0, 10},
		},
		DailyModels: map[string]map[string]pricing.Breakdown{
			"2026-02-01": {
				"gpt-x": {InputTokens: 80, CachedInputTokens: 40, OutputTokens: 20, TotalTokens: 100},
			},
			"2026-02-03": {
				"gpt-x": {InputTokens: 40, CachedInputTokens: 10, OutputTokens: 20, TotalTokens: 60},
			},
		},
		Sessions: []SessionSpan{
			{Start: "2026-02-01", End: "2026-02-01"},
			{Start: "2026-02-03", End: "2026-02-03"},
			{Start: "2026-01-20", End: "2026-01-25"}, // outside
		},
		Pricing: &pricing.Book{
			Prices: map[string]pricing.Price{
				"gpt-x": {Input: 2.00, CachedInput: &rate, Output: 8.00},
			},
		},
	}
}

func TestComputeStatsFullRange(t *testing.T) {
	agg := testAggregate()
	view := ResolveAll(agg.Daily.Labels)

	stats := ComputeStats(agg, view)
	if stats.TotalTokens != 160 {
		t.Errorf("TotalTokens = %d, want 160", stats.TotalTokens)
	}
	if stats.InputTokens != 120 || stats.OutputTokens != 40 || stats.CachedTokens != 50 {
		t.Errorf("got input/output/cached %d/%d/%d, want 120/40/50",
			stats.InputTokens, stats.OutputTokens, stats.CachedTokens)
	}
	if stats.Days != 3 {
		t.Errorf("Days = %d, want 3", stats.Days)
	}
	if stats.ActiveDays != 2 {
		t.Errorf("ActiveDays = %d, want 2", stats.ActiveDays)
	}
	if stats.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", stats.Sessions)
	}
	if stats.AvgPerDay != 80 {
		t.Errorf("AvgPerDay = %d, want 80", stats.AvgPerDay)
	}
	if stats.AvgPerSession != 80 {
		t.Errorf("AvgPerSession = %d, want 80", stats.AvgPerSession)
	}
	if want := 50.0 / 120.0; math.Abs(stats.CacheRate-want) > 1e-9 {
		t.Errorf("CacheRate = %v, want %v", stats.CacheRate, want)
	}
	if stats.EstimatedCost == nil {
		t.Fatal("EstimatedCost is nil for a priced model")
	}
}

func TestComputeStatsSingleDay(t *testing.T) {
	agg := &Aggregate{
		Daily: DailySeries{
			Labels:    []string{"2026-02-01", "2026-02-02"},
			Total:     []int64{100, 50},
			Input:     []int64{70, 30},
			Output:    []int64{30, 20},
			Reasoning: []int64{0, 0},
			Cached:    []int64{0, 0},
		},
	}
	view := ResolveRange(agg.Daily.Labels, "2026-02-01", "2026-02-01")

	stats := ComputeStats(agg, view)
	if stats.TotalTokens != 100 {
		t.Errorf("TotalTokens = %d, want 100", stats.TotalTokens)
	}
	if stats.ActiveDays != 1 {
		t.Errorf("ActiveDays = %d, want 1", stats.ActiveDays)
	}
}

func TestComputeStatsEmptyView(t *testing.T) {
	agg := &Aggregate{}
	view := ResolveRange(nil, "2026-02-01", "2026-02-05")

	stats := ComputeStats(agg, view)
	if stats.TotalTokens != 0 || stats.Days != 0 || stats.ActiveDays != 0 || stats.Sessions != 0 {
		t.Errorf("empty view should yield zero counts, got %+v", stats)
	}
	if stats.AvgPerDay != 0 || stats.AvgPerSession != 0 || stats.CacheRate != 0 {
		t.Errorf("empty view should yield zero ratios, got %+v", stats)
	}
	if stats.EstimatedCost != nil {
		t.Errorf("empty view EstimatedCost = %v, want nil", *stats.EstimatedCost)
	}
}

func TestComputeStatsUnpricedModels(t *testing.T) {
	agg := testAggregate()
	agg.Pricing = &pricing.Book{Prices: map[string]pricing.Price{}}

	stats := ComputeStats(agg, ResolveAll(agg.Daily.Labels))
	if stats.EstimatedCost != nil {
		t.Errorf("EstimatedCost = %v, want nil when nothing priced", *stats.EstimatedCost)
	}
}

func TestModelTotalsNormalizesKeys(t *testing.T) {
	agg := testAggregate()
	// An imported document may split one model across raw spellings.
	agg.DailyModels["2026-02-02"] = map[string]pricing.Breakdown{
		"gpt-x (preview)": {InputTokens: 10, TotalTokens: 10},
	}

	totals := agg.ModelTotals(ResolveAll(agg.Daily.Labels))
	if got := totals["gpt-x"].TotalTokens; got != 170 {
		t.Errorf("gpt-x total = %d, want 170", got)
	}
	if _, ok := totals["gpt-x (preview)"]; ok {
		t.Error("raw model key should fold into the normalized one")
	}

	stats := ComputeStats(agg, ResolveAll(agg.Daily.Labels))
	if stats.EstimatedCost == nil {
		t.Fatal("EstimatedCost is nil; raw-keyed tokens went unpriced")
	}
}

func TestComputeStatsSessionOverlap(t *testing.T) {
	agg := testAggregate()
	agg.Sessions = []SessionSpan{
		{Start: "2026-01-30", End: "2026-02-01"}, // straddles view start
		{Start: "2026-02-03", End: "2026-02-07"}, // straddles view end
		{Start: "2026-01-01", End: "2026-03-01"}, // spans entire view
		{Start: "2026-02-04", End: "2026-02-05"}, // after
	}

	stats := ComputeStats(agg, ResolveAll(agg.Daily.Labels))
	if stats.Sessions != 3 {
		t.Errorf("Sessions = %d, want 3", stats.Sessions)
	}
}

// Package usage holds the aggregate dataset model and the derivation
// engine that turns it into ranged views, summary stats, and chart
// series.
package usage

import (
	"time"

	"github.com/cxusage/cxusage/internal/pricing"
)

// DayFormat is the canonical day label layout. Labels sort
// chronologically as plain strings.
const DayFormat = "2006-01-02"

// EventTimeFormat is the layout for usage event timestamps.
const EventTimeFormat = "2006-01-02 15:04"

// DateRange is the inclusive day span an aggregate covers. Days is the
// length of the daily axis, counting idle days.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// DailySeries holds parallel per-day token series. All slices share the
// length and order of Labels.
type DailySeries struct {
	Labels    []string `json:"labels"`
	Total     []int64  `json:"total"`
	Input     []int64  `json:"input"`
	Output    []int64  `json:"output"`
	Reasoning []int64  `json:"reasoning"`
	Cached    []int64  `json:"cached"`
}

// HourlySeries is the flat per-hour event series.
type HourlySeries struct {
	Labels []string `json:"labels"`
	Total  []int64  `json:"total"`
}

// SessionSpan is the first and last active day of one recorded session.
type SessionSpan struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Event is a single positive token delta with its wall-clock timestamp.
// The full per-category split is carried on the wire so merge and
// re-export round-trip events without loss. Value duplicates Total.
type Event struct {
	Timestamp string `json:"ts"`
	Day       string `json:"day"`
	Value     int64  `json:"value"`
	Input     int64  `json:"input"`
	Cached    int64  `json:"cached"`
	Output    int64  `json:"output"`
	Reasoning int64  `json:"reasoning"`
	Total     int64  `json:"total"`
}

// Meta describes the machine an aggregate was collected on.
type Meta struct {
	Hostname    string `json:"hostname"`
	ClientID    string `json:"client_id"`
	GeneratedAt string `json:"generated_at"`
}

// Aggregate is the complete usage dataset for one source: continuous
// daily series, per-model splits, hour-of-day histograms, session spans,
// and the raw event stream. It is what export writes and import reads.
type Aggregate struct {
	Range       DateRange                               `json:"range"`
	Daily       DailySeries                             `json:"daily"`
	DailyModels map[string]map[string]pricing.Breakdown `json:"daily_models"`
	HourlyDaily map[string][]int64                      `json:"hourly_daily"`
	Hourly      HourlySeries                            `json:"hourly"`
	Sessions    []SessionSpan                           `json:"session_spans"`
	Events      []Event                                 `json:"events"`
	Pricing     *pricing.Book                           `json:"pricing,omitempty"`
	Meta        *Meta                                   `json:"meta,omitempty"`
}

// ModelTotals sums the per-day model breakdowns across the view's days.
// Keys are normalized here rather than trusted, so an imported document
// with raw model names still aggregates correctly.
func (a *Aggregate) ModelTotals(view RangedView) map[string]pricing.Breakdown {
	totals := make(map[string]pricing.Breakdown)
	for _, day := range view.Labels {
		for model, rec := range a.DailyModels[day] {
			name := pricing.NormalizeModelName(model)
			t := totals[name]
			t.Add(rec)
			totals[name] = t
		}
	}
	return totals
}

// Book returns the aggregate's own pricing book, or the embedded
// defaults when the dataset carries none.
func (a *Aggregate) Book() *pricing.Book {
	if a.Pricing != nil {
		return a.Pricing
	}
	return pricing.Default()
}

// ParseDay parses a day label. Day labels are produced by FormatDay and
// compared as strings everywhere else.
func ParseDay(label string) (time.Time, error) {
	return time.Parse(DayFormat, label)
}

// FormatDay renders t as a day label in t's location.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

package usage

import (
	"sort"

	"github.com/cxusage/cxusage/internal/pricing"
)

// dayAccum collects one day's values across all merge inputs.
type dayAccum struct {
	total     int64
	input     int64
	output    int64
	reasoning int64
	cached    int64
}

// Merge combines aggregates from multiple sources into one. Inputs with
// no daily labels are skipped; if none remain, the result is nil.
// Per-day series and per-model breakdowns sum by day label, hour-of-day
// histograms sum element-wise, and session spans and events concatenate.
// Overlapping inputs from the same source are not deduplicated, so
// callers must merge each source at most once per merge.
func Merge(inputs []*Aggregate) *Aggregate {
	days := make(map[string]*dayAccum)
	models := make(map[string]map[string]pricing.Breakdown)
	hourly := make(map[string][]int64)

	var spans []SessionSpan
	var events []Event
	var book *pricing.Book
	var meta *Meta

	used := 0
	for _, in := range inputs {
		if in == nil || len(in.Daily.Labels) == 0 {
			continue
		}
		used++

		for i, day := range in.Daily.Labels {
			acc := days[day]
			if acc == nil {
				acc = &dayAccum{}
				days[day] = acc
			}
			acc.total += at(in.Daily.Total, i)
			acc.input += at(in.Daily.Input, i)
			acc.output += at(in.Daily.Output, i)
			acc.reasoning += at(in.Daily.Reasoning, i)
			acc.cached += at(in.Daily.Cached, i)
		}

		for day, perModel := range in.DailyModels {
			dst := models[day]
			if dst == nil {
				dst = make(map[string]pricing.Breakdown)
				models[day] = dst
			}
			// Imported documents may carry un-normalized model keys.
			for model, rec := range perModel {
				name := pricing.NormalizeModelName(model)
				t := dst[name]
				t.Add(rec)
				dst[name] = t
			}
		}

		for day, hours := range in.HourlyDaily {
			dst := hourly[day]
			if dst == nil {
				dst = make([]int64, 24)
				hourly[day] = dst
			}
			for h := 0; h < len(dst) && h < len(hours); h++ {
				dst[h] += hours[h]
			}
		}

		spans = append(spans, in.Sessions...)
		events = append(events, in.Events...)
		if book == nil && in.Pricing != nil {
			book = in.Pricing
		}
		if meta == nil && in.Meta != nil {
			meta = in.Meta
		}
	}

	if used == 0 {
		return nil
	}

	labels := make([]string, 0, len(days))
	for day := range days {
		labels = append(labels, day)
	}
	sort.Strings(labels)

	out := &Aggregate{
		Range: DateRange{Start: labels[0], End: labels[len(labels)-1], Days: len(labels)},
		Daily: DailySeries{
			Labels:    labels,
			Total:     make([]int64, len(labels)),
			Input:     make([]int64, len(labels)),
			Output:    make([]int64, len(labels)),
			Reasoning: make([]int64, len(labels)),
			Cached:    make([]int64, len(labels)),
		},
		DailyModels: models,
		HourlyDaily: hourly,
		Sessions:    spans,
		Events:      events,
		Pricing:     book,
		Meta:        meta,
	}
	for i, day := range labels {
		acc := days[day]
		out.Daily.Total[i] = acc.total
		out.Daily.Input[i] = acc.input
		out.Daily.Output[i] = acc.output
		out.Daily.Reasoning[i] = acc.reasoning
		out.Daily.Cached[i] = acc.cached
	}
	out.Hourly = buildHourlyFromEvents(events)
	return out
}

// at indexes a series that may be shorter than its label slice in a
// malformed import.
func at(s []int64, i int) int64 {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

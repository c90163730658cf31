package usage

import (
	"sort"
	"time"

	"github.com/cxusage/cxusage/internal/pricing"
)

// Record is one positive token delta attributed to a model inside a
// session. The model name is already normalized by the parser.
type Record struct {
	Timestamp time.Time
	Model     string
	SessionID string
	Tokens    pricing.Breakdown
}

// BuildAggregate folds parsed records into a complete aggregate. The
// daily axis is continuous: every day between the first and last record
// gets a label, zero-filled when nothing happened. Records with zero
// total still count toward session spans but emit no event.
func BuildAggregate(records []Record) *Aggregate {
	if len(records) == 0 {
		return nil
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	first := records[0].Timestamp
	last := records[len(records)-1].Timestamp

	labels := dayLabels(first, last)
	index := make(map[string]int, len(labels))
	for i, day := range labels {
		index[day] = i
	}

	agg := &Aggregate{
		Range: DateRange{Start: labels[0], End: labels[len(labels)-1], Days: len(labels)},
		Daily: DailySeries{
			Labels:    labels,
			Total:     make([]int64, len(labels)),
			Input:     make([]int64, len(labels)),
			Output:    make([]int64, len(labels)),
			Reasoning: make([]int64, len(labels)),
			Cached:    make([]int64, len(labels)),
		},
		DailyModels: make(map[string]map[string]pricing.Breakdown),
		HourlyDaily: make(map[string][]int64),
	}

	type spanAccum struct {
		start string
		end   string
	}
	spans := make(map[string]*spanAccum)
	var sessionOrder []string

	var events []Event
	for _, rec := range records {
		day := FormatDay(rec.Timestamp)
		i := index[day]

		agg.Daily.Total[i] += rec.Tokens.TotalTokens
		agg.Daily.Input[i] += rec.Tokens.InputTokens
		agg.Daily.Output[i] += rec.Tokens.OutputTokens
		agg.Daily.Reasoning[i] += rec.Tokens.ReasoningOutputTokens
		agg.Daily.Cached[i] += rec.Tokens.CachedInputTokens

		perModel := agg.DailyModels[day]
		if perModel == nil {
			perModel = make(map[string]pricing.Breakdown)
			agg.DailyModels[day] = perModel
		}
		t := perModel[rec.Model]
		t.Add(rec.Tokens)
		perModel[rec.Model] = t

		hours := agg.HourlyDaily[day]
		if hours == nil {
			hours = make([]int64, 24)
			agg.HourlyDaily[day] = hours
		}
		hours[rec.Timestamp.Hour()] += rec.Tokens.TotalTokens

		span := spans[rec.SessionID]
		if span == nil {
			spans[rec.SessionID] = &spanAccum{start: day, end: day}
			sessionOrder = append(sessionOrder, rec.SessionID)
		} else {
			if day < span.start {
				span.start = day
			}
			if day > span.end {
				span.end = day
			}
		}

		if rec.Tokens.TotalTokens > 0 {
			events = append(events, Event{
				Timestamp: rec.Timestamp.Format(EventTimeFormat),
				Day:       day,
				Value:     rec.Tokens.TotalTokens,
				Input:     rec.Tokens.InputTokens,
				Cached:    rec.Tokens.CachedInputTokens,
				Output:    rec.Tokens.OutputTokens,
				Reasoning: rec.Tokens.ReasoningOutputTokens,
				Total:     rec.Tokens.TotalTokens,
			})
		}
	}

	for _, id := range sessionOrder {
		span := spans[id]
		agg.Sessions = append(agg.Sessions, SessionSpan{Start: span.start, End: span.end})
	}
	agg.Events = events
	agg.Hourly = buildHourlyFromEvents(events)
	return agg
}

// dayLabels enumerates every day label from first to last inclusive.
func dayLabels(first, last time.Time) []string {
	start := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())
	end := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, last.Location())

	var labels []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		labels = append(labels, FormatDay(d))
	}
	return labels
}

// buildHourlyFromEvents buckets events by clock hour. Labels use the
// "2006-01-02 15:00" layout and come out sorted.
func buildHourlyFromEvents(events []Event) HourlySeries {
	buckets := make(map[string]int64)
	for _, ev := range events {
		if len(ev.Timestamp) < 13 {
			continue
		}
		buckets[ev.Timestamp[:13]+":00"] += ev.Total
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	series := HourlySeries{Labels: labels, Total: make([]int64, len(labels))}
	for i, label := range labels {
		series.Total[i] = buckets[label]
	}
	return series
}

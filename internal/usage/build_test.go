package usage

import (
	"reflect"
	"testing"
	"time"

	"github.com/cxusage/cxusage/internal/pricing"
)

func ts(day string, hour int) time.Time {
	d, err := time.Parse(DayFormat, day)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour) * time.Hour)
}

func TestBuildAggregate(t *testing.T) {
	records := []Record{
		{Timestamp: ts("2026-02-03", 10), Model: "gpt-x", SessionID: "s2",
			Tokens: pricing.Breakdown{InputTokens: 40, OutputTokens: 20, TotalTokens: 60}},
		{Timestamp: ts("2026-02-01", 9), Model: "gpt-x", SessionID: "s1",
			Tokens: pricing.Breakdown{InputTokens: 80, CachedInputTokens: 40, OutputTokens: 20, TotalTokens: 100}},
	}

	agg := BuildAggregate(records)
	if agg == nil {
		t.Fatal("BuildAggregate returned nil")
	}

	// Continuous axis including the idle middle day.
	want := []string{"2026-02-01", "2026-02-02", "2026-02-03"}
	if !reflect.DeepEqual(agg.Daily.Labels, want) {
		t.Fatalf("labels = %v, want %v", agg.Daily.Labels, want)
	}
	if !reflect.DeepEqual(agg.Daily.Total, []int64{100, 0, 60}) {
		t.Errorf("total = %v", agg.Daily.Total)
	}
	if agg.Range.Start != "2026-02-01" || agg.Range.End != "2026-02-03" {
		t.Errorf("range = %+v", agg.Range)
	}

	if got := agg.DailyModels["2026-02-01"]["gpt-x"].TotalTokens; got != 100 {
		t.Errorf("day model total = %d, want 100", got)
	}
	if agg.HourlyDaily["2026-02-01"][9] != 100 {
		t.Errorf("hour 9 = %d, want 100", agg.HourlyDaily["2026-02-01"][9])
	}
	if _, ok := agg.HourlyDaily["2026-02-02"]; ok {
		t.Error("idle day should have no hourly entry")
	}

	if len(agg.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(agg.Sessions))
	}
	if len(agg.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(agg.Events))
	}
	// Records were sorted, so events come out chronological.
	if agg.Events[0].Timestamp != "2026-02-01 09:00" {
		t.Errorf("first event ts = %q", agg.Events[0].Timestamp)
	}
	if agg.Events[0].Day != "2026-02-01" || agg.Events[0].Input != 80 || agg.Events[0].Value != 100 {
		t.Errorf("first event fields = %+v", agg.Events[0])
	}
}

func TestBuildAggregateMultiDaySession(t *testing.T) {
	records := []Record{
		{Timestamp: ts("2026-02-01", 23), Model: "m", SessionID: "s",
			Tokens: pricing.Breakdown{TotalTokens: 10}},
		{Timestamp: ts("2026-02-02", 1), Model: "m", SessionID: "s",
			Tokens: pricing.Breakdown{TotalTokens: 10}},
	}

	agg := BuildAggregate(records)
	if len(agg.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(agg.Sessions))
	}
	span := agg.Sessions[0]
	if span.Start != "2026-02-01" || span.End != "2026-02-02" {
		t.Errorf("span = %+v", span)
	}
}

func TestBuildAggregateZeroDeltaNoEvent(t *testing.T) {
	records := []Record{
		{Timestamp: ts("2026-02-01", 9), Model: "m", SessionID: "s",
			Tokens: pricing.Breakdown{TotalTokens: 0}},
	}

	agg := BuildAggregate(records)
	if len(agg.Events) != 0 {
		t.Errorf("events = %d, want 0", len(agg.Events))
	}
	if len(agg.Sessions) != 1 {
		t.Errorf("zero-delta record should still open a session span")
	}
}

func TestBuildAggregateEmpty(t *testing.T) {
	if BuildAggregate(nil) != nil {
		t.Error("BuildAggregate(nil) should be nil")
	}
}

func TestBuildHourlyFromEvents(t *testing.T) {
	events := []Event{
		{Timestamp: "2026-02-01 09:05", Total: 10},
		{Timestamp: "2026-02-01 09:45", Total: 5},
		{Timestamp: "2026-02-01 11:00", Total: 3},
	}

	series := buildHourlyFromEvents(events)
	if !reflect.DeepEqual(series.Labels, []string{"2026-02-01 09:00", "2026-02-01 11:00"}) {
		t.Fatalf("labels = %v", series.Labels)
	}
	if !reflect.DeepEqual(series.Total, []int64{15, 3}) {
		t.Errorf("totals = %v", series.Total)
	}
}

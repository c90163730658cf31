package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cxusage/cxusage/internal/usage"
)

var labels = []string{"2026-02-01", "2026-02-02", "2026-02-03"}

func TestResolveWindowDefaultIsAll(t *testing.T) {
	view := Options{}.ResolveWindow(labels, time.Now())
	if view.Start != "2026-02-01" || view.End != "2026-02-03" {
		t.Errorf("got [%s, %s], want full range", view.Start, view.End)
	}
}

func TestResolveWindowDaysPreset(t *testing.T) {
	now, _ := time.Parse(usage.DayFormat, "2026-02-03")

	view := Options{Days: 2}.ResolveWindow(labels, now)
	if view.Start != "2026-02-02" || view.End != "2026-02-03" {
		t.Errorf("got [%s, %s], want last 2 days", view.Start, view.End)
	}
}

func TestResolveWindowOpenBounds(t *testing.T) {
	view := Options{Since: "2026-02-02"}.ResolveWindow(labels, time.Now())
	if view.Start != "2026-02-02" || view.End != "2026-02-03" {
		t.Errorf("got [%s, %s], want open until", view.Start, view.End)
	}

	view = Options{Until: "2026-02-02"}.ResolveWindow(labels, time.Now())
	if view.Start != "2026-02-01" || view.End != "2026-02-02" {
		t.Errorf("got [%s, %s], want open since", view.Start, view.End)
	}
}

func TestValidateDay(t *testing.T) {
	if err := ValidateDay(""); err != nil {
		t.Errorf("empty day should be valid: %v", err)
	}
	if err := ValidateDay("2026-02-01"); err != nil {
		t.Errorf("valid day rejected: %v", err)
	}
	if err := ValidateDay("02/01/2026"); err == nil {
		t.Error("slash format should be rejected")
	}
}

func TestMergeFilesSkipsInvalid(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	doc := `{"range": {"start": "2026-02-01", "end": "2026-02-01"},
		"daily": {"labels": ["2026-02-01"], "total": [10],
		"input": [10], "output": [0], "reasoning": [0], "cached": [0]}}`
	if err := os.WriteFile(good, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"unrelated": true}`), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := MergeFiles([]string{good, bad, filepath.Join(dir, "missing.json")})
	if err != nil {
		t.Fatalf("MergeFiles: %v", err)
	}
	if result.Loaded != 1 || result.Invalid != 2 {
		t.Errorf("loaded/invalid = %d/%d, want 1/2", result.Loaded, result.Invalid)
	}
	if result.Merged == nil || result.Merged.Daily.Total[0] != 10 {
		t.Errorf("merged = %+v", result.Merged)
	}
}

func TestMergeFilesNothingUsable(t *testing.T) {
	result, err := MergeFiles(nil)
	if err != nil {
		t.Fatalf("MergeFiles: %v", err)
	}
	if result.Merged != nil {
		t.Error("merge of nothing should be nil")
	}
}

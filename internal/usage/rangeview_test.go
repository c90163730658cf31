package usage

import "testing"

var weekLabels = []string{
	"2026-02-01", "2026-02-02", "2026-02-03", "2026-02-04", "2026-02-05",
}

func TestResolveRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantStart  string
		wantEnd    string
	}{
		{"exact", "2026-02-02", "2026-02-04", "2026-02-02", "2026-02-04"},
		{"full", "2026-02-01", "2026-02-05", "2026-02-01", "2026-02-05"},
		{"reversed bounds swap", "2026-02-04", "2026-02-02", "2026-02-02", "2026-02-04"},
		{"start before data clamps", "2026-01-01", "2026-02-03", "2026-02-01", "2026-02-03"},
		{"end after data clamps", "2026-02-03", "2026-03-01", "2026-02-03", "2026-02-05"},
		{"range fully before data", "2026-01-01", "2026-01-15", "2026-02-01", "2026-02-05"},
		{"range fully after data", "2026-03-01", "2026-03-15", "2026-02-01", "2026-02-05"},
		{"gap between labels", "2026-02-02", "2026-02-02", "2026-02-02", "2026-02-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := ResolveRange(weekLabels, tt.start, tt.end)
			if view.Empty() {
				t.Fatal("view is empty")
			}
			if view.Start != tt.wantStart || view.End != tt.wantEnd {
				t.Errorf("got [%s, %s], want [%s, %s]", view.Start, view.End, tt.wantStart, tt.wantEnd)
			}
			if view.Labels[0] != view.Start || view.Labels[len(view.Labels)-1] != view.End {
				t.Errorf("Labels %v disagree with Start/End", view.Labels)
			}
			if view.Len() != len(view.Labels) {
				t.Errorf("Len() = %d, want %d", view.Len(), len(view.Labels))
			}
		})
	}
}

func TestResolveRangeSnapsBetweenLabels(t *testing.T) {
	labels := []string{"2026-02-01", "2026-02-10"}

	// Both bounds fall in the gap: start snaps forward, end snaps back,
	// the crossed indices swap so the view still covers the data.
	view := ResolveRange(labels, "2026-02-03", "2026-02-05")
	if view.Empty() {
		t.Fatal("view is empty")
	}
	if view.Start != "2026-02-01" || view.End != "2026-02-10" {
		t.Errorf("got [%s, %s], want [2026-02-01, 2026-02-10]", view.Start, view.End)
	}
}

func TestResolveRangeEmptyLabels(t *testing.T) {
	view := ResolveRange(nil, "2026-02-01", "2026-02-05")
	if !view.Empty() {
		t.Fatal("expected empty view")
	}
	if view.StartIndex != 0 || view.EndIndex != -1 {
		t.Errorf("got indices (%d, %d), want (0, -1)", view.StartIndex, view.EndIndex)
	}
	if view.Len() != 0 {
		t.Errorf("Len() = %d, want 0", view.Len())
	}
}

func TestResolveAll(t *testing.T) {
	view := ResolveAll(weekLabels)
	if view.Start != "2026-02-01" || view.End != "2026-02-05" {
		t.Errorf("got [%s, %s], want full range", view.Start, view.End)
	}
	if view.Len() != len(weekLabels) {
		t.Errorf("Len() = %d, want %d", view.Len(), len(weekLabels))
	}

	if !ResolveAll(nil).Empty() {
		t.Error("ResolveAll(nil) should be empty")
	}
}

package pricing

import (
	"math"
	"testing"
)

func TestNormalizeModelName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "unknown"},
		{"   ", "unknown"},
		{"gpt-5.1-mini", "gpt-5.1-mini"},
		{"  gpt-5.1-mini  ", "gpt-5.1-mini"},
		{"gpt-5.1-mini (preview)", "gpt-5.1-mini"},
		{"gpt-5.1-mini （預覽）", "gpt-5.1-mini"},
		{"gpt  5   turbo", "gpt 5 turbo"},
		{"gpt-4o:ft-acme-2026 (beta)", "gpt-4o:ft-acme-2026 (beta)"},
		{"gpt-4o (beta):ft-acme", "gpt-4o:ft-acme"},
		{"gpt-4o:", "gpt-4o"},
		{"(x)", "unknown"},
	}
	for _, tt := range tests {
		if got := NormalizeModelName(tt.in); got != tt.want {
			t.Errorf("NormalizeModelName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveAliasCycle(t *testing.T) {
	book := &Book{
		Prices: map[string]Price{"b": {Input: 1}},
		Aliases: map[string]string{
			"a": "b",
			"b": "a",
		},
	}

	// Must terminate despite the 2-cycle; "a" resolves to "b" which has a price.
	p, ok := book.Resolve("a")
	if !ok {
		t.Fatal("Resolve(a) failed on cyclic alias map")
	}
	if p.Input != 1 {
		t.Errorf("Resolve(a) input rate = %v, want 1", p.Input)
	}
}

func TestResolveMatchOrder(t *testing.T) {
	book := Default()

	tests := []struct {
		model   string
		wantKey bool
		input   float64
	}{
		{"gpt-5.1", true, 1.25},                     // exact
		{"gpt-5.2-codex", true, 1.75},               // alias -> gpt-5.2
		{"gpt-4o:ft-acme-2026", true, 2.50},         // base before ":"
		{"gpt-4.1-mini-2026-01-15", true, 0.40},     // prefix key + "-"
		{"gpt-5.3-turbo", true, 1.75},               // ladder: 5.3 -> 5.2
		{"gpt-5.2-experimental-thing", true, 1.75},   // prefix key + "-"
		{"experimental-gpt-5.1-variant", true, 1.25}, // ladder: contains 5.1
		{"gpt-5-hypothetical", true, 1.25},           // prefix key + "-"
		{"totally-unknown-model", false, 0},
	}
	for _, tt := range tests {
		p, ok := book.Resolve(tt.model)
		if ok != tt.wantKey {
			t.Errorf("Resolve(%q) ok = %v, want %v", tt.model, ok, tt.wantKey)
			continue
		}
		if ok && p.Input != tt.input {
			t.Errorf("Resolve(%q) input rate = %v, want %v", tt.model, p.Input, tt.input)
		}
	}
}

func TestCostUSD(t *testing.T) {
	cached := 0.50
	price := &Price{Input: 2.00, CachedInput: &cached, Output: 8.00}

	rec := Breakdown{
		InputTokens:       1_000_000,
		CachedInputTokens: 200_000,
		OutputTokens:      500_000,
	}

	got := CostUSD(rec, price)
	if got == nil {
		t.Fatal("CostUSD returned nil for a priced model")
	}
	// 0.8M * $2 + 0.2M * $0.50 + 0.5M * $8 = 1.60 + 0.10 + 4.00
	if math.Abs(*got-5.70) > 1e-9 {
		t.Errorf("CostUSD = %v, want 5.70", *got)
	}
}

func TestCostUSDNilPrice(t *testing.T) {
	if got := CostUSD(Breakdown{InputTokens: 100}, nil); got != nil {
		t.Errorf("CostUSD with nil price = %v, want nil", *got)
	}
}

func TestCostUSDNoCachedRate(t *testing.T) {
	price := &Price{Input: 10.00, Output: 20.00}
	rec := Breakdown{InputTokens: 1_000_000, CachedInputTokens: 400_000}

	got := CostUSD(rec, price)
	if got == nil {
		t.Fatal("CostUSD returned nil")
	}
	// Cached reads bill at the plain input rate: full 1M at $10.
	if math.Abs(*got-10.00) > 1e-9 {
		t.Errorf("CostUSD = %v, want 10.00", *got)
	}
}

func TestCostUSDCachedExceedsInput(t *testing.T) {
	cached := 1.00
	price := &Price{Input: 2.00, CachedInput: &cached, Output: 8.00}
	rec := Breakdown{InputTokens: 100, CachedInputTokens: 500}

	got := CostUSD(rec, price)
	if got == nil {
		t.Fatal("CostUSD returned nil")
	}
	// Billable input clamps at zero; only the cached portion bills.
	want := 500.0 / 1e6 * 1.00
	if math.Abs(*got-want) > 1e-12 {
		t.Errorf("CostUSD = %v, want %v", *got, want)
	}
}

package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Price holds USD-per-million-token rates for one model. CachedInput is
// nil when the provider has no discounted cache rate; cached reads are
// then billed at the plain input rate.
type Price struct {
	Input       float64  `json:"input"`
	CachedInput *float64 `json:"cached_input"`
	Output      float64  `json:"output"`
}

// Book is a pricing table plus an alias map. Aliases may chain
// (a -> b -> c) and may even contain cycles; resolution is cycle-guarded.
type Book struct {
	Prices  map[string]Price  `json:"prices"`
	Aliases map[string]string `json:"aliases"`
}

// parenRe matches parenthetical annotations, ASCII or fullwidth.
var parenRe = regexp.MustCompile(`\s*[\(（][^\)）]*[\)）]\s*`)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeModelName canonicalizes a raw model identifier: trims
// whitespace, strips parenthetical annotations, collapses internal
// whitespace, and maps the empty string to "unknown". A variant suffix
// after the first ":" is preserved verbatim so fine-tune ids stay
// distinguishable.
func NormalizeModelName(model string) string {
	name := strings.TrimSpace(model)
	if name == "" {
		return "unknown"
	}

	head, tail, hasTail := strings.Cut(name, ":")
	head = parenRe.ReplaceAllString(head, " ")
	head = strings.TrimSpace(spaceRe.ReplaceAllString(head, " "))
	if head == "" {
		head = "unknown"
	}

	if !hasTail {
		return head
	}
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return head
	}
	return head + ":" + tail
}

// resolveAlias follows the alias chain from name, stopping at the first
// name with no further alias or the first repeat of an already-visited
// name, so cyclic alias maps terminate.
func (b *Book) resolveAlias(name string) string {
	seen := make(map[string]bool)
	for {
		target, ok := b.Aliases[name]
		if !ok || seen[name] {
			return name
		}
		seen[name] = true
		name = target
	}
}

// Resolve finds a usable price for a model name. Match order, first hit
// wins: exact de-aliased name, de-aliased base name (before ":"), the
// longest price key K where the base starts with K+"-", then the hard-coded
// gpt-5 minor-version fallback ladder. Returns false when nothing
// matches; an unpriced model is not the same as a zero-priced one.
func (b *Book) Resolve(model string) (Price, bool) {
	name := b.resolveAlias(NormalizeModelName(model))
	if p, ok := b.Prices[name]; ok {
		return p, true
	}

	base, _, _ := strings.Cut(name, ":")
	base = b.resolveAlias(base)
	if p, ok := b.Prices[base]; ok {
		return p, true
	}

	// Longest matching key wins so dated variants of a -mini model do not
	// pick up the parent model's rate.
	bestKey := ""
	for key := range b.Prices {
		if strings.HasPrefix(base, key+"-") && len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey != "" {
		return b.Prices[bestKey], true
	}

	// Literal fallback ladder for gpt-5 minor versions not listed above.
	// Each rule is a hand-maintained entry, not a generic version comparator.
	switch {
	case strings.Contains(base, "gpt-5.3"):
		if p, ok := b.Prices["gpt-5.2"]; ok {
			return p, true
		}
		return b.lookup("gpt-5")
	case strings.Contains(base, "gpt-5.2"):
		return b.lookup("gpt-5.2")
	case strings.Contains(base, "gpt-5.1"):
		return b.lookup("gpt-5.1")
	case strings.HasPrefix(base, "gpt-5"):
		return b.lookup("gpt-5")
	}

	return Price{}, false
}

func (b *Book) lookup(key string) (Price, bool) {
	p, ok := b.Prices[key]
	return p, ok
}

// Breakdown holds aggregated token counts for one model. The total is
// carried from the source data and never recomputed here.
type Breakdown struct {
	InputTokens           int64 `json:"input_tokens"`
	CachedInputTokens     int64 `json:"cached_input_tokens"`
	OutputTokens          int64 `json:"output_tokens"`
	ReasoningOutputTokens int64 `json:"reasoning_output_tokens"`
	TotalTokens           int64 `json:"total_tokens"`
}

// Add accumulates another breakdown into b.
func (b *Breakdown) Add(other Breakdown) {
	b.InputTokens += other.InputTokens
	b.CachedInputTokens += other.CachedInputTokens
	b.OutputTokens += other.OutputTokens
	b.ReasoningOutputTokens += other.ReasoningOutputTokens
	b.TotalTokens += other.TotalTokens
}

// CostUSD estimates the cost of a token breakdown at the given price.
// A nil price means the model could not be priced and yields nil, which
// callers render as "cost unavailable" rather than $0.00.
func CostUSD(rec Breakdown, price *Price) *float64 {
	if price == nil {
		return nil
	}

	cachedRate := price.Input
	if price.CachedInput != nil {
		cachedRate = *price.CachedInput
	}

	billableInput := rec.InputTokens - rec.CachedInputTokens
	if billableInput < 0 {
		billableInput = 0
	}
	outputTotal := rec.OutputTokens + rec.ReasoningOutputTokens

	cost := float64(billableInput)/1e6*price.Input +
		float64(rec.CachedInputTokens)/1e6*cachedRate +
		float64(outputTotal)/1e6*price.Output
	return &cost
}

// Load reads a pricing book from a JSON file. Falling back to the
// embedded defaults on a missing file is the caller's decision.
func Load(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var book Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}
	if book.Prices == nil {
		book.Prices = map[string]Price{}
	}
	if book.Aliases == nil {
		book.Aliases = map[string]string{}
	}
	return &book, nil
}

func cachedRate(v float64) *float64 { return &v }

// Default returns the embedded pricing book. Rates are USD per million
// tokens, standard tier.
func Default() *Book {
	return &Book{
		Aliases: map[string]string{
			"gpt-5.2-codex":        "gpt-5.2",
			"gpt-5.3-codex":        "gpt-5.2",
			"gpt-5.3-codex-latest": "gpt-5.2",
		},
		Prices: map[string]Price{
			"gpt-5.2":                      {Input: 1.75, CachedInput: cachedRate(0.175), Output: 14.00},
			"gpt-5.1":                      {Input: 1.25, CachedInput: cachedRate(0.125), Output: 10.00},
			"gpt-5":                        {Input: 1.25, CachedInput: cachedRate(0.125), Output: 10.00},
			"gpt-5-mini":                   {Input: 0.25, CachedInput: cachedRate(0.025), Output: 2.00},
			"gpt-5-nano":                   {Input: 0.05, CachedInput: cachedRate(0.005), Output: 0.40},
			"gpt-5.2-chat-latest":          {Input: 1.75, CachedInput: cachedRate(0.175), Output: 14.00},
			"gpt-5.1-chat-latest":          {Input: 1.25, CachedInput: cachedRate(0.125), Output: 10.00},
			"gpt-5-chat-latest":            {Input: 1.25, CachedInput: cachedRate(0.125), Output: 10.00},
			"gpt-5.1-codex-max":            {Input: 1.25, CachedInput: cachedRate(0.125), Output: 10.00},
			"gpt-5.1-codex":                {Input: 1.25, CachedInput: cachedRate(0.125), Output: 10.00},
			"gpt-5-codex":                  {Input: 1.25, CachedInput: cachedRate(0.125), Output: 10.00},
			"gpt-5.1-codex-mini":           {Input: 0.25, CachedInput: cachedRate(0.025), Output: 2.00},
			"codex-mini-latest":            {Input: 1.50, CachedInput: cachedRate(0.375), Output: 6.00},
			"gpt-5.2-pro":                  {Input: 21.00, Output: 168.00},
			"gpt-5-pro":                    {Input: 15.00, Output: 120.00},
			"gpt-4.1":                      {Input: 2.00, CachedInput: cachedRate(0.50), Output: 8.00},
			"gpt-4.1-mini":                 {Input: 0.40, CachedInput: cachedRate(0.10), Output: 1.60},
			"gpt-4.1-nano":                 {Input: 0.10, CachedInput: cachedRate(0.025), Output: 0.40},
			"gpt-4o":                       {Input: 2.50, CachedInput: cachedRate(1.25), Output: 10.00},
			"gpt-4o-mini":                  {Input: 0.15, CachedInput: cachedRate(0.075), Output: 0.60},
			"gpt-4o-2024-05-13":            {Input: 5.00, Output: 15.00},
			"gpt-realtime":                 {Input: 4.00, CachedInput: cachedRate(0.40), Output: 16.00},
			"gpt-realtime-mini":            {Input: 0.60, CachedInput: cachedRate(0.06), Output: 2.40},
			"gpt-4o-realtime-preview":      {Input: 5.00, CachedInput: cachedRate(2.50), Output: 20.00},
			"gpt-4o-mini-realtime-preview": {Input: 0.60, CachedInput: cachedRate(0.30), Output: 2.40},
			"gpt-audio":                    {Input: 2.50, Output: 10.00},
			"gpt-audio-mini":               {Input: 0.60, Output: 2.40},
			"o1":                           {Input: 15.00, CachedInput: cachedRate(7.50), Output: 60.00},
			"o1-pro":                       {Input: 150.00, Output: 600.00},
			"o1-mini":                      {Input: 1.10, CachedInput: cachedRate(0.55), Output: 4.40},
			"o3":                           {Input: 2.00, CachedInput: cachedRate(0.50), Output: 8.00},
			"o3-pro":                       {Input: 20.00, Output: 80.00},
			"o3-mini":                      {Input: 1.10, CachedInput: cachedRate(0.55), Output: 4.40},
			"o3-deep-research":             {Input: 10.00, CachedInput: cachedRate(2.50), Output: 40.00},
			"o4-mini":                      {Input: 1.10, CachedInput: cachedRate(0.275), Output: 4.40},
			"o4-mini-deep-research":        {Input: 2.00, CachedInput: cachedRate(0.50), Output: 8.00},
		},
	}
}

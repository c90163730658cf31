// Package report assembles usage datasets for the CLI commands: it
// loads local session logs, folds in imported exports, and resolves the
// requested date window.
package report

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cxusage/cxusage/cli/internal/config"
	"github.com/cxusage/cxusage/internal/parser"
	"github.com/cxusage/cxusage/internal/pricing"
	"github.com/cxusage/cxusage/internal/usage"
)

// Options for assembling a report
type Options struct {
	Since       string // inclusive start day, "" for open
	Until       string // inclusive end day, "" for open
	Days        int    // last-N-days preset, 0 for off
	PricingFile string
	CodexHome   string
}

// ResolveWindow maps the options onto the dataset's day labels. With no
// bounds set the full range is selected; --days N means the last N
// calendar days ending today.
func (o Options) ResolveWindow(labels []string, now time.Time) usage.RangedView {
	if o.Days > 0 {
		end := usage.FormatDay(now)
		start := usage.FormatDay(now.AddDate(0, 0, -(o.Days - 1)))
		return usage.ResolveRange(labels, start, end)
	}

	if o.Since == "" && o.Until == "" {
		return usage.ResolveAll(labels)
	}

	since := o.Since
	until := o.Until
	if since == "" && len(labels) > 0 {
		since = labels[0]
	}
	if until == "" && len(labels) > 0 {
		until = labels[len(labels)-1]
	}
	return usage.ResolveRange(labels, since, until)
}

// ValidateDay checks a --since/--until argument.
func ValidateDay(value string) error {
	if value == "" {
		return nil
	}
	if _, err := usage.ParseDay(value); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return nil
}

// LoadBook picks the pricing book: an explicit file wins, then the one
// configured in ~/.cxusage.yaml, then the embedded defaults.
func LoadBook(opts Options, cfg *config.Config) (*pricing.Book, error) {
	path := opts.PricingFile
	if path == "" && cfg != nil {
		path = cfg.PricingFile
	}
	if path == "" {
		return pricing.Default(), nil
	}
	return pricing.Load(path)
}

// LoadLocal parses the local session logs into an aggregate and stamps
// it with pricing and machine metadata. Returns nil when there is no
// usage at all.
func LoadLocal(opts Options, cfg *config.Config) (*usage.Aggregate, error) {
	codexHome := opts.CodexHome
	if codexHome == "" && cfg != nil {
		codexHome = cfg.CodexHome
	}

	records, err := parser.ParseAllFiles(codexHome)
	if err != nil {
		return nil, fmt.Errorf("failed to read session logs: %w", err)
	}

	agg := usage.BuildAggregate(records)
	if agg == nil {
		return nil, nil
	}

	book, err := LoadBook(opts, cfg)
	if err != nil {
		return nil, err
	}
	agg.Pricing = book

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	clientID := ""
	if cfg != nil {
		clientID = cfg.ClientID
	}
	agg.Meta = &usage.Meta{
		Hostname:    hostname,
		ClientID:    clientID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	return agg, nil
}

// MergeResult reports what a batch import produced.
type MergeResult struct {
	Merged  *usage.Aggregate
	Loaded  int
	Invalid int
}

// MergeFiles imports exported datasets and merges them with any extra
// aggregates (the local one, typically). Unreadable or invalid files
// are counted and skipped rather than aborting the batch.
func MergeFiles(paths []string, extra ...*usage.Aggregate) (MergeResult, error) {
	var result MergeResult
	inputs := append([]*usage.Aggregate{}, extra...)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", path, err)
			continue
		}
		agg, err := usage.DecodeImport(data)
		if err != nil {
			result.Invalid++
			if errors.Is(err, usage.ErrInvalidDataset) {
				fmt.Fprintf(os.Stderr, "Warning: skipping %s: not a usage export\n", path)
			} else {
				fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", path, err)
			}
			continue
		}
		inputs = append(inputs, agg)
		result.Loaded++
	}

	result.Merged = usage.Merge(inputs)
	return result, nil
}

package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cxusage/cxusage/internal/pricing"
	"github.com/cxusage/cxusage/internal/usage"
)

const (
	compactThreshold = 100 // Terminal width below which compact mode kicks in
	defaultWidth     = 120
)

// TableOptions controls table display behavior
type TableOptions struct {
	ForceCompact bool
}

// shouldUseCompact determines if compact mode should be used
func shouldUseCompact(opts TableOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return getTerminalWidth() < compactThreshold
}

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}

	str := fmt.Sprintf("%d", n)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}

	if negative {
		return "-" + result
	}
	return result
}

// FormatCost formats a cost value as currency
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.2f", cost)
}

// FormatCostPtr renders an optional estimate; nil means no model in the
// view could be priced, which is not the same as $0.00.
func FormatCostPtr(cost *float64) string {
	if cost == nil {
		return "n/a"
	}
	return FormatCost(*cost)
}

// FormatPercent renders a 0..1 ratio as a percentage.
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// PrintStats prints the summary card for one ranged view.
func PrintStats(stats usage.Stats) {
	fmt.Println()
	if stats.Days == 0 {
		fmt.Println("No usage data in the selected range.")
		fmt.Println()
		return
	}

	fmt.Printf("Range:           %s to %s (%d days, %d active)\n",
		stats.Start, stats.End, stats.Days, stats.ActiveDays)
	fmt.Printf("Total tokens:    %s\n", FormatNumber(stats.TotalTokens))
	fmt.Printf("  Input:         %s (%s cached, %s hit rate)\n",
		FormatNumber(stats.InputTokens), FormatNumber(stats.CachedTokens), FormatPercent(stats.CacheRate))
	fmt.Printf("  Output:        %s (%s reasoning)\n",
		FormatNumber(stats.OutputTokens), FormatNumber(stats.ReasoningTokens))
	fmt.Printf("Sessions:        %d\n", stats.Sessions)
	fmt.Printf("Avg per day:     %s\n", FormatNumber(stats.AvgPerDay))
	fmt.Printf("Avg per session: %s\n", FormatNumber(stats.AvgPerSession))
	fmt.Printf("Estimated cost:  %s\n", FormatCostPtr(stats.EstimatedCost))
	fmt.Println()
}

// dayCost estimates one day's cost from its per-model breakdown.
func dayCost(agg *usage.Aggregate, day string) *float64 {
	book := agg.Book()
	var sum float64
	priced := 0
	for model, rec := range agg.DailyModels[day] {
		price, ok := book.Resolve(model)
		if !ok {
			continue
		}
		if c := pricing.CostUSD(rec, &price); c != nil {
			sum += *c
			priced++
		}
	}
	if priced == 0 {
		return nil
	}
	return &sum
}

// PrintDailyTable prints one row per day in the view.
func PrintDailyTable(agg *usage.Aggregate, view usage.RangedView, opts TableOptions) {
	if view.Empty() {
		fmt.Println("No usage data found.")
		return
	}

	compact := shouldUseCompact(opts)
	fmt.Println()

	if compact {
		fmt.Printf("%-10s  %14s  %10s\n", "Date", "Total", "Cost")
		fmt.Println(strings.Repeat("─", 10+2+14+2+10))
		for i := view.StartIndex; i <= view.EndIndex; i++ {
			day := agg.Daily.Labels[i]
			fmt.Printf("%-10s  %14s  %10s\n",
				day, FormatNumber(agg.Daily.Total[i]), FormatCostPtr(dayCost(agg, day)))
		}
		fmt.Println()
		fmt.Println("(Compact mode - expand terminal for full view)")
		return
	}

	fmt.Printf("%-10s  %12s  %12s  %12s  %12s  %14s  %10s\n",
		"Date", "Input", "Output", "Reasoning", "Cached", "Total", "Cost")
	fmt.Println(strings.Repeat("─", 10+2+12+2+12+2+12+2+12+2+14+2+10))

	for i := view.StartIndex; i <= view.EndIndex; i++ {
		day := agg.Daily.Labels[i]
		fmt.Printf("%-10s  %12s  %12s  %12s  %12s  %14s  %10s\n",
			day,
			FormatNumber(agg.Daily.Input[i]),
			FormatNumber(agg.Daily.Output[i]),
			FormatNumber(agg.Daily.Reasoning[i]),
			FormatNumber(agg.Daily.Cached[i]),
			FormatNumber(agg.Daily.Total[i]),
			FormatCostPtr(dayCost(agg, day)))
	}
	fmt.Println()
}

// PrintModelBreakdown prints per-model totals over the view, largest
// first.
func PrintModelBreakdown(agg *usage.Aggregate, view usage.RangedView) {
	totals := agg.ModelTotals(view)
	if len(totals) == 0 {
		return
	}

	models := make([]string, 0, len(totals))
	for m := range totals {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		if totals[models[i]].TotalTokens != totals[models[j]].TotalTokens {
			return totals[models[i]].TotalTokens > totals[models[j]].TotalTokens
		}
		return models[i] < models[j]
	})

	nameWidth := len("Model")
	for _, m := range models {
		if len(m) > nameWidth {
			nameWidth = len(m)
		}
	}

	book := agg.Book()
	fmt.Printf("%-*s  %12s  %12s  %12s  %14s  %10s\n",
		nameWidth, "Model", "Input", "Output", "Cached", "Total", "Cost")
	fmt.Println(strings.Repeat("─", nameWidth+2+12+2+12+2+12+2+14+2+10))

	for _, m := range models {
		rec := totals[m]
		var cost *float64
		if price, ok := book.Resolve(m); ok {
			cost = pricing.CostUSD(rec, &price)
		}
		fmt.Printf("%-*s  %12s  %12s  %12s  %14s  %10s\n",
			nameWidth, m,
			FormatNumber(rec.InputTokens),
			FormatNumber(rec.OutputTokens),
			FormatNumber(rec.CachedInputTokens),
			FormatNumber(rec.TotalTokens),
			FormatCostPtr(cost))
	}
	fmt.Println()
}

const chartBarWidth = 40

// PrintChart renders a horizontal bar chart of the points.
func PrintChart(points []usage.Point) {
	if len(points) == 0 {
		return
	}

	var max int64
	labelWidth := 0
	for _, p := range points {
		if p.Value > max {
			max = p.Value
		}
		if len(p.Label) > labelWidth {
			labelWidth = len(p.Label)
		}
	}
	if max == 0 {
		max = 1
	}

	for _, p := range points {
		bar := int(p.Value * chartBarWidth / max)
		fmt.Printf("%-*s  %s%s  %s\n",
			labelWidth, p.Label,
			strings.Repeat("█", bar),
			strings.Repeat(" ", chartBarWidth-bar),
			FormatNumber(p.Value))
	}
	fmt.Println()
}

// JSONReport is the machine-readable report shape.
type JSONReport struct {
	Stats  usage.Stats       `json:"stats"`
	Daily  []JSONDay         `json:"daily"`
	Models []JSONModelTotals `json:"models"`
}

// JSONDay is one day row in JSON output.
type JSONDay struct {
	Date      string   `json:"date"`
	Input     int64    `json:"input_tokens"`
	Output    int64    `json:"output_tokens"`
	Reasoning int64    `json:"reasoning_tokens"`
	Cached    int64    `json:"cached_tokens"`
	Total     int64    `json:"total_tokens"`
	Cost      *float64 `json:"cost"`
}

// JSONModelTotals is one model row in JSON output.
type JSONModelTotals struct {
	Model  string            `json:"model"`
	Tokens pricing.Breakdown `json:"tokens"`
	Cost   *float64          `json:"cost"`
}

// PrintJSON outputs the full report as JSON.
func PrintJSON(agg *usage.Aggregate, view usage.RangedView, stats usage.Stats) {
	report := JSONReport{Stats: stats, Daily: []JSONDay{}, Models: []JSONModelTotals{}}

	for i := view.StartIndex; i <= view.EndIndex; i++ {
		day := agg.Daily.Labels[i]
		report.Daily = append(report.Daily, JSONDay{
			Date:      day,
			Input:     agg.Daily.Input[i],
			Output:    agg.Daily.Output[i],
			Reasoning: agg.Daily.Reasoning[i],
			Cached:    agg.Daily.Cached[i],
			Total:     agg.Daily.Total[i],
			Cost:      dayCost(agg, day),
		})
	}

	totals := agg.ModelTotals(view)
	models := make([]string, 0, len(totals))
	for m := range totals {
		models = append(models, m)
	}
	sort.Strings(models)

	book := agg.Book()
	for _, m := range models {
		rec := totals[m]
		var cost *float64
		if price, ok := book.Resolve(m); ok {
			cost = pricing.CostUSD(rec, &price)
		}
		report.Models = append(report.Models, JSONModelTotals{Model: m, Tokens: rec, Cost: cost})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(report)
}

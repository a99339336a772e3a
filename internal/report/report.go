// Package report renders a markdown nutrition report for one kind and window.
package report

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/ops"
	"github.com/hpungsan/nutrilog/internal/period"
)

// Input selects what the report covers.
type Input struct {
	Kind   string
	Window ops.WindowInput
	Top    int // 0 uses the configured top_limit
}

// Data is everything a report shows.
type Data struct {
	Kind         entry.Kind
	Window       period.Window
	Summary      aggregate.RangeSummary
	Days         []aggregate.DailyRollup
	Aggregate    aggregate.Aggregate
	Top          []aggregate.FrequencyEntry
	Meals        []aggregate.MealPeriodStat
	Unnormalized  int
	Unclassified  int
	InvalidValues int

	// SourceUnavailable is set when any read fell back to an empty result.
	SourceUnavailable bool
}

// Build runs the report queries. Top items and meal periods are only
// collected for consumption.
func Build(ctx context.Context, src ops.Sources, in Input) (*Data, error) {
	rollup, err := ops.Rollup(ctx, src, ops.RollupInput{Kind: in.Kind, Window: in.Window})
	if err != nil {
		return nil, err
	}
	// Pin the resolved window so every section covers the same days
	window := ops.WindowInput{From: rollup.Window.Start.String(), To: rollup.Window.End.String()}

	summary, err := ops.Summary(ctx, src, ops.SummaryInput{Kind: in.Kind, Window: window})
	if err != nil {
		return nil, err
	}

	d := &Data{
		Kind:              rollup.Kind,
		Window:            rollup.Window,
		Summary:           summary.Summary,
		Days:              rollup.Days,
		Aggregate:         rollup.Aggregate,
		Unnormalized:      rollup.Unnormalized,
		InvalidValues:     rollup.InvalidValues,
		SourceUnavailable: rollup.SourceUnavailable || summary.SourceUnavailable,
	}

	if d.Kind != entry.KindConsumption {
		return d, nil
	}

	top, err := ops.Top(ctx, src, ops.TopInput{Kind: in.Kind, Window: window, Limit: in.Top})
	if err != nil {
		return nil, err
	}
	meals, err := ops.MealBreakdown(ctx, src, ops.MealBreakdownInput{Window: window})
	if err != nil {
		return nil, err
	}
	d.Top = top.Items
	d.Meals = meals.Periods
	d.Unclassified = meals.Unclassified
	d.SourceUnavailable = d.SourceUnavailable || top.SourceUnavailable || meals.SourceUnavailable
	return d, nil
}

// Markdown renders d as a markdown document.
func Markdown(d *Data) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s report\n\n", titleCase(string(d.Kind)))
	fmt.Fprintf(&b, "%s to %s (%d days)\n\n", d.Window.Start.DayFirst(), d.Window.End.DayFirst(), d.Window.Days())

	if d.SourceUnavailable {
		b.WriteString("> Record source unavailable; figures may be incomplete.\n\n")
	}

	s := d.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total | %s |\n", FormatValue(s.TotalValue))
	fmt.Fprintf(&b, "| Entries | %d |\n", s.RecordCount)
	fmt.Fprintf(&b, "| Average per entry | %s |\n", FormatValue(s.AveragePerEntry))
	fmt.Fprintf(&b, "| Active days | %d |\n", s.DistinctActiveDays)
	fmt.Fprintf(&b, "| Average per active day | %s |\n", FormatValue(s.AveragePerActiveDay))
	if s.Coverage != nil {
		fmt.Fprintf(&b, "| Coverage | %s%% |\n", FormatValue(*s.Coverage*100))
	}
	fmt.Fprintf(&b, "| Min / max | %s / %s |\n", FormatValue(s.MinValue), FormatValue(s.MaxValue))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Daily (%s)\n\n", d.Aggregate)
	if len(d.Days) == 0 {
		b.WriteString("No entries in this window.\n\n")
	} else {
		b.WriteString("| Day | Value | Entries |\n|---|---|---|\n")
		for _, day := range d.Days {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", day.Label, FormatValue(day.Value), day.Count)
		}
		b.WriteString("\n")
	}

	if d.Kind == entry.KindConsumption {
		b.WriteString("## Top items\n\n")
		if len(d.Top) == 0 {
			b.WriteString("No entries in this window.\n\n")
		} else {
			b.WriteString("| # | Item | Times | Total |\n|---|---|---|---|\n")
			for i, fe := range d.Top {
				fmt.Fprintf(&b, "| %d | %s | %d | %s |\n", i+1, escapeCell(fe.ItemName), fe.OccurrenceCount, FormatValue(fe.TotalValue))
			}
			b.WriteString("\n")
		}

		b.WriteString("## Meals\n\n")
		if len(d.Meals) == 0 {
			b.WriteString("No classified entries in this window.\n\n")
		} else {
			b.WriteString("| Meal | Entries | Total | Average |\n|---|---|---|---|\n")
			for _, m := range d.Meals {
				fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", m.Period, m.Count, FormatValue(m.Total), FormatValue(m.Average))
			}
			b.WriteString("\n")
		}
	}

	var notes []string
	if d.Unnormalized > 0 {
		notes = append(notes, fmt.Sprintf("%d record(s) with unreadable dates were left out.", d.Unnormalized))
	}
	if d.InvalidValues > 0 {
		notes = append(notes, fmt.Sprintf("%d record(s) with an unreadable amount were left out.", d.InvalidValues))
	}
	if d.Unclassified > 0 {
		notes = append(notes, fmt.Sprintf("%d item(s) have no catalog entry and are missing from the meal breakdown.", d.Unclassified))
	}
	if len(notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}

	return b.String()
}

// FormatValue rounds to one decimal and drops a trailing ".0".
func FormatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// escapeCell keeps item names from breaking table rows.
func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

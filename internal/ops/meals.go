package ops

import (
	"context"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/period"
)

// MealBreakdownInput contains parameters for the MealBreakdown operation.
type MealBreakdownInput struct {
	Window     WindowInput
	MealPeriod string // "" or "All" for every period
}

// MealBreakdownOutput contains the result of the MealBreakdown operation.
type MealBreakdownOutput struct {
	Window            period.Window              `json:"window"`
	Periods           []aggregate.MealPeriodStat `json:"periods"`
	Unclassified      int                        `json:"unclassified"`
	InvalidValues     int                        `json:"invalid_values"`
	SourceUnavailable bool                       `json:"source_unavailable,omitempty"`
}

// MealBreakdown totals consumption by meal period. Records without a
// catalog entry are left out and counted as unclassified.
func MealBreakdown(ctx context.Context, src Sources, input MealBreakdownInput) (*MealBreakdownOutput, error) {
	meal, ok := entry.ParseMealPeriod(input.MealPeriod)
	if !ok {
		return nil, errors.NewInvalidRequest("unknown meal_period: " + input.MealPeriod)
	}
	window, err := resolveWindow(input.Window, src, false)
	if err != nil {
		return nil, err
	}

	l, err := load(ctx, src, entry.KindConsumption, entry.RecordFilter{})
	if err != nil {
		return nil, err
	}

	records := aggregate.FilterByDateRange(l.records, *window)
	records = aggregate.FilterByMealPeriod(records, meal)
	unclassified := aggregate.CountUnclassified(records)

	return &MealBreakdownOutput{
		Window:            *window,
		Periods:           aggregate.GroupByMealPeriod(aggregate.FilterClassified(records)),
		Unclassified:      unclassified,
		InvalidValues:     l.invalidValues,
		SourceUnavailable: l.unavailable,
	}, nil
}

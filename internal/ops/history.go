package ops

import (
	"context"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/period"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Kind   string // default: consumption
	Window WindowInput
	// MealPeriod narrows consumption records to one meal; "" or "All" keeps all.
	MealPeriod     string
	NameContains   string
	ClassifiedOnly bool
	Limit          int // default: 20, max: 100
	Offset         int // default: 0
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Kind       entry.Kind                 `json:"kind"`
	Items      []aggregate.EnrichedRecord `json:"items"`
	Pagination Pagination                 `json:"pagination"`
	Sort       string                     `json:"sort"`

	// Window is nil for an all-time listing.
	Window            *period.Window `json:"window,omitempty"`
	Unnormalized      int            `json:"unnormalized"`
	Unclassified      int            `json:"unclassified"`
	InvalidValues     int            `json:"invalid_values"`
	SourceUnavailable bool           `json:"source_unavailable,omitempty"`
}

// History lists records most recent first. With no window it lists all
// time, including records whose dates did not parse.
func History(ctx context.Context, src Sources, input HistoryInput) (*HistoryOutput, error) {
	kind, err := entry.ParseKind(input.Kind, entry.KindConsumption)
	if err != nil {
		return nil, err
	}
	meal, ok := entry.ParseMealPeriod(input.MealPeriod)
	if !ok {
		return nil, errors.NewInvalidRequest("unknown meal_period: " + input.MealPeriod)
	}
	window, err := resolveWindow(input.Window, src, true)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	l, err := load(ctx, src, kind, entry.RecordFilter{})
	if err != nil {
		return nil, err
	}
	records := l.records

	// Counts describe everything the source returned, before narrowing
	unnormalized := aggregate.CountUnnormalized(records)
	unclassified := aggregate.CountUnclassified(records)

	if window != nil {
		records = aggregate.FilterByDateRange(records, *window)
	}
	records = aggregate.FilterByMealPeriod(records, meal)
	records = aggregate.FilterByNameContains(records, input.NameContains)
	if input.ClassifiedOnly {
		records = aggregate.FilterClassified(records)
	}
	aggregate.SortRecent(records)

	total := len(records)
	page := []aggregate.EnrichedRecord{}
	if offset < total {
		page = records[offset:min(offset+limit, total)]
	}

	return &HistoryOutput{
		Kind:  kind,
		Items: page,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(page) < total,
			Total:   total,
		},
		Sort:              "date_desc",
		Window:            window,
		Unnormalized:      unnormalized,
		Unclassified:      unclassified,
		InvalidValues:     l.invalidValues,
		SourceUnavailable: l.unavailable,
	}, nil
}

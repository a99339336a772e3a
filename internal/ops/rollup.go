package ops

import (
	"context"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/period"
)

// RollupInput contains parameters for the Rollup operation.
type RollupInput struct {
	Kind   string // default: consumption
	Window WindowInput
	// Aggregate is sum, average, min, max or count. Default depends on kind:
	// average for weight, sum otherwise.
	Aggregate string
}

// RollupOutput contains the result of the Rollup operation.
type RollupOutput struct {
	Kind              entry.Kind              `json:"kind"`
	Aggregate         aggregate.Aggregate     `json:"aggregate"`
	Window            period.Window           `json:"window"`
	Days              []aggregate.DailyRollup `json:"days"`
	Unnormalized      int                     `json:"unnormalized"`
	InvalidValues     int                     `json:"invalid_values"`
	SourceUnavailable bool                    `json:"source_unavailable,omitempty"`
}

// Rollup groups records in the window by day, oldest first.
func Rollup(ctx context.Context, src Sources, input RollupInput) (*RollupOutput, error) {
	kind, err := entry.ParseKind(input.Kind, entry.KindConsumption)
	if err != nil {
		return nil, err
	}

	fn := aggregate.AggregateFor(kind)
	if input.Aggregate != "" {
		var ok bool
		if fn, ok = aggregate.ParseAggregate(input.Aggregate); !ok {
			return nil, errors.NewInvalidRequest("aggregate must be one of sum, average, min, max, count")
		}
	}

	window, err := resolveWindow(input.Window, src, false)
	if err != nil {
		return nil, err
	}

	l, err := load(ctx, src, kind, entry.RecordFilter{})
	if err != nil {
		return nil, err
	}

	return &RollupOutput{
		Kind:              kind,
		Aggregate:         fn,
		Window:            *window,
		Days:              aggregate.GroupByDate(aggregate.FilterByDateRange(l.records, *window), fn),
		Unnormalized:      aggregate.CountUnnormalized(l.records),
		InvalidValues:     l.invalidValues,
		SourceUnavailable: l.unavailable,
	}, nil
}

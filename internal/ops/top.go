package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/period"
)

// MaxTopLimit bounds the number of items a top-N report returns.
const MaxTopLimit = 100

// TopInput contains parameters for the Top operation.
type TopInput struct {
	Kind   string // consumption only; empty means consumption
	Window WindowInput
	Limit  int // default: config top_limit, max: 100
}

// TopOutput contains the result of the Top operation.
type TopOutput struct {
	Kind              entry.Kind                 `json:"kind"`
	Window            period.Window              `json:"window"`
	Items             []aggregate.FrequencyEntry `json:"items"`
	SourceUnavailable bool                       `json:"source_unavailable,omitempty"`
}

// Top ranks the most frequently logged items in the window.
func Top(ctx context.Context, src Sources, input TopInput) (*TopOutput, error) {
	kind, err := entry.ParseKind(input.Kind, entry.KindConsumption)
	if err != nil {
		return nil, err
	}
	// Weight and water records carry no item name to rank by
	if kind != entry.KindConsumption {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("top ranks consumption items only; got kind %q", kind))
	}
	window, err := resolveWindow(input.Window, src, false)
	if err != nil {
		return nil, err
	}

	def := src.config().TopLimit
	if def <= 0 {
		def = 10
	}
	limit := clampLimit(input.Limit, def, MaxTopLimit)

	// Top only needs names and values; skip the catalog join
	records, unavailable, err := listRecords(ctx, src, kind, entry.RecordFilter{})
	if err != nil {
		return nil, err
	}
	inWindow := aggregate.FilterByDateRange(aggregate.Enrich(records, nil), *window)

	return &TopOutput{
		Kind:              kind,
		Window:            *window,
		Items:             aggregate.TopN(inWindow, limit),
		SourceUnavailable: unavailable,
	}, nil
}

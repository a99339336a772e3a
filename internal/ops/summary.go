package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/period"
)

// SummaryInput contains parameters for the Summary operation.
type SummaryInput struct {
	Kind   string // default: consumption
	Window WindowInput
	// Date summarizes a single day. Mutually exclusive with Window.
	Date string
}

// SummaryOutput contains the result of the Summary operation.
type SummaryOutput struct {
	Kind              entry.Kind             `json:"kind"`
	Window            *period.Window         `json:"window,omitempty"`
	Summary           aggregate.RangeSummary `json:"summary"`
	Unnormalized      int                    `json:"unnormalized"`
	InvalidValues     int                    `json:"invalid_values"`
	SourceUnavailable bool                   `json:"source_unavailable,omitempty"`
}

// Summary computes descriptive statistics for records in the window, or
// for all valid-dated records when no window is given.
func Summary(ctx context.Context, src Sources, input SummaryInput) (*SummaryOutput, error) {
	kind, err := entry.ParseKind(input.Kind, entry.KindConsumption)
	if err != nil {
		return nil, err
	}

	var window *period.Window
	if date := strings.TrimSpace(input.Date); date != "" {
		if !input.Window.empty() {
			return nil, errors.NewInvalidRequest("specify either date or a window, not both")
		}
		d, ok := entry.ParseDate(date)
		if !ok {
			return nil, errors.NewInvalidDate("date", date)
		}
		w := period.NewWindow(d, d)
		window = &w
	} else {
		window, err = resolveWindow(input.Window, src, true)
		if err != nil {
			return nil, err
		}
	}

	l, err := load(ctx, src, kind, entry.RecordFilter{})
	if err != nil {
		return nil, err
	}
	records := l.records
	unnormalized := aggregate.CountUnnormalized(records)

	if window != nil {
		records = aggregate.FilterByDateRange(records, *window)
	} else {
		records = aggregate.FilterByDateRange(records, period.NewWindow(minDate, maxDate))
	}

	return &SummaryOutput{
		Kind:              kind,
		Window:            window,
		Summary:           aggregate.BuildSummary(records, window),
		Unnormalized:      unnormalized,
		InvalidValues:     l.invalidValues,
		SourceUnavailable: l.unavailable,
	}, nil
}

// All-time bounds: every valid date lies between them.
var (
	minDate = entry.NewDate(1, 1, 1)
	maxDate = entry.NewDate(9999, 12, 31)
)

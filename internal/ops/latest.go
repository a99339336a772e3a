package ops

import (
	"context"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/entry"
)

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Kind string // default: weight
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Kind entry.Kind `json:"kind"`
	// Item is nil when no record with a valid date exists.
	Item              *aggregate.EnrichedRecord `json:"item"`
	SourceUnavailable bool                      `json:"source_unavailable,omitempty"`
}

// Latest returns the most recent record of a kind, such as the last weigh-in.
// Records with unparsable dates are never "latest".
func Latest(ctx context.Context, src Sources, input LatestInput) (*LatestOutput, error) {
	kind, err := entry.ParseKind(input.Kind, entry.KindWeight)
	if err != nil {
		return nil, err
	}

	l, err := load(ctx, src, kind, entry.RecordFilter{})
	if err != nil {
		return nil, err
	}
	records := l.records
	aggregate.SortRecent(records)

	output := &LatestOutput{Kind: kind, SourceUnavailable: l.unavailable}
	if len(records) > 0 && records[0].Normalized {
		latest := records[0]
		output.Item = &latest
	}
	return output, nil
}

package aggregate

import (
	"github.com/hpungsan/nutrilog/internal/period"
)

// RangeSummary describes a filtered set of records.
type RangeSummary struct {
	TotalValue          float64 `json:"total_value"`
	RecordCount         int     `json:"record_count"`
	AveragePerEntry     float64 `json:"average_per_entry"`
	AveragePerActiveDay float64 `json:"average_per_active_day"`
	DistinctActiveDays  int     `json:"distinct_active_days"`

	// DaysInWindow and Coverage are only set for bounded queries.
	DaysInWindow *int     `json:"days_in_window,omitempty"`
	Coverage     *float64 `json:"coverage,omitempty"`

	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`
}

// BuildSummary reduces records to a RangeSummary. Pass a nil window for
// all-time queries; no coverage is reported then.
func BuildSummary(records []EnrichedRecord, window *period.Window) RangeSummary {
	s := RangeSummary{RecordCount: len(records)}

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.ValueTotal
	}
	s.TotalValue = Sum.Apply(values)
	s.MinValue = Min.Apply(values)
	s.MaxValue = Max.Apply(values)
	if s.RecordCount > 0 {
		s.AveragePerEntry = s.TotalValue / float64(s.RecordCount)
	}

	s.DistinctActiveDays = DistinctDays(records)
	if s.DistinctActiveDays > 0 {
		s.AveragePerActiveDay = s.TotalValue / float64(s.DistinctActiveDays)
	}

	if window != nil {
		days := window.Days()
		s.DaysInWindow = &days
		if days > 0 {
			coverage := float64(s.DistinctActiveDays) / float64(days)
			s.Coverage = &coverage
		}
	}

	return s
}

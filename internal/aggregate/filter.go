package aggregate

import (
	"strings"

	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/period"
)

// FilterByDateRange keeps records whose date lies in w. Records with
// unparsable dates never match.
func FilterByDateRange(records []EnrichedRecord, w period.Window) []EnrichedRecord {
	return filter(records, func(r EnrichedRecord) bool {
		return w.Contains(r.Date)
	})
}

// FilterByMealPeriod keeps records in p. entry.AllPeriods keeps everything.
func FilterByMealPeriod(records []EnrichedRecord, p entry.MealPeriod) []EnrichedRecord {
	if p == entry.AllPeriods {
		return filter(records, func(EnrichedRecord) bool { return true })
	}
	return filter(records, func(r EnrichedRecord) bool {
		return r.MealPeriod == p
	})
}

// FilterByNameContains keeps records whose item name contains substr,
// ignoring case. An empty substr keeps everything.
func FilterByNameContains(records []EnrichedRecord, substr string) []EnrichedRecord {
	needle := strings.ToLower(substr)
	return filter(records, func(r EnrichedRecord) bool {
		return strings.Contains(strings.ToLower(r.ItemName), needle)
	})
}

// FilterClassified keeps records that have a catalog classification.
func FilterClassified(records []EnrichedRecord) []EnrichedRecord {
	return filter(records, func(r EnrichedRecord) bool {
		return r.Classified
	})
}

// filter returns a new, never-nil slice of the records keep accepts.
func filter(records []EnrichedRecord, keep func(EnrichedRecord) bool) []EnrichedRecord {
	out := make([]EnrichedRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

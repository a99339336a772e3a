package aggregate

import (
	"sort"
)

// FrequencyEntry is one row of a top-N report.
type FrequencyEntry struct {
	ItemName        string  `json:"item_name"`
	OccurrenceCount int     `json:"occurrence_count"`
	TotalValue      float64 `json:"total_value"`
}

// TopN returns the n most logged items. Ranking: occurrences descending,
// then summed value descending, then name ascending. n <= 0 yields none.
func TopN(records []EnrichedRecord, n int) []FrequencyEntry {
	if n <= 0 {
		return []FrequencyEntry{}
	}

	byName := make(map[string]*FrequencyEntry)
	for _, r := range records {
		fe, ok := byName[r.ItemName]
		if !ok {
			fe = &FrequencyEntry{ItemName: r.ItemName}
			byName[r.ItemName] = fe
		}
		fe.OccurrenceCount++
		fe.TotalValue += r.ValueTotal
	}

	out := make([]FrequencyEntry, 0, len(byName))
	for _, fe := range byName {
		out = append(out, *fe)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.OccurrenceCount != b.OccurrenceCount {
			return a.OccurrenceCount > b.OccurrenceCount
		}
		if a.TotalValue != b.TotalValue {
			return a.TotalValue > b.TotalValue
		}
		return a.ItemName < b.ItemName
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}

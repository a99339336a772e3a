package aggregate

import (
	"sort"
	"strings"

	"github.com/hpungsan/nutrilog/internal/entry"
)

// Aggregate names a reduction over one day's values.
type Aggregate string

const (
	Sum     Aggregate = "sum"
	Average Aggregate = "average"
	Min     Aggregate = "min"
	Max     Aggregate = "max"
	Count   Aggregate = "count"
)

// ParseAggregate resolves an aggregate name; "avg" is accepted for average.
func ParseAggregate(name string) (Aggregate, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sum":
		return Sum, true
	case "average", "avg":
		return Average, true
	case "min":
		return Min, true
	case "max":
		return Max, true
	case "count":
		return Count, true
	}
	return "", false
}

// AggregateFor picks the daily reduction for a log kind: weight averages,
// calories and water add up.
func AggregateFor(kind entry.Kind) Aggregate {
	if kind == entry.KindWeight {
		return Average
	}
	return Sum
}

// Apply reduces values. Empty input yields 0.
func (a Aggregate) Apply(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	switch a {
	case Average:
		return sumOf(values) / float64(len(values))
	case Min:
		m := values[0]
		for _, v := range values[1:] {
			m = min(m, v)
		}
		return m
	case Max:
		m := values[0]
		for _, v := range values[1:] {
			m = max(m, v)
		}
		return m
	case Count:
		return float64(len(values))
	default:
		return sumOf(values)
	}
}

// DailyRollup is one day's aggregated value.
type DailyRollup struct {
	Date  entry.Date `json:"date"`
	Label string     `json:"label"`
	Value float64    `json:"value"`
	Count int        `json:"count"`
}

// GroupByDate buckets records by date and reduces each bucket with fn.
// Rollups come back oldest first, for charting. Records with unparsable
// dates are skipped.
func GroupByDate(records []EnrichedRecord, fn Aggregate) []DailyRollup {
	buckets := make(map[entry.Date][]float64)
	for _, r := range records {
		if !r.Normalized {
			continue
		}
		buckets[r.Date] = append(buckets[r.Date], r.ValueTotal)
	}

	out := make([]DailyRollup, 0, len(buckets))
	for d, values := range buckets {
		out = append(out, DailyRollup{
			Date:  d,
			Label: d.Label(),
			Value: fn.Apply(values),
			Count: len(values),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DistinctDays counts unique valid dates.
func DistinctDays(records []EnrichedRecord) int {
	seen := make(map[entry.Date]struct{})
	for _, r := range records {
		if r.Normalized {
			seen[r.Date] = struct{}{}
		}
	}
	return len(seen)
}

// MealPeriodStat summarizes one meal period.
type MealPeriodStat struct {
	Period  entry.MealPeriod `json:"period"`
	Count   int              `json:"count"`
	Total   float64          `json:"total"`
	Average float64          `json:"average"`
}

// GroupByMealPeriod summarizes records per meal period, largest total
// first; ties follow the day order of entry.MealPeriods. Periods with no
// records are left out.
func GroupByMealPeriod(records []EnrichedRecord) []MealPeriodStat {
	stats := make(map[entry.MealPeriod]*MealPeriodStat)
	for _, r := range records {
		s, ok := stats[r.MealPeriod]
		if !ok {
			s = &MealPeriodStat{Period: r.MealPeriod}
			stats[r.MealPeriod] = s
		}
		s.Count++
		s.Total += r.ValueTotal
	}

	out := make([]MealPeriodStat, 0, len(stats))
	for _, p := range entry.MealPeriods {
		if s, ok := stats[p]; ok {
			s.Average = s.Total / float64(s.Count)
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

func sumOf(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

package entry

import (
	"strings"
)

// MealPeriod is the time-of-day bucket a record falls in.
type MealPeriod string

const (
	Breakfast  MealPeriod = "Breakfast"
	MidMorning MealPeriod = "MidMorning"
	Lunch      MealPeriod = "Lunch"
	Snack      MealPeriod = "Snack"
	Dinner     MealPeriod = "Dinner"
	Other      MealPeriod = "Other"

	// AllPeriods is a filter value only; no record is ever classified as it.
	AllPeriods MealPeriod = "All"
)

// MealPeriods lists the six buckets in day order.
var MealPeriods = []MealPeriod{Breakfast, MidMorning, Lunch, Snack, Dinner, Other}

// PeriodForHour maps an hour (0-23) to its bucket. Reports group by these
// labels, so the boundaries must not move.
func PeriodForHour(hour int) MealPeriod {
	switch {
	case hour >= 6 && hour <= 10:
		return Breakfast
	case hour == 11:
		return MidMorning
	case hour >= 12 && hour <= 15:
		return Lunch
	case hour >= 16 && hour <= 17:
		return Snack
	case hour >= 18 && hour <= 22:
		return Dinner
	default:
		return Other
	}
}

// ClassifyTime buckets a stored time. Unparsable times are Other.
func ClassifyTime(timeText string) MealPeriod {
	h, _, _, ok := parseClock(timeText)
	if !ok {
		return Other
	}
	return PeriodForHour(h)
}

// TimeOfDay returns seconds since midnight, or -1 if timeText is malformed.
func TimeOfDay(timeText string) int {
	h, m, s, ok := parseClock(timeText)
	if !ok {
		return -1
	}
	return h*3600 + m*60 + s
}

// ParseMealPeriod resolves a filter value. Matching ignores case, spaces,
// '-' and '_'; "" and "all" mean AllPeriods.
func ParseMealPeriod(name string) (MealPeriod, bool) {
	key := mealKey(name)
	if key == "" || key == "all" {
		return AllPeriods, true
	}
	for _, p := range MealPeriods {
		if mealKey(string(p)) == key {
			return p, true
		}
	}
	return "", false
}

func mealKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// parseClock accepts H:MM, HH:MM and HH:MM:SS.
func parseClock(timeText string) (h, m, s int, ok bool) {
	parts := strings.Split(strings.TrimSpace(timeText), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, false
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || !allDigits(parts[0]) {
		return 0, 0, 0, false
	}
	h = atoi(parts[0])
	if h > 23 {
		return 0, 0, 0, false
	}
	if len(parts[1]) != 2 || !allDigits(parts[1]) {
		return 0, 0, 0, false
	}
	m = atoi(parts[1])
	if m > 59 {
		return 0, 0, 0, false
	}
	if len(parts) == 3 {
		if len(parts[2]) != 2 || !allDigits(parts[2]) {
			return 0, 0, 0, false
		}
		s = atoi(parts[2])
		if s > 59 {
			return 0, 0, 0, false
		}
	}
	return h, m, s, true
}

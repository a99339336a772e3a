// Package period turns period selectors and explicit ranges into inclusive
// date windows.
package period

import (
	"strings"
	"time"

	"github.com/hpungsan/nutrilog/internal/entry"
)

// Recognized selectors.
const (
	LastWeek    = "last week"
	LastMonth   = "last month"
	Last3Months = "last 3 months"
	LastYear    = "last year"

	// DefaultSelector is used for anything unrecognized.
	DefaultSelector = LastMonth
)

// daysBack maps each selector to its offset from today.
var daysBack = map[string]int{
	LastWeek:    7,
	LastMonth:   30,
	Last3Months: 90,
	LastYear:    365,
}

// Selectors lists the recognized selectors, shortest first.
var Selectors = []string{LastWeek, LastMonth, Last3Months, LastYear}

// Window is an inclusive [Start, End] date range.
type Window struct {
	Start entry.Date `json:"start"`
	End   entry.Date `json:"end"`
}

// NewWindow builds a window from explicit bounds. Inverted bounds are kept
// as given; such a window simply contains nothing.
func NewWindow(start, end entry.Date) Window {
	return Window{Start: start, End: end}
}

// Empty reports whether the window can contain no date.
func (w Window) Empty() bool {
	return !w.Start.Valid() || !w.End.Valid() || w.Start > w.End
}

// Contains reports whether d is a valid date inside the window.
func (w Window) Contains(d entry.Date) bool {
	if !d.Valid() || w.Empty() {
		return false
	}
	return d >= w.Start && d <= w.End
}

// Days returns the inclusive day count, or 0 for an empty window.
func (w Window) Days() int {
	if w.Empty() {
		return 0
	}
	return w.Start.DaysUntil(w.End) + 1
}

// Resolve returns the window for selector ending on today.
// Unrecognized selectors fall back to DefaultSelector.
func Resolve(selector string, today entry.Date) Window {
	back, ok := daysBack[Canonical(selector)]
	if !ok {
		back = daysBack[DefaultSelector]
	}
	return Window{Start: today.AddDays(-back), End: today}
}

// Known reports whether selector is recognized.
func Known(selector string) bool {
	_, ok := daysBack[Canonical(selector)]
	return ok
}

// Canonical lowercases selector, treats '-' and '_' as spaces, and
// collapses runs of spaces: "Last-3_Months" becomes "last 3 months".
func Canonical(selector string) string {
	s := strings.ToLower(selector)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Clock supplies "today". It is injected so resolution is testable.
type Clock interface {
	Today() entry.Date
}

// SystemClock reads the wall clock in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

// Today implements Clock.
func (c SystemClock) Today() entry.Date {
	return entry.DateOf(c.Now())
}

// Now returns the current time in the clock's location.
func (c SystemClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}

// FixedClock always returns the same day.
type FixedClock entry.Date

// Today implements Clock.
func (c FixedClock) Today() entry.Date {
	return entry.Date(c)
}

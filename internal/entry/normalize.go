package entry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName trims, lowercases, and collapses internal whitespace.
// Catalog lookups key on this form.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// Date is a calendar date packed as yyyymmdd, so ordinary integer
// comparison is calendar comparison. The zero value is InvalidDate.
type Date int

// InvalidDate marks a date text that could not be parsed.
const InvalidDate Date = 0

// NewDate returns the Date for y-m-d, or InvalidDate if no such day exists.
func NewDate(y int, m time.Month, d int) Date {
	if y < 1 || y > 9999 || m < time.January || m > time.December || d < 1 {
		return InvalidDate
	}
	if d > daysIn(y, m) {
		return InvalidDate
	}
	return Date(y*10000 + int(m)*100 + d)
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// NormalizeDate parses a stored day-first date: DD-MM-YYYY or DD-MM-YY,
// with '-', '/' or '.' as separator. Two-digit years 69-99 are 19xx and
// 00-68 are 20xx. Anything else yields InvalidDate.
func NormalizeDate(dateText string) Date {
	parts, ok := splitDate(dateText)
	if !ok {
		return InvalidDate
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 {
		return InvalidDate
	}
	year, ok := parseYear(parts[2])
	if !ok {
		return InvalidDate
	}
	return NewDate(year, time.Month(atoi(parts[1])), atoi(parts[0]))
}

// ParseDate accepts caller-supplied dates: everything NormalizeDate does,
// plus ISO YYYY-MM-DD.
func ParseDate(text string) (Date, bool) {
	parts, ok := splitDate(text)
	if !ok {
		return InvalidDate, false
	}
	if len(parts[0]) == 4 && len(parts[1]) == 2 && len(parts[2]) == 2 {
		d := NewDate(atoi(parts[0]), time.Month(atoi(parts[1])), atoi(parts[2]))
		return d, d.Valid()
	}
	d := NormalizeDate(text)
	return d, d.Valid()
}

// Valid reports whether d is a real date.
func (d Date) Valid() bool { return d != InvalidDate }

// Year returns the calendar year of d.
func (d Date) Year() int { return int(d) / 10000 }

// Month returns the calendar month of d.
func (d Date) Month() time.Month { return time.Month(int(d) / 100 % 100) }

// Day returns the day of the month of d.
func (d Date) Day() int { return int(d) % 100 }

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days. InvalidDate stays invalid.
func (d Date) AddDays(n int) Date {
	if !d.Valid() {
		return InvalidDate
	}
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// DaysUntil returns the number of days from d to other (negative if other is earlier).
// It works on Unix seconds; time.Duration saturates after about 292 years.
func (d Date) DaysUntil(other Date) int {
	return int((other.Time(time.UTC).Unix() - d.Time(time.UTC).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// String formats d as YYYY-MM-DD, or "invalid".
func (d Date) String() string {
	if !d.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), int(d.Month()), d.Day())
}

// DayFirst formats d the way records store it: DD-MM-YYYY.
func (d Date) DayFirst() string {
	if !d.Valid() {
		return ""
	}
	return fmt.Sprintf("%02d-%02d-%04d", d.Day(), int(d.Month()), d.Year())
}

// Label formats d as a short chart label: DD/MM.
func (d Date) Label() string {
	if !d.Valid() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d", d.Day(), int(d.Month()))
}

// MarshalJSON encodes d as "YYYY-MM-DD", or null when invalid.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null or any form ParseDate understands.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = InvalidDate
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseDate(s)
	if !ok {
		return fmt.Errorf("invalid date %q", s)
	}
	*d = parsed
	return nil
}

// splitDate splits on the first separator found, which must be used throughout.
func splitDate(text string) ([]string, bool) {
	s := strings.TrimSpace(text)
	idx := strings.IndexAny(s, "-/.")
	if idx < 0 {
		return nil, false
	}
	parts := strings.Split(s, s[idx:idx+1])
	if len(parts) != 3 {
		return nil, false
	}
	for _, p := range parts {
		if p == "" || !allDigits(p) {
			return nil, false
		}
	}
	return parts, true
}

func parseYear(s string) (int, bool) {
	switch len(s) {
	case 4:
		return atoi(s), true
	case 2:
		yy := atoi(s)
		if yy >= 69 {
			return 1900 + yy, true
		}
		return 2000 + yy, true
	default:
		return 0, false
	}
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// atoi converts a string already checked by allDigits.
func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

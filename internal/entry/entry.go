package entry

import (
	"fmt"
	"math"
	"strings"

	"github.com/hpungsan/nutrilog/internal/errors"
)

// Kind is the log a record belongs to.
type Kind string

const (
	KindConsumption Kind = "consumption"
	KindWeight      Kind = "weight"
	KindWater       Kind = "water"
)

// Kinds lists every log kind in display order.
var Kinds = []Kind{KindConsumption, KindWeight, KindWater}

// ParseKind validates a kind name. Empty input yields def.
func ParseKind(s string, def Kind) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def, nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("kind must be one of consumption, weight, water; got %q", s))
}

// Record is one logged event as it sits in the record store.
// DateText and TimeText are kept verbatim; nothing here is normalized.
type Record struct {
	// ID is a ULID assigned when the record was stored
	ID string `json:"id"`

	Kind Kind `json:"kind"`

	// ItemName is the food name for consumption records. Weight and water
	// records usually leave it empty.
	ItemName string `json:"item_name"`

	// Quantity is grams or portions for food, millilitres for water.
	Quantity float64 `json:"quantity"`

	// ValueTotal is calories, water volume, or body weight depending on Kind.
	ValueTotal float64 `json:"value_total"`

	// DateText is a day-first date such as "07-03-2024" or "07-03-24".
	DateText string `json:"date_text"`

	// TimeText is "HH:MM" or "HH:MM:SS".
	TimeText string `json:"time_text"`

	// CreatedAt is the Unix timestamp when the record was stored
	CreatedAt int64 `json:"created_at,omitempty"`
}

// CatalogEntry is reference data for a food item.
type CatalogEntry struct {
	ItemName           string   `json:"item_name"`
	CaloriesPer100g    *float64 `json:"calories_per_100g,omitempty"`
	CaloriesPerPortion *float64 `json:"calories_per_portion,omitempty"`
}

// Validate checks that at least one calorie field is set and none is negative.
func (c CatalogEntry) Validate() error {
	if NormalizeName(c.ItemName) == "" {
		return errors.NewInvalidRequest("item_name is required")
	}
	if c.CaloriesPer100g == nil && c.CaloriesPerPortion == nil {
		return errors.NewInvalidCatalogEntry(c.ItemName)
	}
	if err := CheckAmount("calories_per_100g", c.CaloriesPer100g); err != nil {
		return err
	}
	return CheckAmount("calories_per_portion", c.CaloriesPerPortion)
}

// CheckAmount rejects a NaN, infinite or negative amount. Nil is allowed.
func CheckAmount(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if !IsFinite(*v) {
		return errors.NewInvalidRequest(field + " must be a finite number")
	}
	if *v < 0 {
		return errors.NewInvalidRequest(field + " must not be negative")
	}
	return nil
}

// IsFinite reports whether f is neither NaN nor an infinity.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Finite reports whether the record's quantity and value can be aggregated.
// NaN and infinities have no JSON encoding.
func (r Record) Finite() bool {
	return IsFinite(r.Quantity) && IsFinite(r.ValueTotal)
}

// RecordFilter is an optional equality predicate a record source may apply
// before returning rows. Empty fields match everything.
type RecordFilter struct {
	// ItemName matches exactly (the store's own comparison).
	ItemName string

	// DateText matches the stored date text exactly.
	DateText string
}

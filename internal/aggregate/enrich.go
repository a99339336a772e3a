// Package aggregate is the pure aggregation engine: it enriches raw log
// records, filters and groups them, and reduces them to report values.
//
// Every function reads its input and allocates fresh output. Nothing here
// holds state, so callers may use it from any number of goroutines.
package aggregate

import (
	"sort"

	"github.com/hpungsan/nutrilog/internal/entry"
)

// Catalog looks up reference data by item name.
type Catalog interface {
	Lookup(itemName string) (entry.CatalogEntry, bool)
}

// CatalogMap is an in-memory Catalog keyed by normalized item name.
type CatalogMap map[string]entry.CatalogEntry

// NewCatalogMap indexes entries by entry.NormalizeName.
func NewCatalogMap(entries ...entry.CatalogEntry) CatalogMap {
	m := make(CatalogMap, len(entries))
	for _, e := range entries {
		m[entry.NormalizeName(e.ItemName)] = e
	}
	return m
}

// Lookup implements Catalog.
func (m CatalogMap) Lookup(itemName string) (entry.CatalogEntry, bool) {
	e, ok := m[entry.NormalizeName(itemName)]
	return e, ok
}

// EnrichedRecord is a record with its derived date, meal period and
// quantity classification attached.
type EnrichedRecord struct {
	entry.Record

	Date       entry.Date       `json:"date"`
	Normalized bool             `json:"normalized"`
	MealPeriod entry.MealPeriod `json:"meal_period"`

	// Classified is false for consumption records with no catalog entry
	// and for weight/water records, which have no catalog at all.
	Classified      bool              `json:"classified"`
	PortionType     entry.PortionType `json:"portion_type,omitempty"`
	DisplayQuantity string            `json:"display_quantity"`

	seq int // position in the source slice
	tod int // seconds since midnight, -1 if unparsable
}

// Listing is the result of ListAll.
type Listing struct {
	Records []EnrichedRecord `json:"records"`

	// Unnormalized counts records whose date text did not parse.
	Unnormalized int `json:"unnormalized"`

	// Unclassified counts consumption records with no catalog entry.
	Unclassified int `json:"unclassified"`

	// InvalidValues counts records dropped for a NaN or infinite amount.
	InvalidValues int `json:"invalid_values"`
}

// Enrich attaches derived fields to every record, keeping input order.
// Records with a NaN or infinite quantity or value are dropped; see
// CountInvalidValues. A nil catalog leaves every record unclassified.
func Enrich(records []entry.Record, catalog Catalog) []EnrichedRecord {
	out := make([]EnrichedRecord, 0, len(records))
	for i, r := range records {
		if !r.Finite() {
			continue
		}
		d := entry.NormalizeDate(r.DateText)
		er := EnrichedRecord{
			Record:          r,
			Date:            d,
			Normalized:      d.Valid(),
			MealPeriod:      entry.ClassifyTime(r.TimeText),
			DisplayQuantity: entry.FormatQuantity(r.Quantity),
			seq:             i,
			tod:             entry.TimeOfDay(r.TimeText),
		}
		if r.Kind == entry.KindConsumption && catalog != nil {
			if c, ok := catalog.Lookup(r.ItemName); ok {
				cls, _ := entry.ClassifyQuantity(r, &c)
				er.Classified = true
				er.PortionType = cls.PortionType
				er.DisplayQuantity = cls.DisplayQuantity
			}
		}
		out = append(out, er)
	}
	return out
}

// CountInvalidValues counts the records Enrich drops.
func CountInvalidValues(records []entry.Record) int {
	n := 0
	for _, r := range records {
		if !r.Finite() {
			n++
		}
	}
	return n
}

// ListAll enriches records and sorts them most recent first: date
// descending, then time descending. Records with unparsable dates go last
// in their original order.
func ListAll(records []entry.Record, catalog Catalog) Listing {
	enriched := Enrich(records, catalog)
	SortRecent(enriched)
	return Listing{
		Records:       enriched,
		Unnormalized:  CountUnnormalized(enriched),
		Unclassified:  CountUnclassified(enriched),
		InvalidValues: CountInvalidValues(records),
	}
}

// SortRecent sorts in place, most recent first. Ties keep source order.
func SortRecent(records []EnrichedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Normalized != b.Normalized {
			return a.Normalized
		}
		if !a.Normalized {
			return a.seq < b.seq
		}
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.tod != b.tod {
			return a.tod > b.tod
		}
		return a.seq < b.seq
	})
}

// CountUnnormalized counts records whose date did not parse.
func CountUnnormalized(records []EnrichedRecord) int {
	n := 0
	for _, r := range records {
		if !r.Normalized {
			n++
		}
	}
	return n
}

// CountUnclassified counts consumption records with no catalog entry.
func CountUnclassified(records []EnrichedRecord) int {
	n := 0
	for _, r := range records {
		if r.Kind == entry.KindConsumption && !r.Classified {
			n++
		}
	}
	return n
}

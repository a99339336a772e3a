package entry

import (
	"strconv"
)

// PortionType says how a catalog item's quantity is measured.
type PortionType string

const (
	Portion PortionType = "Portion"
	Per100g PortionType = "Per100g"
)

// Classification is the display form of a record's quantity.
type Classification struct {
	PortionType     PortionType `json:"portion_type"`
	DisplayQuantity string      `json:"display_quantity"`
}

// PortionTypeOf returns Portion when the entry has a per-portion value,
// else Per100g.
func PortionTypeOf(c CatalogEntry) PortionType {
	if c.CaloriesPerPortion != nil {
		return Portion
	}
	return Per100g
}

// ClassifyQuantity labels r's quantity using its catalog entry.
// ok is false when there is no entry; callers report that rather than drop it.
func ClassifyQuantity(r Record, c *CatalogEntry) (Classification, bool) {
	if c == nil {
		return Classification{}, false
	}
	pt := PortionTypeOf(*c)
	display := FormatQuantity(r.Quantity)
	if pt == Per100g {
		display += " g"
	}
	return Classification{PortionType: pt, DisplayQuantity: display}, true
}

// Calories computes the calories for quantity of c: portions times the
// per-portion value, or grams/100 times the per-100g value.
func Calories(quantity float64, c CatalogEntry) (float64, bool) {
	switch {
	case c.CaloriesPerPortion != nil:
		return quantity * *c.CaloriesPerPortion, true
	case c.CaloriesPer100g != nil:
		return quantity / 100 * *c.CaloriesPer100g, true
	default:
		return 0, false
	}
}

// FormatQuantity renders q in its shortest form: 150, 1.5, 0.25.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

package entry

import (
	"math"
	"testing"

	"github.com/hpungsan/nutrilog/internal/errors"
)

func floatPtr(f float64) *float64 { return &f }

func TestClassifyQuantity(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		catalog *CatalogEntry
		want    Classification
		ok      bool
	}{
		{
			name:    "per 100g",
			record:  Record{ItemName: "rice", Quantity: 150},
			catalog: &CatalogEntry{ItemName: "rice", CaloriesPer100g: floatPtr(130)},
			want:    Classification{PortionType: Per100g, DisplayQuantity: "150 g"},
			ok:      true,
		},
		{
			name:    "portion",
			record:  Record{ItemName: "egg", Quantity: 2},
			catalog: &CatalogEntry{ItemName: "egg", CaloriesPerPortion: floatPtr(78)},
			want:    Classification{PortionType: Portion, DisplayQuantity: "2"},
			ok:      true,
		},
		{
			name:    "portion wins when both set",
			record:  Record{ItemName: "bread", Quantity: 1.5},
			catalog: &CatalogEntry{ItemName: "bread", CaloriesPer100g: floatPtr(265), CaloriesPerPortion: floatPtr(80)},
			want:    Classification{PortionType: Portion, DisplayQuantity: "1.5"},
			ok:      true,
		},
		{
			name:    "fractional grams",
			record:  Record{ItemName: "oil", Quantity: 12.25},
			catalog: &CatalogEntry{ItemName: "oil", CaloriesPer100g: floatPtr(884)},
			want:    Classification{PortionType: Per100g, DisplayQuantity: "12.25 g"},
			ok:      true,
		},
		{
			name:    "no catalog entry",
			record:  Record{ItemName: "mystery", Quantity: 100},
			catalog: nil,
			want:    Classification{},
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyQuantity(tt.record, tt.catalog)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ClassifyQuantity() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalories(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		entry    CatalogEntry
		want     float64
		ok       bool
	}{
		{"per 100g", 150, CatalogEntry{CaloriesPer100g: floatPtr(200)}, 300, true},
		{"per portion", 3, CatalogEntry{CaloriesPerPortion: floatPtr(70)}, 210, true},
		{"portion preferred", 2, CatalogEntry{CaloriesPer100g: floatPtr(500), CaloriesPerPortion: floatPtr(90)}, 180, true},
		{"no calories", 2, CatalogEntry{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Calories(tt.quantity, tt.entry)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Calories() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCatalogEntry_Validate(t *testing.T) {
	tests := []struct {
		name  string
		entry CatalogEntry
		code  errors.ErrorCode
	}{
		{"per 100g only", CatalogEntry{ItemName: "rice", CaloriesPer100g: floatPtr(130)}, ""},
		{"portion only", CatalogEntry{ItemName: "egg", CaloriesPerPortion: floatPtr(78)}, ""},
		{"missing name", CatalogEntry{ItemName: "  ", CaloriesPer100g: floatPtr(1)}, errors.ErrInvalidRequest},
		{"no calorie fields", CatalogEntry{ItemName: "air"}, errors.ErrInvalidCatalogEntry},
		{"negative", CatalogEntry{ItemName: "x", CaloriesPer100g: floatPtr(-1)}, errors.ErrInvalidRequest},
		{"infinite", CatalogEntry{ItemName: "x", CaloriesPer100g: floatPtr(math.Inf(1))}, errors.ErrInvalidRequest},
		{"nan portion", CatalogEntry{ItemName: "x", CaloriesPerPortion: floatPtr(math.NaN())}, errors.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Validate() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRecord_Finite(t *testing.T) {
	tests := []struct {
		name string
		r    Record
		want bool
	}{
		{"ordinary", Record{Quantity: 150, ValueTotal: 195}, true},
		{"zero", Record{}, true},
		{"infinite value", Record{ValueTotal: math.Inf(1)}, false},
		{"negative infinite quantity", Record{Quantity: math.Inf(-1), ValueTotal: 1}, false},
		{"nan value", Record{Quantity: 1, ValueTotal: math.NaN()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Finite(); got != tt.want {
				t.Errorf("Finite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("", KindConsumption)
	if err != nil || k != KindConsumption {
		t.Errorf("ParseKind(\"\") = (%q, %v), want consumption", k, err)
	}
	k, err = ParseKind(" Water ", KindConsumption)
	if err != nil || k != KindWater {
		t.Errorf("ParseKind(Water) = (%q, %v), want water", k, err)
	}
	if _, err := ParseKind("steps", KindConsumption); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ParseKind(steps) error = %v, want INVALID_REQUEST", err)
	}
}

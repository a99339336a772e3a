package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/db"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

// LogInput contains parameters for the LogRecord operation.
type LogInput struct {
	Kind     string   // default: consumption
	ItemName string   // required for consumption
	Quantity *float64 // grams or portions for food, ml for water
	// Value is calories, body weight or water volume. For consumption it is
	// computed from the catalog when omitted; for water it defaults to Quantity.
	Value *float64
	Date  string // default: today
	Time  string // default: now
}

// LogOutput contains the result of the LogRecord operation.
type LogOutput struct {
	ID     string       `json:"id"`
	Record entry.Record `json:"record"`
	// Computed is true when the value came from the catalog.
	Computed bool `json:"computed,omitempty"`
}

// LogRecord validates and stores a new log record in the local store.
func LogRecord(ctx context.Context, database *sql.DB, cfg *config.Config, input LogInput) (*LogOutput, error) {
	kind, err := entry.ParseKind(input.Kind, entry.KindConsumption)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	now := nowFunc().In(loc)

	dateText, err := logDate(input.Date, now)
	if err != nil {
		return nil, err
	}
	timeText, err := logTime(input.Time, now)
	if err != nil {
		return nil, err
	}

	if err := entry.CheckAmount("quantity", input.Quantity); err != nil {
		return nil, err
	}
	if err := entry.CheckAmount("value", input.Value); err != nil {
		return nil, err
	}

	r := entry.Record{
		ID:        newULID(now),
		Kind:      kind,
		ItemName:  strings.TrimSpace(input.ItemName),
		DateText:  dateText,
		TimeText:  timeText,
		CreatedAt: now.Unix(),
	}
	computed := false

	switch kind {
	case entry.KindConsumption:
		if r.ItemName == "" {
			return nil, errors.NewInvalidRequest("item_name is required for consumption records")
		}
		if input.Quantity == nil {
			return nil, errors.NewInvalidRequest("quantity is required for consumption records")
		}
		r.Quantity = *input.Quantity
		if input.Value != nil {
			r.ValueTotal = *input.Value
			break
		}
		c, err := db.GetCatalog(ctx, database, r.ItemName)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("value is required: %q has no catalog entry", r.ItemName))
			}
			return nil, err
		}
		r.ValueTotal, _ = entry.Calories(r.Quantity, *c)
		computed = true

	case entry.KindWeight:
		if input.Value == nil {
			return nil, errors.NewInvalidRequest("value is required for weight records")
		}
		r.ValueTotal = *input.Value
		if input.Quantity != nil {
			r.Quantity = *input.Quantity
		}

	case entry.KindWater:
		switch {
		case input.Value != nil:
			r.ValueTotal = *input.Value
			r.Quantity = r.ValueTotal
			if input.Quantity != nil {
				r.Quantity = *input.Quantity
			}
		case input.Quantity != nil:
			r.Quantity = *input.Quantity
			r.ValueTotal = r.Quantity
		default:
			return nil, errors.NewInvalidRequest("quantity or value is required for water records")
		}
	}

	// Catalog math can still overflow
	if !r.Finite() {
		return nil, errors.NewInvalidRequest("value is out of range")
	}

	if err := db.InsertRecord(ctx, database, &r); err != nil {
		return nil, err
	}

	return &LogOutput{ID: r.ID, Record: r, Computed: computed}, nil
}

// logDate validates a caller-supplied date and stores it day-first.
func logDate(text string, now time.Time) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return entry.DateOf(now).DayFirst(), nil
	}
	d, ok := entry.ParseDate(text)
	if !ok {
		return "", errors.NewInvalidDate("date", text)
	}
	return d.DayFirst(), nil
}

func logTime(text string, now time.Time) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return now.Format("15:04"), nil
	}
	if entry.TimeOfDay(text) < 0 {
		return "", errors.NewInvalidRequest(fmt.Sprintf("time must be HH:MM or HH:MM:SS, got %q", text))
	}
	return text, nil
}

func newULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// DeleteInput contains parameters for the DeleteRecord operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the DeleteRecord operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteRecord permanently removes a record from the local store.
func DeleteRecord(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if err := db.DeleteRecord(ctx, database, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, ID: id}, nil
}

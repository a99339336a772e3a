package ops

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/period"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// RecordSource supplies raw log records. Implementations return records in
// insertion order and never nil on success.
type RecordSource interface {
	ListRecords(ctx context.Context, kind entry.Kind, filter entry.RecordFilter) ([]entry.Record, error)
}

// CatalogSource supplies catalog entries. A missing entry is
// errors.ErrNotFound.
type CatalogSource interface {
	GetCatalogEntry(ctx context.Context, itemName string) (*entry.CatalogEntry, error)
}

// Sources bundles everything a read operation depends on.
type Sources struct {
	Records RecordSource
	Catalog CatalogSource

	// Clock decides what "today" is. Nil means the system clock in Config's timezone.
	Clock period.Clock

	// Config supplies defaults (period, top limit, query timeout). Nil means config.DefaultConfig().
	Config *config.Config

	Logger *slog.Logger
}

func (s Sources) config() *config.Config {
	if s.Config == nil {
		return config.DefaultConfig()
	}
	return s.Config
}

func (s Sources) clock() period.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	loc, err := s.config().Location()
	if err != nil {
		return period.SystemClock{}
	}
	return period.SystemClock{Location: loc}
}

func (s Sources) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// WindowInput selects the date window for a read operation. At most one of
// the explicit range (From/To) or Period may be given.
type WindowInput struct {
	From   string // DD-MM-YYYY, DD-MM-YY or YYYY-MM-DD
	To     string // same forms; defaults to today when From is set
	Period string // "last week", "last month", "last 3 months", "last year"
}

func (w WindowInput) empty() bool {
	return strings.TrimSpace(w.From) == "" && strings.TrimSpace(w.To) == "" && strings.TrimSpace(w.Period) == ""
}

// resolveWindow turns in into a window. It returns nil when in is empty and
// allTime is true; otherwise an empty input resolves the configured default
// period.
func resolveWindow(in WindowInput, src Sources, allTime bool) (*period.Window, error) {
	from := strings.TrimSpace(in.From)
	to := strings.TrimSpace(in.To)
	sel := strings.TrimSpace(in.Period)

	if sel != "" && (from != "" || to != "") {
		return nil, errors.NewInvalidRequest("specify either period or from/to, not both")
	}

	today := src.clock().Today()

	if from != "" || to != "" {
		start, end := entry.InvalidDate, today
		if from == "" {
			return nil, errors.NewInvalidRequest("from is required when to is given")
		}
		d, ok := entry.ParseDate(from)
		if !ok {
			return nil, errors.NewInvalidDate("from", from)
		}
		start = d
		if to != "" {
			d, ok := entry.ParseDate(to)
			if !ok {
				return nil, errors.NewInvalidDate("to", to)
			}
			end = d
		}
		w := period.NewWindow(start, end)
		return &w, nil
	}

	if sel == "" {
		if allTime {
			return nil, nil
		}
		sel = src.config().DefaultPeriod
	}
	w := period.Resolve(sel, today)
	return &w, nil
}

// listRecords reads records from src.Records under the configured query
// timeout. A source failure yields an empty slice and unavailable=true; it
// is logged, never returned.
func listRecords(ctx context.Context, src Sources, kind entry.Kind, filter entry.RecordFilter) (records []entry.Record, unavailable bool, err error) {
	if src.Records == nil {
		return []entry.Record{}, true, nil
	}

	qctx := ctx
	if timeout := src.config().QueryTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	records, err = src.Records.ListRecords(qctx, kind, filter)
	if err != nil {
		// The caller going away is not a source outage
		if ctx.Err() != nil {
			return nil, false, errors.NewCancelled("list records")
		}
		src.logger().Warn("record source unavailable", "kind", kind, "error", err)
		return []entry.Record{}, true, nil
	}
	if records == nil {
		records = []entry.Record{}
	}
	return records, false, nil
}

// buildCatalog looks up each distinct consumption item name once. Lookup
// failures other than not-found are logged and treated as missing.
func buildCatalog(ctx context.Context, src Sources, records []entry.Record) aggregate.CatalogMap {
	m := aggregate.CatalogMap{}
	if src.Catalog == nil {
		return m
	}

	seen := make(map[string]bool)
	for _, r := range records {
		if r.Kind != entry.KindConsumption {
			continue
		}
		key := entry.NormalizeName(r.ItemName)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		c, err := src.Catalog.GetCatalogEntry(ctx, r.ItemName)
		if err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				src.logger().Warn("catalog lookup failed", "item", r.ItemName, "error", err)
			}
			continue
		}
		m[key] = *c
	}
	return m
}

// loaded is what load hands to a read operation.
type loaded struct {
	records     []aggregate.EnrichedRecord
	unavailable bool

	// invalidValues counts records dropped for a NaN or infinite amount.
	invalidValues int
}

// load reads and enriches records of kind. Consumption records are joined
// against the catalog.
func load(ctx context.Context, src Sources, kind entry.Kind, filter entry.RecordFilter) (loaded, error) {
	records, unavailable, err := listRecords(ctx, src, kind, filter)
	if err != nil {
		return loaded{}, err
	}
	var catalog aggregate.Catalog
	if kind == entry.KindConsumption {
		catalog = buildCatalog(ctx, src, records)
	}

	l := loaded{
		records:       aggregate.Enrich(records, catalog),
		unavailable:   unavailable,
		invalidValues: aggregate.CountInvalidValues(records),
	}
	if l.invalidValues > 0 {
		src.logger().Warn("dropped records with non-finite values", "kind", kind, "count", l.invalidValues)
	}
	return l, nil
}

// clampLimit applies default and bounds to a page size.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

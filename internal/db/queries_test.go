package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func floatPtr(f float64) *float64 { return &f }

func newTestRecord(id string, kind entry.Kind, name, date string) *entry.Record {
	return &entry.Record{
		ID:         id,
		Kind:       kind,
		ItemName:   name,
		Quantity:   100,
		ValueTotal: 250,
		DateText:   date,
		TimeText:   "12:30",
		CreatedAt:  1000,
	}
}

func TestInsertRecord_GetRecord(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	r := newTestRecord("01REC001", entry.KindConsumption, "rice", "05-03-2024")
	if err := InsertRecord(ctx, database, r); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	got, err := GetRecord(ctx, database, "01REC001")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if *got != *r {
		t.Errorf("GetRecord = %+v, want %+v", *got, *r)
	}
}

func TestInsertRecord_DuplicateID(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	r := newTestRecord("01REC001", entry.KindConsumption, "rice", "05-03-2024")
	if err := InsertRecord(ctx, database, r); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if err := InsertRecord(ctx, database, r); err != ErrUniqueConstraint {
		t.Errorf("second insert error = %v, want ErrUniqueConstraint", err)
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	_, err := GetRecord(context.Background(), setupDB(t), "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestListRecords_KindOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	inserts := []*entry.Record{
		newTestRecord("01C", entry.KindConsumption, "rice", "05-03-2024"),
		newTestRecord("01A", entry.KindConsumption, "egg", "06-03-2024"),
		newTestRecord("01W", entry.KindWater, "", "05-03-2024"),
		newTestRecord("01B", entry.KindConsumption, "rice", "07-03-2024"),
	}
	for _, r := range inserts {
		if err := InsertRecord(ctx, database, r); err != nil {
			t.Fatalf("InsertRecord(%s) failed: %v", r.ID, err)
		}
	}

	tests := []struct {
		name   string
		kind   entry.Kind
		filter entry.RecordFilter
		want   []string
	}{
		{"insertion order not id order", entry.KindConsumption, entry.RecordFilter{}, []string{"01C", "01A", "01B"}},
		{"other kind", entry.KindWater, entry.RecordFilter{}, []string{"01W"}},
		{"item filter", entry.KindConsumption, entry.RecordFilter{ItemName: "rice"}, []string{"01C", "01B"}},
		{"date filter", entry.KindConsumption, entry.RecordFilter{DateText: "06-03-2024"}, []string{"01A"}},
		{"no rows", entry.KindWeight, entry.RecordFilter{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ListRecords(ctx, database, tt.kind, tt.filter)
			if err != nil {
				t.Fatalf("ListRecords failed: %v", err)
			}
			if got == nil {
				t.Fatal("ListRecords returned nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	n, err := CountRecords(ctx, database, entry.KindConsumption)
	if err != nil {
		t.Fatalf("CountRecords failed: %v", err)
	}
	if n != 3 {
		t.Errorf("CountRecords = %d, want 3", n)
	}
}

func TestDeleteRecord(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	if err := InsertRecord(ctx, database, newTestRecord("01DEL", entry.KindWeight, "", "05-03-2024")); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if err := DeleteRecord(ctx, database, "01DEL"); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}
	if err := DeleteRecord(ctx, database, "01DEL"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete error = %v, want NOT_FOUND", err)
	}
}

func TestStreamRecords(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	for _, r := range []*entry.Record{
		newTestRecord("01S1", entry.KindConsumption, "rice", "05-03-2024"),
		newTestRecord("01S2", entry.KindWater, "", "05-03-2024"),
	} {
		if err := InsertRecord(ctx, database, r); err != nil {
			t.Fatalf("InsertRecord failed: %v", err)
		}
	}

	rows, err := StreamRecords(ctx, database)
	if err != nil {
		t.Fatalf("StreamRecords failed: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		r, err := ScanRecordFromRows(rows)
		if err != nil {
			t.Fatalf("ScanRecordFromRows failed: %v", err)
		}
		ids = append(ids, r.ID)
	}
	if len(ids) != 2 || ids[0] != "01S1" || ids[1] != "01S2" {
		t.Errorf("streamed ids = %v", ids)
	}
}

func TestCatalog_UpsertGetList(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	if err := UpsertCatalog(ctx, database, entry.CatalogEntry{ItemName: " Brown Rice ", CaloriesPer100g: floatPtr(111)}, 1); err != nil {
		t.Fatalf("UpsertCatalog failed: %v", err)
	}
	if err := UpsertCatalog(ctx, database, entry.CatalogEntry{ItemName: "egg", CaloriesPerPortion: floatPtr(78)}, 1); err != nil {
		t.Fatalf("UpsertCatalog failed: %v", err)
	}

	got, err := GetCatalog(ctx, database, "brown   RICE")
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	if got.ItemName != "Brown Rice" {
		t.Errorf("ItemName = %q, want %q", got.ItemName, "Brown Rice")
	}
	if got.CaloriesPer100g == nil || *got.CaloriesPer100g != 111 {
		t.Errorf("CaloriesPer100g = %v, want 111", got.CaloriesPer100g)
	}
	if got.CaloriesPerPortion != nil {
		t.Errorf("CaloriesPerPortion = %v, want nil", *got.CaloriesPerPortion)
	}

	// Replace switches the entry to per-portion
	if err := UpsertCatalog(ctx, database, entry.CatalogEntry{ItemName: "brown rice", CaloriesPerPortion: floatPtr(200)}, 2); err != nil {
		t.Fatalf("UpsertCatalog replace failed: %v", err)
	}
	got, err = GetCatalog(ctx, database, "Brown Rice")
	if err != nil {
		t.Fatalf("GetCatalog failed: %v", err)
	}
	if got.CaloriesPer100g != nil || got.CaloriesPerPortion == nil || *got.CaloriesPerPortion != 200 {
		t.Errorf("after replace = %+v", got)
	}

	list, err := ListCatalog(ctx, database)
	if err != nil {
		t.Fatalf("ListCatalog failed: %v", err)
	}
	if len(list) != 2 || list[0].ItemName != "brown rice" || list[1].ItemName != "egg" {
		t.Errorf("ListCatalog = %+v", list)
	}
}

func TestCatalog_CheckConstraint(t *testing.T) {
	err := UpsertCatalog(context.Background(), setupDB(t), entry.CatalogEntry{ItemName: "air"}, 1)
	if err == nil {
		t.Error("UpsertCatalog without calories should fail the CHECK constraint")
	}
}

func TestGetCatalog_NotFound(t *testing.T) {
	_, err := GetCatalog(context.Background(), setupDB(t), "unknown")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestStore_ImplementsSources(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	s := NewStore(database)

	if err := InsertRecord(ctx, database, newTestRecord("01X", entry.KindWater, "", "05-03-2024")); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	records, err := s.ListRecords(ctx, entry.KindWater, entry.RecordFilter{})
	if err != nil || len(records) != 1 {
		t.Fatalf("ListRecords = %v, %v", records, err)
	}
	if _, err := s.GetCatalogEntry(ctx, "rice"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetCatalogEntry error = %v, want NOT_FOUND", err)
	}
}

func TestListRecords_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ListRecords(ctx, setupDB(t), entry.KindConsumption, entry.RecordFilter{}); err == nil {
		t.Error("ListRecords with cancelled context should fail")
	}
}

func TestReplaceRecord_RecordExists(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	r := newTestRecord("01REP", entry.KindConsumption, "rice", "05-03-2024")
	if err := InsertRecord(ctx, database, r); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	exists, err := RecordExists(ctx, database, "01REP")
	if err != nil || !exists {
		t.Fatalf("RecordExists = %v, %v; want true", exists, err)
	}
	exists, err = RecordExists(ctx, database, "01NOPE")
	if err != nil || exists {
		t.Fatalf("RecordExists(missing) = %v, %v; want false", exists, err)
	}

	r.ValueTotal = 999
	r.ItemName = "brown rice"
	if err := ReplaceRecord(ctx, database, r); err != nil {
		t.Fatalf("ReplaceRecord failed: %v", err)
	}
	got, err := GetRecord(ctx, database, "01REP")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.ValueTotal != 999 || got.ItemName != "brown rice" {
		t.Errorf("after replace = %+v", got)
	}

	missing := newTestRecord("01NOPE", entry.KindWater, "", "05-03-2024")
	if err := ReplaceRecord(ctx, database, missing); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("ReplaceRecord(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestInsertRecord_InTransaction(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	if err := InsertRecord(ctx, tx, newTestRecord("01TX", entry.KindWater, "", "05-03-2024")); err != nil {
		t.Fatalf("InsertRecord in tx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	exists, err := RecordExists(ctx, database, "01TX")
	if err != nil {
		t.Fatalf("RecordExists failed: %v", err)
	}
	if exists {
		t.Error("rolled back insert should not be visible")
	}
}

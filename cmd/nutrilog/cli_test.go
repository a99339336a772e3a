package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/db"
	"github.com/hpungsan/nutrilog/internal/logging"
	"github.com/hpungsan/nutrilog/internal/ops"
	"github.com/hpungsan/nutrilog/internal/period"
)

// setupEnv creates a temporary database and an env pinned to 10-03-2024.
func setupEnv(t *testing.T) *env {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err, "failed to init test db")
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.AllowUnsafePaths = true

	return &env{
		db:     database,
		cfg:    cfg,
		logger: logging.Discard(),
		clock:  period.FixedClock(20240310),
	}
}

// run executes the CLI with args and returns what it wrote to stdout.
func run(t *testing.T, e *env, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newCLIApp(e)
	app.Writer = &buf
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"nutrilog"}, args...))
	return buf.String(), err
}

func mustRun(t *testing.T, e *env, args ...string) string {
	t.Helper()
	out, err := run(t, e, args...)
	require.NoError(t, err, "nutrilog %s", strings.Join(args, " "))
	return out
}

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

// seed logs rice on 09-03 and two weigh-ins.
func seed(t *testing.T, e *env) {
	t.Helper()
	mustRun(t, e, "catalog", "set", "--per-100g", "130", "rice")
	mustRun(t, e, "add", "-q", "150", "-d", "09-03-2024", "-t", "12:30", "rice")
	mustRun(t, e, "add", "-k", "weight", "--value", "80.5", "-d", "08-03-2024", "-t", "07:00")
	mustRun(t, e, "add", "-k", "weight", "--value", "80.25", "-d", "10-03-2024", "-t", "07:00")
}

func TestAdd_ComputesCaloriesFromCatalog(t *testing.T) {
	e := setupEnv(t)
	mustRun(t, e, "catalog", "set", "--per-100g", "130", "rice")

	out := decodeOutput[ops.LogOutput](t, mustRun(t, e, "add", "-q", "150", "-d", "09-03-2024", "-t", "12:30", "rice"))
	assert.True(t, out.Computed)
	assert.Equal(t, 195.0, out.Record.ValueTotal)
	assert.Equal(t, "09-03-2024", out.Record.DateText)
	assert.NotEmpty(t, out.ID)
}

func TestAdd_Errors(t *testing.T) {
	e := setupEnv(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no catalog entry", []string{"add", "-q", "100", "bread"}, "[INVALID_REQUEST]"},
		{"missing quantity", []string{"add", "bread"}, "[INVALID_REQUEST]"},
		{"weight without value", []string{"add", "-k", "weight"}, "[INVALID_REQUEST]"},
		{"bad kind", []string{"add", "-k", "steps", "--value", "1000"}, "[INVALID_REQUEST]"},
		{"bad date", []string{"add", "-k", "water", "-q", "250", "-d", "31-02-2024"}, "[INVALID_DATE]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, e, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.code)
		})
	}
}

func TestHistory(t *testing.T) {
	e := setupEnv(t)
	seed(t, e)

	out := decodeOutput[ops.HistoryOutput](t, mustRun(t, e, "history", "-p", "last week"))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "rice", out.Items[0].ItemName)
	assert.True(t, out.Items[0].Classified)

	weights := decodeOutput[ops.HistoryOutput](t, mustRun(t, e, "history", "-k", "weight", "-l", "1"))
	require.Len(t, weights.Items, 1)
	assert.Equal(t, 80.25, weights.Items[0].ValueTotal)
	assert.True(t, weights.Pagination.HasMore)
}

func TestHistory_InvalidWindow(t *testing.T) {
	e := setupEnv(t)

	_, err := run(t, e, "history", "--from", "not-a-date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_DATE]")

	_, err = run(t, e, "history", "--from", "01-03-2024", "-p", "last week")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestRollupAndSummary(t *testing.T) {
	e := setupEnv(t)
	seed(t, e)

	rollup := decodeOutput[ops.RollupOutput](t, mustRun(t, e, "rollup", "--from", "01-03-2024", "--to", "10-03-2024"))
	require.Len(t, rollup.Days, 1)
	assert.Equal(t, "09/03", rollup.Days[0].Label)
	assert.Equal(t, 195.0, rollup.Days[0].Value)

	weight := decodeOutput[ops.RollupOutput](t, mustRun(t, e, "rollup", "-k", "weight", "-p", "last week"))
	assert.Len(t, weight.Days, 2)

	summary := decodeOutput[ops.SummaryOutput](t, mustRun(t, e, "summary", "-d", "09-03-2024"))
	assert.Equal(t, 195.0, summary.Summary.TotalValue)
	assert.Equal(t, 1, summary.Summary.RecordCount)
}

func TestTopMealsLatest(t *testing.T) {
	e := setupEnv(t)
	seed(t, e)

	top := decodeOutput[ops.TopOutput](t, mustRun(t, e, "top", "-p", "last month"))
	require.Len(t, top.Items, 1)

	meals := decodeOutput[ops.MealBreakdownOutput](t, mustRun(t, e, "meals", "-p", "last week", "-m", "Lunch"))
	require.Len(t, meals.Periods, 1)
	assert.Equal(t, 195.0, meals.Periods[0].Total)

	latest := decodeOutput[ops.LatestOutput](t, mustRun(t, e, "latest"))
	require.NotNil(t, latest.Item)
	assert.Equal(t, 80.25, latest.Item.ValueTotal)
}

func TestTop_WeightKindRejected(t *testing.T) {
	e := setupEnv(t)
	seed(t, e)

	_, err := run(t, e, "top", "-k", "weight")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestDelete(t *testing.T) {
	e := setupEnv(t)
	mustRun(t, e, "catalog", "set", "--per-portion", "90", "apple")
	added := decodeOutput[ops.LogOutput](t, mustRun(t, e, "add", "-q", "1", "apple"))

	out := decodeOutput[ops.DeleteOutput](t, mustRun(t, e, "delete", added.ID))
	assert.True(t, out.Deleted)

	_, err := run(t, e, "delete", added.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[NOT_FOUND]")

	_, err = run(t, e, "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestCatalog(t *testing.T) {
	e := setupEnv(t)

	set := decodeOutput[ops.CatalogOutput](t, mustRun(t, e, "catalog", "set", "--per-portion", "250", "oat", "cookie"))
	assert.Equal(t, "oat cookie", set.Entry.ItemName)

	got := decodeOutput[ops.CatalogOutput](t, mustRun(t, e, "catalog", "get", "oat", "cookie"))
	require.NotNil(t, got.Entry.CaloriesPerPortion)
	assert.Equal(t, 250.0, *got.Entry.CaloriesPerPortion)

	_, err := run(t, e, "catalog", "get", "bread")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[NOT_FOUND]")

	_, err = run(t, e, "catalog", "set", "bread")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_CATALOG_ENTRY]")

	list := decodeOutput[ops.CatalogListOutput](t, mustRun(t, e, "catalog", "list"))
	assert.Equal(t, 1, list.Total)
}

func TestExportImport(t *testing.T) {
	e := setupEnv(t)
	seed(t, e)
	path := filepath.Join(t.TempDir(), "backup.jsonl")

	exported := decodeOutput[ops.ExportOutput](t, mustRun(t, e, "export", "--path", path))
	assert.Equal(t, 3, exported.Records)
	assert.Equal(t, 1, exported.Catalog)

	skipped := decodeOutput[ops.ImportOutput](t, mustRun(t, e, "import", "-m", "skip", path))
	assert.Equal(t, 3, skipped.Skipped)

	fresh := setupEnv(t)
	imported := decodeOutput[ops.ImportOutput](t, mustRun(t, fresh, "import", path))
	assert.Equal(t, 3, imported.Imported)
	assert.Equal(t, 1, imported.Catalog)

	history := decodeOutput[ops.HistoryOutput](t, mustRun(t, fresh, "history", "-k", "weight"))
	assert.Len(t, history.Items, 2)

	_, err := run(t, e, "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestReport(t *testing.T) {
	e := setupEnv(t)
	seed(t, e)

	out := mustRun(t, e, "report", "--from", "01-03-2024", "--to", "10-03-2024")
	assert.Contains(t, out, "# Consumption report")
	assert.Contains(t, out, "| Total | 195 |")
	assert.Contains(t, out, "| 09/03 | 195 | 1 |")
}

func TestSourceFlag(t *testing.T) {
	e := setupEnv(t)
	seed(t, e)

	out := decodeOutput[ops.HistoryOutput](t, mustRun(t, e, "--source", "sqlite", "history", "-p", "last week"))
	assert.Len(t, out.Items, 1)

	_, err := run(t, e, "--source", "mysql", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestOpenSources_UnknownSource(t *testing.T) {
	e := setupEnv(t)
	_, closeSrc, err := openSources(t.Context(), e.db, e.cfg, e.logger, "mongo")
	require.Error(t, err)
	assert.NoError(t, closeSrc())
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"nutrilog"}, false},
		{[]string{"nutrilog", "history"}, true},
		{[]string{"nutrilog", "catalog"}, true},
		{[]string{"nutrilog", "serve"}, true},
		{[]string{"nutrilog", "--source", "postgres", "history"}, true},
		{[]string{"nutrilog", "--help"}, true},
		{[]string{"nutrilog", "bogus"}, false},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			assert.Equal(t, tt.want, isCLIMode(tt.args))
		})
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	assert.True(t, isHelpOrVersion([]string{"nutrilog", "--help"}))
	assert.True(t, isHelpOrVersion([]string{"nutrilog", "-v"}))
	assert.True(t, isHelpOrVersion([]string{"nutrilog", "help"}))
	assert.False(t, isHelpOrVersion([]string{"nutrilog", "history"}))
	assert.False(t, isHelpOrVersion([]string{"nutrilog"}))
}

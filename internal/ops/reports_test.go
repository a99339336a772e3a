package ops

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/nutrilog/internal/aggregate"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
)

func ids(items []aggregate.EnrichedRecord) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}

func TestHistory_AllTime(t *testing.T) {
	src, _, _ := fixtureSources()

	out, err := History(context.Background(), src, HistoryInput{})
	require.NoError(t, err)

	assert.Equal(t, entry.KindConsumption, out.Kind)
	assert.Nil(t, out.Window)
	assert.Equal(t, []string{"c5", "c3", "c1", "c2", "c6", "c4"}, ids(out.Items))
	assert.Equal(t, 1, out.Unnormalized)
	assert.Equal(t, 1, out.Unclassified)
	assert.Equal(t, 6, out.Pagination.Total)
	assert.False(t, out.Pagination.HasMore)
	assert.False(t, out.SourceUnavailable)

	// Malformed dates stay listed but flagged
	last := out.Items[len(out.Items)-1]
	assert.False(t, last.Normalized)
	assert.Equal(t, entry.InvalidDate, last.Date)

	// Catalog classification reaches the listing
	assert.Equal(t, "150 g", out.Items[2].DisplayQuantity)
	assert.Equal(t, entry.Portion, out.Items[3].PortionType)
	assert.False(t, out.Items[0].Classified)
}

func TestHistory_Filters(t *testing.T) {
	src, _, _ := fixtureSources()
	ctx := context.Background()

	tests := []struct {
		name  string
		input HistoryInput
		want  []string
	}{
		{"last week", HistoryInput{Window: WindowInput{Period: "last week"}}, []string{"c5", "c3", "c1", "c2"}},
		{"single day", HistoryInput{Window: WindowInput{From: "05-03-2024", To: "05-03-2024"}}, []string{"c1", "c2"}},
		{"inverted window", HistoryInput{Window: WindowInput{From: "10-03-2024", To: "01-03-2024"}}, []string{}},
		// All-time keeps the malformed-date lunch record
		{"meal period", HistoryInput{MealPeriod: "LUNCH"}, []string{"c1", "c6", "c4"}},
		{"name contains", HistoryInput{NameContains: "RI"}, []string{"c3", "c1", "c6"}},
		{"classified only", HistoryInput{ClassifiedOnly: true, Window: WindowInput{Period: "last week"}}, []string{"c3", "c1", "c2"}},
		{"weight kind", HistoryInput{Kind: "weight"}, []string{"w3", "w2", "w1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := History(ctx, src, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(out.Items))
		})
	}
}

func TestHistory_Pagination(t *testing.T) {
	src, _, _ := fixtureSources()
	ctx := context.Background()

	out, err := History(ctx, src, HistoryInput{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c5", "c3"}, ids(out.Items))
	assert.Equal(t, Pagination{Limit: 2, Offset: 0, HasMore: true, Total: 6}, out.Pagination)

	out, err = History(ctx, src, HistoryInput{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"c6", "c4"}, ids(out.Items))
	assert.False(t, out.Pagination.HasMore)

	out, err = History(ctx, src, HistoryInput{Offset: 50})
	require.NoError(t, err)
	assert.NotNil(t, out.Items)
	assert.Empty(t, out.Items)
	assert.Equal(t, DefaultListLimit, out.Pagination.Limit)
}

func TestHistory_InvalidInput(t *testing.T) {
	src, _, _ := fixtureSources()
	ctx := context.Background()

	_, err := History(ctx, src, HistoryInput{Kind: "sleep"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = History(ctx, src, HistoryInput{MealPeriod: "brunch"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = History(ctx, src, HistoryInput{Window: WindowInput{From: "2024-13-01"}})
	assert.True(t, errors.Is(err, errors.ErrInvalidDate))
}

func TestHistory_SourceUnavailable(t *testing.T) {
	src, records, _ := fixtureSources()
	records.err = stderrors.New("boom")

	out, err := History(context.Background(), src, HistoryInput{})
	require.NoError(t, err)
	assert.True(t, out.SourceUnavailable)
	assert.NotNil(t, out.Items)
	assert.Empty(t, out.Items)
}

func TestReports_NonFiniteRecordsAreDropped(t *testing.T) {
	ctx := context.Background()
	src, records, _ := fixtureSources()
	records.byKind[entry.KindWeight] = append(records.byKind[entry.KindWeight],
		rec("w4", entry.KindWeight, "", 0, math.Inf(1), "09-03-2024", "07:00"),
		rec("w5", entry.KindWeight, "", 0, math.NaN(), "10-03-2024", "07:00"),
	)
	week := WindowInput{Period: "last week"}

	summary, err := Summary(ctx, src, SummaryInput{Kind: "weight", Window: week})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Summary.RecordCount)
	assert.Equal(t, 2, summary.InvalidValues)

	rollup, err := Rollup(ctx, src, RollupInput{Kind: "weight", Window: week})
	require.NoError(t, err)
	require.Len(t, rollup.Days, 1)
	assert.Equal(t, 79.5, rollup.Days[0].Value)
	assert.Equal(t, 2, rollup.InvalidValues)

	history, err := History(ctx, src, HistoryInput{Kind: "weight"})
	require.NoError(t, err)
	assert.Equal(t, []string{"w3", "w2", "w1"}, ids(history.Items))
	assert.Equal(t, 2, history.InvalidValues)

	latest, err := Latest(ctx, src, LatestInput{})
	require.NoError(t, err)
	require.NotNil(t, latest.Item)
	assert.Equal(t, "w3", latest.Item.ID)

	for name, out := range map[string]any{"summary": summary, "rollup": rollup, "history": history, "latest": latest} {
		_, err := json.Marshal(out)
		assert.NoError(t, err, "%s must stay encodable", name)
	}
}

func TestRollup(t *testing.T) {
	src, _, _ := fixtureSources()
	ctx := context.Background()

	out, err := Rollup(ctx, src, RollupInput{Window: WindowInput{Period: "last week"}})
	require.NoError(t, err)
	assert.Equal(t, aggregate.Sum, out.Aggregate)
	require.Len(t, out.Days, 3)
	assert.Equal(t, entry.NewDate(2024, time.March, 5), out.Days[0].Date)
	assert.Equal(t, 356.0, out.Days[0].Value)
	assert.Equal(t, 2, out.Days[0].Count)
	assert.Equal(t, "05/03", out.Days[0].Label)
	assert.Equal(t, 130.0, out.Days[1].Value)
	assert.Equal(t, 95.0, out.Days[2].Value)
	assert.Equal(t, 1, out.Unnormalized)

	// Weight averages by default
	out, err = Rollup(ctx, src, RollupInput{Kind: "weight"})
	require.NoError(t, err)
	assert.Equal(t, aggregate.Average, out.Aggregate)
	require.Len(t, out.Days, 2)
	assert.Equal(t, 80.5, out.Days[0].Value)
	assert.Equal(t, 79.5, out.Days[1].Value)

	out, err = Rollup(ctx, src, RollupInput{Kind: "water", Aggregate: "count"})
	require.NoError(t, err)
	require.Len(t, out.Days, 1)
	assert.Equal(t, 2.0, out.Days[0].Value)

	_, err = Rollup(ctx, src, RollupInput{Aggregate: "median"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestSummary(t *testing.T) {
	src, _, _ := fixtureSources()
	ctx := context.Background()

	out, err := Summary(ctx, src, SummaryInput{Window: WindowInput{Period: "last week"}})
	require.NoError(t, err)
	s := out.Summary
	assert.Equal(t, 581.0, s.TotalValue)
	assert.Equal(t, 4, s.RecordCount)
	assert.Equal(t, 3, s.DistinctActiveDays)
	require.NotNil(t, s.DaysInWindow)
	assert.Equal(t, 8, *s.DaysInWindow)
	require.NotNil(t, s.Coverage)
	assert.Equal(t, 0.375, *s.Coverage)
	assert.Equal(t, 95.0, s.MinValue)
	assert.Equal(t, 200.0, s.MaxValue)

	out, err = Summary(ctx, src, SummaryInput{Date: "05-03-2024"})
	require.NoError(t, err)
	assert.Equal(t, 356.0, out.Summary.TotalValue)
	assert.Equal(t, 2, out.Summary.RecordCount)
	assert.Equal(t, 1, *out.Summary.DaysInWindow)

	// All time: malformed dates are excluded and no window is reported
	out, err = Summary(ctx, src, SummaryInput{})
	require.NoError(t, err)
	assert.Nil(t, out.Window)
	assert.Nil(t, out.Summary.DaysInWindow)
	assert.Nil(t, out.Summary.Coverage)
	assert.Equal(t, 841.0, out.Summary.TotalValue)
	assert.Equal(t, 5, out.Summary.RecordCount)
	assert.Equal(t, 1, out.Unnormalized)

	_, err = Summary(ctx, src, SummaryInput{Date: "05-03-2024", Window: WindowInput{Period: "last week"}})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = Summary(ctx, src, SummaryInput{Date: "yesterday"})
	assert.True(t, errors.Is(err, errors.ErrInvalidDate))
}

func TestSummary_MatchesRollupTotal(t *testing.T) {
	src, _, _ := fixtureSources()
	ctx := context.Background()

	for _, kind := range []string{"consumption", "water"} {
		in := WindowInput{Period: "last 3 months"}
		rollup, err := Rollup(ctx, src, RollupInput{Kind: kind, Window: in, Aggregate: "sum"})
		require.NoError(t, err)
		summary, err := Summary(ctx, src, SummaryInput{Kind: kind, Window: in})
		require.NoError(t, err)

		var total float64
		for _, d := range rollup.Days {
			total += d.Value
		}
		assert.Equal(t, summary.Summary.TotalValue, total, kind)
		assert.Equal(t, summary.Summary.DistinctActiveDays, len(rollup.Days), kind)
	}
}

func TestTop(t *testing.T) {
	src, _, _ := fixtureSources()
	ctx := context.Background()

	out, err := Top(ctx, src, TopInput{Window: WindowInput{Period: "last 3 months"}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	// "rice" and "Rice" are distinct names
	assert.Equal(t, aggregate.FrequencyEntry{ItemName: "rice", OccurrenceCount: 2, TotalValue: 330}, out.Items[0])
	assert.Equal(t, aggregate.FrequencyEntry{ItemName: "Rice", OccurrenceCount: 1, TotalValue: 260}, out.Items[1])

	again, err := Top(ctx, src, TopInput{Window: WindowInput{Period: "last 3 months"}, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, out.Items, again.Items)

	out, err = Top(ctx, src, TopInput{})
	require.NoError(t, err)
	assert.Len(t, out.Items, 3) // rice, egg, apple in the last month
}

func TestTop_RejectsUnnamedKinds(t *testing.T) {
	src, records, _ := fixtureSources()
	ctx := context.Background()

	for _, kind := range []string{"weight", "water"} {
		_, err := Top(ctx, src, TopInput{Kind: kind})
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "kind %s: error = %v", kind, err)
	}
	assert.Zero(t, records.calls, "rejected kinds must not reach the source")

	out, err := Top(ctx, src, TopInput{Kind: "Consumption"})
	require.NoError(t, err)
	assert.Equal(t, entry.KindConsumption, out.Kind)
}

func TestMealBreakdown(t *testing.T) {
	src, _, _ := fixtureSources()
	ctx := context.Background()

	out, err := MealBreakdown(ctx, src, MealBreakdownInput{Window: WindowInput{Period: "last week"}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Unclassified)
	require.Len(t, out.Periods, 3)
	assert.Equal(t, entry.Lunch, out.Periods[0].Period)
	assert.Equal(t, 200.0, out.Periods[0].Total)
	assert.Equal(t, entry.Breakfast, out.Periods[1].Period)
	assert.Equal(t, entry.Dinner, out.Periods[2].Period)

	out, err = MealBreakdown(ctx, src, MealBreakdownInput{Window: WindowInput{Period: "last week"}, MealPeriod: "snack"})
	require.NoError(t, err)
	assert.Empty(t, out.Periods)
	assert.Equal(t, 1, out.Unclassified)
}

func TestLatest(t *testing.T) {
	src, records, _ := fixtureSources()
	ctx := context.Background()

	out, err := Latest(ctx, src, LatestInput{})
	require.NoError(t, err)
	assert.Equal(t, entry.KindWeight, out.Kind)
	require.NotNil(t, out.Item)
	assert.Equal(t, "w3", out.Item.ID)
	assert.Equal(t, 79.0, out.Item.ValueTotal)

	// Only malformed dates: nothing is latest
	records.byKind[entry.KindWater] = []entry.Record{rec("x", entry.KindWater, "", 1, 1, "??", "10:00")}
	out, err = Latest(ctx, src, LatestInput{Kind: "water"})
	require.NoError(t, err)
	assert.Nil(t, out.Item)
}

package estimates

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeaufort/estalign/pkg/application/dto"
	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

func loadOne(t *testing.T, l *Loader, col entities.ColumnSpec, dates []time.Time, assets []entities.AssetID) *dto.AdjustedColumn {
	t.Helper()
	out, err := l.LoadAdjustedArray(context.Background(), []entities.ColumnSpec{col}, dates, assets, nil)
	require.NoError(t, err)
	require.Contains(t, out, col.Name)
	return out[col.Name]
}

// requireCell asserts one base cell, treating NaN as equal to NaN.
func requireCell(t *testing.T, col *dto.AdjustedColumn, row, assetCol int, want float64) {
	t.Helper()
	got := col.Floats[row][assetCol]
	if math.IsNaN(want) {
		require.True(t, math.IsNaN(got), "row %d col %d: want NaN, got %v", row, assetCol, got)
		return
	}
	require.Equal(t, want, got, "row %d col %d", row, assetCol)
}

func requireAllMissing(t *testing.T, values []float64) {
	t.Helper()
	for i, v := range values {
		require.True(t, math.IsNaN(v), "patch value at %d: want NaN, got %v", i, v)
	}
}

func TestNextQuarters_SingleAssetTwoReleases(t *testing.T) {
	// Scenario: one estimate each for Q1-2020 (released and first known
	// 2020-01-10) and Q2-2020 (2020-04-10), daily grid January through the
	// start of May, requesting the next release's estimate.
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 10), 2020, 1, 5.0),
		floatEstimate(1, day(2020, time.April, 10), day(2020, time.April, 10), 2020, 2, 7.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.May, 1))
	require.Len(t, dates, 122)
	col := loadOne(t, loader, estimateColumn(1), dates, []entities.AssetID{1})

	// The Q1 estimate is only known on its own release date; every other
	// date has no qualifying upcoming release and stays missing.
	jan10 := 9
	apr10 := 100
	for i := range dates {
		switch i {
		case jan10:
			requireCell(t, col, i, 0, 5.0)
		case apr10:
			requireCell(t, col, i, 0, 7.0)
		default:
			requireCell(t, col, i, 0, math.NaN())
		}
	}

	// Right-side crossovers: the regime changes the day after each release.
	require.ElementsMatch(t, []int{jan10 + 1, apr10 + 1}, col.AdjustmentRows())
	for _, k := range col.AdjustmentRows() {
		ovs := col.Adjustments[k]
		require.Len(t, ovs, 1)
		ov := ovs[0]
		assert.Equal(t, 0, ov.FirstRow)
		assert.Equal(t, k-1, ov.LastRow)
		assert.Equal(t, 0, ov.FirstCol)
		assert.Equal(t, 0, ov.LastCol)
		require.Len(t, ov.Floats, k)
		// The newly requested quarter is not yet known at the crossover
		// row, so the history is blanked rather than backfilled.
		requireAllMissing(t, ov.Floats)
	}
}

func TestNextQuarters_BackfillsWithRequestedQuarterData(t *testing.T) {
	// The Q2 estimate is published before Q1 is even released, so when the
	// zero quarter rolls from Q1 to Q2 the historical window is rewritten
	// with Q2's own point-in-time timeline.
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 5), 2020, 1, 5.0),
		floatEstimate(1, day(2020, time.April, 10), day(2020, time.January, 8), 2020, 2, 7.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.January, 20))
	col := loadOne(t, loader, estimateColumn(1), dates, []entities.AssetID{1})

	// Base: nothing known before Jan 5; Q1 is the upcoming release through
	// Jan 10; Q2 from Jan 11 on.
	for i := 0; i <= 3; i++ {
		requireCell(t, col, i, 0, math.NaN())
	}
	for i := 4; i <= 9; i++ {
		requireCell(t, col, i, 0, 5.0)
	}
	for i := 10; i <= 19; i++ {
		requireCell(t, col, i, 0, 7.0)
	}

	// One retained crossover: the day after the Q1 release. The Q2 regime's
	// own crossover lands past the grid and is discarded.
	require.Equal(t, []int{10}, col.AdjustmentRows())
	ovs := col.Adjustments[10]
	require.Len(t, ovs, 1)
	require.Len(t, ovs[0].Floats, 10)
	for i := 0; i <= 6; i++ {
		require.True(t, math.IsNaN(ovs[0].Floats[i]), "row %d", i)
	}
	for i := 7; i <= 9; i++ {
		require.Equal(t, 7.0, ovs[0].Floats[i], "row %d", i)
	}
}

func TestPreviousQuarters_LeftSideCrossoverAndMissingFill(t *testing.T) {
	// Previous strategy: regimes begin on the release date itself, and the
	// compiled overwrites always blank the history, estimates or not.
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 5), 2020, 1, 5.0),
		floatEstimate(1, day(2020, time.January, 15), day(2020, time.January, 12), 2020, 2, 7.0),
	)
	loader, err := NewPreviousQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.January, 20))
	col := loadOne(t, loader, estimateColumn(1), dates, []entities.AssetID{1})

	for i := 0; i <= 8; i++ {
		requireCell(t, col, i, 0, math.NaN())
	}
	for i := 9; i <= 13; i++ {
		requireCell(t, col, i, 0, 5.0)
	}
	for i := 14; i <= 19; i++ {
		requireCell(t, col, i, 0, 7.0)
	}

	// Left-side search: crossovers land on the release dates (Jan 10 and
	// Jan 15), not the day after.
	require.ElementsMatch(t, []int{9, 14}, col.AdjustmentRows())
	for _, k := range col.AdjustmentRows() {
		ovs := col.Adjustments[k]
		require.Len(t, ovs, 1)
		require.Len(t, ovs[0].Floats, k)
		requireAllMissing(t, ovs[0].Floats)
	}
}

func TestPreviousQuarters_CrossoverOnReleaseDateItself(t *testing.T) {
	// An event dated exactly on a simulation date starts its regime on that
	// same date under the left-side tie-break.
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 10), 2020, 1, 5.0),
		floatEstimate(1, day(2020, time.April, 10), day(2020, time.April, 10), 2020, 2, 7.0),
	)
	loader, err := NewPreviousQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.May, 1))
	col := loadOne(t, loader, estimateColumn(0), dates, []entities.AssetID{1})

	apr10 := 100
	require.Contains(t, col.AdjustmentRows(), apr10)
}

func TestLoad_AssetWithZeroEvents(t *testing.T) {
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 10), 2020, 1, 5.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.January, 20))
	col := loadOne(t, loader, estimateColumn(1), dates, []entities.AssetID{1, 99})

	for i := range dates {
		requireCell(t, col, i, 1, math.NaN())
	}
	for _, ovs := range col.Adjustments {
		for _, ov := range ovs {
			assert.NotEqual(t, 1, ov.FirstCol, "no patches expected for the empty asset")
		}
	}
}

func TestLoad_NegativeNumQuartersFailsBeforeComputation(t *testing.T) {
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 10), 2020, 1, 5.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	_, err = loader.LoadAdjustedArray(
		context.Background(),
		[]entities.ColumnSpec{estimateColumn(-1)},
		dailyGrid(day(2020, time.January, 1), day(2020, time.January, 5)),
		[]entities.AssetID{1},
		nil,
	)
	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "-1")
}

func TestLoad_MissingNumQuartersIsConfigurationError(t *testing.T) {
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 10), 2020, 1, 5.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	col := entities.ColumnSpec{Name: "estimate", Type: entities.Float64Column}
	_, err = loader.LoadAdjustedArray(
		context.Background(),
		[]entities.ColumnSpec{col},
		dailyGrid(day(2020, time.January, 1), day(2020, time.January, 5)),
		[]entities.AssetID{1},
		nil,
	)
	var cerr *entities.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Error(), "num_quarters")
}

func TestLoad_UnmappedColumnIsConfigurationError(t *testing.T) {
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 10), 2020, 1, 5.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	col := entities.ColumnSpec{Name: "revenue", Type: entities.Float64Column, NumQuarters: quarters(1)}
	_, err = loader.LoadAdjustedArray(
		context.Background(),
		[]entities.ColumnSpec{col},
		dailyGrid(day(2020, time.January, 1), day(2020, time.January, 5)),
		[]entities.AssetID{1},
		nil,
	)
	var cerr *entities.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Error(), "name mapping")
}

func TestNewLoader_MissingTableColumns(t *testing.T) {
	table := &entities.EstimateTable{
		Schema: map[string]entities.ColumnType{"eps": entities.Float64Column},
	}
	_, err := NewNextQuartersLoader(table, map[string]string{
		"estimate": "estimate",
		"eps":      "eps",
	})
	var serr *entities.SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, []string{"estimate"}, serr.Missing)
	assert.Contains(t, serr.Received, "eps")
}

func TestNewLoader_DropsIncompleteRows(t *testing.T) {
	incomplete := floatEstimate(1, time.Time{}, day(2020, time.January, 2), 2020, 1, 9.0)
	table := estimateTable(
		incomplete,
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 2), 2020, 1, 5.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.January, 10))
	col := loadOne(t, loader, estimateColumn(1), dates, []entities.AssetID{1})

	// Only the complete row contributes: its 5.0 is visible from Jan 2, the
	// dropped row's 9.0 never surfaces.
	for i := 1; i <= 9; i++ {
		requireCell(t, col, i, 0, 5.0)
	}
}

func TestLoad_NoLookAhead(t *testing.T) {
	// A revision published on Jan 8 must not influence any date before it,
	// even though its event date is earlier in the grid.
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 15), day(2020, time.January, 2), 2020, 1, 5.0),
		floatEstimate(1, day(2020, time.January, 15), day(2020, time.January, 8), 2020, 1, 6.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.January, 15))
	col := loadOne(t, loader, estimateColumn(1), dates, []entities.AssetID{1})

	requireCell(t, col, 0, 0, math.NaN())
	for i := 1; i <= 6; i++ {
		requireCell(t, col, i, 0, 5.0)
	}
	for i := 7; i <= 14; i++ {
		requireCell(t, col, i, 0, 6.0)
	}
}

func TestLoad_PatchCoverageInvariant(t *testing.T) {
	// Every patch starts at row 0 and ends one row before its key, so the
	// applied-order resolution covers the grid exactly: patched prefix plus
	// unpatched tail.
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 5), 2020, 1, 5.0),
		floatEstimate(1, day(2020, time.April, 10), day(2020, time.January, 8), 2020, 2, 7.0),
		floatEstimate(1, day(2020, time.July, 10), day(2020, time.April, 11), 2020, 3, 9.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.June, 1))
	col := loadOne(t, loader, estimateColumn(1), dates, []entities.AssetID{1})

	require.NotEmpty(t, col.Adjustments)
	for k, ovs := range col.Adjustments {
		require.Greater(t, k, 0)
		require.Less(t, k, len(dates))
		for _, ov := range ovs {
			require.Equal(t, 0, ov.FirstRow)
			require.Equal(t, k-1, ov.LastRow)
			require.Len(t, ov.Floats, k)
		}
	}
}

func TestLoad_Idempotent(t *testing.T) {
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 5), 2020, 1, 5.0),
		floatEstimate(1, day(2020, time.April, 10), day(2020, time.January, 8), 2020, 2, 7.0),
		floatEstimate(2, day(2020, time.February, 20), day(2020, time.January, 2), 2020, 1, 1.5),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.March, 1))
	assets := []entities.AssetID{1, 2}
	first := loadOne(t, loader, estimateColumn(1), dates, assets)
	second := loadOne(t, loader, estimateColumn(1), dates, assets)

	require.Equal(t, first.AdjustmentRows(), second.AdjustmentRows())
	for i := range dates {
		for j := range assets {
			requireCell(t, second, i, j, first.Floats[i][j])
		}
	}
	for k, ovs := range first.Adjustments {
		require.Len(t, second.Adjustments[k], len(ovs))
		for n, ov := range ovs {
			other := second.Adjustments[k][n]
			require.Equal(t, ov.FirstCol, other.FirstCol)
			require.Len(t, other.Floats, len(ov.Floats))
			for i := range ov.Floats {
				if math.IsNaN(ov.Floats[i]) {
					require.True(t, math.IsNaN(other.Floats[i]))
				} else {
					require.Equal(t, ov.Floats[i], other.Floats[i])
				}
			}
		}
	}
}

func TestLoad_DatetimeColumnUsesTypedMissing(t *testing.T) {
	reportDate := day(2020, time.April, 10)
	table := &entities.EstimateTable{
		Schema: map[string]entities.ColumnType{
			"release_date": entities.DatetimeColumn,
		},
		Events: []entities.EstimateEvent{{
			Asset:         1,
			EventDate:     day(2020, time.January, 10),
			Knowledge:     day(2020, time.January, 5),
			FiscalYear:    2020,
			FiscalQuarter: 1,
			Values: map[string]entities.MetricValue{
				"release_date": entities.TimeValue(reportDate),
			},
		}},
	}
	loader, err := NewNextQuartersLoader(table, map[string]string{"release_date": "release_date"})
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.January, 15))
	col := loadOne(t, loader, entities.ColumnSpec{
		Name:        "release_date",
		Type:        entities.DatetimeColumn,
		NumQuarters: quarters(1),
	}, dates, []entities.AssetID{1})

	require.NotNil(t, col.Times)
	require.Nil(t, col.Floats)
	for i := 0; i <= 3; i++ {
		assert.True(t, col.Times[i][0].IsZero(), "row %d", i)
	}
	for i := 4; i <= 9; i++ {
		assert.Equal(t, reportDate, col.Times[i][0], "row %d", i)
	}
	for i := 10; i <= 14; i++ {
		assert.True(t, col.Times[i][0].IsZero(), "row %d", i)
	}
	for _, ovs := range col.Adjustments {
		for _, ov := range ovs {
			require.NotNil(t, ov.Times)
			require.Nil(t, ov.Floats)
		}
	}
}

func TestLoad_TypeMismatchRejected(t *testing.T) {
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 10), 2020, 1, 5.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	col := entities.ColumnSpec{
		Name:        "estimate",
		Type:        entities.DatetimeColumn,
		NumQuarters: quarters(1),
	}
	_, err = loader.LoadAdjustedArray(
		context.Background(),
		[]entities.ColumnSpec{col},
		dailyGrid(day(2020, time.January, 1), day(2020, time.January, 5)),
		[]entities.AssetID{1},
		nil,
	)
	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLoad_MaskPassedThrough(t *testing.T) {
	table := estimateTable(
		floatEstimate(1, day(2020, time.January, 10), day(2020, time.January, 10), 2020, 1, 5.0),
	)
	loader, err := NewNextQuartersLoader(table, estimateNameMap)
	require.NoError(t, err)

	dates := dailyGrid(day(2020, time.January, 1), day(2020, time.January, 3))
	mask := [][]bool{{true}, {false}, {true}}
	out, err := loader.LoadAdjustedArray(
		context.Background(),
		[]entities.ColumnSpec{estimateColumn(1)},
		dates,
		[]entities.AssetID{1},
		mask,
	)
	require.NoError(t, err)
	assert.Equal(t, mask, out["estimate"].Mask)
}

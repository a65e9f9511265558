package estimates

import (
	"math"
	"time"

	"github.com/mbeaufort/estalign/pkg/application/dto"
	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// crossoverRows finds the grid rows at which the asset's zero quarter
// changes regime. The scan walks the defined rows of the zero timeline in
// date order, skipping undefined rows; the first defined row counts as a
// shift. Each shift is located in the grid via the strategy's search side
// against the release date the new regime was selected on. Rows at 0 or
// past the end of the grid have no visible effect and are discarded.
func (r *run) crossoverRows(ae *assetEvents) []int {
	if rows, ok := r.crossovers[ae.asset]; ok {
		return rows
	}
	z := r.zero(ae)
	rows := []int{}
	var prev entities.NormalizedQuarter
	havePrev := false
	for i := range r.dates {
		if !z.known[i] {
			continue
		}
		if !havePrev || z.quarter[i] != prev {
			k := r.loader.strategy.crossoverRow(r.dates, z.eventDate[i])
			if 0 < k && k < len(r.dates) {
				rows = append(rows, k)
			}
		}
		prev = z.quarter[i]
		havePrev = true
	}
	r.crossovers[ae.asset] = rows
	return rows
}

// assembleColumn produces the output contract for one requested column:
// the dense base matrix of requested-quarter values plus the overwrite
// patches compiled at each retained crossover.
func (r *run) assembleColumn(
	col entities.ColumnSpec,
	source string,
	numQuarters int,
	assets []entities.AssetID,
	mask [][]bool,
) *dto.AdjustedColumn {
	out := &dto.AdjustedColumn{
		Name:        col.Name,
		Type:        col.Type,
		Dates:       r.dates,
		Assets:      assets,
		Mask:        mask,
		Adjustments: make(map[int][]dto.Overwrite),
	}
	numDates := len(r.dates)
	if col.Type == entities.DatetimeColumn {
		out.Times = make([][]time.Time, numDates)
		for i := range out.Times {
			out.Times[i] = make([]time.Time, len(assets))
		}
	} else {
		out.Floats = make([][]float64, numDates)
		for i := range out.Floats {
			row := make([]float64, len(assets))
			for j := range row {
				row[j] = math.NaN()
			}
			out.Floats[i] = row
		}
	}

	for assetCol, asset := range assets {
		ae := r.loader.byAsset[asset]
		if ae == nil {
			// No events at all for this asset: all-missing column, no
			// crossovers.
			continue
		}
		z := r.zero(ae)
		for i := range r.dates {
			requested, ok := r.requestedQuarter(z, i, numQuarters)
			if !ok {
				continue
			}
			g := ae.byQuarter[requested]
			if g == nil {
				continue
			}
			s := r.metricSeries(ae, g, source, col.Type)
			if col.Type == entities.DatetimeColumn {
				out.Times[i][assetCol] = s.times[i]
			} else {
				out.Floats[i][assetCol] = s.floats[i]
			}
		}
		for _, k := range r.crossoverRows(ae) {
			ov := r.compileOverwrite(ae, z, col, source, numQuarters, k, assetCol)
			out.Adjustments[k] = append(out.Adjustments[k], ov)
		}
	}
	return out
}

// compileOverwrite builds the patch taking effect at crossover row k for
// one asset column: rows [0, k-1] backfilled with the newly requested
// quarter's own timeline when estimates for it exist, or with the column's
// missing marker otherwise.
//
// The Previous strategy always emits the missing-value fill, even when
// estimates for the requested quarter exist. Deliberate; see DESIGN.md.
func (r *run) compileOverwrite(
	ae *assetEvents,
	z *zeroTimeline,
	col entities.ColumnSpec,
	source string,
	numQuarters int,
	k, assetCol int,
) dto.Overwrite {
	ov := dto.Overwrite{
		FirstRow: 0,
		LastRow:  k - 1,
		FirstCol: assetCol,
		LastCol:  assetCol,
	}
	if r.loader.strategy == NextQuarters {
		if requested, ok := r.requestedQuarter(z, k, numQuarters); ok {
			if g := ae.byQuarter[requested]; g != nil {
				s := r.metricSeries(ae, g, source, col.Type)
				if col.Type == entities.DatetimeColumn {
					ov.Times = append([]time.Time(nil), s.times[:k]...)
				} else {
					ov.Floats = append([]float64(nil), s.floats[:k]...)
				}
				return ov
			}
		}
	}
	if col.Type == entities.DatetimeColumn {
		ov.Times = make([]time.Time, k)
	} else {
		ov.Floats = make([]float64, k)
		for i := range ov.Floats {
			ov.Floats[i] = math.NaN()
		}
	}
	return ov
}

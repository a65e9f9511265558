package estimates

import (
	"time"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// zeroTimeline is the per-asset zero quarter resolved at each grid date:
// which quarter's release is nearest under the strategy, and the release
// date it was selected on. known is false where no release qualifies.
type zeroTimeline struct {
	quarter   []entities.NormalizedQuarter
	eventDate []time.Time
	known     []bool
}

// run owns the transient state of one load invocation: resolved timelines
// and crossover rows, built lazily per asset and freed with the run.
type run struct {
	loader *Loader
	dates  []time.Time

	evdates    map[groupRef][]time.Time
	series     map[seriesRef]*metricSeries
	zeros      map[entities.AssetID]*zeroTimeline
	crossovers map[entities.AssetID][]int
}

type groupRef struct {
	asset   entities.AssetID
	quarter entities.NormalizedQuarter
}

type seriesRef struct {
	groupRef
	column string
}

func newRun(l *Loader, dates []time.Time) *run {
	return &run{
		loader:     l,
		dates:      dates,
		evdates:    make(map[groupRef][]time.Time),
		series:     make(map[seriesRef]*metricSeries),
		zeros:      make(map[entities.AssetID]*zeroTimeline),
		crossovers: make(map[entities.AssetID][]int),
	}
}

func (r *run) eventDates(ae *assetEvents, g *quarterGroup) []time.Time {
	ref := groupRef{asset: ae.asset, quarter: g.quarter}
	if s, ok := r.evdates[ref]; ok {
		return s
	}
	s := g.eventDateSeries(r.dates)
	r.evdates[ref] = s
	return s
}

func (r *run) metricSeries(ae *assetEvents, g *quarterGroup, column string, ctype entities.ColumnType) *metricSeries {
	ref := seriesRef{groupRef: groupRef{asset: ae.asset, quarter: g.quarter}, column: column}
	if s, ok := r.series[ref]; ok {
		return s
	}
	s := g.metricSeries(r.dates, column, ctype)
	r.series[ref] = s
	return s
}

// zero resolves the asset's zero-quarter timeline, selecting per date among
// the quarters already known at that date whose as-of-date release date
// qualifies under the strategy. Quarters are scanned in ascending order so
// the strategy's tie rule decides between equal release dates.
func (r *run) zero(ae *assetEvents) *zeroTimeline {
	if z, ok := r.zeros[ae.asset]; ok {
		return z
	}
	strategy := r.loader.strategy
	z := &zeroTimeline{
		quarter:   make([]entities.NormalizedQuarter, len(r.dates)),
		eventDate: make([]time.Time, len(r.dates)),
		known:     make([]bool, len(r.dates)),
	}
	evdates := make([][]time.Time, len(ae.quarters))
	for qi, g := range ae.quarters {
		evdates[qi] = r.eventDates(ae, g)
	}
	for i, date := range r.dates {
		var best time.Time
		for qi, g := range ae.quarters {
			ev := evdates[qi][i]
			if ev.IsZero() || !strategy.qualifies(ev, date) {
				continue
			}
			if !z.known[i] || strategy.better(ev, best) {
				z.known[i] = true
				z.quarter[i] = g.quarter
				z.eventDate[i] = ev
				best = ev
			}
		}
	}
	r.zeros[ae.asset] = z
	return z
}

// requestedQuarter shifts the zero quarter by the column's quarter offset.
// An offset of 1 is the zero quarter itself.
func (r *run) requestedQuarter(z *zeroTimeline, i, numQuarters int) (entities.NormalizedQuarter, bool) {
	if !z.known[i] {
		return 0, false
	}
	return z.quarter[i].Shift(r.loader.strategy.shiftSign() * (numQuarters - 1)), true
}

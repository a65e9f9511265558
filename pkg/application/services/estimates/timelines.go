package estimates

import (
	"math"
	"sort"
	"time"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// quarterGroup holds every revision an asset has for one fiscal quarter,
// sorted by knowledge timestamp ascending with ingestion order preserved on
// ties, so the last qualifying revision wins.
type quarterGroup struct {
	quarter entities.NormalizedQuarter
	events  []entities.EstimateEvent
}

// assetEvents indexes one asset's revisions by fiscal quarter.
type assetEvents struct {
	asset     entities.AssetID
	quarters  []*quarterGroup // ascending by quarter
	byQuarter map[entities.NormalizedQuarter]*quarterGroup
}

// groupEvents builds the per-asset, per-quarter index over the filtered
// event rows. Input order is preserved within each group.
func groupEvents(events []entities.EstimateEvent) map[entities.AssetID]*assetEvents {
	grouped := make(map[entities.AssetID]*assetEvents)
	for _, ev := range events {
		ae := grouped[ev.Asset]
		if ae == nil {
			ae = &assetEvents{
				asset:     ev.Asset,
				byQuarter: make(map[entities.NormalizedQuarter]*quarterGroup),
			}
			grouped[ev.Asset] = ae
		}
		nq := ev.NormalizedQuarter()
		g := ae.byQuarter[nq]
		if g == nil {
			g = &quarterGroup{quarter: nq}
			ae.byQuarter[nq] = g
			ae.quarters = append(ae.quarters, g)
		}
		g.events = append(g.events, ev)
	}
	for _, ae := range grouped {
		sort.Slice(ae.quarters, func(i, j int) bool {
			return ae.quarters[i].quarter < ae.quarters[j].quarter
		})
		for _, g := range ae.quarters {
			sort.SliceStable(g.events, func(i, j int) bool {
				return g.events[i].Knowledge.Before(g.events[j].Knowledge)
			})
		}
	}
	return grouped
}

// eventDateSeries resolves the quarter's release date as known at each grid
// date: the event date carried by the latest revision whose knowledge
// timestamp is at or before the date. The zero time marks rows before the
// quarter is known at all.
func (g *quarterGroup) eventDateSeries(dates []time.Time) []time.Time {
	out := make([]time.Time, len(dates))
	var current time.Time
	next := 0
	for i, date := range dates {
		for next < len(g.events) && !g.events[next].Knowledge.After(date) {
			current = g.events[next].EventDate
			next++
		}
		out[i] = current
	}
	return out
}

// metricSeries is the forward-filled point-in-time timeline of one metric
// for one (asset, quarter) group. Exactly one of floats/times is populated.
// NaN and the zero time mark rows with no known value.
type metricSeries struct {
	ctype  entities.ColumnType
	floats []float64
	times  []time.Time
}

// metricSeries resolves the group's timeline for one table column. A
// revision whose cell is missing does not clear the previously known value;
// the fill is per metric.
func (g *quarterGroup) metricSeries(dates []time.Time, column string, ctype entities.ColumnType) *metricSeries {
	s := &metricSeries{ctype: ctype}
	if ctype == entities.DatetimeColumn {
		s.times = make([]time.Time, len(dates))
		var current time.Time
		next := 0
		for i, date := range dates {
			for next < len(g.events) && !g.events[next].Knowledge.After(date) {
				if v, ok := g.events[next].Values[column]; ok && !v.IsMissing() {
					current = v.Time
				}
				next++
			}
			s.times[i] = current
		}
		return s
	}
	s.floats = make([]float64, len(dates))
	current := math.NaN()
	next := 0
	for i, date := range dates {
		for next < len(g.events) && !g.events[next].Knowledge.After(date) {
			if v, ok := g.events[next].Values[column]; ok && !v.IsMissing() {
				current = v.Float
			}
			next++
		}
		s.floats[i] = current
	}
	return s
}

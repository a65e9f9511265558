package dto

import (
	"sort"
	"time"

	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// Overwrite is a rectangular replacement over the historical rows of an
// adjusted column. Row and column bounds are inclusive; the value slice
// covers rows FirstRow..LastRow in order. Exactly one of Floats/Times is
// populated, matching the column's type.
type Overwrite struct {
	FirstRow int
	LastRow  int
	FirstCol int
	LastCol  int
	Floats   []float64
	Times    []time.Time
}

// AdjustedColumn is the output contract for one requested metric column: a
// dense base matrix in the metric's native representation plus overwrite
// patches keyed by the crossover row at which each takes effect. The
// downstream array consumer applies patches lazily, in ascending key order,
// as the simulation advances; later patches override earlier ones on
// overlapping cells.
//
// Missing cells hold NaN in Floats and the zero time in Times.
type AdjustedColumn struct {
	Name   string
	Type   entities.ColumnType
	Dates  []time.Time
	Assets []entities.AssetID

	// Floats is dates x assets when Type is Float64Column; Times likewise
	// for DatetimeColumn. The unused matrix is nil.
	Floats [][]float64
	Times  [][]time.Time

	// Mask is the caller-supplied validity matrix, passed through unaltered.
	Mask [][]bool

	Adjustments map[int][]Overwrite
}

// AdjustmentRows returns the patch keys in ascending order, the order in
// which the consumer must apply them.
func (c *AdjustedColumn) AdjustmentRows() []int {
	rows := make([]int, 0, len(c.Adjustments))
	for row := range c.Adjustments {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// NumAdjustments returns the total overwrite count across all keys.
func (c *AdjustedColumn) NumAdjustments() int {
	n := 0
	for _, ovs := range c.Adjustments {
		n += len(ovs)
	}
	return n
}

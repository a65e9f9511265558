package estimates

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mbeaufort/estalign/pkg/application/dto"
	"github.com/mbeaufort/estalign/pkg/domain/entities"
)

// Loader aligns a table of revisable quarterly estimates to a simulation
// calendar without look-ahead. It is built once over an immutable estimate
// table and serves any number of batch invocations; all intermediate state
// is owned by the individual call.
type Loader struct {
	strategy Strategy
	table    *entities.EstimateTable
	nameMap  map[string]string
	byAsset  map[entities.AssetID]*assetEvents
}

// NewNextQuartersLoader builds a loader whose zero quarter is the next
// release at or after each simulation date. nameMap resolves internal
// column identifiers to estimate table columns.
func NewNextQuartersLoader(table *entities.EstimateTable, nameMap map[string]string) (*Loader, error) {
	return newLoader(NextQuarters, table, nameMap)
}

// NewPreviousQuartersLoader builds a loader whose zero quarter is the last
// release at or before each simulation date.
func NewPreviousQuartersLoader(table *entities.EstimateTable, nameMap map[string]string) (*Loader, error) {
	return newLoader(PreviousQuarters, table, nameMap)
}

func newLoader(strategy Strategy, table *entities.EstimateTable, nameMap map[string]string) (*Loader, error) {
	if table == nil {
		return nil, fmt.Errorf("estimate table is required")
	}
	required := requiredColumns(nameMap)
	if missing := table.MissingColumns(required); len(missing) > 0 {
		return nil, &entities.SchemaError{
			Missing:  missing,
			Expected: required,
			Received: table.ColumnNames(),
		}
	}

	// Rows lacking an event date or fiscal period cannot be aligned; drop
	// them here rather than erroring, preserving input order for the rest.
	events := make([]entities.EstimateEvent, 0, len(table.Events))
	for _, ev := range table.Events {
		if ev.Complete() {
			events = append(events, ev)
		}
	}

	return &Loader{
		strategy: strategy,
		table:    table,
		nameMap:  nameMap,
		byAsset:  groupEvents(events),
	}, nil
}

// requiredColumns lists the table columns the name mapping points at,
// sorted and deduplicated.
func requiredColumns(nameMap map[string]string) []string {
	seen := make(map[string]bool, len(nameMap))
	var required []string
	for _, source := range nameMap {
		if !seen[source] {
			seen[source] = true
			required = append(required, source)
		}
	}
	sort.Strings(required)
	return required
}

// Strategy returns the loader's selection strategy.
func (l *Loader) Strategy() Strategy {
	return l.strategy
}

// LoadAdjustedArray computes, for every requested column, the value of its
// metric for the quarter NumQuarters ahead of (Next) or behind (Previous)
// the zero quarter at each simulation date, packaged as a dense base matrix
// plus crossover-keyed overwrite patches. dates is the strictly increasing
// simulation grid; assets fixes the output column order; mask is passed
// through to each output column unaltered.
//
// All validation failures surface before any column is assembled.
func (l *Loader) LoadAdjustedArray(
	ctx context.Context,
	columns []entities.ColumnSpec,
	dates []time.Time,
	assets []entities.AssetID,
	mask [][]bool,
) (map[string]*dto.AdjustedColumn, error) {
	groups, err := l.groupByQuarterOffset(columns)
	if err != nil {
		return nil, err
	}

	r := newRun(l, dates)
	out := make(map[string]*dto.AdjustedColumn, len(columns))
	for _, numQuarters := range sortedOffsets(groups) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, col := range groups[numQuarters] {
			out[col.Name] = r.assembleColumn(col, l.nameMap[col.Name], numQuarters, assets, mask)
		}
	}
	return out, nil
}

// groupByQuarterOffset validates every column descriptor and buckets the
// columns by their quarter offset. Columns sharing an offset share the zero
// and requested quarter resolution.
func (l *Loader) groupByQuarterOffset(columns []entities.ColumnSpec) (map[int][]entities.ColumnSpec, error) {
	groups := make(map[int][]entities.ColumnSpec)
	for _, col := range columns {
		if !col.HasNumQuarters() {
			return nil, &entities.ConfigurationError{
				Column: col.Name,
				Reason: "column descriptor has no num_quarters attribute; every requested column must declare its quarter offset",
			}
		}
		groups[*col.NumQuarters] = append(groups[*col.NumQuarters], col)
	}
	for numQuarters, cols := range groups {
		if numQuarters < 0 {
			return nil, &entities.ValidationError{
				Column: cols[0].Name,
				Reason: fmt.Sprintf("num_quarters must be >= 0, got %d", numQuarters),
			}
		}
	}
	for _, col := range columns {
		source, ok := l.nameMap[col.Name]
		if !ok {
			return nil, &entities.ConfigurationError{
				Column: col.Name,
				Reason: "no entry in the loader's column name mapping",
			}
		}
		if ctype, ok := l.table.Schema[source]; ok && ctype != col.Type {
			return nil, &entities.ValidationError{
				Column: col.Name,
				Reason: fmt.Sprintf("declared type %s does not match table column %q of type %s", col.Type, source, ctype),
			}
		}
	}
	return groups, nil
}

func sortedOffsets(groups map[int][]entities.ColumnSpec) []int {
	offsets := make([]int, 0, len(groups))
	for numQuarters := range groups {
		offsets = append(offsets, numQuarters)
	}
	sort.Ints(offsets)
	return offsets
}

package entities

import (
	"math"
	"sort"
	"time"
)

// AssetID identifies a tracked asset (security) in the estimate table and in
// the output column order.
type AssetID int64

// ColumnType is the native representation of a metric column.
type ColumnType int

const (
	Float64Column ColumnType = iota
	DatetimeColumn
)

// String method for ColumnType enum
func (c ColumnType) String() string {
	switch c {
	case Float64Column:
		return "float64"
	case DatetimeColumn:
		return "datetime"
	default:
		return "Unknown"
	}
}

// MissingValue returns the typed missing marker for the column type: NaN for
// numeric columns, the zero time for datetime columns.
func (c ColumnType) MissingValue() MetricValue {
	if c == DatetimeColumn {
		return MetricValue{Type: DatetimeColumn}
	}
	return MetricValue{Type: Float64Column, Float: math.NaN()}
}

// MetricValue is one metric cell of an estimate revision. The zero value of
// the carried representation (NaN, zero time) marks a missing cell.
type MetricValue struct {
	Type  ColumnType
	Float float64
	Time  time.Time
}

// FloatValue wraps a numeric metric cell.
func FloatValue(v float64) MetricValue {
	return MetricValue{Type: Float64Column, Float: v}
}

// TimeValue wraps a datetime metric cell.
func TimeValue(t time.Time) MetricValue {
	return MetricValue{Type: DatetimeColumn, Time: t}
}

// IsMissing reports whether the cell carries no value.
func (v MetricValue) IsMissing() bool {
	if v.Type == DatetimeColumn {
		return v.Time.IsZero()
	}
	return math.IsNaN(v.Float)
}

// EstimateEvent is one revision of one asset's estimate for one fiscal
// quarter. Knowledge is the point-in-time timestamp at which this revision
// became observable; EventDate is the (expected or actual) release date of
// the underlying report.
type EstimateEvent struct {
	Asset         AssetID
	EventDate     time.Time
	Knowledge     time.Time
	FiscalYear    int
	FiscalQuarter int
	Values        map[string]MetricValue
}

// NormalizedQuarter returns the encoded fiscal period of this revision.
func (e EstimateEvent) NormalizedQuarter() NormalizedQuarter {
	return NormalizeQuarter(e.FiscalYear, e.FiscalQuarter)
}

// Complete reports whether the row carries the fields required for
// alignment. Rows that are not complete are dropped at loader construction
// rather than rejected.
func (e EstimateEvent) Complete() bool {
	return !e.EventDate.IsZero() && e.FiscalYear != 0 && e.FiscalQuarter != 0
}

// EstimateTable is the validated, immutable estimate input: one row per
// revision plus a schema describing the metric columns present.
type EstimateTable struct {
	// Schema maps a metric column name to its native type.
	Schema map[string]ColumnType
	// Events holds the revisions in ingestion order. Order matters: ties on
	// the knowledge timestamp are broken by taking the later row.
	Events []EstimateEvent
}

// MissingColumns returns the required metric column names absent from the
// table schema, sorted for stable error reporting.
func (t *EstimateTable) MissingColumns(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := t.Schema[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// ColumnNames returns the schema's column names, sorted.
func (t *EstimateTable) ColumnNames() []string {
	names := make([]string, 0, len(t.Schema))
	for name := range t.Schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

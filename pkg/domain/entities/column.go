package entities

// ColumnSpec describes one requested output column. Name is the internal
// metric identifier; the loader's name mapping resolves it to an estimate
// table column. NumQuarters is the quarter offset relative to the zero
// quarter (1 = the next/previous release itself); it is deliberately a
// pointer so that a descriptor that never set the attribute is
// distinguishable from an explicit zero.
type ColumnSpec struct {
	Name        string
	Type        ColumnType
	NumQuarters *int
}

// HasNumQuarters reports whether the quarter-offset attribute was supplied.
func (c ColumnSpec) HasNumQuarters() bool {
	return c.NumQuarters != nil
}

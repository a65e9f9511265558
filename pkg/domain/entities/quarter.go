package entities

// NormalizedQuarter is a single integer encoding of a (fiscal year, fiscal
// quarter) pair. The encoding is monotonic in (year, quarter) lexicographic
// order, so quarter arithmetic reduces to integer addition.
type NormalizedQuarter int64

// NormalizeQuarter encodes a fiscal year and quarter (1-4) into a
// NormalizedQuarter.
func NormalizeQuarter(year, quarter int) NormalizedQuarter {
	return NormalizedQuarter(int64(year)*4 + int64(quarter) - 1)
}

// Split decodes a NormalizedQuarter back into its fiscal year and quarter.
func (n NormalizedQuarter) Split() (year, quarter int) {
	return int(int64(n) / 4), int(int64(n)%4) + 1
}

// Shift returns the quarter numQuarters later (negative for earlier).
func (n NormalizedQuarter) Shift(numQuarters int) NormalizedQuarter {
	return n + NormalizedQuarter(numQuarters)
}

package domain

// Bit offsets between neighbouring cells along each line: vertical,
// horizontal and the two diagonals. The order is fixed.
var directions = [4]uint{1, ColumnStride, ColumnStride - 1, ColumnStride + 1}

// DidWin reports whether mask contains four in a row in any direction.
//
// pair is set at every cell that starts a run of two; pair & (pair >> 2d)
// is set where two such runs chain into four. The sentinel bit per column
// keeps runs from wrapping from one column into the next.
func DidWin(mask uint64) bool {
	for _, d := range directions {
		pair := mask & (mask >> d)
		if pair&(pair>>(2*d)) != 0 {
			return true
		}
	}
	return false
}

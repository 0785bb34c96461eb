package domain

import "math/bits"

// TopMask has one bit set per column, at the sentinel row just above the
// playable area (bits 6, 13, 20, 27, 34, 41, 48).
const TopMask uint64 = 283691315109952

// Board is the bit-packed position. Cells are laid out column-major, seven
// bits per column with the top bit of every column unused:
//
//	 6 13 20 27 34 41 48
//	 5 12 19 26 33 40 47
//	 4 11 18 25 32 39 46
//	 3 10 17 24 31 38 45
//	 2  9 16 23 30 37 44
//	 1  8 15 22 29 36 43
//	 0  7 14 21 28 35 42
//
// Heights holds, per column, the bit index of the next free cell.
type Board struct {
	Stones  [2]uint64
	Heights [Columns]uint8
}

func NewBoard() Board {
	var b Board
	for c := 0; c < Columns; c++ {
		b.Heights[c] = columnBase(c)
	}
	return b
}

func columnBase(column int) uint8 {
	return uint8(ColumnStride * column)
}

func IsValidColumn(column int) bool {
	return column >= 0 && column < Columns
}

// CanPlay reports whether column still has a free playable cell.
func (b *Board) CanPlay(column int) bool {
	if !IsValidColumn(column) {
		return false
	}
	return b.Heights[column] < columnBase(column)+Rows
}

// Drop places a stone for side in column and returns the bit index it landed
// on. Capacity is checked before anything is written, so a rejected drop
// leaves the board untouched.
func (b *Board) Drop(side Side, column int) (int, error) {
	if !IsValidColumn(column) {
		return -1, ErrInvalidColumn
	}
	if !b.CanPlay(column) {
		return -1, ErrInvalidMove
	}

	bit := int(b.Heights[column])
	b.Stones[side] |= uint64(1) << bit
	b.Heights[column]++
	return bit, nil
}

// Overflows reports whether side has a stone on the sentinel row. Drop never
// lets this happen; it is used to reject corrupt boards loaded from storage.
func (b *Board) Overflows(side Side) bool {
	return b.Stones[side]&TopMask != 0
}

// StoneCount is the number of stones on the board, both sides included.
func (b *Board) StoneCount() int {
	return bits.OnesCount64(b.Stones[0]) + bits.OnesCount64(b.Stones[1])
}

// ColumnCount returns how many stones sit in column.
func (b *Board) ColumnCount(column int) int {
	return int(b.Heights[column] - columnBase(column))
}

// IsFull reports whether no column can take another stone.
func (b *Board) IsFull() bool {
	for c := 0; c < Columns; c++ {
		if b.CanPlay(c) {
			return false
		}
	}
	return true
}

// Cell returns the occupant of (row, column), row 0 being the bottom row.
// The second return is false for an empty cell.
func (b *Board) Cell(row, column int) (Side, bool) {
	bit := uint64(1) << (ColumnStride*column + row)
	switch {
	case b.Stones[First]&bit != 0:
		return First, true
	case b.Stones[Second]&bit != 0:
		return Second, true
	}
	return First, false
}

// Grid renders the board for clients: row 0 is the top row, 0 marks an empty
// cell, 1 and 2 the first and second player.
func (b *Board) Grid() [][]int {
	grid := make([][]int, Rows)
	for r := 0; r < Rows; r++ {
		grid[r] = make([]int, Columns)
		for c := 0; c < Columns; c++ {
			if side, ok := b.Cell(Rows-1-r, c); ok {
				grid[r][c] = int(side) + 1
			}
		}
	}
	return grid
}

// Validate checks the structural invariants of a board that claims to hold
// moves stones. Boards restored from storage go through this.
func (b *Board) Validate(moves int) error {
	if b.Stones[First]&b.Stones[Second] != 0 {
		return Error("board has a doubly occupied cell")
	}
	if b.Overflows(First) || b.Overflows(Second) {
		return Error("board has a stone on the sentinel row")
	}
	if b.StoneCount() != moves {
		return Error("board stone count does not match move count")
	}

	occupied := b.Stones[First] | b.Stones[Second]
	for c := 0; c < Columns; c++ {
		base := columnBase(c)
		h := b.Heights[c]
		if h < base || h > base+Rows {
			return Error("column height out of range")
		}
		// the column must be exactly the run [base, h)
		col := (occupied >> base) & (1<<Rows - 1)
		want := uint64(1)<<(h-base) - 1
		if col != want {
			return Error("column is not contiguous from its base")
		}
	}
	return nil
}

// Package features maps chess positions to the sparse input features of
// the network's first layer, and describes how a move changes them so the
// accumulator can be updated incrementally.
package features

import "github.com/mlomb/limbobot/internal/board"

// Axis is a direction along which piece positions are indexed.
type Axis uint8

const (
	// Horizontal indexes across files (left-right)
	Horizontal Axis = iota
	// Vertical indexes across ranks (bottom-top)
	Vertical
	// Diagonal1 indexes forward diagonals (/)
	Diagonal1
	// Diagonal2 indexes backward diagonals (\)
	Diagonal2
)

// Size returns the number of indexable steps of the axis.
func (a Axis) Size() uint16 {
	switch a {
	case Horizontal, Vertical:
		return 8
	default:
		return 15
	}
}

// Index returns the position of the square along the axis.
func (a Axis) Index(sq board.Square) uint16 {
	file := uint16(sq.File())
	rank := uint16(sq.Rank())

	switch a {
	case Horizontal:
		return file
	case Vertical:
		return rank
	case Diagonal1:
		return file + rank
	default: // Diagonal2
		return file + 7 - rank
	}
}

// Line returns the bitboard of squares sharing the given axis index.
// Only defined for Horizontal and Vertical (used by the pairwise blocks).
func (a Axis) Line(index uint16) board.Bitboard {
	if a == Horizontal {
		return board.FileMask[index]
	}
	return board.RankMask[index]
}

// correctSquare flips the square vertically for the black perspective so
// the perspective side always occupies the lower ranks.
func correctSquare(sq board.Square, perspective board.Color) board.Square {
	if perspective == board.Black {
		return sq.Mirror()
	}
	return sq
}

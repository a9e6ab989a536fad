package features

import "github.com/mlomb/limbobot/internal/board"

// The pairwise blocks index pairs of adjacent occupied pieces along a
// file (Horizontal) or rank (Vertical). Adjacency is by board order on
// the line, ignoring gaps. Indices use absolute piece colors in a frame
// that is flipped for the black perspective, so both perspectives agree
// on mirrored positions.

// flipPosition returns a piece-only copy of pos flipped vertically with
// colors swapped. Hash and game state are not maintained; the copy serves
// feature computation only.
func flipPosition(pos *board.Position) board.Position {
	var flipped board.Position
	flipped.KingSquare[board.White] = board.NoSquare
	flipped.KingSquare[board.Black] = board.NoSquare
	pos.ForEachPiece(func(sq board.Square, piece board.Piece) {
		flipped.Put(board.NewPiece(piece.Type(), piece.Color().Other()), sq.Mirror())
	})
	return flipped
}

// pairFeature computes the index of an ordered pair of pieces on a line.
func pairFeature(axisIndex uint16, role1 board.PieceType, color1 board.Color, role2 board.PieceType, color2 board.Color) uint16 {
	return axisIndex*(12*12) +
		uint16(role1)*(2*12) + uint16(color1)*12 +
		uint16(role2)*2 + uint16(color2)
}

func (b Block) pairwiseActive(pos *board.Position, perspective board.Color, feats *[]uint16, base uint16) {
	frame := *pos
	if perspective == board.Black {
		frame = flipPosition(pos)
	}

	for index := uint16(0); index < b.axis.Size(); index++ {
		line := frame.AllOccupied & b.axis.Line(index)

		prevSq := board.NoSquare
		var prevPiece board.Piece
		for line != 0 {
			sq := line.PopLSB()
			piece := frame.PieceAt(sq)
			if prevSq != board.NoSquare {
				*feats = append(*feats, base+pairFeature(index,
					prevPiece.Type(), prevPiece.Color(),
					piece.Type(), piece.Color()))
			}
			prevSq, prevPiece = sq, piece
		}
	}
}

// lineNeighbors finds the nearest occupied squares below and above sq on
// its axis line. sq itself is skipped, so the same walk serves both the
// add case (sq empty) and the remove case (sq occupied).
func (b Block) lineNeighbors(frame *board.Position, sq board.Square) (left, right board.Piece, hasLeft, hasRight bool) {
	index := b.axis.Index(sq)
	line := frame.AllOccupied & b.axis.Line(index)

	for line != 0 {
		cur := line.PopLSB()
		if cur < sq {
			left, hasLeft = frame.PieceAt(cur), true
		} else if cur > sq {
			right, hasRight = frame.PieceAt(cur), true
			break
		}
	}
	return
}

func (b Block) pairwiseOnAdd(pos *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color, add, rem *[]uint16, base uint16) {
	frame := *pos
	if perspective == board.Black {
		frame = flipPosition(pos)
		sq = sq.Mirror()
		color = color.Other()
	}

	index := b.axis.Index(sq)
	left, right, hasLeft, hasRight := b.lineNeighbors(&frame, sq)

	// the pair that the new piece splits
	if hasLeft && hasRight {
		*rem = append(*rem, base+pairFeature(index, left.Type(), left.Color(), right.Type(), right.Color()))
	}
	if hasLeft {
		*add = append(*add, base+pairFeature(index, left.Type(), left.Color(), role, color))
	}
	if hasRight {
		*add = append(*add, base+pairFeature(index, role, color, right.Type(), right.Color()))
	}
}

func (b Block) pairwiseOnRemove(pos *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color, add, rem *[]uint16, base uint16) {
	frame := *pos
	if perspective == board.Black {
		frame = flipPosition(pos)
		sq = sq.Mirror()
		color = color.Other()
	}

	index := b.axis.Index(sq)
	left, right, hasLeft, hasRight := b.lineNeighbors(&frame, sq)

	if hasLeft {
		*rem = append(*rem, base+pairFeature(index, left.Type(), left.Color(), role, color))
	}
	if hasRight {
		*rem = append(*rem, base+pairFeature(index, role, color, right.Type(), right.Color()))
	}
	// the neighbors join once the piece is gone
	if hasLeft && hasRight {
		*add = append(*add, base+pairFeature(index, left.Type(), left.Color(), right.Type(), right.Color()))
	}
}

package features

import "github.com/mlomb/limbobot/internal/board"

// blockKind tags the closed set of feature block variants. Dispatch is a
// switch on the tag rather than an interface: the set is closed and the
// per-move paths are hot.
type blockKind uint8

const (
	kindAxes blockKind = iota
	kindAxesProduct
	kindPairwise
	kindMobility
	kindKingRelative
)

// Block is one feature block of a composed feature set.
type Block struct {
	kind  blockKind
	axis  Axis // kindAxes, kindAxesProduct (first), kindPairwise
	axis2 Axis // kindAxesProduct (second)
}

// AxesBlock indexes each piece by its position along a single axis.
func AxesBlock(a Axis) Block {
	return Block{kind: kindAxes, axis: a}
}

// AxesProductBlock indexes each piece by its position along two axes.
func AxesProductBlock(first, second Axis) Block {
	return Block{kind: kindAxesProduct, axis: first, axis2: second}
}

// PairwiseBlock indexes pairs of adjacent occupied pieces along an axis.
func PairwiseBlock(a Axis) Block {
	return Block{kind: kindPairwise, axis: a}
}

// MobilityBlock indexes the squares each piece attacks and can move to.
func MobilityBlock() Block {
	return Block{kind: kindMobility}
}

// KingRelativeBlock indexes each piece by its square relative to the
// perspective's own king. Moving that king forces a full refresh.
func KingRelativeBlock() Block {
	return Block{kind: kindKingRelative}
}

// Size returns the number of features the block spans.
func (b Block) Size() uint16 {
	switch b.kind {
	case kindAxes:
		return b.axis.Size() * 12
	case kindAxesProduct:
		return b.axis.Size() * b.axis2.Size() * 12
	case kindPairwise:
		return b.axis.Size() * 12 * 12
	case kindMobility:
		return 64 * 12
	default: // kindKingRelative
		return 15 * 15 * 12
	}
}

// requiresRefresh reports whether the block cannot express the move as a
// feature delta for the given perspective.
func (b Block) requiresRefresh(pos *board.Position, m board.Move, perspective board.Color) bool {
	if b.kind != kindKingRelative {
		return false
	}
	// Everything is indexed relative to the perspective's own king; once
	// it moves, all features change.
	return pos.SideToMove == perspective && pos.PieceAt(m.From()).Type() == board.King
}

// pieceIndex combines role and perspective-relative color into 0..11.
func pieceIndex(role board.PieceType, color, perspective board.Color) uint16 {
	rel := uint16(0)
	if color != perspective {
		rel = 1
	}
	return uint16(role)*2 + rel
}

// activeFeatures appends the block's active feature indices, offset by base.
func (b Block) activeFeatures(pos *board.Position, perspective board.Color, feats *[]uint16, base uint16) {
	switch b.kind {
	case kindAxes, kindAxesProduct, kindKingRelative:
		pos.ForEachPiece(func(sq board.Square, piece board.Piece) {
			*feats = append(*feats, base+b.pieceFeature(pos, sq, piece.Type(), piece.Color(), perspective))
		})
	case kindPairwise:
		b.pairwiseActive(pos, perspective, feats, base)
	case kindMobility:
		mobilityActive(pos, perspective, feats, base)
	}
}

// featuresOnAdd appends the feature changes caused by placing a piece on
// an empty square of pos. pos must not yet contain the piece.
func (b Block) featuresOnAdd(pos *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color, add, rem *[]uint16, base uint16) {
	switch b.kind {
	case kindAxes, kindAxesProduct, kindKingRelative:
		*add = append(*add, base+b.pieceFeature(pos, sq, role, color, perspective))
	case kindPairwise:
		b.pairwiseOnAdd(pos, sq, role, color, perspective, add, rem, base)
	case kindMobility:
		mobilityOnAdd(pos, sq, role, color, perspective, add, rem, base)
	}
}

// featuresOnRemove appends the feature changes caused by lifting the piece
// on sq off the board. pos must still contain the piece.
func (b Block) featuresOnRemove(pos *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color, add, rem *[]uint16, base uint16) {
	switch b.kind {
	case kindAxes, kindAxesProduct, kindKingRelative:
		*rem = append(*rem, base+b.pieceFeature(pos, sq, role, color, perspective))
	case kindPairwise:
		b.pairwiseOnRemove(pos, sq, role, color, perspective, add, rem, base)
	case kindMobility:
		mobilityOnRemove(pos, sq, role, color, perspective, add, rem, base)
	}
}

// pieceFeature computes the single feature index of a piece for the
// piece-independent block kinds (axes, axes product, king-relative).
func (b Block) pieceFeature(pos *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color) uint16 {
	switch b.kind {
	case kindAxes:
		index := b.axis.Index(correctSquare(sq, perspective))
		return index*12 + pieceIndex(role, color, perspective)
	case kindAxesProduct:
		csq := correctSquare(sq, perspective)
		index := b.axis.Index(csq)*b.axis2.Size() + b.axis2.Index(csq)
		return index*12 + pieceIndex(role, color, perspective)
	default: // kindKingRelative
		ksq := correctSquare(pos.KingSquare[perspective], perspective)
		psq := correctSquare(sq, perspective)
		relFile := ksq.File() - psq.File() + 7
		relRank := ksq.Rank() - psq.Rank() + 7
		index := uint16(relFile*15 + relRank)
		return index*12 + pieceIndex(role, color, perspective)
	}
}

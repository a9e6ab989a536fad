package features

import "github.com/mlomb/limbobot/internal/board"

// The mobility block indexes, for each piece, the squares it attacks and
// could move to: empty squares plus squares holding enemy pieces. Feature
// index is (target square from the perspective) x (role, relative color)
// of the attacking piece.

// pieceAttacks returns the attack set of a piece on sq given occupancy.
func pieceAttacks(role board.PieceType, color board.Color, sq board.Square, occ board.Bitboard) board.Bitboard {
	switch role {
	case board.Pawn:
		return board.PawnAttacks(sq, color)
	case board.Knight:
		return board.KnightAttacks(sq)
	case board.Bishop:
		return board.BishopAttacks(sq, occ)
	case board.Rook:
		return board.RookAttacks(sq, occ)
	case board.Queen:
		return board.QueenAttacks(sq, occ)
	default:
		return board.KingAttacks(sq)
	}
}

func mobilityFeature(to board.Square, role board.PieceType, color, perspective board.Color) uint16 {
	return uint16(correctSquare(to, perspective))*12 + pieceIndex(role, color, perspective)
}

func mobilityActive(pos *board.Position, perspective board.Color, feats *[]uint16, base uint16) {
	occ := pos.AllOccupied

	pos.ForEachPiece(func(sq board.Square, piece board.Piece) {
		role := piece.Type()
		color := piece.Color()
		accessible := ^occ | pos.Occupied[color.Other()]

		targets := pieceAttacks(role, color, sq, occ) & accessible
		for targets != 0 {
			to := targets.PopLSB()
			*feats = append(*feats, base+mobilityFeature(to, role, color, perspective))
		}
	})
}

// mobilityOnAdd emits the mobility changes caused by placing a piece on an
// empty square: blocked or opened lines of every other piece, plus the new
// piece's own mobility. pos must not yet contain the piece.
func mobilityOnAdd(pos *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color, add, rem *[]uint16, base uint16) {
	sqBB := board.SquareBB(sq)
	occPrev := pos.AllOccupied
	occNext := occPrev | sqBB

	var accessPrev, accessNext [2]board.Bitboard
	for c := board.White; c <= board.Black; c++ {
		accessPrev[c] = ^occPrev | pos.Occupied[c]
		accessNext[c] = ^occNext | pos.Occupied[c]
	}
	// the new piece can be captured by the other side
	accessNext[color] |= sqBB

	pos.ForEachPiece(func(psq board.Square, piece board.Piece) {
		prole := piece.Type()
		pcolor := piece.Color()

		mobPrev := pieceAttacks(prole, pcolor, psq, occPrev) & accessPrev[pcolor.Other()]
		mobNext := pieceAttacks(prole, pcolor, psq, occNext) & accessNext[pcolor.Other()]

		changed := mobPrev ^ mobNext
		for changed != 0 {
			to := changed.PopLSB()
			feature := base + mobilityFeature(to, prole, pcolor, perspective)
			if mobNext.IsSet(to) {
				*add = append(*add, feature)
			} else {
				*rem = append(*rem, feature)
			}
		}
	})

	// the new piece's own mobility
	own := pieceAttacks(role, color, sq, occNext) & accessNext[color.Other()]
	for own != 0 {
		to := own.PopLSB()
		*add = append(*add, base+mobilityFeature(to, role, color, perspective))
	}
}

// mobilityOnRemove emits the mobility changes caused by lifting the piece
// on sq off the board. pos must still contain the piece.
func mobilityOnRemove(pos *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color, add, rem *[]uint16, base uint16) {
	sqBB := board.SquareBB(sq)
	occPrev := pos.AllOccupied
	occNext := occPrev &^ sqBB

	var accessPrev, accessNext [2]board.Bitboard
	for c := board.White; c <= board.Black; c++ {
		accessPrev[c] = ^occPrev | pos.Occupied[c]
		// the vacated square is reachable by everyone via ^occNext
		accessNext[c] = ^occNext | (pos.Occupied[c] &^ sqBB)
	}

	pos.ForEachPiece(func(psq board.Square, piece board.Piece) {
		if psq == sq {
			return
		}
		prole := piece.Type()
		pcolor := piece.Color()

		mobPrev := pieceAttacks(prole, pcolor, psq, occPrev) & accessPrev[pcolor.Other()]
		mobNext := pieceAttacks(prole, pcolor, psq, occNext) & accessNext[pcolor.Other()]

		changed := mobPrev ^ mobNext
		for changed != 0 {
			to := changed.PopLSB()
			feature := base + mobilityFeature(to, prole, pcolor, perspective)
			if mobNext.IsSet(to) {
				*add = append(*add, feature)
			} else {
				*rem = append(*rem, feature)
			}
		}
	})

	// the removed piece's own mobility disappears
	own := pieceAttacks(role, color, sq, occPrev) & accessPrev[color.Other()]
	for own != 0 {
		to := own.PopLSB()
		*rem = append(*rem, base+mobilityFeature(to, role, color, perspective))
	}
}

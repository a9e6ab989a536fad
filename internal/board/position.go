package board

import "fmt"

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	if c == White {
		if kingSide {
			return cr&WhiteKingSideCastle != 0
		}
		return cr&WhiteQueenSideCastle != 0
	}
	if kingSide {
		return cr&BlackKingSideCastle != 0
	}
	return cr&BlackQueenSideCastle != 0
}

// Position represents a complete chess position.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	// Occupancy bitboards (cached for efficiency)
	Occupied    [2]Bitboard // All pieces of each color
	AllOccupied Bitboard    // All pieces on the board

	// Game state
	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Moves since last pawn move or capture (for 50-move rule)
	FullMoveNumber int    // Full move counter, starts at 1

	// Zobrist hash for transposition and repetition detection.
	// The en-passant file participates only when an en-passant capture is
	// actually legal, so positions differing only by an unusable en-passant
	// square hash equal.
	Hash uint64

	// King positions (cached for check detection)
	KingSquare [2]Square

	// Checkers bitboard (pieces giving check)
	Checkers Bitboard
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)

	if p.AllOccupied&bb == 0 {
		return NoPiece
	}

	var c Color
	if p.Occupied[White]&bb != 0 {
		c = White
	} else {
		c = Black
	}

	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}

	return NoPiece
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// setPiece places a piece on a square (does not update hash).
func (p *Position) setPiece(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb

	if pt == King {
		p.KingSquare[c] = sq
	}
}

// removePiece removes a piece from a square (does not update hash).
func (p *Position) removePiece(sq Square) Piece {
	piece := p.PieceAt(sq)
	if piece == NoPiece {
		return NoPiece
	}

	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb

	return piece
}

// movePiece moves a piece from one square to another (does not update hash).
func (p *Position) movePiece(from, to Square) {
	piece := p.PieceAt(from)
	if piece == NoPiece {
		return
	}

	c := piece.Color()
	pt := piece.Type()
	moveBB := SquareBB(from) | SquareBB(to)

	p.Pieces[c][pt] ^= moveBB
	p.Occupied[c] ^= moveBB
	p.AllOccupied ^= moveBB

	if pt == King {
		p.KingSquare[c] = to
	}
}

// Put places a piece on a square without touching hash or game state.
// Intended for scratch boards used in feature-delta computation.
func (p *Position) Put(piece Piece, sq Square) {
	p.setPiece(piece, sq)
}

// Lift removes and returns the piece on a square without touching hash or
// game state. Intended for scratch boards used in feature-delta computation.
func (p *Position) Lift(sq Square) Piece {
	return p.removePiece(sq)
}

// ForEachPiece calls f for every piece on the board.
func (p *Position) ForEachPiece(f func(sq Square, piece Piece)) {
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				f(sq, NewPiece(pt, c))
			}
		}
	}
}

// FlipVerticalSwapColors returns a copy of the position with the board
// flipped vertically and piece colors swapped. Side to move, castling
// rights and the en-passant square are mirrored accordingly.
func (p *Position) FlipVerticalSwapColors() *Position {
	flipped := &Position{
		SideToMove:     p.SideToMove.Other(),
		HalfMoveClock:  p.HalfMoveClock,
		FullMoveNumber: p.FullMoveNumber,
		EnPassant:      NoSquare,
	}
	flipped.KingSquare[White] = NoSquare
	flipped.KingSquare[Black] = NoSquare

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				flipped.setPiece(NewPiece(pt, c.Other()), sq.Mirror())
			}
		}
	}

	if p.CastlingRights&WhiteKingSideCastle != 0 {
		flipped.CastlingRights |= BlackKingSideCastle
	}
	if p.CastlingRights&WhiteQueenSideCastle != 0 {
		flipped.CastlingRights |= BlackQueenSideCastle
	}
	if p.CastlingRights&BlackKingSideCastle != 0 {
		flipped.CastlingRights |= WhiteKingSideCastle
	}
	if p.CastlingRights&BlackQueenSideCastle != 0 {
		flipped.CastlingRights |= WhiteQueenSideCastle
	}

	if p.EnPassant != NoSquare {
		flipped.EnPassant = p.EnPassant.Mirror()
	}

	flipped.updateOccupied()
	flipped.findKings()
	flipped.UpdateCheckers()
	flipped.Hash = flipped.ComputeHash()

	return flipped
}

// updateOccupied recalculates occupancy bitboards from piece bitboards.
func (p *Position) updateOccupied() {
	p.Occupied[White] = Empty
	p.Occupied[Black] = Empty

	for pt := Pawn; pt <= King; pt++ {
		p.Occupied[White] |= p.Pieces[White][pt]
		p.Occupied[Black] |= p.Pieces[Black][pt]
	}

	p.AllOccupied = p.Occupied[White] | p.Occupied[Black]
}

// findKings locates and caches the king positions.
func (p *Position) findKings() {
	p.KingSquare[White] = p.Pieces[White][King].LSB()
	p.KingSquare[Black] = p.Pieces[Black][King].LSB()
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	s := "\n"
	for rank := 7; rank >= 0; rank-- {
		s += fmt.Sprintf("%d  ", rank+1)
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				s += ". "
			} else {
				s += piece.String() + " "
			}
		}
		s += "\n"
	}
	s += "\n   a b c d e f g h\n\n"
	s += fmt.Sprintf("Side to move: %s\n", p.SideToMove)
	s += fmt.Sprintf("Castling: %s\n", p.CastlingRights)
	s += fmt.Sprintf("En passant: %s\n", p.EnPassant)
	s += fmt.Sprintf("Half-move clock: %d\n", p.HalfMoveClock)
	s += fmt.Sprintf("Full move: %d\n", p.FullMoveNumber)
	s += fmt.Sprintf("Hash: %016x\n", p.Hash)
	return s
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers != 0
}

// legalEnPassant returns true if the side to move has at least one legal
// en-passant capture of the pawn behind epSquare. Decides whether the
// en-passant file enters the zobrist hash.
func (p *Position) legalEnPassant(epSquare Square) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	var capturedSq Square
	if us == White {
		capturedSq = epSquare - 8
	} else {
		capturedSq = epSquare + 8
	}

	// Candidate capturing pawns sit on the squares a pawn of the enemy
	// color would attack epSquare from.
	candidates := PawnAttacks(epSquare, them) & p.Pieces[us][Pawn]

	for candidates != 0 {
		from := candidates.PopLSB()

		// Simulate the capture on occupancy alone and verify our king is
		// not left in check (covers discovered checks along the rank).
		occ := (p.AllOccupied &^ SquareBB(from) &^ SquareBB(capturedSq)) | SquareBB(epSquare)
		attackers := p.AttackersByColor(ksq, them, occ)
		// The captured pawn is gone; its occupancy-independent pawn
		// attack must not count.
		attackers &^= SquareBB(capturedSq)

		if attackers == 0 {
			return true
		}
	}

	return false
}

// NullMoveUndo stores state for unmake of a null move.
type NullMoveUndo struct {
	EnPassant Square
	Hash      uint64
	Checkers  Bitboard
}

// MakeNullMove passes the turn without moving. Used for null move pruning.
// Returns undo info that must be passed to UnmakeNullMove.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{
		EnPassant: p.EnPassant,
		Hash:      p.Hash,
		Checkers:  p.Checkers,
	}

	// Drop en passant from the hash if it was hashed in
	if p.EnPassant != NoSquare && p.legalEnPassant(p.EnPassant) {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove

	p.UpdateCheckers()

	return undo
}

// UnmakeNullMove undoes a null move.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.EnPassant = undo.EnPassant
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
	p.SideToMove = p.SideToMove.Other()
}

// HasNonPawnMaterial returns true if the side to move has non-pawn material.
// Nothing in the repository calls it; the search's null-move step does not
// check material.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	return p.Pieces[us][Knight]|p.Pieces[us][Bishop]|p.Pieces[us][Rook]|p.Pieces[us][Queen] != 0
}

package features

import (
	"fmt"
	"strings"

	"github.com/mlomb/limbobot/internal/board"
)

// FeatureSet is a sum of feature blocks with cumulative offsets. A set is
// identified by a '+'-separated tag ("hv+mb") that is also stored in
// serialized network files.
type FeatureSet struct {
	tag     string
	blocks  []Block
	offsets []uint16
	size    int

	// scratch board for move decomposition, reused across calls
	scratch board.Position
}

// Build constructs a feature set from its tag.
func Build(tag string) (*FeatureSet, error) {
	fs := &FeatureSet{tag: tag}

	for _, name := range strings.Split(tag, "+") {
		var b Block
		switch name {
		case "h":
			b = AxesBlock(Horizontal)
		case "v":
			b = AxesBlock(Vertical)
		case "d1":
			b = AxesBlock(Diagonal1)
		case "d2":
			b = AxesBlock(Diagonal2)
		case "hv":
			b = AxesProductBlock(Horizontal, Vertical)
		case "ph":
			b = PairwiseBlock(Horizontal)
		case "pv":
			b = PairwiseBlock(Vertical)
		case "mb":
			b = MobilityBlock()
		case "k":
			b = KingRelativeBlock()
		default:
			return nil, fmt.Errorf("unknown feature block %q in tag %q", name, tag)
		}

		fs.blocks = append(fs.blocks, b)
		fs.offsets = append(fs.offsets, uint16(fs.size))
		fs.size += int(b.Size())
	}

	return fs, nil
}

// Tag returns the feature set tag.
func (fs *FeatureSet) Tag() string { return fs.tag }

// NumFeatures returns the total feature count across all blocks.
func (fs *FeatureSet) NumFeatures() int { return fs.size }

// RequiresRefresh reports whether the move cannot be expressed as a
// feature delta for the given perspective, in which case the accumulator
// must be rebuilt from the post-move board.
func (fs *FeatureSet) RequiresRefresh(pos *board.Position, m board.Move, perspective board.Color) bool {
	for _, b := range fs.blocks {
		if b.requiresRefresh(pos, m, perspective) {
			return true
		}
	}
	return false
}

// ActiveFeatures appends the indices of all active features of the board
// for the given perspective. The result is a multiset: blocks may emit
// the same index more than once.
func (fs *FeatureSet) ActiveFeatures(pos *board.Position, perspective board.Color, feats *[]uint16) {
	for i, b := range fs.blocks {
		b.activeFeatures(pos, perspective, feats, fs.offsets[i])
	}
}

// ChangedFeatures appends the feature multisets added and removed by
// playing m on pos. pos must be the position BEFORE the move: the
// decomposition lifts and places pieces on a scratch copy step by step so
// occupancy-sensitive blocks see each intermediate state.
func (fs *FeatureSet) ChangedFeatures(pos *board.Position, m board.Move, perspective board.Color, added, removed *[]uint16) {
	s := &fs.scratch
	*s = *pos

	us := pos.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	role := pos.PieceAt(from).Type()

	if m.IsCastling() {
		rank := from.Rank()
		var rookFrom, rookTo board.Square
		if to > from {
			// kingside
			rookFrom, rookTo = board.NewSquare(7, rank), board.NewSquare(5, rank)
		} else {
			// queenside
			rookFrom, rookTo = board.NewSquare(0, rank), board.NewSquare(3, rank)
		}

		fs.onRemove(s, from, board.King, us, perspective, added, removed)
		s.Lift(from)
		fs.onRemove(s, rookFrom, board.Rook, us, perspective, added, removed)
		s.Lift(rookFrom)
		fs.onAdd(s, to, board.King, us, perspective, added, removed)
		s.Put(board.NewPiece(board.King, us), to)
		fs.onAdd(s, rookTo, board.Rook, us, perspective, added, removed)
		s.Put(board.NewPiece(board.Rook, us), rookTo)
		return
	}

	// lift the moving piece
	fs.onRemove(s, from, role, us, perspective, added, removed)
	s.Lift(from)

	// lift the captured piece, if any
	if m.IsEnPassant() {
		var capturedSq board.Square
		if us == board.White {
			capturedSq = to - 8
		} else {
			capturedSq = to + 8
		}
		fs.onRemove(s, capturedSq, board.Pawn, them, perspective, added, removed)
		s.Lift(capturedSq)
	} else if victim := s.PieceAt(to); victim != board.NoPiece {
		fs.onRemove(s, to, victim.Type(), them, perspective, added, removed)
		s.Lift(to)
	}

	// place the moving piece on its destination
	final := role
	if m.IsPromotion() {
		final = m.Promotion()
	}
	fs.onAdd(s, to, final, us, perspective, added, removed)
	s.Put(board.NewPiece(final, us), to)
}

func (fs *FeatureSet) onAdd(s *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color, added, removed *[]uint16) {
	for i, b := range fs.blocks {
		b.featuresOnAdd(s, sq, role, color, perspective, added, removed, fs.offsets[i])
	}
}

func (fs *FeatureSet) onRemove(s *board.Position, sq board.Square, role board.PieceType, color, perspective board.Color, added, removed *[]uint16) {
	for i, b := range fs.blocks {
		b.featuresOnRemove(s, sq, role, color, perspective, added, removed, fs.offsets[i])
	}
}

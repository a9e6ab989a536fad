package features

import (
	"slices"
	"testing"

	"github.com/mlomb/limbobot/internal/board"
)

// Positions with castling rights, en passant, promotions and tactical
// middlegames, used by every property check below.
var testFENs = []string{
	board.StartFEN,
	"4nrk1/3q1pp1/2n1p1p1/8/1P2Q3/7P/PB1N1PP1/2R3K1 w - - 5 26",
	"5r2/1p2ppkp/p2p1nP1/qn6/4P3/2r2B2/1PPQ1PP1/2KR3R w - - 0 21",
	"2r2rk1/p2nqp2/1p1p1p1B/1bp5/3N4/8/PPPK1PPP/R2Q3R b - - 1 17",
	"r2q1b1r/p3kppp/2Q1pn2/3p4/3P4/2N1PN2/PPn2PPP/R1B2RK1 w - - 1 11",
	"rn2k2r/pp1qbppp/2p2n2/3p1b2/3P4/P1NBP3/1P3PPP/R1BQK1NR b KQkq - 1 9",
	"r2q1rk1/1pp1b1pp/p2p4/2PPpb2/PP5N/2N1B2P/5PP1/R2Q1RK1 b - - 0 16",
	"r3k2r/1pp2ppp/2nb1n2/pB1p4/P3pP1q/1P2P2P/1BPPQ2P/RN3K1R b kq - 0 12",
	"2r5/4r1kp/2pR2p1/p1P2p2/P1P1p3/4K1P1/7P/8 w - f6 0 34",
	"3rk1nr/1bqnppbp/pppp2p1/5P2/2PPP3/2NBBN2/PP4PP/R2QK2R w KQk - 1 11",
	"r1bqr1k1/pp3pbp/2n2np1/2pp4/4p3/PP1PP1PP/1BPNNPB1/R2Q1RK1 w - - 0 12",
	"8/p5Rp/8/4k3/8/4P2P/P1P5/2K5 w - - 1 31",
	"rn2k2r/pp2npp1/2pp3p/1P2p3/2BbP2q/P1NQ1P2/1BP2P1P/2KR3R b kq - 2 15",
	"2r3k1/1q1nbppp/r3p3/3pP3/pPpP4/P1Q2N2/2RN1PPP/2R4K b - b3 0 23",
	"8/2P5/8/4k3/8/8/5p2/2K5 w - - 0 1",
}

// Feature sets exercised by the property checks. Well-crafted sets must
// pass all of them.
var testTags = []string{
	"h+v",
	"d1+d2",
	"h+v+d1+d2",
	"hv",
	"hv+h+v",
	"hv+d1+d2",
	"hv+ph",
	"hv+pv",
	"h+v+ph+pv",
	"mb",
	"hv+mb",
	"k",
	"hv+k",
}

func buildSet(t *testing.T, tag string) *FeatureSet {
	t.Helper()
	fs, err := Build(tag)
	if err != nil {
		t.Fatalf("Build(%q): %v", tag, err)
	}
	return fs
}

func active(fs *FeatureSet, pos *board.Position, perspective board.Color) []uint16 {
	var feats []uint16
	fs.ActiveFeatures(pos, perspective, &feats)
	slices.Sort(feats)
	return feats
}

// TestMirror verifies that at the initial position both perspectives see
// the exact same feature multiset.
func TestMirror(t *testing.T) {
	for _, tag := range testTags {
		fs := buildSet(t, tag)
		pos := board.NewPosition()

		white := active(fs, pos, board.White)
		black := active(fs, pos, board.Black)

		if !slices.Equal(white, black) {
			t.Errorf("%s: perspectives disagree at the initial position", tag)
		}
	}
}

// TestFlip verifies that flipping the board vertically and swapping
// colors swaps the perspectives' features exactly.
func TestFlip(t *testing.T) {
	for _, tag := range testTags {
		fs := buildSet(t, tag)

		for _, fen := range testFENs {
			pos, err := board.ParseFEN(fen)
			if err != nil {
				t.Fatalf("ParseFEN(%q): %v", fen, err)
			}
			flipped := pos.FlipVerticalSwapColors()

			origWhite := active(fs, pos, board.White)
			origBlack := active(fs, pos, board.Black)
			flipWhite := active(fs, flipped, board.White)
			flipBlack := active(fs, flipped, board.Black)

			for _, f := range origWhite {
				if int(f) >= fs.NumFeatures() {
					t.Fatalf("%s: feature %d out of range (%d)", tag, f, fs.NumFeatures())
				}
			}

			if !slices.Equal(origWhite, flipBlack) {
				t.Errorf("%s: white features of %q != black features of its flip", tag, fen)
			}
			if !slices.Equal(origBlack, flipWhite) {
				t.Errorf("%s: black features of %q != white features of its flip", tag, fen)
			}
		}
	}
}

// TestDeltaConsistency verifies that for every legal move not requiring a
// refresh, active(before) + added - removed == active(after), as
// multisets.
func TestDeltaConsistency(t *testing.T) {
	for _, tag := range testTags {
		fs := buildSet(t, tag)

		for _, fen := range testFENs {
			pos, err := board.ParseFEN(fen)
			if err != nil {
				t.Fatalf("ParseFEN(%q): %v", fen, err)
			}

			for _, perspective := range []board.Color{board.White, board.Black} {
				checkChanged(t, fs, tag, fen, pos, perspective)
			}
		}
	}
}

func checkChanged(t *testing.T, fs *FeatureSet, tag, fen string, pos *board.Position, perspective board.Color) {
	t.Helper()

	var before []uint16
	fs.ActiveFeatures(pos, perspective, &before)

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)

		if fs.RequiresRefresh(pos, m, perspective) {
			continue
		}

		var added, removed []uint16
		fs.ChangedFeatures(pos, m, perspective, &added, &removed)

		got := append([]uint16(nil), before...)
		got = append(got, added...)
		for _, f := range removed {
			idx := slices.Index(got, f)
			if idx < 0 {
				t.Fatalf("%s %q %s persp=%v: removing feature %d that is not active",
					tag, fen, m, perspective, f)
			}
			got = slices.Delete(got, idx, idx+1)
		}

		next := pos.Copy()
		next.MakeMove(m)
		var want []uint16
		fs.ActiveFeatures(next, perspective, &want)

		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Fatalf("%s %q %s persp=%v: delta-inconsistent (%d vs %d features)",
				tag, fen, m, perspective, len(got), len(want))
		}
	}
}

// TestBlockSizes pins the dimensionality of every block kind.
func TestBlockSizes(t *testing.T) {
	cases := []struct {
		tag  string
		want int
	}{
		{"h", 8 * 12},
		{"v", 8 * 12},
		{"d1", 15 * 12},
		{"d2", 15 * 12},
		{"hv", 64 * 12},
		{"ph", 8 * 144},
		{"pv", 8 * 144},
		{"mb", 64 * 12},
		{"k", 15 * 15 * 12},
		{"hv+mb", 64*12 + 64*12},
	}

	for _, tc := range cases {
		fs := buildSet(t, tc.tag)
		if fs.NumFeatures() != tc.want {
			t.Errorf("%s: NumFeatures = %d, want %d", tc.tag, fs.NumFeatures(), tc.want)
		}
	}
}

// TestKingRelativeRefresh verifies the king block demands a refresh
// exactly when the perspective's own king moves.
func TestKingRelativeRefresh(t *testing.T) {
	fs := buildSet(t, "k")
	pos := board.NewPosition()
	pos.MakeMove(mustParse(t, pos, "e2e4"))
	pos.MakeMove(mustParse(t, pos, "e7e5"))

	kingMove := mustParse(t, pos, "e1e2")
	if !fs.RequiresRefresh(pos, kingMove, board.White) {
		t.Error("own king move must force a refresh")
	}
	if fs.RequiresRefresh(pos, kingMove, board.Black) {
		t.Error("enemy king move must not force a refresh")
	}

	quiet := mustParse(t, pos, "g1f3")
	if fs.RequiresRefresh(pos, quiet, board.White) {
		t.Error("knight move must not force a refresh")
	}
}

// TestBuildUnknownTag verifies unknown block names are rejected.
func TestBuildUnknownTag(t *testing.T) {
	if _, err := Build("hv+bogus"); err == nil {
		t.Error("expected error for unknown block tag")
	}
}

func mustParse(t *testing.T, pos *board.Position, uci string) board.Move {
	t.Helper()
	m, err := board.ParseMove(uci, pos)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", uci, err)
	}
	return m
}

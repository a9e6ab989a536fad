package engine

import "github.com/mlomb/limbobot/internal/board"

// PVTable is a triangular principal variation table.
//
//	     0    1    2    3    4    5
//	0    m1   m2   m3   m4   m5   m6
//	1         m2   m3   m4   m5   m6
//	2              m3   m4   m5   m6
//
// Row p holds the best line starting at ply p; rows above the current ply
// are undefined and only columns up to length[p] are meaningful.
type PVTable struct {
	table  [MaxPly][MaxPly]board.Move
	length [MaxPly]int
}

// Reset truncates the line at the given ply.
func (pv *PVTable) Reset(ply int) {
	pv.length[ply] = ply
}

// Write records mov as the best move at ply and pulls up the deeper line.
// The deeper row must be read before length[ply] is advanced; rows have
// separate backing storage so the copy cannot overlap.
func (pv *PVTable) Write(ply int, mov board.Move) {
	pv.table[ply][ply] = mov

	for next := ply + 1; next < pv.length[ply+1]; next++ {
		pv.table[ply][next] = pv.table[ply+1][next]
	}

	pv.length[ply] = pv.length[ply+1]
}

// Mainline returns the best line from the root.
func (pv *PVTable) Mainline() []board.Move {
	line := make([]board.Move, pv.length[0])
	for ply := 0; ply < pv.length[0]; ply++ {
		line[ply] = pv.table[0][ply]
	}
	return line
}

package analysis

import (
	"errors"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoad(t *testing.T) {
	s := testStore(t)

	rec := Record{
		Depth:      8,
		Score:      35,
		BestMove:   "e2e4",
		PV:         []string{"e2e4", "e7e5", "g1f3"},
		Nodes:      123456,
		AnalyzedAt: time.Now(),
	}

	if err := s.Save(0xDEADBEEF, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(0xDEADBEEF)
	if err != nil {
		t.Fatal(err)
	}
	if got.Depth != 8 || got.Score != 35 || got.BestMove != "e2e4" {
		t.Errorf("loaded %+v", got)
	}
	if len(got.PV) != 3 || got.PV[2] != "g1f3" {
		t.Errorf("PV = %v", got.PV)
	}
}

func TestLoadMissing(t *testing.T) {
	s := testStore(t)

	if _, err := s.Load(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeeperAnalysisWins(t *testing.T) {
	s := testStore(t)

	if err := s.Save(7, Record{Depth: 10, BestMove: "d2d4"}); err != nil {
		t.Fatal(err)
	}
	// a shallower result must not replace the deeper one
	if err := s.Save(7, Record{Depth: 4, BestMove: "a2a3"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(7)
	if err != nil {
		t.Fatal(err)
	}
	if got.Depth != 10 || got.BestMove != "d2d4" {
		t.Errorf("shallower analysis replaced deeper one: %+v", got)
	}

	// a deeper one does replace
	if err := s.Save(7, Record{Depth: 12, BestMove: "e2e4"}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Load(7)
	if got.Depth != 12 {
		t.Errorf("deeper analysis not stored: %+v", got)
	}
}

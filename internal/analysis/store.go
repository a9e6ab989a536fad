// Package analysis persists completed search results across sessions.
// The store is a host-side cache keyed by zobrist hash: after every
// search the UCI loop records what was found, and before searching it can
// report previously known analysis of the same position. The engine core
// never reads it; search results are unaffected.
package analysis

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Record is the stored analysis of one position.
type Record struct {
	Depth      int       `json:"depth"`
	Score      int32     `json:"score"`
	BestMove   string    `json:"best_move"`
	PV         []string  `json:"pv"`
	Nodes      uint64    `json:"nodes"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Store wraps BadgerDB for persistent position analysis.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the analysis database in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logging is too chatty for a UCI host

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening analysis store at %s: %w", dir, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func storeKey(hash uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], hash)
	return key[:]
}

// Save records the analysis of a position, keeping only the deepest
// result seen for each key.
func (s *Store) Save(hash uint64, rec Record) error {
	if existing, err := s.Load(hash); err == nil && existing.Depth >= rec.Depth {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(hash), data)
	})
}

// ErrNotFound is returned by Load when a position has no stored analysis.
var ErrNotFound = errors.New("position not analyzed")

// Load returns the stored analysis of a position.
func (s *Store) Load(hash uint64) (Record, error) {
	var rec Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	return rec, err
}

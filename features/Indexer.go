package features

import (
	"errors"
	"fmt"

	"github.com/medai-secure/idsgame-sarsa/utils/matutils"
	"gonum.org/v1/gonum/mat"
)

// ErrIndexerFull is returned when an Indexer cannot intern a new state
var ErrIndexerFull = errors.New("indexer full")

// KeyPrecision is the number of decimal places a state vector is rounded
// to before it is interned
const KeyPrecision = 6

// Indexer assigns dense indices 0, 1, 2, ... to distinct state vectors
// in the order in which they are first seen
type Indexer struct {
	capacity int
	indices  map[string]int
}

// NewIndexer returns a new Indexer that holds at most capacity states
func NewIndexer(capacity int) (*Indexer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("newIndexer: capacity must be positive, "+
			"got %d", capacity)
	}
	return &Indexer{
		capacity: capacity,
		indices:  make(map[string]int),
	}, nil
}

// Index returns the index of state, interning it if it has not been
// seen before
func (i *Indexer) Index(state mat.Vector) (int, error) {
	key := matutils.VecKey(state, KeyPrecision)
	if idx, ok := i.indices[key]; ok {
		return idx, nil
	}

	if len(i.indices) >= i.capacity {
		return 0, fmt.Errorf("index: %w: capacity %d", ErrIndexerFull,
			i.capacity)
	}
	idx := len(i.indices)
	i.indices[key] = idx
	return idx, nil
}

// Keys returns the keys of the interned states ordered by index
func (i *Indexer) Keys() []string {
	keys := make([]string, len(i.indices))
	for key, idx := range i.indices {
		keys[idx] = key
	}
	return keys
}

// Load replaces the interned states with keys, assigning keys[j] the
// index j
func (i *Indexer) Load(keys []string) error {
	if len(keys) > i.capacity {
		return fmt.Errorf("load: %w: %d keys exceed capacity %d",
			ErrIndexerFull, len(keys), i.capacity)
	}

	indices := make(map[string]int, len(keys))
	for j, key := range keys {
		if _, ok := indices[key]; ok {
			return fmt.Errorf("load: duplicate key %q", key)
		}
		indices[key] = j
	}
	i.indices = indices
	return nil
}

// Len returns the number of interned states
func (i *Indexer) Len() int {
	return len(i.indices)
}

// Cap returns the maximum number of states
func (i *Indexer) Cap() int {
	return i.capacity
}

package features

import (
	"fmt"

	"github.com/medai-secure/idsgame-sarsa/environment"
)

// Encoder maps the current state of a role to a row of a Q table
type Encoder interface {
	environment.StateSpace

	// Encode returns the tabular state of role r given the latest step
	Encode(r environment.Role, step environment.JointStep) (int, error)
}

// Keyed is an Encoder that assigns table rows to states as it sees
// them. The assignment must be saved with the action values for the
// rows to keep their meaning in a later run.
type Keyed interface {
	Encoder

	// States returns the key of each row of role r in row order
	States(r environment.Role) []string

	// SetStates replaces the rows of role r with keys
	SetStates(r environment.Role, keys []string) error
}

// Tabular encodes states by the game's own state index: the attacker's
// current node for the attacker and a single state for the defender
type Tabular struct {
	game environment.Game
}

// NewTabular returns a new Tabular encoder
func NewTabular(game environment.Game) *Tabular {
	return &Tabular{game}
}

// NumStates implements environment.StateSpace
func (t *Tabular) NumStates(r environment.Role) int {
	return t.game.NumStates(r)
}

// Encode implements Encoder
func (t *Tabular) Encode(r environment.Role, _ environment.JointStep) (int,
	error) {
	return t.game.StateIndex(r), nil
}

// Full encodes states by the processed observation of a role. Each role
// has its own Indexer so that both roles can use up to capacity states.
type Full struct {
	pipeline *Pipeline
	indexers map[environment.Role]*Indexer
	capacity int
}

// NewFull returns a new Full encoder
func NewFull(p *Pipeline, capacity int) (*Full, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("newFull: capacity must be positive, got %d",
			capacity)
	}

	indexers := make(map[environment.Role]*Indexer, len(environment.Roles))
	for _, r := range environment.Roles {
		idx, err := NewIndexer(capacity)
		if err != nil {
			return nil, fmt.Errorf("newFull: %w", err)
		}
		indexers[r] = idx
	}
	return &Full{pipeline: p, indexers: indexers, capacity: capacity}, nil
}

// NumStates implements environment.StateSpace
func (f *Full) NumStates(environment.Role) int {
	return f.capacity
}

// Encode implements Encoder
func (f *Full) Encode(r environment.Role, step environment.JointStep) (int,
	error) {
	state := f.pipeline.Process(r, step)
	idx, err := f.indexers[r].Index(state)
	if err != nil {
		return 0, fmt.Errorf("encode: %v: %w", r, err)
	}
	return idx, nil
}

// Seen returns the number of distinct states seen by role r
func (f *Full) Seen(r environment.Role) int {
	return f.indexers[r].Len()
}

// States implements Keyed
func (f *Full) States(r environment.Role) []string {
	return f.indexers[r].Keys()
}

// SetStates implements Keyed
func (f *Full) SetStates(r environment.Role, keys []string) error {
	if err := f.indexers[r].Load(keys); err != nil {
		return fmt.Errorf("setStates: %v: %w", r, err)
	}
	return nil
}

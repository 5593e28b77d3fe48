// Package checkpointer implements periodic snapshots of agent action
// values
package checkpointer

import (
	"fmt"
)

// Checkpointer checkpoints objects at the end of training episodes
type Checkpointer interface {
	Checkpoint(episode int) error
}

// Episodic implements checkpointing every N episodes, starting with
// episode 0
type Episodic struct {
	interval int

	// save is called with the episode number on every checkpoint.
	// Snapshot filenames are usually generated with FileTimer.
	save func(episode int) error
}

// NewEpisodic returns a Checkpointer that checkpoints every n episodes
func NewEpisodic(n int, save func(episode int) error) (*Episodic, error) {
	if n < 1 {
		return nil, fmt.Errorf("newEpisodic: interval must be positive, "+
			"got %d", n)
	}
	return &Episodic{interval: n, save: save}, nil
}

// Due returns whether episode is a checkpoint episode
func (e *Episodic) Due(episode int) bool {
	return episode%e.interval == 0
}

// Checkpoint saves if episode is a checkpoint episode
func (e *Episodic) Checkpoint(episode int) error {
	if !e.Due(episode) {
		return nil
	}
	if err := e.save(episode); err != nil {
		return fmt.Errorf("checkpoint: episode %d: %w", episode, err)
	}
	return nil
}

package trackers

import (
	"github.com/medai-secure/idsgame-sarsa/environment"
)

// EpisodeLength tracks the lengths of episodes in an experiment.
// Note that an episode must finish for this Tracker to record its
// length.
type EpisodeLength struct {
	episodeLengths []float64
}

// NewEpisodeLength returns a new EpisodeLength Tracker
func NewEpisodeLength() *EpisodeLength {
	return &EpisodeLength{}
}

// Track records the episode length if the step passed to it is the
// last step in the episode
func (e *EpisodeLength) Track(t environment.JointStep) {
	if t.Last() {
		e.episodeLengths = append(e.episodeLengths, float64(t.Number()))
	}
}

// Drain returns the lengths of the episodes finished since the last
// call to Drain
func (e *EpisodeLength) Drain() []float64 {
	lengths := e.episodeLengths
	e.episodeLengths = nil
	return lengths
}

// Package trackers implements Trackers, which accumulate per-episode
// data during an experiment
package trackers

import (
	"github.com/medai-secure/idsgame-sarsa/environment"
)

// Tracker keeps track of experiment data. Track must be called on
// every JointStep of every episode, including the first.
type Tracker interface {
	Track(step environment.JointStep)
}

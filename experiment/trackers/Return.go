package trackers

import (
	"fmt"

	"github.com/medai-secure/idsgame-sarsa/environment"
)

// Return tracks the episodic return of one role. When a game returns a
// JointStep, this Tracker extracts the reward of its role and
// accumulates the return for each episode.
//
// An episode must finish for its return to be recorded.
type Return struct {
	role           environment.Role
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	total          float64
}

// NewReturn creates and returns a new *Return Tracker for role r
func NewReturn(r environment.Role) *Return {
	return &Return{role: r, lastTimeStep: -1}
}

// Track tracks the reward seen on a JointStep. A First step starts a
// new episode.
//
// Track panics if it is called for non-sequential timesteps
func (r *Return) Track(joint environment.JointStep) {
	step := joint.Of(r.role)
	if step.First() {
		r.currentReturn = 0.0
		r.lastTimeStep = -1
	}

	if r.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			r.lastTimeStep, step.Number)
		panic(msg)
	}

	r.currentReturn += step.Reward
	r.lastTimeStep = step.Number

	if step.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.total += r.currentReturn

		r.currentReturn = 0.0
		r.lastTimeStep = -1
	}
}

// Drain returns the returns of the episodes finished since the last
// call to Drain
func (r *Return) Drain() []float64 {
	returns := r.episodeReturns
	r.episodeReturns = nil
	return returns
}

// Total returns the sum of the returns of every finished episode
func (r *Return) Total() float64 {
	return r.total
}

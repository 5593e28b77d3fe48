// Package features turns game observations into tabular state indices.
//
// A Pipeline preprocesses the raw observations of a role: it clips them
// to the game's maximum value, optionally merges the attacker and
// defender observations, normalizes and zero-means them, and stacks the
// most recent frames. An Encoder maps the result to a row of a Q table.
package features

import (
	"fmt"

	"github.com/medai-secure/idsgame-sarsa/environment"
	"github.com/medai-secure/idsgame-sarsa/utils/matutils"
	"gonum.org/v1/gonum/mat"
)

// Pipeline preprocesses observations. Stacked frames are tracked per
// role, so a single Pipeline can serve both players of a game.
type Pipeline struct {
	Normalize   bool // scale values into [0, 1] by MaxValue
	ZeroMean    bool // subtract the mean of each frame
	Merged      bool // concatenate attacker and defender observations
	StateLength int  // number of frames stacked
	MaxValue    int

	history map[environment.Role][]*mat.VecDense
}

// NewPipeline returns a new Pipeline
func NewPipeline(normalize, zeroMean, merged bool, stateLength,
	maxValue int) (*Pipeline, error) {
	if stateLength < 1 {
		return nil, fmt.Errorf("newPipeline: state length must be "+
			"positive, got %d", stateLength)
	}
	if maxValue < 1 {
		return nil, fmt.Errorf("newPipeline: max value must be positive, "+
			"got %d", maxValue)
	}

	return &Pipeline{
		Normalize:   normalize,
		ZeroMean:    zeroMean,
		Merged:      merged,
		StateLength: stateLength,
		MaxValue:    maxValue,
		history:     make(map[environment.Role][]*mat.VecDense),
	}, nil
}

// Frame preprocesses the observation of role r in step without stacking
func (p *Pipeline) Frame(r environment.Role,
	step environment.JointStep) *mat.VecDense {
	var frame *mat.VecDense
	if p.Merged {
		frame = matutils.VecConcat(step.Attacker.Observation,
			step.Defender.Observation)
	} else {
		frame = mat.VecDenseCopyOf(step.Of(r).Observation)
	}

	maxValue := float64(p.MaxValue)
	matutils.VecClip(frame, 0, maxValue)
	if p.Normalize {
		frame.ScaleVec(1/maxValue, frame)
	}
	if p.ZeroMean {
		matutils.VecZeroMean(frame)
	}
	return frame
}

// Process preprocesses the observation of role r in step and returns
// the last StateLength frames stacked oldest first. Missing frames at
// the start of an episode are zero. A First step clears the role's
// history.
func (p *Pipeline) Process(r environment.Role,
	step environment.JointStep) *mat.VecDense {
	if p.history == nil {
		p.history = make(map[environment.Role][]*mat.VecDense)
	}
	if s := step.Of(r); s.First() {
		p.history[r] = p.history[r][:0]
	}

	frame := p.Frame(r, step)
	h := append(p.history[r], frame)
	if len(h) > p.StateLength {
		h = h[len(h)-p.StateLength:]
	}
	p.history[r] = h

	if p.StateLength == 1 {
		return mat.VecDenseCopyOf(frame)
	}

	frames := make([]mat.Vector, 0, p.StateLength)
	for i := len(h); i < p.StateLength; i++ {
		frames = append(frames, mat.NewVecDense(frame.Len(), nil))
	}
	for _, f := range h {
		frames = append(frames, f)
	}
	return matutils.VecConcat(frames...)
}

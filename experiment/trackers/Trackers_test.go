package trackers

import (
	"testing"

	"github.com/medai-secure/idsgame-sarsa/environment"
	"github.com/medai-secure/idsgame-sarsa/environment/idsgame"
	ts "github.com/medai-secure/idsgame-sarsa/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// episode returns the steps of an episode with the given defender
// rewards
func episode(rewards ...float64) []environment.JointStep {
	steps := []environment.JointStep{{
		Attacker: ts.New(ts.First, 0, 1, nil, 0),
		Defender: ts.New(ts.First, 0, 1, nil, 0),
	}}
	for i, r := range rewards {
		t := ts.Mid
		if i == len(rewards)-1 {
			t = ts.Last
		}
		steps = append(steps, environment.JointStep{
			Attacker: ts.New(t, -r, 1, nil, i+1),
			Defender: ts.New(t, r, 1, nil, i+1),
		})
	}
	return steps
}

func TestReturnAndLength(t *testing.T) {
	attacker := NewReturn(environment.Attacker)
	defender := NewReturn(environment.Defender)
	length := NewEpisodeLength()
	trackers := []Tracker{attacker, defender, length}

	for _, ep := range [][]float64{{0, 0, 1}, {0, -1}} {
		for _, step := range episode(ep...) {
			for _, tr := range trackers {
				tr.Track(step)
			}
		}
	}

	assert.Equal(t, []float64{1, -1}, defender.Drain())
	assert.Equal(t, []float64{-1, 1}, attacker.Drain())
	assert.Equal(t, []float64{3, 2}, length.Drain())
	assert.Empty(t, defender.Drain())
	assert.Empty(t, length.Drain())
	assert.Equal(t, 0.0, defender.Total())

	for _, step := range episode(1) {
		defender.Track(step)
	}
	assert.Equal(t, 1.0, defender.Total())
}

func TestReturnPanicsOnSkippedStep(t *testing.T) {
	r := NewReturn(environment.Defender)
	steps := episode(0, 0, 1)
	r.Track(steps[0])
	assert.Panics(t, func() { r.Track(steps[2]) })
}

func TestOutcome(t *testing.T) {
	g, step, err := idsgame.New(idsgame.DefaultV19Config(),
		idsgame.NewMaximalAttacker(1), nil)
	require.NoError(t, err)
	defender := idsgame.NewRandomDefender(2)

	o := NewOutcome(g)
	o.Track(step)
	assert.Equal(t, 0.0, o.HackProbability())

	hacks, games := 0, 0
	for games < 20 {
		d, ok := defender.Act(g)
		require.True(t, ok)
		step, err = g.Step(environment.JointAction{Defense: d})
		require.NoError(t, err)
		o.Track(step)

		if step.Last() {
			games++
			if g.Outcome() == environment.Hacked {
				hacks++
			}
			step, err = g.Reset()
			require.NoError(t, err)
		}
	}

	assert.InDelta(t, float64(hacks)/20, o.HackProbability(), 1e-12)
	assert.InDelta(t, float64(hacks)/20, o.CumulativeHackProbability(), 1e-12)
	o.Drain()
	assert.Equal(t, 0.0, o.HackProbability())
	assert.InDelta(t, float64(hacks)/20, o.CumulativeHackProbability(), 1e-12)
}

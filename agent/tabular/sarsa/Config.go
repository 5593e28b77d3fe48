package sarsa

import (
	"fmt"

	"github.com/medai-secure/idsgame-sarsa/agent"
	"github.com/medai-secure/idsgame-sarsa/environment"
)

// Config represents a configuration for the tabular SARSA agent
type Config struct {
	LearningRate float64
	Gamma        float64

	EpsilonStart float64
	EpsilonEnd   float64
	EpsilonDecay float64 // per-episode multiplicative decay
	EvalEpsilon  float64
}

// CreateAgent creates the agent from the Config. Action values are
// always initialized to zero.
func (c Config) CreateAgent(game environment.Game,
	states environment.StateSpace, seed uint64) (agent.Agent, error) {
	return New(game, states, c, seed)
}

// ValidAgent returns whether the argument agent is a valid agent for
// construction with the Config
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*SARSA)
	return ok
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning rate must be in (0, 1], got %v",
			c.LearningRate)
	}
	if c.Gamma < 0 || c.Gamma >= 1 {
		return fmt.Errorf("gamma must be in [0, 1), got %v", c.Gamma)
	}
	if c.EpsilonEnd < 0 {
		return fmt.Errorf("final epsilon cannot be lower than 0")
	}
	if c.EpsilonStart < c.EpsilonEnd || c.EpsilonStart > 1 {
		return fmt.Errorf("initial epsilon must be in [%v, 1], got %v",
			c.EpsilonEnd, c.EpsilonStart)
	}
	if c.EpsilonDecay <= 0 || c.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon decay must be in (0, 1], got %v",
			c.EpsilonDecay)
	}
	if c.EvalEpsilon < 0 || c.EvalEpsilon > 1 {
		return fmt.Errorf("evaluation epsilon must be in [0, 1], got %v",
			c.EvalEpsilon)
	}
	return nil
}

// Type returns the type of the agent constructed by the Config
func (c Config) Type() agent.Type {
	return agent.EGreedySarsaTabular
}

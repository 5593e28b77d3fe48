package agent

import (
	"github.com/medai-secure/idsgame-sarsa/environment"
)

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the config describes. The
	// agent plays every role in game.AgentRoles(), with one tabular
	// state per state enumerated by states.
	CreateAgent(game environment.Game, states environment.StateSpace,
		seed uint64) (Agent, error)

	// ValidAgent returns whether the argument agent is valid for the
	// Config
	ValidAgent(Agent) bool

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error

	// Type returns the type of agent the Config creates
	Type() Type
}

// Type represents a specific type of an agent Config.
// Config's with this type can create Agents of the corresponding type.
type Type string

const (
	EGreedySarsaTabular Type = "EGreedySarsa-Tabular"
)

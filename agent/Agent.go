// Package agent defines the interfaces of tabular agents that learn to
// play one or more roles of an environment.Game
package agent

import (
	"github.com/medai-secure/idsgame-sarsa/environment"
	"gonum.org/v1/gonum/mat"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy

	// Roles returns the roles the Agent plays
	Roles() []environment.Role

	// Weights returns the action-value tables of the agent, keyed by
	// role name
	Weights() map[string]*mat.Dense
	SetWeights(map[string]*mat.Dense) error
}

// Transition is a single on-policy transition (s, a, r, s', a') seen by
// one role. If Terminal is true the episode ended in a terminal state
// and NextState and NextAction are ignored.
type Transition struct {
	State      int
	Action     int
	Reward     float64
	NextState  int
	NextAction int
	Terminal   bool
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Update performs a single update for role r on transition t
	Update(r environment.Role, t Transition) error

	// TdError returns the TD error of role r on transition t
	TdError(r environment.Role, t Transition) (float64, error)

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have.
//
// For a given agent, the Policy and Learner should have pointers to the
// same weights so that any changes the learner makes to the weights are
// reflected in the actions the Policy chooses
type Policy interface {
	SelectAction(r environment.Role, state int) (int, error)
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

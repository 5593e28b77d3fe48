// Package environment outlines the interfaces and structs needed to
// implement two-player intrusion-detection games and to construct them
// by name from a registry
package environment

import (
	"fmt"
	"io"

	ts "github.com/medai-secure/idsgame-sarsa/timestep"
)

// Role is one of the two players of a game
type Role int

const (
	Attacker Role = iota
	Defender
)

// Roles lists both roles in a fixed order
var Roles = []Role{Attacker, Defender}

func (r Role) String() string {
	switch r {
	case Attacker:
		return "attacker"
	case Defender:
		return "defender"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole returns the Role named s
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("parseRole: unknown role %q", s)
}

// Outcome describes the state of the current game
type Outcome int

const (
	Running  Outcome = iota
	Hacked           // the attacker reached the data node
	Detected         // the defender detected the attacker
	Timeout          // the episode was cut off by a step limit
	Blocked          // a player has no legal action left
)

func (o Outcome) String() string {
	switch o {
	case Hacked:
		return "Hacked"
	case Detected:
		return "Detected"
	case Timeout:
		return "Timeout"
	case Blocked:
		return "Blocked"
	default:
		return "Running"
	}
}

// JointAction holds the actions of both players for a single step.
// Actions are enumerated starting from 0.
type JointAction struct {
	Attack  int
	Defense int
}

// At returns the action of the player with role r
func (j JointAction) At(r Role) int {
	if r == Attacker {
		return j.Attack
	}
	return j.Defense
}

// Set sets the action of the player with role r
func (j *JointAction) Set(r Role, action int) {
	if r == Attacker {
		j.Attack = action
	} else {
		j.Defense = action
	}
}

// JointStep packages the TimeSteps seen by each player after a step.
// Both TimeSteps always share the same StepType and Number.
type JointStep struct {
	Attacker ts.TimeStep
	Defender ts.TimeStep
}

// Of returns the TimeStep seen by the player with role r
func (j JointStep) Of(r Role) ts.TimeStep {
	if r == Attacker {
		return j.Attacker
	}
	return j.Defender
}

// Last returns whether the JointStep ends the episode
func (j JointStep) Last() bool {
	return j.Attacker.Last()
}

// Number returns the step number within the episode
func (j JointStep) Number() int {
	return j.Attacker.Number
}

// StateSpace is implemented by anything that enumerates the tabular
// states each role can be in
type StateSpace interface {
	NumStates(r Role) int
}

// Game implements a simulated attacker/defender environment.
//
// A Game is played by two players. The roles returned by AgentRoles()
// are controlled by the caller; any other role is played by an opponent
// built into the Game, whose action overrides the corresponding half
// of the JointAction passed to Step().
type Game interface {
	// Reset starts a new episode
	Reset() (JointStep, error)

	// Step takes a single step in the game. Step returns an error
	// wrapping ErrIllegalAction if a caller-controlled action is not
	// legal in the current state.
	Step(action JointAction) (JointStep, error)

	ActionSpec(r Role) Spec
	ObservationSpec(r Role) Spec
	DiscountSpec() Spec

	// NumActions returns the number of actions available to a role
	NumActions(r Role) int

	// Legal returns whether action is currently legal for role r
	Legal(r Role, action int) bool

	// StateIndex returns the tabular state index of role r in the
	// current game state, in [0, NumStates(r))
	StateIndex(r Role) int
	StateSpace

	// AgentRoles returns the roles controlled by the caller
	AgentRoles() []Role

	// Outcome returns the outcome of the current episode
	Outcome() Outcome

	// MaxValue returns the largest value any attack, defense, or
	// detection attribute can take
	MaxValue() int

	// Render writes a human-readable frame of the game to w
	Render(w io.Writer) error

	Close() error
}

// Package idsgame implements the Ids-Game, a two-player intrusion
// detection game played on a small layered network.
//
// The attacker starts outside the network and tries to reach the data
// node by raising the attack value of some attack type on a neighbouring
// node above that node's defense value. The defender raises defense
// values or detection values. A failed attack may be detected, which
// ends the game in the defender's favour.
package idsgame

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/rand"

	"github.com/medai-secure/idsgame-sarsa/environment"
	ts "github.com/medai-secure/idsgame-sarsa/timestep"
	"gonum.org/v1/gonum/mat"
)

const (
	HackReward      float64 = 1.0
	DetectionReward float64 = 1.0
)

// Config configures an IdsGame
type Config struct {
	Layers          int
	ServersPerLayer int
	AttackTypes     int
	MaxValue        int

	InitialDefense   int
	InitialDetection int

	Discount float64
	MaxSteps int // 0 means no step limit
	Seed     uint64

	// Render writes a text frame to RenderTo after every Reset and Step
	Render   bool
	RenderTo io.Writer
}

// DefaultV19Config returns the configuration of the version 19 games:
// a single layer of two servers, ten attack types, and values up to 9.
func DefaultV19Config() Config {
	return Config{
		Layers:           1,
		ServersPerLayer:  2,
		AttackTypes:      10,
		MaxValue:         9,
		InitialDefense:   2,
		InitialDetection: 2,
		Discount:         0.99,
	}
}

// Validate returns an error describing why the Config is invalid, if
// it is invalid
func (c Config) Validate() error {
	if c.AttackTypes < 1 {
		return fmt.Errorf("need at least 1 attack type, got %d",
			c.AttackTypes)
	}
	if c.MaxValue < 1 {
		return fmt.Errorf("max value must be positive, got %d", c.MaxValue)
	}
	if c.InitialDefense < 0 || c.InitialDefense > c.MaxValue {
		return fmt.Errorf("initial defense %d outside [0, %d]",
			c.InitialDefense, c.MaxValue)
	}
	if c.InitialDetection < 0 || c.InitialDetection > c.MaxValue {
		return fmt.Errorf("initial detection %d outside [0, %d]",
			c.InitialDetection, c.MaxValue)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount %v outside [0, 1]", c.Discount)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max steps cannot be negative, got %d", c.MaxSteps)
	}
	return nil
}

// IdsGame implements environment.Game. Roles without an Opponent are
// controlled by the caller.
type IdsGame struct {
	cfg     Config
	network *Network
	state   State

	starter environment.Starter
	rng     *rand.Rand
	ender   environment.Ender

	attackerOpponent Opponent
	defenderOpponent Opponent

	outcome     environment.Outcome
	currentStep environment.JointStep
}

// New returns a new IdsGame and its first JointStep. A nil Opponent
// means that role is controlled by the caller, and at least one role
// must be.
func New(cfg Config, attacker, defender Opponent) (*IdsGame,
	environment.JointStep, error) {
	if err := cfg.Validate(); err != nil {
		return nil, environment.JointStep{}, fmt.Errorf("new: %w", err)
	}
	if attacker != nil && defender != nil {
		return nil, environment.JointStep{}, fmt.Errorf("new: at least one " +
			"role must be controlled by the caller")
	}
	if cfg.RenderTo == nil {
		cfg.RenderTo = os.Stdout
	}

	network, err := NewNetwork(cfg.Layers, cfg.ServersPerLayer)
	if err != nil {
		return nil, environment.JointStep{}, fmt.Errorf("new: %w", err)
	}

	// One vulnerable attack type per attackable node
	bounds := make([]int, network.NumNodes()-1)
	for i := range bounds {
		bounds[i] = cfg.AttackTypes
	}

	starter, err := environment.NewCategoricalStarter(bounds, cfg.Seed)
	if err != nil {
		return nil, environment.JointStep{}, fmt.Errorf("new: %w", err)
	}

	g := &IdsGame{
		cfg:              cfg,
		network:          network,
		starter:          starter,
		rng:              rand.New(rand.NewSource(cfg.Seed + 1)),
		ender:            environment.NewStepLimit(cfg.MaxSteps),
		attackerOpponent: attacker,
		defenderOpponent: defender,
	}

	step, err := g.Reset()
	if err != nil {
		return nil, environment.JointStep{}, fmt.Errorf("new: %w", err)
	}
	return g, step, nil
}

// Network returns the network the game is played on
func (g *IdsGame) Network() *Network {
	return g.network
}

// State returns the current game state
func (g *IdsGame) State() *State {
	return &g.state
}

// Reset starts a new episode, sampling new node vulnerabilities
func (g *IdsGame) Reset() (environment.JointStep, error) {
	g.state = newState(g.network, g.cfg.AttackTypes, g.cfg.InitialDefense,
		g.cfg.InitialDetection, g.starter.Start())
	g.outcome = environment.Running

	g.currentStep = environment.JointStep{
		Attacker: ts.New(ts.First, 0, g.cfg.Discount,
			g.observation(environment.Attacker), 0),
		Defender: ts.New(ts.First, 0, g.cfg.Discount,
			g.observation(environment.Defender), 0),
	}

	if g.cfg.Render {
		if err := g.Render(g.cfg.RenderTo); err != nil {
			return environment.JointStep{}, fmt.Errorf("reset: %w", err)
		}
	}
	return g.currentStep, nil
}

// Step takes a single step in the game. The defense is applied before
// the attack is resolved.
func (g *IdsGame) Step(action environment.JointAction) (environment.JointStep,
	error) {
	if g.outcome != environment.Running {
		return environment.JointStep{}, fmt.Errorf("step: episode ended "+
			"with outcome %v, call Reset", g.outcome)
	}

	// Opponent actions override the caller's actions
	if g.attackerOpponent != nil {
		a, ok := g.attackerOpponent.Act(g)
		if !ok {
			return environment.JointStep{}, fmt.Errorf("step: attacker " +
				"opponent has no legal action")
		}
		action.Attack = a
	}
	if g.defenderOpponent != nil {
		d, ok := g.defenderOpponent.Act(g)
		if !ok {
			return environment.JointStep{}, fmt.Errorf("step: defender " +
				"opponent has no legal action")
		}
		action.Defense = d
	}

	for _, role := range environment.Roles {
		if !g.Legal(role, action.At(role)) {
			return environment.JointStep{}, fmt.Errorf("step: %w: %v "+
				"action %d", environment.ErrIllegalAction, role,
				action.At(role))
		}
	}

	g.defend(action.Defense)
	g.outcome = g.attack(action.Attack)

	var attackerReward, defenderReward float64
	discount := g.cfg.Discount
	switch g.outcome {
	case environment.Hacked:
		attackerReward, defenderReward = HackReward, -HackReward
		discount = 0
	case environment.Detected:
		attackerReward, defenderReward = -DetectionReward, DetectionReward
		discount = 0
	}

	number := g.currentStep.Number() + 1
	attackerStep := ts.New(ts.Mid, attackerReward, discount,
		g.observation(environment.Attacker), number)
	defenderStep := ts.New(ts.Mid, defenderReward, discount,
		g.observation(environment.Defender), number)

	if g.outcome != environment.Running {
		attackerStep.SetEnd(ts.TerminalStateReached)
		defenderStep.SetEnd(ts.TerminalStateReached)
	} else if !g.hasLegal(environment.Attacker) ||
		!g.hasLegal(environment.Defender) {
		g.outcome = environment.Blocked
		attackerStep.Discount, defenderStep.Discount = 0, 0
		attackerStep.SetEnd(ts.TerminalStateReached)
		defenderStep.SetEnd(ts.TerminalStateReached)
	} else if g.ender.End(&attackerStep) {
		g.outcome = environment.Timeout
		defenderStep.SetEnd(attackerStep.EndType)
	}

	g.currentStep = environment.JointStep{
		Attacker: attackerStep,
		Defender: defenderStep,
	}

	if g.cfg.Render {
		if err := g.Render(g.cfg.RenderTo); err != nil {
			return environment.JointStep{}, fmt.Errorf("step: %w", err)
		}
	}
	return g.currentStep, nil
}

// defend raises the defense or detection value selected by action
func (g *IdsGame) defend(action int) {
	node, k := g.decodeDefense(action)
	if k == g.cfg.AttackTypes {
		g.state.detection[node]++
	} else {
		g.state.defense[node][k]++
	}
}

// attack raises the attack value selected by action and resolves the
// attack, returning the resulting outcome
func (g *IdsGame) attack(action int) environment.Outcome {
	node, k := g.decodeAttack(action)
	g.state.attack[node][k]++

	if g.state.attack[node][k] > g.state.defense[node][k] {
		g.state.compromised[node] = true
		g.state.position = node
		if node == g.network.Data() {
			return environment.Hacked
		}
		return environment.Running
	}

	// A failed attack is detected with probability detection / (max+1)
	detectionProb := float64(g.state.detection[node]) /
		float64(g.cfg.MaxValue+1)
	if g.rng.Float64() < detectionProb {
		return environment.Detected
	}
	return environment.Running
}

func (g *IdsGame) decodeAttack(action int) (node, k int) {
	return action / g.cfg.AttackTypes, action % g.cfg.AttackTypes
}

func (g *IdsGame) decodeDefense(action int) (node, k int) {
	return action / (g.cfg.AttackTypes + 1), action % (g.cfg.AttackTypes + 1)
}

// AttackAction returns the attack action targeting attack type k on node
func (g *IdsGame) AttackAction(node, k int) int {
	return node*g.cfg.AttackTypes + k
}

// DefenseAction returns the defense action raising attribute k of node.
// Attribute k == AttackTypes is the detection value.
func (g *IdsGame) DefenseAction(node, k int) int {
	return node*(g.cfg.AttackTypes+1) + k
}

// Legal returns whether action is legal for role r. An attack is legal
// if it targets a neighbour of the attacker's position whose attack
// value is below the maximum. A defense is legal if it targets an
// attackable node whose value is below the maximum.
func (g *IdsGame) Legal(r environment.Role, action int) bool {
	if action < 0 || action >= g.NumActions(r) {
		return false
	}

	if r == environment.Attacker {
		node, k := g.decodeAttack(action)
		return g.network.Adjacent(g.state.position, node) &&
			g.state.attack[node][k] < g.cfg.MaxValue
	}

	node, k := g.decodeDefense(action)
	if !g.network.Attackable(node) {
		return false
	}
	if k == g.cfg.AttackTypes {
		return g.state.detection[node] < g.cfg.MaxValue
	}
	return g.state.defense[node][k] < g.cfg.MaxValue
}

// LegalActions returns all currently legal actions of role r
func (g *IdsGame) LegalActions(r environment.Role) []int {
	var legal []int
	for a := 0; a < g.NumActions(r); a++ {
		if g.Legal(r, a) {
			legal = append(legal, a)
		}
	}
	return legal
}

func (g *IdsGame) hasLegal(r environment.Role) bool {
	for a := 0; a < g.NumActions(r); a++ {
		if g.Legal(r, a) {
			return true
		}
	}
	return false
}

// NumActions returns the number of actions of role r
func (g *IdsGame) NumActions(r environment.Role) int {
	if r == environment.Attacker {
		return g.network.NumNodes() * g.cfg.AttackTypes
	}
	return g.network.NumNodes() * (g.cfg.AttackTypes + 1)
}

// StateIndex returns the attacker's current node for the attacker, and
// 0 for the defender, who observes a single aggregate state
func (g *IdsGame) StateIndex(r environment.Role) int {
	if r == environment.Attacker {
		return g.state.position
	}
	return 0
}

// NumStates returns the number of tabular states of role r
func (g *IdsGame) NumStates(r environment.Role) int {
	if r == environment.Attacker {
		return g.network.NumNodes()
	}
	return 1
}

// AgentRoles returns the roles without an Opponent
func (g *IdsGame) AgentRoles() []environment.Role {
	var roles []environment.Role
	if g.attackerOpponent == nil {
		roles = append(roles, environment.Attacker)
	}
	if g.defenderOpponent == nil {
		roles = append(roles, environment.Defender)
	}
	return roles
}

// Outcome returns the outcome of the current episode
func (g *IdsGame) Outcome() environment.Outcome {
	return g.outcome
}

// MaxValue returns the maximum attack, defense, and detection value
func (g *IdsGame) MaxValue() int {
	return g.cfg.MaxValue
}

// AttackTypes returns the number of attack types
func (g *IdsGame) AttackTypes() int {
	return g.cfg.AttackTypes
}

// observation returns the observation of role r as a flattened
// nodes x (attack types + 1) matrix. The attacker observes attack values
// and a one-hot encoding of its position in the last column. The
// defender observes defense values and detection values in the last
// column.
func (g *IdsGame) observation(r environment.Role) *mat.VecDense {
	cols := g.cfg.AttackTypes + 1
	obs := mat.NewVecDense(g.network.NumNodes()*cols, nil)

	for node := 0; node < g.network.NumNodes(); node++ {
		for k := 0; k < g.cfg.AttackTypes; k++ {
			if r == environment.Attacker {
				obs.SetVec(node*cols+k, float64(g.state.attack[node][k]))
			} else {
				obs.SetVec(node*cols+k, float64(g.state.defense[node][k]))
			}
		}

		if r == environment.Attacker {
			if node == g.state.position {
				obs.SetVec(node*cols+g.cfg.AttackTypes, 1.0)
			}
		} else {
			obs.SetVec(node*cols+g.cfg.AttackTypes,
				float64(g.state.detection[node]))
		}
	}
	return obs
}

// ActionSpec returns the action specification of role r
func (g *IdsGame) ActionSpec(r environment.Role) environment.Spec {
	return environment.NewSpec(1, environment.Action, 0,
		float64(g.NumActions(r)-1), environment.Discrete)
}

// ObservationSpec returns the observation specification of role r
func (g *IdsGame) ObservationSpec(r environment.Role) environment.Spec {
	n := g.network.NumNodes() * (g.cfg.AttackTypes + 1)
	return environment.NewSpec(n, environment.Observation, 0,
		float64(g.cfg.MaxValue), environment.Discrete)
}

// DiscountSpec returns the discount specification
func (g *IdsGame) DiscountSpec() environment.Spec {
	return environment.NewSpec(1, environment.Discount, g.cfg.Discount,
		g.cfg.Discount, environment.Continuous)
}

// Close implements environment.Game. An IdsGame holds no resources.
func (g *IdsGame) Close() error {
	return nil
}

func (g *IdsGame) String() string {
	layers, width := g.network.Dims()
	return fmt.Sprintf("IdsGame | Layers: %d  |  Servers: %d  |  Attack "+
		"Types: %d  |  Outcome: %v", layers, width, g.cfg.AttackTypes,
		g.outcome)
}

// Package sarsa implements the tabular SARSA algorithm for the players
// of an intrusion-detection game
package sarsa

import (
	"fmt"
	"math"

	"github.com/medai-secure/idsgame-sarsa/agent"
	"github.com/medai-secure/idsgame-sarsa/agent/tabular/policy"
	"github.com/medai-secure/idsgame-sarsa/environment"
	"gonum.org/v1/gonum/mat"
)

// SARSA implements the online, on-policy SARSA algorithm with an
// ε-greedy behaviour policy. Each role the agent plays owns a separate
// table of action values with one row per state and one column per
// action.
//
// ε is annealed once per episode as ε ← max(εEnd, ε·decay).
type SARSA struct {
	game     environment.Game
	roles    []environment.Role
	policies map[environment.Role]*policy.EGreedy

	learningRate float64
	gamma        float64
	epsilon      float64
	epsilonEnd   float64
	decay        float64
}

// New creates a new SARSA agent that plays every role in
// game.AgentRoles(). The number of table rows for each role is taken
// from states.
func New(game environment.Game, states environment.StateSpace,
	config Config, seed uint64) (*SARSA, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("sarsa: %w", err)
	}

	roles := game.AgentRoles()
	if len(roles) == 0 {
		return nil, fmt.Errorf("sarsa: game has no roles to learn")
	}

	policies := make(map[environment.Role]*policy.EGreedy, len(roles))
	for i, r := range roles {
		p, err := policy.NewEGreedy(config.EpsilonStart, config.EvalEpsilon,
			states.NumStates(r), game.NumActions(r), seed+uint64(i))
		if err != nil {
			return nil, fmt.Errorf("sarsa: invalid %v policy: %w", r, err)
		}
		policies[r] = p
	}

	return &SARSA{
		game:         game,
		roles:        roles,
		policies:     policies,
		learningRate: config.LearningRate,
		gamma:        config.Gamma,
		epsilon:      config.EpsilonStart,
		epsilonEnd:   config.EpsilonEnd,
		decay:        config.EpsilonDecay,
	}, nil
}

func (s *SARSA) policy(r environment.Role) (*policy.EGreedy, error) {
	p, ok := s.policies[r]
	if !ok {
		return nil, fmt.Errorf("sarsa: agent does not play role %v", r)
	}
	return p, nil
}

// SelectAction selects a legal action for role r in state
func (s *SARSA) SelectAction(r environment.Role, state int) (int, error) {
	p, err := s.policy(r)
	if err != nil {
		return 0, err
	}
	legal := func(a int) bool { return s.game.Legal(r, a) }

	a, err := p.SelectAction(state, legal)
	if err != nil {
		return 0, fmt.Errorf("sarsa: %v: %w", r, err)
	}
	return a, nil
}

// table returns the action values of role r after checking that t
// indexes into them
func (s *SARSA) table(r environment.Role, t agent.Transition) (*mat.Dense,
	error) {
	p, err := s.policy(r)
	if err != nil {
		return nil, err
	}
	q := p.Weights()[policy.WeightsKey]

	rows, cols := q.Dims()
	if t.State < 0 || t.State >= rows || t.Action < 0 || t.Action >= cols {
		return nil, fmt.Errorf("sarsa: (%d, %d) outside table of shape "+
			"(%d, %d)", t.State, t.Action, rows, cols)
	}
	if !t.Terminal && (t.NextState < 0 || t.NextState >= rows ||
		t.NextAction < 0 || t.NextAction >= cols) {
		return nil, fmt.Errorf("sarsa: next (%d, %d) outside table of "+
			"shape (%d, %d)", t.NextState, t.NextAction, rows, cols)
	}
	return q, nil
}

func (s *SARSA) tdError(q *mat.Dense, t agent.Transition) float64 {
	target := t.Reward
	if !t.Terminal {
		target += s.gamma * q.At(t.NextState, t.NextAction)
	}
	return target - q.At(t.State, t.Action)
}

// TdError returns the TD error of role r on transition t. Terminal
// transitions do not bootstrap.
func (s *SARSA) TdError(r environment.Role, t agent.Transition) (float64,
	error) {
	q, err := s.table(r, t)
	if err != nil {
		return 0, fmt.Errorf("tdError: %w", err)
	}
	return s.tdError(q, t), nil
}

// Update performs a single SARSA update for role r:
//
//	Q[s, a] ← Q[s, a] + α (r + γ Q[s', a'] - Q[s, a])
func (s *SARSA) Update(r environment.Role, t agent.Transition) error {
	q, err := s.table(r, t)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	delta := s.tdError(q, t)
	q.Set(t.State, t.Action, q.At(t.State, t.Action)+s.learningRate*delta)
	return nil
}

// Step performs one on-policy SARSA step for role r. It selects the
// next action a' in nextState with the behaviour policy, updates
// Q[state, action] towards reward + γ Q[nextState, a'] and returns a',
// which should be the action taken next. On terminal steps no next
// action is selected and -1 is returned.
func (s *SARSA) Step(r environment.Role, state, action int, reward float64,
	nextState int, terminal bool) (int, error) {
	t := agent.Transition{
		State:    state,
		Action:   action,
		Reward:   reward,
		Terminal: terminal,
	}

	next := -1
	if !terminal {
		var err error
		next, err = s.SelectAction(r, nextState)
		if err != nil {
			return next, err
		}
		t.NextState, t.NextAction = nextState, next
	}

	return next, s.Update(r, t)
}

// EndEpisode anneals ε
func (s *SARSA) EndEpisode() {
	s.SetEpsilon(math.Max(s.epsilonEnd, s.epsilon*s.decay))
}

// Epsilon returns the current training ε
func (s *SARSA) Epsilon() float64 {
	return s.epsilon
}

// SetEpsilon sets the training ε of every role
func (s *SARSA) SetEpsilon(e float64) {
	s.epsilon = e
	for _, p := range s.policies {
		p.SetEpsilon(e)
	}
}

// LearningRate returns the step size
func (s *SARSA) LearningRate() float64 {
	return s.learningRate
}

// Roles returns the roles the agent plays
func (s *SARSA) Roles() []environment.Role {
	return s.roles
}

// StateValues returns the sum of the action values of each state for
// role r
func (s *SARSA) StateValues(r environment.Role) ([]float64, error) {
	p, err := s.policy(r)
	if err != nil {
		return nil, err
	}
	q := p.Weights()[policy.WeightsKey]

	rows, _ := q.Dims()
	values := make([]float64, rows)
	for i := range values {
		values[i] = mat.Sum(q.RowView(i))
	}
	return values, nil
}

// Eval sets the agent to evaluation mode
func (s *SARSA) Eval() {
	for _, p := range s.policies {
		p.Eval()
	}
}

// Train sets the agent to training mode
func (s *SARSA) Train() {
	for _, p := range s.policies {
		p.Train()
	}
}

// IsEval indicates whether the agent is in evaluation mode
func (s *SARSA) IsEval() bool {
	return s.policies[s.roles[0]].IsEval()
}

// Weights returns the action-value table of each role keyed by role
// name
func (s *SARSA) Weights() map[string]*mat.Dense {
	weights := make(map[string]*mat.Dense, len(s.roles))
	for _, r := range s.roles {
		weights[r.String()] = s.policies[r].Weights()[policy.WeightsKey]
	}
	return weights
}

// SetWeights sets the action-value tables of the roles named in
// weights. Roles not named are left unchanged. If any table is invalid
// no table is changed.
func (s *SARSA) SetWeights(weights map[string]*mat.Dense) error {
	byRole := make(map[environment.Role]*mat.Dense, len(weights))
	for name, w := range weights {
		var role environment.Role
		found := false
		for _, r := range s.roles {
			if r.String() == name {
				role, found = r, true
				break
			}
		}
		if !found {
			return fmt.Errorf("setWeights: agent does not play role %q", name)
		}

		rows, cols := s.policies[role].Weights()[policy.WeightsKey].Dims()
		if r, c := w.Dims(); r != rows || c != cols {
			return fmt.Errorf("setWeights: %v: weights must have shape "+
				"(%d, %d), got (%d, %d)", role, rows, cols, r, c)
		}
		byRole[role] = w
	}

	for role, w := range byRole {
		err := s.policies[role].SetWeights(map[string]*mat.Dense{
			policy.WeightsKey: w,
		})
		if err != nil {
			return fmt.Errorf("setWeights: %v: %w", role, err)
		}
	}
	return nil
}

// Package policy implements policies over tabular action values
package policy

import (
	"errors"
	"fmt"

	"github.com/medai-secure/idsgame-sarsa/utils/floatutils"
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	// Keys for weights map: map[string]*mat.Dense
	WeightsKey string = "weights"
)

// ErrNoLegalAction is returned when no action is legal in a state
var ErrNoLegalAction = errors.New("no legal action")

// EGreedy implements an ε-greedy policy over a table of action values,
// restricted to the actions that are legal in the current state. Rows
// of the table are states and columns are actions.
//
// With probability ε a uniformly random legal action is selected,
// otherwise the legal action with the largest action value is selected.
// Ties are broken in favour of the lowest numbered action. In evaluation
// mode the evaluation ε is used instead of ε.
type EGreedy struct {
	weights     *mat.Dense
	epsilon     float64
	evalEpsilon float64
	eval        bool
	rng         *rand.Rand
}

// NewEGreedy constructs a new EGreedy policy over a zero-initialized
// table of states x actions action values
func NewEGreedy(e, evalE float64, states, actions int,
	seed uint64) (*EGreedy, error) {
	if states < 1 || actions < 1 {
		return nil, fmt.Errorf("newEGreedy: need at least one state and "+
			"action, got %d states and %d actions", states, actions)
	}
	if e < 0 || e > 1 {
		return nil, fmt.Errorf("newEGreedy: epsilon %v outside [0, 1]", e)
	}
	if evalE < 0 || evalE > 1 {
		return nil, fmt.Errorf("newEGreedy: evaluation epsilon %v outside "+
			"[0, 1]", evalE)
	}

	return &EGreedy{
		weights:     mat.NewDense(states, actions, nil),
		epsilon:     e,
		evalEpsilon: evalE,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// SelectAction selects an action in state from the ε-greedy policy.
// The legal function reports which actions may be selected.
func (p *EGreedy) SelectAction(state int, legal func(int) bool) (int,
	error) {
	rows, numActions := p.weights.Dims()
	if state < 0 || state >= rows {
		return 0, fmt.Errorf("selectAction: state %d outside [0, %d)", state,
			rows)
	}

	legalActions := make([]int, 0, numActions)
	for a := 0; a < numActions; a++ {
		if legal(a) {
			legalActions = append(legalActions, a)
		}
	}
	if len(legalActions) == 0 {
		return 0, fmt.Errorf("selectAction: state %d: %w", state,
			ErrNoLegalAction)
	}

	e := p.epsilon
	if p.eval {
		e = p.evalEpsilon
	}
	if p.rng.Float64() < e {
		return legalActions[p.rng.Intn(len(legalActions))], nil
	}

	_, greedy := floatutils.MaxOver(legalActions, func(a int) float64 {
		return p.weights.At(state, a)
	})
	return greedy, nil
}

// Epsilon returns the training ε
func (p *EGreedy) Epsilon() float64 {
	return p.epsilon
}

// SetEpsilon sets the training ε
func (p *EGreedy) SetEpsilon(e float64) {
	p.epsilon = e
}

// Eval sets the policy to evaluation mode
func (p *EGreedy) Eval() {
	p.eval = true
}

// Train sets the policy to training mode
func (p *EGreedy) Train() {
	p.eval = false
}

// IsEval indicates whether the policy is in evaluation mode
func (p *EGreedy) IsEval() bool {
	return p.eval
}

// Weights gets and returns the weights of the EGreedy policy as a
// string description -> weights
func (p *EGreedy) Weights() map[string]*mat.Dense {
	weights := make(map[string]*mat.Dense)
	weights[WeightsKey] = p.weights

	return weights
}

// SetWeights sets the weight pointers to point to a new set of weights.
// The SetWeights function can take the output of a call to Weights()
// on another EGreedy Policy directly
func (p *EGreedy) SetWeights(weights map[string]*mat.Dense) error {
	newWeights, ok := weights[WeightsKey]
	if !ok {
		return fmt.Errorf("setWeights: no weights named \"%v\"", WeightsKey)
	}

	r, c := p.weights.Dims()
	if nr, nc := newWeights.Dims(); nr != r || nc != c {
		return fmt.Errorf("setWeights: weights must have shape (%d, %d), "+
			"got (%d, %d)", r, c, nr, nc)
	}

	p.weights = newWeights
	return nil
}

package idsgame

import (
	"golang.org/x/exp/rand"

	"github.com/medai-secure/idsgame-sarsa/environment"
)

// Opponent is a fixed policy playing one role of an IdsGame
type Opponent interface {
	// Act returns the opponent's action in the current state of g, or
	// false if it has no legal action
	Act(g *IdsGame) (int, bool)
	Role() environment.Role
}

// uniform returns a uniformly random element of actions
func uniform(rng *rand.Rand, actions []int) (int, bool) {
	if len(actions) == 0 {
		return 0, false
	}
	return actions[rng.Intn(len(actions))], true
}

// RandomAttacker attacks a uniformly random legal target
type RandomAttacker struct {
	rng *rand.Rand
}

// NewRandomAttacker returns a new RandomAttacker
func NewRandomAttacker(seed uint64) *RandomAttacker {
	return &RandomAttacker{rand.New(rand.NewSource(seed))}
}

// Act implements the Opponent interface
func (r *RandomAttacker) Act(g *IdsGame) (int, bool) {
	return uniform(r.rng, g.LegalActions(environment.Attacker))
}

// Role implements the Opponent interface
func (r *RandomAttacker) Role() environment.Role {
	return environment.Attacker
}

// MaximalAttacker attacks the legal target with the largest attack value.
// Ties are broken uniformly at random.
type MaximalAttacker struct {
	rng *rand.Rand
}

// NewMaximalAttacker returns a new MaximalAttacker
func NewMaximalAttacker(seed uint64) *MaximalAttacker {
	return &MaximalAttacker{rand.New(rand.NewSource(seed))}
}

// Act implements the Opponent interface
func (m *MaximalAttacker) Act(g *IdsGame) (int, bool) {
	best, bestValue := []int{}, -1
	for _, a := range g.LegalActions(environment.Attacker) {
		node, k := g.decodeAttack(a)
		value := g.state.attack[node][k]
		if value > bestValue {
			best, bestValue = []int{a}, value
		} else if value == bestValue {
			best = append(best, a)
		}
	}
	return uniform(m.rng, best)
}

// Role implements the Opponent interface
func (m *MaximalAttacker) Role() environment.Role {
	return environment.Attacker
}

// RandomDefender raises a uniformly random legal defense or detection
// value
type RandomDefender struct {
	rng *rand.Rand
}

// NewRandomDefender returns a new RandomDefender
func NewRandomDefender(seed uint64) *RandomDefender {
	return &RandomDefender{rand.New(rand.NewSource(seed))}
}

// Act implements the Opponent interface
func (r *RandomDefender) Act(g *IdsGame) (int, bool) {
	return uniform(r.rng, g.LegalActions(environment.Defender))
}

// Role implements the Opponent interface
func (r *RandomDefender) Role() environment.Role {
	return environment.Defender
}

// MinimalDefender raises the smallest defense value in the network.
// Detection values are only raised once no defense value can be.
type MinimalDefender struct {
	rng *rand.Rand
}

// NewMinimalDefender returns a new MinimalDefender
func NewMinimalDefender(seed uint64) *MinimalDefender {
	return &MinimalDefender{rand.New(rand.NewSource(seed))}
}

// Act implements the Opponent interface
func (m *MinimalDefender) Act(g *IdsGame) (int, bool) {
	legal := g.LegalActions(environment.Defender)

	best, bestValue := []int{}, g.cfg.MaxValue+1
	for _, d := range legal {
		node, k := g.decodeDefense(d)
		if k == g.cfg.AttackTypes {
			continue
		}
		value := g.state.defense[node][k]
		if value < bestValue {
			best, bestValue = []int{d}, value
		} else if value == bestValue {
			best = append(best, d)
		}
	}

	if len(best) == 0 {
		return uniform(m.rng, legal)
	}
	return uniform(m.rng, best)
}

// Role implements the Opponent interface
func (m *MinimalDefender) Role() environment.Role {
	return environment.Defender
}

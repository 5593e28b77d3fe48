package idsgame

import (
	"github.com/medai-secure/idsgame-sarsa/environment"
)

// Registered names and entry points of the version 19 games
const (
	RandomAttackV19       = "idsgame-random_attack-v19"
	RandomAttackV19Entry  = "gym_idsgame.envs:IdsGameRandomAttackV19Env"
	MaximalAttackV19      = "idsgame-maximal_attack-v19"
	MaximalAttackV19Entry = "gym_idsgame.envs:IdsGameMaximalAttackV19Env"

	RandomDefenseV19       = "idsgame-random_defense-v19"
	RandomDefenseV19Entry  = "gym_idsgame.envs:IdsGameRandomDefenseV19Env"
	MinimalDefenseV19      = "idsgame-minimal_defense-v19"
	MinimalDefenseV19Entry = "gym_idsgame.envs:IdsGameMinimalDefenseV19Env"
)

func init() {
	environment.Register(environment.EnvSpec{
		Name:       RandomAttackV19,
		EntryPoint: RandomAttackV19Entry,
		Create: func(p environment.Params) (environment.Game, error) {
			return create(p, NewRandomAttacker(p.Seed+2), nil)
		},
	})
	environment.Register(environment.EnvSpec{
		Name:       MaximalAttackV19,
		EntryPoint: MaximalAttackV19Entry,
		Create: func(p environment.Params) (environment.Game, error) {
			return create(p, NewMaximalAttacker(p.Seed+2), nil)
		},
	})
	environment.Register(environment.EnvSpec{
		Name:       RandomDefenseV19,
		EntryPoint: RandomDefenseV19Entry,
		Create: func(p environment.Params) (environment.Game, error) {
			return create(p, nil, NewRandomDefender(p.Seed+2))
		},
	})
	environment.Register(environment.EnvSpec{
		Name:       MinimalDefenseV19,
		EntryPoint: MinimalDefenseV19Entry,
		Create: func(p environment.Params) (environment.Game, error) {
			return create(p, nil, NewMinimalDefender(p.Seed+2))
		},
	})
}

// create builds a version 19 game from environment parameters. The
// opponent argument for the role controlled by the caller is nil.
func create(p environment.Params, attacker, defender Opponent) (
	environment.Game, error) {
	cfg := DefaultV19Config()
	cfg.Seed = p.Seed
	cfg.Render = p.Render
	cfg.Discount = p.Discount
	cfg.MaxSteps = p.MaxSteps

	g, _, err := New(cfg, attacker, defender)
	if err != nil {
		return nil, err
	}
	return g, nil
}

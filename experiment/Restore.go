package experiment

import (
	"fmt"

	"github.com/medai-secure/idsgame-sarsa/environment"
	"github.com/medai-secure/idsgame-sarsa/experiment/checkpointer"
	"github.com/medai-secure/idsgame-sarsa/features"
	"gonum.org/v1/gonum/mat"
)

// Restore loads the snapshots at paths into the agent. Each snapshot
// replaces the action values of its role. If enc assigns rows to states
// at run time, the saved row assignment of each role is loaded into it
// as well, and snapshots without one are rejected. The agent's ε is set
// to the ε of the most recent snapshot, which is returned.
func Restore(a Agent, enc features.Encoder, paths ...string) (
	checkpointer.Snapshot, error) {
	var latest checkpointer.Snapshot
	keyed, isKeyed := enc.(features.Keyed)

	weights := make(map[string]*mat.Dense, len(paths))
	states := make(map[environment.Role][]string, len(paths))

	for i, path := range paths {
		s, err := checkpointer.Load(path)
		if err != nil {
			return latest, fmt.Errorf("restore: %w", err)
		}
		q, err := s.Dense()
		if err != nil {
			return latest, fmt.Errorf("restore %v: %w", path, err)
		}
		role, err := environment.ParseRole(s.Role)
		if err != nil {
			return latest, fmt.Errorf("restore %v: %w", path, err)
		}
		if _, ok := weights[s.Role]; ok {
			return latest, fmt.Errorf("restore: more than one snapshot of "+
				"role %v", s.Role)
		}

		switch {
		case isKeyed && !s.FullStateSpace:
			return latest, fmt.Errorf("restore %v: snapshot was not saved "+
				"with a full state space", path)
		case !isKeyed && s.FullStateSpace:
			return latest, fmt.Errorf("restore %v: snapshot was saved with "+
				"a full state space", path)
		case len(s.States) > s.Rows:
			return latest, fmt.Errorf("restore %v: %d states for %d rows",
				path, len(s.States), s.Rows)
		}

		weights[s.Role] = q
		states[role] = s.States

		if i == 0 || s.SavedAt.After(latest.SavedAt) {
			latest = s
		}
	}

	if err := a.SetWeights(weights); err != nil {
		return latest, fmt.Errorf("restore: %w", err)
	}
	if isKeyed {
		for r, keys := range states {
			if err := keyed.SetStates(r, keys); err != nil {
				return latest, fmt.Errorf("restore: %w", err)
			}
		}
	}
	if len(paths) > 0 {
		a.SetEpsilon(latest.Epsilon)
	}
	return latest, nil
}

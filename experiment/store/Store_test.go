package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunRoundTrip(t *testing.T) {
	s := openStore(t)

	run := RunInfo{
		ID:         uuid.New().String(),
		EnvName:    "idsgame-random_attack-v19",
		EntryPoint: "gym_idsgame.envs:IdsGameRandomAttackV19Env",
		ConfigPath: "config.yaml",
		Seed:       42,
		StartedAt:  time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC),
	}
	require.NoError(t, s.StartRun(run))

	got, err := s.Run(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.EnvName, got.EnvName)
	assert.Equal(t, run.Seed, got.Seed)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))

	// Run IDs are unique
	assert.Error(t, s.StartRun(run))

	_, err = s.Run("missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestMetrics(t *testing.T) {
	s := openStore(t)
	id := uuid.New().String()
	require.NoError(t, s.StartRun(RunInfo{ID: id, EnvName: "e",
		EntryPoint: "p", StartedAt: time.Now()}))

	for _, ep := range []int{0, 10, 20} {
		require.NoError(t, s.RecordMetrics(id, Train, ep, map[string]float64{
			"hack_probability": float64(ep) / 100,
			"epsilon_values":   1 - float64(ep)/100,
		}))
	}
	require.NoError(t, s.RecordMetrics(id, Eval, 0, map[string]float64{
		"hack_probability": 0.5,
	}))

	v, err := s.Metrics(id, Train, "hack_probability")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.1, 0.2}, v)

	v, err = s.Metrics(id, Eval, "hack_probability")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, v)

	v, err = s.Metrics(id, Eval, "epsilon_values")
	require.NoError(t, err)
	assert.Empty(t, v)

	// Metrics must belong to a known run
	err = s.RecordMetrics("unknown", Train, 0, map[string]float64{"x": 1})
	assert.Error(t, err)
}

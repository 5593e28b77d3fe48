package experiment

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medai-secure/idsgame-sarsa/agent/tabular/sarsa"
	"github.com/medai-secure/idsgame-sarsa/config"
	"github.com/medai-secure/idsgame-sarsa/environment"
	"github.com/medai-secure/idsgame-sarsa/environment/idsgame"
	"github.com/medai-secure/idsgame-sarsa/experiment/checkpointer"
	"github.com/medai-secure/idsgame-sarsa/experiment/store"
	"github.com/medai-secure/idsgame-sarsa/features"
	ts "github.com/medai-secure/idsgame-sarsa/timestep"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentConfig() sarsa.Config {
	return sarsa.Config{
		LearningRate: 0.1,
		Gamma:        0.9,
		EpsilonStart: 1.0,
		EpsilonEnd:   0.1,
		EpsilonDecay: 0.9,
	}
}

func schedule() config.Schedule {
	return config.Schedule{
		NumEpisodes:         10,
		MaxSteps:            20,
		LogFrequency:        5,
		EvalFrequency:       5,
		EvalEpisodes:        2,
		CheckpointFrequency: 5,
	}
}

// newTrainer returns a trainer of a defender against a random attacker
func newTrainer(t *testing.T, dir string, enc func(environment.Game) features.Encoder) *Trainer {
	t.Helper()
	s := schedule()

	game, err := environment.Make(idsgame.RandomAttackV19,
		idsgame.RandomAttackV19Entry, environment.Params{
			Seed:     1,
			Discount: 0.9,
			MaxSteps: s.MaxSteps,
		})
	require.NoError(t, err)

	encoder := enc(game)
	a, err := sarsa.New(game, encoder, agentConfig(), 1)
	require.NoError(t, err)

	tr, err := NewTrainer(TrainerConfig{
		Schedule:      s,
		RunID:         "test-run",
		Game:          game,
		Agent:         a,
		Encoder:       encoder,
		Logger:        zerolog.Nop(),
		CheckpointDir: filepath.Join(dir, "checkpoints"),
		ResultsDir:    filepath.Join(dir, "results"),
		Compress:      true,
		Metrics:       []string{config.HackProbability, config.EpsilonValues},
	})
	require.NoError(t, err)
	return tr
}

func tabular(g environment.Game) features.Encoder {
	return features.NewTabular(g)
}

func glob(t *testing.T, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(pattern)
	require.NoError(t, err)
	return matches
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	tr := newTrainer(t, dir, tabular)

	train, eval, err := tr.Run(context.Background())
	require.NoError(t, err)

	// Logging and evaluation on episodes 0 and 5
	assert.Equal(t, []int{0, 5}, train.Episodes())
	assert.Equal(t, []int{0, 5}, eval.Episodes())

	// ε is logged before it is annealed
	eps := train.Series(config.EpsilonValues)
	assert.InDelta(t, 1.0, eps[0], 1e-12)
	assert.InDelta(t, 0.9*0.9*0.9*0.9*0.9, eps[1], 1e-12)
	assert.Equal(t, []float64{0.1, 0.1}, train.Series(config.LearningRates))

	for _, p := range train.Series(config.HackProbability) {
		assert.True(t, p >= 0 && p <= 1)
	}
	for _, steps := range train.Series(config.AvgEpisodeSteps) {
		assert.True(t, steps >= 1 && steps <= 20)
	}

	// Checkpoints on episodes 0 and 5, and after training
	snapshots := glob(t, filepath.Join(dir, "checkpoints",
		"defender_q_table-*"+checkpointer.CompressedExtension))
	assert.Len(t, snapshots, 3)
	assert.Len(t, glob(t, filepath.Join(dir, "results",
		"*_train_results_checkpoint.csv")), 3)
	assert.Len(t, glob(t, filepath.Join(dir, "results",
		"*_eval_results_checkpoint.csv")), 3)

	s, err := checkpointer.Load(snapshots[0])
	require.NoError(t, err)
	assert.Equal(t, "defender", s.Role)
	assert.Equal(t, "test-run", s.RunID)
}

func TestRunFullStateSpace(t *testing.T) {
	dir := t.TempDir()
	var full *features.Full
	tr := newTrainer(t, dir, func(g environment.Game) features.Encoder {
		p, err := features.NewPipeline(true, true, false, 2, g.MaxValue())
		require.NoError(t, err)
		full, err = features.NewFull(p, 5000)
		require.NoError(t, err)
		return full
	})

	_, _, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, full.Seen(environment.Defender), 1)
}

func TestRunCancelled(t *testing.T) {
	tr := newTrainer(t, t.TempDir(), tabular)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := tr.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunRecordsToStore(t *testing.T) {
	dir := t.TempDir()
	tr := newTrainer(t, dir, tabular)

	db, err := store.Open(filepath.Join(dir, "metrics.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.StartRun(store.RunInfo{ID: tr.RunID,
		EnvName: idsgame.RandomAttackV19, EntryPoint: idsgame.RandomAttackV19Entry}))
	tr.Store = db

	train, _, err := tr.Run(context.Background())
	require.NoError(t, err)

	hacks, err := db.Metrics(tr.RunID, store.Train, config.HackProbability)
	require.NoError(t, err)
	assert.Equal(t, train.Series(config.HackProbability), hacks)

	// Only the selected metrics are stored
	steps, err := db.Metrics(tr.RunID, store.Train, config.AvgEpisodeSteps)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	tr := newTrainer(t, dir, tabular)
	_, _, err := tr.Run(context.Background())
	require.NoError(t, err)

	snapshots := glob(t, filepath.Join(dir, "checkpoints", "*"))
	require.NotEmpty(t, snapshots)

	fresh := newTrainer(t, t.TempDir(), tabular)
	s, err := Restore(fresh.Agent, fresh.Encoder, snapshots[0])
	require.NoError(t, err)
	assert.Equal(t, s.Epsilon, fresh.Agent.Epsilon())

	q, err := s.Dense()
	require.NoError(t, err)
	assert.Equal(t, q.RawMatrix().Data,
		fresh.Agent.Weights()["defender"].RawMatrix().Data)

	_, err = Restore(fresh.Agent, fresh.Encoder, snapshots[0], snapshots[0])
	assert.Error(t, err)
}

func fullEncoder(full **features.Full) func(environment.Game) features.Encoder {
	return func(g environment.Game) features.Encoder {
		p, err := features.NewPipeline(true, false, false, 1, g.MaxValue())
		if err != nil {
			panic(err)
		}
		if *full, err = features.NewFull(p, 5000); err != nil {
			panic(err)
		}
		return *full
	}
}

func TestRestoreFullStateSpace(t *testing.T) {
	dir := t.TempDir()
	var trained *features.Full
	tr := newTrainer(t, dir, fullEncoder(&trained))
	_, _, err := tr.Run(context.Background())
	require.NoError(t, err)

	// Names sort by save time, so the last snapshot is the final one
	snapshots := glob(t, filepath.Join(dir, "checkpoints", "*"))
	require.NotEmpty(t, snapshots)
	final := snapshots[len(snapshots)-1]

	saved, err := checkpointer.Load(final)
	require.NoError(t, err)
	assert.True(t, saved.FullStateSpace)
	assert.Equal(t, trained.States(environment.Defender), saved.States)

	var fresh *features.Full
	restored := newTrainer(t, t.TempDir(), fullEncoder(&fresh))
	_, err = Restore(restored.Agent, restored.Encoder, final)
	require.NoError(t, err)

	// Every saved state maps to the row it had when it was saved
	assert.Equal(t, saved.States, fresh.States(environment.Defender))
	assert.Equal(t, len(saved.States), fresh.Seen(environment.Defender))
	assert.Equal(t, tr.Agent.Weights()["defender"].RawMatrix().Data,
		restored.Agent.Weights()["defender"].RawMatrix().Data)

	// Tables from one kind of encoder are rejected by the other
	plain := newTrainer(t, t.TempDir(), tabular)
	_, err = Restore(plain.Agent, plain.Encoder, final)
	assert.Error(t, err)

	_, _, err = plain.Run(context.Background())
	require.NoError(t, err)
	plainSnapshots := glob(t, filepath.Join(plain.CheckpointDir, "*"))
	require.NotEmpty(t, plainSnapshots)
	_, err = Restore(restored.Agent, restored.Encoder, plainSnapshots[0])
	assert.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	tr := newTrainer(t, t.TempDir(), tabular)
	tr.Progress = &buf

	tr, err := NewTrainer(tr.TrainerConfig)
	require.NoError(t, err)
	_, _, err = tr.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[Train] epsilon:")
	assert.Contains(t, buf.String(), "100.00%")
}

func TestResultCSV(t *testing.T) {
	r := NewResult()
	require.NoError(t, r.Append(0, map[string]float64{
		config.HackProbability: 0.25,
	}))
	require.NoError(t, r.Append(10, map[string]float64{
		config.HackProbability: 0.5,
		config.EpsilonValues:   0.9,
	}))
	assert.Error(t, r.Append(20, map[string]float64{"loss": 1}))
	assert.Equal(t, 2, r.Len())

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf, []string{config.HackProbability,
		config.EpsilonValues}))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"episode", "hack_probability", "epsilon_values"},
		{"0", "0.25", "0"},
		{"10", "0.5", "0.9"},
	}, rows)

	buf.Reset()
	require.NoError(t, r.WriteCSV(&buf, nil))
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "episode,"+strings.Join(config.KnownMetrics, ","), header)
	assert.Error(t, r.WriteCSV(&buf, []string{"loss"}))

	path := filepath.Join(t.TempDir(), "out", "r.csv")
	require.NoError(t, r.SaveCSV(path, nil))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewTrainerValidates(t *testing.T) {
	_, err := NewTrainer(TrainerConfig{Schedule: schedule()})
	assert.Error(t, err)

	tr := newTrainer(t, t.TempDir(), tabular)
	c := tr.TrainerConfig
	c.LogFrequency = 0
	_, err = NewTrainer(c)
	assert.Error(t, err)
}

func TestTerminal(t *testing.T) {
	mid := ts.New(ts.Mid, 0, 0.9, nil, 3)
	assert.False(t, terminal(mid))

	timeout := ts.New(ts.Mid, 0, 0.9, nil, 20)
	timeout.SetEnd(ts.Timeout)
	assert.False(t, terminal(timeout))

	hacked := ts.New(ts.Mid, 1, 0, nil, 4)
	hacked.SetEnd(ts.TerminalStateReached)
	assert.True(t, terminal(hacked))
}

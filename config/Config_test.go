package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medai-secure/idsgame-sarsa/environment"
	_ "github.com/medai-secure/idsgame-sarsa/environment/idsgame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const valid = `
environment:
  name: idsgame-random_attack-v19
  entry_point: gym_idsgame.envs:IdsGameRandomAttackV19Env
  parameters:
    render: false
    seed: 42
sarsa:
  learning_rate: 0.1
  gamma: 0.99
  epsilon:
    start: 1.0
    end: 0.01
    decay: 0.995
  training:
    num_episodes: 1000
    max_steps_per_episode: 100
    evaluation:
      frequency: 100
      episodes: 50
  state:
    normalize_features: true
    zero_mean_features: false
    merged_ad_features: false
  memory:
    state_length: 1
  logging:
    frequency: 10
    dir: results/data
    metrics: [avg_attacker_episode_rewards, hack_probability]
  checkpoint:
    frequency: 500
    dir: results/checkpoints
logging:
  level: info
  dir: results/logs
  console_output: true
  save_to_file: false
visualization:
  show_training_progress: false
  save_plots: true
  plots_dir: results/plots
  metrics_to_plot: [hack_probability]
`

// with returns the valid document with one line replaced
func with(old, new string) []byte {
	if !strings.Contains(valid, old) {
		panic("with: " + old + " not in document")
	}
	return []byte(strings.Replace(valid, old, new, 1))
}

func mustParse(t *testing.T, data []byte) *Config {
	t.Helper()
	cfg, err := Parse(data)
	require.NoError(t, err)
	return cfg
}

func validationProblems(t *testing.T, err error) *ValidationError {
	t.Helper()
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr), "expected *ValidationError, got %v",
		err)
	return vErr
}

func TestParse(t *testing.T) {
	cfg := mustParse(t, []byte(valid))

	assert.Equal(t, "idsgame-random_attack-v19", cfg.Environment.Name)
	assert.Equal(t, 42, cfg.Environment.Parameters.Seed)
	assert.Equal(t, 0.99, cfg.SARSA.Gamma)
	assert.Equal(t, 0.995, cfg.SARSA.Epsilon.Decay)
	assert.Equal(t, 1000, cfg.SARSA.Training.NumEpisodes)
	assert.Equal(t, 50, cfg.SARSA.Training.Evaluation.Episodes)
	assert.True(t, cfg.SARSA.State.NormalizeFeatures)
	assert.Equal(t, []string{AvgAttackerEpisodeRewards, HackProbability},
		cfg.SARSA.Logging.Metrics)

	// Optional keys receive defaults
	assert.Equal(t, DefaultMaxStates, cfg.SARSA.State.MaxStates)
	assert.Equal(t, DefaultCompress, cfg.SARSA.Checkpoint.Compress)
	assert.Equal(t, 0.0, cfg.SARSA.Epsilon.Eval)
	assert.Empty(t, cfg.Logging.ResultsDB)

	require.NoError(t, cfg.Validate(environment.Registry{}))
}

func TestParseErrors(t *testing.T) {
	cases := map[string][]byte{
		"malformed":   []byte("environment: [unclosed"),
		"empty":       []byte(""),
		"not mapping": []byte("- a\n- b\n"),
		"unknown key": with("    seed: 42", "    seed: 42\n    speed: 1"),
		"wrong type":  with("gamma: 0.99", "gamma: high"),
	}
	for name, data := range cases {
		_, err := Parse(data)
		var pErr *ParseError
		assert.True(t, errors.As(err, &pErr), "%v: got %v", name, err)
	}
}

func TestMissingKeys(t *testing.T) {
	data := with("  gamma: 0.99\n", "")
	data = []byte(strings.Replace(string(data), "  plots_dir: results/plots\n",
		"", 1))

	_, err := Parse(data)
	vErr := validationProblems(t, err)
	assert.True(t, vErr.Has("sarsa.gamma"))
	assert.True(t, vErr.Has("visualization.plots_dir"))
	assert.Len(t, vErr.Problems, 2)

	// A key without a value is missing
	_, err = Parse(with("    dir: results/checkpoints",
		"    dir:"))
	vErr = validationProblems(t, err)
	assert.True(t, vErr.Has("sarsa.checkpoint.dir"))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		old, new string
		key      string
	}{
		{"gamma: 0.99", "gamma: 1.0", "sarsa.gamma"},
		{"gamma: 0.99", "gamma: -0.5", "sarsa.gamma"},
		{"learning_rate: 0.1", "learning_rate: 0", "sarsa.learning_rate"},
		{"learning_rate: 0.1", "learning_rate: 1.5", "sarsa.learning_rate"},
		{"start: 1.0", "start: 0.001", "sarsa.epsilon.start"},
		{"start: 1.0", "start: 1.2", "sarsa.epsilon.start"},
		{"end: 0.01", "end: -0.1", "sarsa.epsilon.end"},
		{"decay: 0.995", "decay: 0", "sarsa.epsilon.decay"},
		{"decay: 0.995", "decay: 1.5", "sarsa.epsilon.decay"},
		{"num_episodes: 1000", "num_episodes: 0",
			"sarsa.training.num_episodes"},
		{"max_steps_per_episode: 100", "max_steps_per_episode: -1",
			"sarsa.training.max_steps_per_episode"},
		{"frequency: 100", "frequency: 0",
			"sarsa.training.evaluation.frequency"},
		{"episodes: 50", "episodes: 5000",
			"sarsa.training.evaluation.episodes"},
		{"state_length: 1", "state_length: 0", "sarsa.memory.state_length"},
		{"dir: results/data", "dir: \"\"", "sarsa.logging.dir"},
		{"dir: results/checkpoints", "dir: \" \"", "sarsa.checkpoint.dir"},
		{"dir: results/logs", "dir: \"\"", "logging.dir"},
		{"plots_dir: results/plots", "plots_dir: \"\"",
			"visualization.plots_dir"},
		{"metrics: [avg_attacker_episode_rewards, hack_probability]",
			"metrics: []", "sarsa.logging.metrics"},
		{"metrics: [avg_attacker_episode_rewards, hack_probability]",
			"metrics: [hack_probability, hack_probability]",
			"sarsa.logging.metrics"},
		{"metrics_to_plot: [hack_probability]", "metrics_to_plot: [loss]",
			"visualization.metrics_to_plot"},
		{"level: info", "level: verbose", "logging.level"},
		{"seed: 42", "seed: -1", "environment.parameters.seed"},
		{"name: idsgame-random_attack-v19", "name: \"\"", "environment.name"},
	}

	for _, c := range cases {
		cfg := mustParse(t, with(c.old, c.new))
		err := cfg.Validate(nil)
		vErr := validationProblems(t, err)
		assert.True(t, vErr.Has(c.key), "%v -> %v: %v", c.old, c.new, err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	data := with("gamma: 0.99", "gamma: 1.0")
	data = []byte(strings.Replace(string(data), "decay: 0.995", "decay: 0", 1))

	cfg := mustParse(t, data)
	vErr := validationProblems(t, cfg.Validate(nil))
	assert.Len(t, vErr.Problems, 2)
	assert.Contains(t, vErr.Error(), "sarsa.gamma")
	assert.Contains(t, vErr.Error(), "sarsa.epsilon.decay")
}

func TestResolution(t *testing.T) {
	cfg := mustParse(t, with("gym_idsgame.envs:IdsGameRandomAttackV19Env",
		"gym_idsgame.envs:IdsGameNoSuchEnv"))

	err := cfg.Validate(environment.Registry{})
	var rErr *ResolutionError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "gym_idsgame.envs:IdsGameNoSuchEnv", rErr.EntryPoint)
	assert.Contains(t, rErr.Known,
		"gym_idsgame.envs:IdsGameRandomAttackV19Env")

	// The name must match the registered entry point
	cfg = mustParse(t, with("name: idsgame-random_attack-v19",
		"name: idsgame-minimal_defense-v19"))
	err = cfg.Validate(environment.Registry{})
	assert.True(t, errors.As(err, &rErr))

	// A nil resolver skips resolution
	assert.NoError(t, cfg.Validate(nil))
}

func TestLevels(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "Warn", "warning", "ERROR"} {
		_, err := ParseLevel(s)
		assert.NoError(t, err, s)
	}
	l, _ := ParseLevel("warning")
	assert.Equal(t, Warn, l)

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestLoadIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(valid), 0o644))

	a, err := Load(path)
	require.NoError(t, err)
	b, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, path, a.Path())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	var pErr *ParseError
	require.True(t, errors.As(err, &pErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, pErr.Path, "missing.yaml")

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: [b"), 0o644))
	_, err = Load(path)
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, path, pErr.Path)
}

func TestRepositoryConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(environment.Registry{}))
}

func TestFlatten(t *testing.T) {
	doc, err := Flatten([]byte(valid))
	require.NoError(t, err)

	v, ok := doc.Get("sarsa.epsilon.start")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = doc.Get("environment.parameters.seed")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	v, ok = doc.Get("visualization.metrics_to_plot")
	require.True(t, ok)
	assert.Equal(t, []interface{}{"hack_probability"}, v)

	_, ok = doc.Get("sarsa.epsilon")
	assert.False(t, ok)
	assert.Contains(t, doc.Keys(), "logging.level")

	_, err = Flatten([]byte("a: [b"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := mustParse(t, []byte(valid))
	env := map[string]string{
		EnvSeed:          "7",
		EnvLogLevel:      "debug",
		EnvNumEpisodes:   "20",
		EnvCheckpointDir: "/tmp/ckpt",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, 7, cfg.Environment.Parameters.Seed)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 20, cfg.SARSA.Training.NumEpisodes)
	assert.Equal(t, "/tmp/ckpt", cfg.SARSA.Checkpoint.Dir)

	env[EnvSeed] = "seven"
	env[EnvNumEpisodes] = "many"
	vErr := validationProblems(t, cfg.ApplyEnv(lookup))
	assert.True(t, vErr.Has("environment.parameters.seed"))
	assert.True(t, vErr.Has("sarsa.training.num_episodes"))
}

func TestDerivedConfigs(t *testing.T) {
	cfg := mustParse(t, []byte(valid))

	a := cfg.AgentConfig()
	require.NoError(t, a.Validate())
	assert.Equal(t, 0.1, a.LearningRate)
	assert.Equal(t, 0.01, a.EpsilonEnd)

	s := cfg.TrainConfig()
	assert.Equal(t, Schedule{
		NumEpisodes:         1000,
		MaxSteps:            100,
		LogFrequency:        10,
		EvalFrequency:       100,
		EvalEpisodes:        50,
		CheckpointFrequency: 500,
	}, s)

	p := cfg.EnvParams()
	assert.Equal(t, uint64(42), p.Seed)
	assert.Equal(t, 100, p.MaxSteps)
	assert.Equal(t, 0.99, p.Discount)
}

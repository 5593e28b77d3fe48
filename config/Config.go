// Package config loads and validates the YAML configuration document of
// a SARSA Ids-Game experiment.
//
// A configuration is loaded once at process start, optionally
// overridden from the process environment, validated, and then treated
// as immutable for the rest of the run.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/medai-secure/idsgame-sarsa/agent/tabular/sarsa"
	"github.com/medai-secure/idsgame-sarsa/environment"
	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration document
type Config struct {
	Environment   Environment   `yaml:"environment"`
	SARSA         SARSA         `yaml:"sarsa"`
	Logging       Logging       `yaml:"logging"`
	Visualization Visualization `yaml:"visualization"`

	path string
}

// Environment selects the game to play
type Environment struct {
	Name       string     `yaml:"name"`
	EntryPoint string     `yaml:"entry_point"`
	Parameters Parameters `yaml:"parameters"`
}

// Parameters are passed to the environment constructor
type Parameters struct {
	Render bool `yaml:"render"`
	Seed   int  `yaml:"seed"`
}

// SARSA holds the agent hyperparameters and training schedule
type SARSA struct {
	LearningRate float64        `yaml:"learning_rate"`
	Gamma        float64        `yaml:"gamma"`
	Epsilon      Epsilon        `yaml:"epsilon"`
	Training     Training       `yaml:"training"`
	State        State          `yaml:"state"`
	Memory       Memory         `yaml:"memory"`
	Logging      ResultsLogging `yaml:"logging"`
	Checkpoint   Checkpoint     `yaml:"checkpoint"`
}

// Epsilon is the ε-greedy exploration schedule
type Epsilon struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Decay float64 `yaml:"decay"`
	Eval  float64 `yaml:"eval"`
}

// Training is the episode schedule
type Training struct {
	NumEpisodes        int        `yaml:"num_episodes"`
	MaxStepsPerEpisode int        `yaml:"max_steps_per_episode"`
	Evaluation         Evaluation `yaml:"evaluation"`
}

// Evaluation is the evaluation schedule
type Evaluation struct {
	Frequency int `yaml:"frequency"`
	Episodes  int `yaml:"episodes"`
}

// State configures the feature preprocessing pipeline
type State struct {
	NormalizeFeatures bool `yaml:"normalize_features"`
	ZeroMeanFeatures  bool `yaml:"zero_mean_features"`
	MergedADFeatures  bool `yaml:"merged_ad_features"`
	FullStateSpace    bool `yaml:"full_state_space"`
	MaxStates         int  `yaml:"max_states"`
}

// Memory configures state stacking
type Memory struct {
	StateLength int `yaml:"state_length"`
}

// ResultsLogging configures the metric series that are recorded
type ResultsLogging struct {
	Frequency int      `yaml:"frequency"`
	Dir       string   `yaml:"dir"`
	Metrics   []string `yaml:"metrics"`
}

// Checkpoint configures Q-table snapshots
type Checkpoint struct {
	Frequency int    `yaml:"frequency"`
	Dir       string `yaml:"dir"`
	Compress  bool   `yaml:"compress"`
}

// Logging configures the process logger
type Logging struct {
	Level         string `yaml:"level"`
	Dir           string `yaml:"dir"`
	ConsoleOutput bool   `yaml:"console_output"`
	SaveToFile    bool   `yaml:"save_to_file"`
	ResultsDB     string `yaml:"results_db"`
}

// Visualization configures progress output and plots
type Visualization struct {
	ShowTrainingProgress bool     `yaml:"show_training_progress"`
	SavePlots            bool     `yaml:"save_plots"`
	PlotsDir             string   `yaml:"plots_dir"`
	MetricsToPlot        []string `yaml:"metrics_to_plot"`
}

// Defaults of the optional keys
const (
	DefaultMaxStates = 10000
	DefaultCompress  = true
)

// requiredKeys must be present in every configuration document
var requiredKeys = []string{
	"environment.name",
	"environment.entry_point",
	"environment.parameters.render",
	"environment.parameters.seed",
	"sarsa.learning_rate",
	"sarsa.gamma",
	"sarsa.epsilon.start",
	"sarsa.epsilon.end",
	"sarsa.epsilon.decay",
	"sarsa.training.num_episodes",
	"sarsa.training.max_steps_per_episode",
	"sarsa.training.evaluation.frequency",
	"sarsa.training.evaluation.episodes",
	"sarsa.state.normalize_features",
	"sarsa.state.zero_mean_features",
	"sarsa.state.merged_ad_features",
	"sarsa.memory.state_length",
	"sarsa.logging.frequency",
	"sarsa.logging.dir",
	"sarsa.logging.metrics",
	"sarsa.checkpoint.frequency",
	"sarsa.checkpoint.dir",
	"logging.level",
	"logging.dir",
	"logging.console_output",
	"logging.save_to_file",
	"visualization.show_training_progress",
	"visualization.save_plots",
	"visualization.plots_dir",
	"visualization.metrics_to_plot",
}

// defaults returns a Config holding the defaults of the optional keys
func defaults() *Config {
	return &Config{
		SARSA: SARSA{
			State:      State{MaxStates: DefaultMaxStates},
			Checkpoint: Checkpoint{Compress: DefaultCompress},
		},
	}
}

// Parse decodes a configuration document. Unknown keys are rejected and
// every required key must be present.
func Parse(data []byte) (*Config, error) {
	root, err := parseNode(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	cfg := defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &ParseError{Err: err}
	}

	doc := make(Document)
	if err := flatten(root, "", doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	missing := &ValidationError{}
	for _, key := range requiredKeys {
		if v, ok := doc.Get(key); !ok || v == nil {
			missing.add(key, "is required")
		}
	}
	if err := missing.err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads and parses the configuration document at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		if pErr, ok := err.(*ParseError); ok {
			pErr.Path = path
		}
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Path returns the file the Config was loaded from, if any
func (c *Config) Path() string {
	return c.path
}

// Resolver resolves environment names and entry points
type Resolver interface {
	Resolve(name, entryPoint string) bool
	Known() []string
}

// Validate checks every invariant of the configuration and returns a
// *ValidationError listing each violation. If the configuration is
// otherwise valid and r is non-nil, the environment is resolved with r
// and a *ResolutionError is returned if it is not registered.
func (c *Config) Validate(r Resolver) error {
	v := &ValidationError{}

	if c.Environment.Name == "" {
		v.add("environment.name", "must not be empty")
	}
	if c.Environment.EntryPoint == "" {
		v.add("environment.entry_point", "must not be empty")
	}
	if c.Environment.Parameters.Seed < 0 {
		v.add("environment.parameters.seed", "must not be negative, got %d",
			c.Environment.Parameters.Seed)
	}

	s := c.SARSA
	if s.LearningRate <= 0 || s.LearningRate > 1 {
		v.add("sarsa.learning_rate", "must be in (0, 1], got %v",
			s.LearningRate)
	}
	if s.Gamma < 0 || s.Gamma >= 1 {
		v.add("sarsa.gamma", "must be in [0, 1), got %v", s.Gamma)
	}
	if s.Epsilon.End < 0 {
		v.add("sarsa.epsilon.end", "must not be negative, got %v",
			s.Epsilon.End)
	}
	if s.Epsilon.Start < s.Epsilon.End || s.Epsilon.Start > 1 {
		v.add("sarsa.epsilon.start", "must be in [end, 1] = [%v, 1], got %v",
			s.Epsilon.End, s.Epsilon.Start)
	}
	if s.Epsilon.Decay <= 0 || s.Epsilon.Decay > 1 {
		v.add("sarsa.epsilon.decay", "must be in (0, 1], got %v",
			s.Epsilon.Decay)
	}
	if s.Epsilon.Eval < 0 || s.Epsilon.Eval > 1 {
		v.add("sarsa.epsilon.eval", "must be in [0, 1], got %v",
			s.Epsilon.Eval)
	}

	positive(v, "sarsa.training.num_episodes", s.Training.NumEpisodes)
	positive(v, "sarsa.training.max_steps_per_episode",
		s.Training.MaxStepsPerEpisode)
	positive(v, "sarsa.training.evaluation.frequency",
		s.Training.Evaluation.Frequency)
	positive(v, "sarsa.training.evaluation.episodes",
		s.Training.Evaluation.Episodes)
	if s.Training.Evaluation.Episodes > s.Training.NumEpisodes {
		v.add("sarsa.training.evaluation.episodes", "must not exceed "+
			"sarsa.training.num_episodes (%d), got %d",
			s.Training.NumEpisodes, s.Training.Evaluation.Episodes)
	}
	if s.State.FullStateSpace {
		positive(v, "sarsa.state.max_states", s.State.MaxStates)
	}
	positive(v, "sarsa.memory.state_length", s.Memory.StateLength)

	positive(v, "sarsa.logging.frequency", s.Logging.Frequency)
	nonEmpty(v, "sarsa.logging.dir", s.Logging.Dir)
	metrics(v, "sarsa.logging.metrics", s.Logging.Metrics)
	positive(v, "sarsa.checkpoint.frequency", s.Checkpoint.Frequency)
	nonEmpty(v, "sarsa.checkpoint.dir", s.Checkpoint.Dir)

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		v.add("logging.level", "%v", err)
	}
	nonEmpty(v, "logging.dir", c.Logging.Dir)

	nonEmpty(v, "visualization.plots_dir", c.Visualization.PlotsDir)
	metrics(v, "visualization.metrics_to_plot",
		c.Visualization.MetricsToPlot)

	if err := v.err(); err != nil {
		return err
	}

	if r != nil && !r.Resolve(c.Environment.Name, c.Environment.EntryPoint) {
		return &ResolutionError{
			Name:       c.Environment.Name,
			EntryPoint: c.Environment.EntryPoint,
			Known:      r.Known(),
		}
	}
	return nil
}

func positive(v *ValidationError, key string, value int) {
	if value <= 0 {
		v.add(key, "must be positive, got %d", value)
	}
}

func nonEmpty(v *ValidationError, key, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(key, "must not be empty")
	}
}

func metrics(v *ValidationError, key string, names []string) {
	if len(names) == 0 {
		v.add(key, "must not be empty")
		return
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			v.add(key, "contains duplicate metric %q", name)
		}
		seen[name] = true
		if !IsKnownMetric(name) {
			v.add(key, "contains unknown metric %q", name)
		}
	}
}

// AgentConfig returns the configuration of the SARSA agent
func (c *Config) AgentConfig() sarsa.Config {
	return sarsa.Config{
		LearningRate: c.SARSA.LearningRate,
		Gamma:        c.SARSA.Gamma,
		EpsilonStart: c.SARSA.Epsilon.Start,
		EpsilonEnd:   c.SARSA.Epsilon.End,
		EpsilonDecay: c.SARSA.Epsilon.Decay,
		EvalEpsilon:  c.SARSA.Epsilon.Eval,
	}
}

// Schedule is the episode schedule of a training run. Frequencies are
// in episodes; an event fires on every episode divisible by its
// frequency, starting with episode 0.
type Schedule struct {
	NumEpisodes         int
	MaxSteps            int
	LogFrequency        int
	EvalFrequency       int
	EvalEpisodes        int
	CheckpointFrequency int
}

// TrainConfig returns the training schedule
func (c *Config) TrainConfig() Schedule {
	t := c.SARSA.Training
	return Schedule{
		NumEpisodes:         t.NumEpisodes,
		MaxSteps:            t.MaxStepsPerEpisode,
		LogFrequency:        c.SARSA.Logging.Frequency,
		EvalFrequency:       t.Evaluation.Frequency,
		EvalEpisodes:        t.Evaluation.Episodes,
		CheckpointFrequency: c.SARSA.Checkpoint.Frequency,
	}
}

// EnvParams returns the parameters used to construct the environment
func (c *Config) EnvParams() environment.Params {
	return environment.Params{
		Seed:     uint64(c.Environment.Parameters.Seed),
		Render:   c.Environment.Parameters.Render,
		Discount: c.SARSA.Gamma,
		MaxSteps: c.SARSA.Training.MaxStepsPerEpisode,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("Config | Env: %v  |  α: %v  |  γ: %v  |  ε: %v -> "+
		"%v (×%v)  |  Episodes: %d", c.Environment.Name, c.SARSA.LearningRate,
		c.SARSA.Gamma, c.SARSA.Epsilon.Start, c.SARSA.Epsilon.End,
		c.SARSA.Epsilon.Decay, c.SARSA.Training.NumEpisodes)
}

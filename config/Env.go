package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables that override configuration keys
const (
	EnvSeed          = "IDSGAME_SEED"
	EnvLogLevel      = "IDSGAME_LOG_LEVEL"
	EnvNumEpisodes   = "IDSGAME_NUM_EPISODES"
	EnvCheckpointDir = "IDSGAME_CHECKPOINT_DIR"
)

// ApplyEnv overrides configuration keys from environment variables
// returned by lookup, typically os.LookupEnv. Values that cannot be
// parsed are reported in a *ValidationError.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	v := &ValidationError{}

	if s, ok := lookup(EnvSeed); ok {
		seed, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			v.add("environment.parameters.seed", "%v=%q is not an integer",
				EnvSeed, s)
		} else {
			c.Environment.Parameters.Seed = seed
		}
	}

	if s, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = strings.TrimSpace(s)
	}

	if s, ok := lookup(EnvNumEpisodes); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			v.add("sarsa.training.num_episodes", "%v=%q is not an integer",
				EnvNumEpisodes, s)
		} else {
			c.SARSA.Training.NumEpisodes = n
		}
	}

	if s, ok := lookup(EnvCheckpointDir); ok {
		c.SARSA.Checkpoint.Dir = s
	}

	return v.err()
}

// Level is a normalized log level
type Level string

const (
	Debug Level = "DEBUG"
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

// ParseLevel parses a log level case-insensitively. WARNING is accepted
// as an alias of WARN.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return Debug, nil
	case "INFO":
		return Info, nil
	case "WARN", "WARNING":
		return Warn, nil
	case "ERROR":
		return Error, nil
	}
	return "", fmt.Errorf("unknown log level %q, must be one of DEBUG, "+
		"INFO, WARN, ERROR", s)
}

// Package logging builds the process logger from the logging block of a
// configuration
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/medai-secure/idsgame-sarsa/config"
	"github.com/rs/zerolog"
)

// Console is the writer console output goes to
var Console io.Writer = os.Stdout

// nopCloser is returned when no log file is opened
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing human-readable lines to Console when
// console output is enabled and JSON lines to <dir>/<runID>.log when
// saving to file is enabled. Every event carries the run ID. The
// returned Closer closes the log file.
func New(cfg config.Logging, runID string) (zerolog.Logger, io.Closer,
	error) {
	level, err := Level(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("logging: %w", err)
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if cfg.ConsoleOutput {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        Console,
			TimeFormat: "15:04:05",
		})
	}

	if cfg.SaveToFile {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("logging: %w", err)
		}
		path := filepath.Join(cfg.Dir, runID+".log")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("logging: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("run", runID).
		Logger()
	return logger, closer, nil
}

// Level converts a configured log level to a zerolog level
func Level(s string) (zerolog.Level, error) {
	l, err := config.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, err
	}

	switch l {
	case config.Debug:
		return zerolog.DebugLevel, nil
	case config.Warn:
		return zerolog.WarnLevel, nil
	case config.Error:
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, nil
	}
}

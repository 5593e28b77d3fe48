package config

import (
	"fmt"
	"strings"
)

// ParseError is returned when a configuration document cannot be read
// or is not valid YAML for the configuration schema
type ParseError struct {
	Path string // empty when parsing from memory
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: parse: %v", e.Err)
	}
	return fmt.Sprintf("config: parse %v: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Problem is a single violated invariant of a configuration key
type Problem struct {
	Key     string
	Message string
}

func (p Problem) String() string {
	return p.Key + " " + p.Message
}

// ValidationError collects every problem found in a configuration
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return "config: validation failed: " + strings.Join(msgs, "; ")
}

// Has returns whether the error contains a problem for key
func (e *ValidationError) Has(key string) bool {
	for _, p := range e.Problems {
		if p.Key == key {
			return true
		}
	}
	return false
}

// add records a problem
func (e *ValidationError) add(key, format string, args ...interface{}) {
	e.Problems = append(e.Problems, Problem{
		Key:     key,
		Message: fmt.Sprintf(format, args...),
	})
}

// err returns e if any problem was recorded and nil otherwise
func (e *ValidationError) err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ResolutionError is returned when environment.entry_point does not
// resolve to a registered environment
type ResolutionError struct {
	Name       string
	EntryPoint string
	Known      []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("config: environment %q (entry point %q) is not "+
		"registered; known entry points: %v", e.Name, e.EntryPoint,
		strings.Join(e.Known, ", "))
}

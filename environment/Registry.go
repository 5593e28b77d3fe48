package environment

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownEnv is returned by Make when neither the name nor the entry
// point of an environment has been registered
var ErrUnknownEnv = errors.New("unknown environment")

// ErrIllegalAction is wrapped by Game.Step when a caller-controlled
// action is not legal
var ErrIllegalAction = errors.New("illegal action")

// Params are the construction parameters passed to an environment
// factory. They correspond to the environment.parameters block of the
// configuration document plus the episode settings of the trainer.
type Params struct {
	Seed     uint64
	Render   bool
	Discount float64

	// MaxSteps is the episode step limit; 0 means no limit
	MaxSteps int
}

// EnvSpec describes a registered environment. Name is the short
// registry name (e.g. idsgame-random_attack-v19) and EntryPoint the
// fully qualified constructor name an experiment configuration refers
// to.
type EnvSpec struct {
	Name       string
	EntryPoint string
	Create     func(Params) (Game, error)
}

// Registered environments. Each environment package registers its own
// environments in an init() function to avoid circular imports.
var (
	registryMu   sync.RWMutex
	byEntryPoint = map[string]EnvSpec{}
	byName       = map[string]EnvSpec{}
)

// Register registers an environment so that it can be constructed by
// Make. Register panics if the name or entry point is empty or already
// registered.
func Register(spec EnvSpec) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if spec.Name == "" || spec.EntryPoint == "" || spec.Create == nil {
		panic("register: environment name, entry point, and constructor " +
			"must be set")
	}
	if _, ok := byName[spec.Name]; ok {
		panic(fmt.Sprintf("register: environment %v registered twice",
			spec.Name))
	}
	if _, ok := byEntryPoint[spec.EntryPoint]; ok {
		panic(fmt.Sprintf("register: entry point %v registered twice",
			spec.EntryPoint))
	}

	byName[spec.Name] = spec
	byEntryPoint[spec.EntryPoint] = spec
}

// Lookup returns the registered environment for an entry point
func Lookup(entryPoint string) (EnvSpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	spec, ok := byEntryPoint[entryPoint]
	return spec, ok
}

// Resolve returns whether an entry point resolves to a registered
// environment. If name is non-empty it must also be the registered name
// of that environment.
func Resolve(name, entryPoint string) bool {
	spec, ok := Lookup(entryPoint)
	if !ok {
		return false
	}
	return name == "" || spec.Name == name
}

// Known returns the registered entry points in sorted order
func Known() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	known := make([]string, 0, len(byEntryPoint))
	for entryPoint := range byEntryPoint {
		known = append(known, entryPoint)
	}
	sort.Strings(known)
	return known
}

// Make constructs the environment registered under entryPoint. If name
// is non-empty it must match the registered name.
func Make(name, entryPoint string, p Params) (Game, error) {
	spec, ok := Lookup(entryPoint)
	if !ok {
		return nil, fmt.Errorf("make: %w: entry point %q", ErrUnknownEnv,
			entryPoint)
	}
	if name != "" && spec.Name != name {
		return nil, fmt.Errorf("make: %w: entry point %q is registered as "+
			"%q, not %q", ErrUnknownEnv, entryPoint, spec.Name, name)
	}

	game, err := spec.Create(p)
	if err != nil {
		return nil, fmt.Errorf("make: could not create %v: %w", spec.Name, err)
	}
	return game, nil
}

// Registry exposes the package-level registry through methods, for
// callers that accept the registry as an interface
type Registry struct{}

// Resolve implements the package-level Resolve
func (Registry) Resolve(name, entryPoint string) bool {
	return Resolve(name, entryPoint)
}

// Known implements the package-level Known
func (Registry) Known() []string {
	return Known()
}

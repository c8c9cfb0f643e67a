package engine

import (
	"errors"
	"fmt"
	"sort"
)

// Factory builds one unconfigured Adapter.
type Factory func() (Adapter, error)

// Registry maps engine names to their factories.
type Registry struct {
	factories map[string]Factory
}

var errDuplicateEngine = errors.New("duplicate engine")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for the given engine name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("empty engine name")
	}

	if factory == nil {
		return errors.New("nil factory")
	}

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", errDuplicateEngine, name)
	}

	r.factories[name] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, factory Factory) {
	err := r.Register(name, factory)
	if err != nil {
		panic("engine registry: " + err.Error())
	}
}

// Lookup returns the factory for the given engine name, or nil.
func (r *Registry) Lookup(name string) Factory {
	return r.factories[name]
}

// New builds an adapter for name. Unknown names wrap ErrUnknownEngine.
func (r *Registry) New(name string) (Adapter, error) {
	factory := r.Lookup(name)
	if factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	a, err := factory()
	if err != nil {
		return nil, fmt.Errorf("load engine %q: %w", name, err)
	}
	if a == nil {
		return nil, fmt.Errorf("load engine %q: factory returned nil", name)
	}
	return a, nil
}

// Names returns the registered engine names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine names registered by DefaultRegistry.
const (
	NamePitch = "pitch"
	NameDelay = "delay"
)

// DefaultRegistry returns a Registry with the built-in engines.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(NamePitch, func() (Adapter, error) {
		return NewPitch(), nil
	})
	r.MustRegister(NameDelay, func() (Adapter, error) {
		return NewDelay(), nil
	})

	return r
}

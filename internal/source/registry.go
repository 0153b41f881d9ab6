package source

import (
	"fmt"
	"sort"
)

// Registry maps provider names to adapter instances so the surrounding
// fetch framework can treat adapters as interchangeable plugins.
type Registry struct {
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds an adapter under a provider name. Registering the same
// name twice is an error.
func (r *Registry) Register(name string, s Source) error {
	if name == "" {
		return fmt.Errorf("register source: empty name")
	}
	if s == nil {
		return fmt.Errorf("register source %q: nil source", name)
	}
	if _, ok := r.sources[name]; ok {
		return fmt.Errorf("register source %q: already registered", name)
	}
	r.sources[name] = s
	return nil
}

// Lookup returns the adapter registered under name.
func (r *Registry) Lookup(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Names lists registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

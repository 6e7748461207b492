package testparser

import (
	"fmt"
	"strings"
)

// Registry maps pattern names to summary patterns and remembers their
// priority order.
type Registry struct {
	order    []string
	patterns map[string]Pattern
}

// NewRegistry creates a new registry with all built-in patterns.
func NewRegistry() *Registry {
	r := &Registry{
		patterns: make(map[string]Pattern),
	}
	for _, p := range BuiltinPatterns() {
		r.Register(p)
	}
	return r
}

// Register adds a pattern at the lowest priority. Registering an existing
// name replaces the pattern in place and keeps its priority.
func (r *Registry) Register(p Pattern) {
	key := strings.ToLower(p.Name)
	if _, ok := r.patterns[key]; !ok {
		r.order = append(r.order, key)
	}
	r.patterns[key] = p
}

// Get returns the pattern registered under name.
func (r *Registry) Get(name string) (Pattern, bool) {
	p, ok := r.patterns[strings.ToLower(name)]
	return p, ok
}

// Names returns pattern names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Select returns the named patterns in the order given. An empty selection
// returns every registered pattern in priority order.
func (r *Registry) Select(names []string) ([]Pattern, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	selected := make([]Pattern, 0, len(names))
	for _, name := range names {
		p, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown summary pattern %q (known: %s)",
				name, strings.Join(r.order, ", "))
		}
		selected = append(selected, p)
	}
	return selected, nil
}

// ExtraPatternName names the i-th (zero-based) pattern supplied by
// configuration.
func ExtraPatternName(i int) string {
	return fmt.Sprintf("custom-%d", i+1)
}

// NewRegistryWith creates a registry holding the built-in patterns followed
// by the given extra expressions, named custom-1, custom-2 and so on.
func NewRegistryWith(extra []string) (*Registry, error) {
	r := NewRegistry()
	for i, expr := range extra {
		p, err := CompilePattern(ExtraPatternName(i), expr)
		if err != nil {
			return nil, err
		}
		r.Register(p)
	}
	return r, nil
}

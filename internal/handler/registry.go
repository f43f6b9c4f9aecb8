// SPDX-License-Identifier: MIT

package handler

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps fully-qualified handler symbols (as referenced by restmap
// stanzas) to factories. Registration happens during daemon wiring, before
// the endpoint registry loads, so resolution failures surface at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty symbol registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a symbol to a factory. Double registration is a wiring bug.
func (r *Registry) Register(symbol string, factory Factory) error {
	if symbol == "" {
		return fmt.Errorf("empty handler symbol")
	}
	if factory == nil {
		return fmt.Errorf("nil factory for handler %q", symbol)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[symbol]; exists {
		return fmt.Errorf("handler %q already registered", symbol)
	}
	r.factories[symbol] = factory
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(symbol string, factory Factory) {
	if err := r.Register(symbol, factory); err != nil {
		panic(err)
	}
}

// Resolve reports whether symbol is loadable. Satisfies restmap.Resolver.
func (r *Registry) Resolve(symbol string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.factories[symbol]; !ok {
		return fmt.Errorf("unknown handler symbol %q", symbol)
	}
	return nil
}

// Factory returns the factory bound to symbol.
func (r *Registry) Factory(symbol string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown handler symbol %q", symbol)
	}
	return f, nil
}

// Symbols returns the registered symbols in sorted order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for s := range r.factories {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

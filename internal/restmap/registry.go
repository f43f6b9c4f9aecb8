// SPDX-License-Identifier: MIT

package restmap

import (
	"fmt"
	"strings"
)

// Resolver answers whether a handler symbol is loadable. The handler
// registry implements it; Load consults it so that a stanza referencing a
// missing handler is rejected at registration time, not at first request.
type Resolver interface {
	Resolve(symbol string) error
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(symbol string) error

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(symbol string) error { return f(symbol) }

// Registry is an immutable snapshot of validated endpoint registrations.
// Routes are unique; lookups are by route or stanza name.
type Registry struct {
	ordered []*EndpointRegistration
	byRoute map[string]*EndpointRegistration
	byName  map[string]*EndpointRegistration
}

// NewRegistry validates the registrations and builds a registry snapshot.
// It enforces route uniqueness and resolves every handler symbol.
func NewRegistry(regs []*EndpointRegistration, resolver Resolver) (*Registry, error) {
	r := &Registry{
		ordered: make([]*EndpointRegistration, 0, len(regs)),
		byRoute: make(map[string]*EndpointRegistration, len(regs)),
		byName:  make(map[string]*EndpointRegistration, len(regs)),
	}

	for _, reg := range regs {
		if err := validate(reg); err != nil {
			return nil, fmt.Errorf("stanza [%s]: %w", reg.StanzaName(), err)
		}
		if prev, dup := r.byRoute[reg.Route]; dup {
			return nil, fmt.Errorf("duplicate route %s: declared by [%s] and [%s]",
				reg.Route, prev.StanzaName(), reg.StanzaName())
		}
		if _, dup := r.byName[reg.Name]; dup {
			return nil, fmt.Errorf("duplicate stanza [%s]", reg.StanzaName())
		}
		if resolver != nil {
			if err := resolver.Resolve(reg.HandlerSymbol); err != nil {
				return nil, fmt.Errorf("stanza [%s]: handler %q not loadable: %w",
					reg.StanzaName(), reg.HandlerSymbol, err)
			}
		}
		r.ordered = append(r.ordered, reg)
		r.byRoute[reg.Route] = reg
		r.byName[reg.Name] = reg
	}

	return r, nil
}

func validate(reg *EndpointRegistration) error {
	if reg.Route == "" {
		return fmt.Errorf("missing %s", keyMatch)
	}
	if !strings.HasPrefix(reg.Route, "/") {
		return fmt.Errorf("%s must start with /: %q", keyMatch, reg.Route)
	}
	if reg.ScriptPath == "" {
		return fmt.Errorf("missing %s", keyScript)
	}
	if reg.HandlerSymbol == "" {
		return fmt.Errorf("missing %s", keyHandler)
	}
	if len(reg.OutputModes) == 0 {
		return fmt.Errorf("missing %s", keyOutputModes)
	}
	for _, mode := range reg.OutputModes {
		if mode != "json" {
			return fmt.Errorf("unsupported output mode %q", mode)
		}
	}
	return nil
}

// All returns the registrations in stanza order.
func (r *Registry) All() []*EndpointRegistration {
	out := make([]*EndpointRegistration, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ByRoute returns the registration bound to route, if any.
func (r *Registry) ByRoute(route string) (*EndpointRegistration, bool) {
	reg, ok := r.byRoute[route]
	return reg, ok
}

// ByName returns the registration with the given stanza name, if any.
func (r *Registry) ByName(name string) (*EndpointRegistration, bool) {
	reg, ok := r.byName[name]
	return reg, ok
}

// Len returns the number of registrations.
func (r *Registry) Len() int { return len(r.ordered) }

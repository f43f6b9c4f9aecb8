// SPDX-License-Identifier: MIT

package restmap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stanza(name, route string) *EndpointRegistration {
	return &EndpointRegistration{
		Name:          name,
		Route:         route,
		ScriptPath:    name + ".py",
		HandlerSymbol: name + ".Handler",
		OutputModes:   []string{"json"},
	}
}

func TestNewRegistryRejectsDuplicateRoute(t *testing.T) {
	_, err := NewRegistry([]*EndpointRegistration{
		stanza("a", "/data/x"),
		stanza("b", "/data/x"),
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate route /data/x")
}

func TestNewRegistryRejectsUnresolvableHandler(t *testing.T) {
	resolver := ResolverFunc(func(symbol string) error {
		return fmt.Errorf("no such handler %s", symbol)
	})
	_, err := NewRegistry([]*EndpointRegistration{stanza("a", "/data/x")}, resolver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not loadable")
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EndpointRegistration)
	}{
		{"missing route", func(r *EndpointRegistration) { r.Route = "" }},
		{"relative route", func(r *EndpointRegistration) { r.Route = "data/x" }},
		{"missing script", func(r *EndpointRegistration) { r.ScriptPath = "" }},
		{"missing handler", func(r *EndpointRegistration) { r.HandlerSymbol = "" }},
		{"no output modes", func(r *EndpointRegistration) { r.OutputModes = nil }},
		{"unsupported output mode", func(r *EndpointRegistration) { r.OutputModes = []string{"xml"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := stanza("a", "/data/x")
			tt.mutate(reg)
			_, err := NewRegistry([]*EndpointRegistration{reg}, nil)
			assert.Error(t, err)
		})
	}
}

func TestRegistryLookups(t *testing.T) {
	r, err := NewRegistry([]*EndpointRegistration{
		stanza("a", "/data/a"),
		stanza("b", "/data/b"),
	}, ResolverFunc(func(string) error { return nil }))
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())

	byRoute, ok := r.ByRoute("/data/b")
	require.True(t, ok)
	assert.Equal(t, "b", byRoute.Name)

	byName, ok := r.ByName("a")
	require.True(t, ok)
	assert.Equal(t, "/data/a", byName.Route)

	_, ok = r.ByRoute("/data/missing")
	assert.False(t, ok)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name, "stanza order preserved")
}

// SPDX-License-Identifier: MIT

// Package restmap loads and validates the REST endpoint registry from a
// restmap.conf style stanza file. Each stanza binds a URL route to a named
// handler together with its authentication, capability and request
// forwarding options.
package restmap

import (
	"fmt"
	"strings"
)

// InvocationMode describes the lifecycle of a handler instance.
type InvocationMode string

const (
	// InvocationPersist keeps one handler instance alive across requests.
	InvocationPersist InvocationMode = "persist"
	// InvocationPerRequest creates a fresh handler instance per dispatch.
	InvocationPerRequest InvocationMode = "per-request"
)

// Conf keys of a script stanza. Encode emits them in this order.
const (
	keyMatch       = "match"
	keyScript      = "script"
	keyScriptType  = "scripttype"
	keyHandler     = "handler"
	keyRequireAuth = "requireAuthentication"
	keyCapability  = "capability"
	keyOutputModes = "output_modes"
	keyPassPayload = "passPayload"
	keyPassHeaders = "passHttpHeaders"
	keyPassCookies = "passHttpCookies"
)

// stanzaPrefix marks endpoint stanzas, e.g. [script:lookup_edit].
const stanzaPrefix = "script:"

// EndpointRegistration is a single parsed stanza: the binding of a route to
// a handler plus the dispatch options the framework must enforce. Instances
// are immutable once loaded; a reload replaces the whole registry.
type EndpointRegistration struct {
	// Name is the stanza name without the "script:" prefix.
	Name string

	// Route is the URL path matched against incoming requests.
	Route string

	// ScriptPath is the file-relative reference to the handler implementation.
	ScriptPath string

	// InvocationMode selects persistent or per-request handler instances.
	InvocationMode InvocationMode

	// HandlerSymbol is the fully-qualified symbol resolved against the
	// handler registry at registration time.
	HandlerSymbol string

	// RequireAuthentication makes the framework enforce session
	// authentication before dispatch.
	RequireAuthentication bool

	// OutputModes lists the serialization formats the handler may emit.
	OutputModes []string

	// Forwarding flags: which request facets are handed to the handler.
	PassPayload     bool
	PassHTTPHeaders bool
	PassHTTPCookies bool

	// Capability optionally gates the endpoint on a named permission.
	// Empty means any authenticated user may invoke the handler; that is a
	// deliberate posture and is logged as such at mount time.
	Capability string
}

// AllowsOutputMode reports whether mode is declared for this registration.
func (e *EndpointRegistration) AllowsOutputMode(mode string) bool {
	for _, m := range e.OutputModes {
		if strings.EqualFold(m, mode) {
			return true
		}
	}
	return false
}

// StanzaName returns the full conf section name for this registration.
func (e *EndpointRegistration) StanzaName() string {
	return stanzaPrefix + e.Name
}

func (e *EndpointRegistration) String() string {
	return fmt.Sprintf("%s -> %s (%s)", e.Route, e.HandlerSymbol, e.InvocationMode)
}

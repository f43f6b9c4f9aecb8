// SPDX-License-Identifier: MIT

// Package handler defines the contract between the endpoint dispatcher and
// registered handler implementations, plus the symbol registry that maps
// restmap handler symbols to Go factories.
package handler

import (
	"context"
	"net/http"
)

// Request carries the facets of an HTTP request that the endpoint's
// forwarding flags allow through. Facets that are not forwarded stay nil so
// a handler cannot depend on data its registration never asked for.
type Request struct {
	// Method and Path identify the dispatched request. SubPath is the
	// remainder after the registered route, "" for an exact match.
	Method  string
	Path    string
	SubPath string

	// Query parameters are always forwarded.
	Query map[string][]string

	// Payload is the raw request body; nil unless passPayload is set.
	Payload []byte

	// Headers is the HTTP header map; nil unless passHttpHeaders is set.
	Headers http.Header

	// Cookies maps cookie names to values; nil unless passHttpCookies is set.
	Cookies map[string]string

	// User is the authenticated principal, "" on anonymous endpoints.
	User string
}

// Response is what a handler hands back to the framework for serialization.
type Response struct {
	// Status defaults to 200 when zero.
	Status int

	// OutputMode names the serialization format of Body. It must be one of
	// the registration's declared output modes or the dispatcher fails the
	// request.
	OutputMode string

	// Body is serialized according to OutputMode by the dispatcher.
	Body any
}

// Handler services requests dispatched from a registered endpoint.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Factory builds a handler instance. Persistent endpoints call it once at
// mount time; per-request endpoints call it per dispatch.
type Factory func() (Handler, error)

// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/lookupd/internal/handler"
	"github.com/ManuGH/lookupd/internal/log"
	"github.com/ManuGH/lookupd/internal/restmap"
)

// maxPayloadBytes bounds forwarded request bodies.
const maxPayloadBytes = 16 * 1024 * 1024

// newDispatcher builds the http handler for one registration. Persistent
// endpoints get their handler instance here, once; per-request endpoints
// construct one per dispatch.
func (s *Server) newDispatcher(reg *restmap.EndpointRegistration) (http.HandlerFunc, error) {
	factory, err := s.handlers.Factory(reg.HandlerSymbol)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", reg.Route, err)
	}

	var persistent handler.Handler
	if reg.InvocationMode == restmap.InvocationPersist {
		persistent, err = factory()
		if err != nil {
			return nil, fmt.Errorf("instantiate %s: %w", reg.HandlerSymbol, err)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := log.WithComponentFromContext(r.Context(), "dispatch")

		instance := persistent
		if instance == nil {
			var err error
			instance, err = factory()
			if err != nil {
				logger.Error().Err(err).
					Str("handler", reg.HandlerSymbol).
					Msg("handler instantiation failed")
				recordDispatch(reg.Name, "5xx", time.Since(start))
				writeInternalError(w)
				return
			}
		}

		req, err := s.buildRequest(reg, r)
		if err != nil {
			logger.Warn().Err(err).Str("route", reg.Route).Msg("rejecting unforwardable request")
			recordDispatch(reg.Name, "4xx", time.Since(start))
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		resp, err := instance.Handle(r.Context(), req)
		if err != nil {
			logger.Error().Err(err).
				Str("route", reg.Route).
				Str("handler", reg.HandlerSymbol).
				Msg("handler failed")
			recordDispatch(reg.Name, "5xx", time.Since(start))
			writeInternalError(w)
			return
		}

		s.writeResponse(w, r, reg, resp, start)
	}, nil
}

// buildRequest assembles the handler request, forwarding only the facets the
// registration enables.
func (s *Server) buildRequest(reg *restmap.EndpointRegistration, r *http.Request) (*handler.Request, error) {
	req := &handler.Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		SubPath: subPath(reg.Route, r.URL.Path),
		Query:   r.URL.Query(),
	}

	if session := sessionFromContext(r.Context()); session != nil {
		req.User = session.User
	}

	if reg.PassPayload && r.Body != nil {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read request payload: %w", err)
		}
		if len(payload) > maxPayloadBytes {
			return nil, fmt.Errorf("request payload exceeds %d bytes", maxPayloadBytes)
		}
		req.Payload = payload
	}

	if reg.PassHTTPHeaders {
		req.Headers = r.Header.Clone()
	}

	if reg.PassHTTPCookies {
		cookies := make(map[string]string)
		for _, c := range r.Cookies() {
			cookies[c.Name] = c.Value
		}
		req.Cookies = cookies
	}

	return req, nil
}

func subPath(route, path string) string {
	rest := strings.TrimPrefix(path, route)
	return strings.Trim(rest, "/")
}

// writeResponse serializes the handler response in one of the declared
// output modes. A handler emitting an undeclared mode is a server error.
func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, reg *restmap.EndpointRegistration, resp *handler.Response, start time.Time) {
	mode := resp.OutputMode
	if mode == "" {
		mode = reg.OutputModes[0]
	}
	if !reg.AllowsOutputMode(mode) {
		dispatchLogger := log.WithComponentFromContext(r.Context(), "dispatch")
		dispatchLogger.Error().
			Str("route", reg.Route).
			Str("mode", mode).
			Strs("declared", reg.OutputModes).
			Msg("handler emitted undeclared output mode")
		recordDispatch(reg.Name, "5xx", time.Since(start))
		writeInternalError(w)
		return
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	// json is the only supported mode; registry validation guarantees it.
	writeJSON(w, status, resp.Body)
	recordDispatch(reg.Name, statusClass(status), time.Since(start))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

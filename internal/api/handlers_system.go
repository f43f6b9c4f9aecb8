// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/ManuGH/lookupd/internal/log"
	"github.com/ManuGH/lookupd/internal/restmap"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// endpointView is the JSON rendering of one registration.
type endpointView struct {
	Name            string   `json:"name"`
	Route           string   `json:"route"`
	Script          string   `json:"script"`
	Handler         string   `json:"handler"`
	InvocationMode  string   `json:"invocation_mode"`
	RequireAuth     bool     `json:"require_authentication"`
	Capability      string   `json:"capability,omitempty"`
	OutputModes     []string `json:"output_modes"`
	PassPayload     bool     `json:"pass_payload"`
	PassHTTPHeaders bool     `json:"pass_http_headers"`
	PassHTTPCookies bool     `json:"pass_http_cookies"`
}

// handleRegistryList renders the active registry, as JSON by default or as
// conf text with ?format=conf.
func (s *Server) handleRegistryList(w http.ResponseWriter, r *http.Request) {
	registry := s.holder.Get()

	if r.URL.Query().Get("format") == "conf" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(restmap.Encode(registry.All()))
		return
	}

	views := make([]endpointView, 0, registry.Len())
	for _, reg := range registry.All() {
		views = append(views, endpointView{
			Name:            reg.Name,
			Route:           reg.Route,
			Script:          reg.ScriptPath,
			Handler:         reg.HandlerSymbol,
			InvocationMode:  string(reg.InvocationMode),
			RequireAuth:     reg.RequireAuthentication,
			Capability:      reg.Capability,
			OutputModes:     reg.OutputModes,
			PassPayload:     reg.PassPayload,
			PassHTTPHeaders: reg.PassHTTPHeaders,
			PassHTTPCookies: reg.PassHTTPCookies,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// handleRegistryReload triggers a manual registry reload.
func (s *Server) handleRegistryReload(w http.ResponseWriter, r *http.Request) {
	if err := s.holder.Reload(r.Context()); err != nil {
		apiLogger := log.WithComponentFromContext(r.Context(), "api")
		apiLogger.Error().
			Err(err).
			Str("event", "registry.manual_reload_failed").
			Msg("manual registry reload failed")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	registry := s.holder.Get()
	recordRegistrySize(registry.Len())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"endpoints": registry.Len(),
	})
}

// SPDX-License-Identifier: MIT

// Package api provides the HTTP server: middleware stack, session
// authentication, and dispatch of restmap-registered endpoints to their
// handlers.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/lookupd/internal/auth"
	"github.com/ManuGH/lookupd/internal/config"
	"github.com/ManuGH/lookupd/internal/handler"
	"github.com/ManuGH/lookupd/internal/log"
	"github.com/ManuGH/lookupd/internal/restmap"
)

// Server dispatches requests to the endpoints declared in the registry.
// The router is rebuilt on every registry reload; requests in flight keep
// the router they started on.
type Server struct {
	cfg      config.AppConfig
	sessions *auth.Store
	holder   *restmap.Holder
	handlers *handler.Registry
	logger   zerolog.Logger

	router  atomic.Value // holds http.Handler
	reloads chan *restmap.Registry
}

// New wires a server over the registry holder and handler registry.
func New(cfg config.AppConfig, sessions *auth.Store, holder *restmap.Holder, handlers *handler.Registry) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		holder:   holder,
		handlers: handlers,
		logger:   log.WithComponent("api"),
		reloads:  make(chan *restmap.Registry, 1),
	}

	router, err := s.buildRouter(holder.Get())
	if err != nil {
		return nil, err
	}
	s.router.Store(router)
	holder.Subscribe(s.reloads)
	recordRegistrySize(holder.Get().Len())
	return s, nil
}

// ServeHTTP delegates to the current router snapshot.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.Load().(http.Handler).ServeHTTP(w, r)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully. It
// also applies registry reloads to the live router.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("event", "server.listening").Str("addr", s.cfg.Listen).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case next := <-s.reloads:
				router, err := s.buildRouter(next)
				if err != nil {
					// Holder already validated handler symbols; a build
					// failure here means a wiring regression.
					s.logger.Error().Err(err).Str("event", "server.router_rebuild_failed").Msg("keeping previous router")
					continue
				}
				s.router.Store(router)
				recordRegistrySize(next.Len())
				s.logger.Info().
					Str("event", "server.router_rebuilt").
					Int("endpoints", next.Len()).
					Msg("router rebuilt from reloaded registry")
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Str("event", "server.shutdown").Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

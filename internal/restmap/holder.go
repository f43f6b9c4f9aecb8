// SPDX-License-Identifier: MIT

package restmap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/lookupd/internal/log"
)

// Holder holds the current registry snapshot with atomic reloading. A reload
// that fails to parse or validate keeps the previous snapshot in place.
type Holder struct {
	mu       sync.RWMutex
	current  *Registry
	path     string
	resolver Resolver
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- *Registry
}

// NewHolder creates a holder around an initial snapshot.
func NewHolder(initial *Registry, path string, resolver Resolver) *Holder {
	return &Holder{
		current:  initial,
		path:     path,
		resolver: resolver,
		logger:   log.WithComponent("restmap"),
	}
}

// Get returns the current registry snapshot.
func (h *Holder) Get() *Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Subscribe registers a channel that receives each successfully reloaded
// snapshot. The holder never blocks on a slow listener.
func (h *Holder) Subscribe(ch chan<- *Registry) {
	h.reloadMu.Lock()
	h.reloadListeners = append(h.reloadListeners, ch)
	h.reloadMu.Unlock()
}

// Reload re-reads the registry file and swaps the snapshot if it validates.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "restmap.reload_start").Str("path", h.path).Msg("reloading endpoint registry")

	next, err := Load(h.path, h.resolver)
	if err != nil {
		h.logger.Error().Err(err).Str("event", "restmap.reload_failed").Msg("keeping previous endpoint registry")
		return fmt.Errorf("reload restmap: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = next
	h.mu.Unlock()

	h.notifyListeners(next)

	h.logger.Info().
		Str("event", "restmap.reload_success").
		Int("endpoints", next.Len()).
		Int("previous", old.Len()).
		Msg("endpoint registry reloaded")
	return nil
}

func (h *Holder) notifyListeners(next *Registry) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()
	for _, ch := range h.reloadListeners {
		select {
		case ch <- next:
		default:
		}
	}
}

// StartWatcher watches the registry file and reloads on change. A no-op when
// the holder was built from the embedded default only.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().Str("event", "restmap.watcher_disabled").Msg("no registry file, watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(h.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch restmap conf: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().Str("event", "restmap.watcher_started").Str("path", h.path).Msg("watching registry file")

	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	// Debounce rapid write sequences from editors and atomic-rename writers.
	const debounce = 500 * time.Millisecond
	var timer *time.Timer

	defer func() {
		if h.watcher != nil {
			_ = h.watcher.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "restmap.watcher_stopped").Msg("registry watcher stopped")
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Warn().Err(err).Str("event", "restmap.auto_reload_failed").Msg("automatic reload failed")
				}
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Str("event", "restmap.watcher_error").Msg("registry watcher error")
		}
	}
}

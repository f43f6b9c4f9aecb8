// SPDX-License-Identifier: MIT

// Command lookupd serves the conf-driven REST endpoint registry and the
// lookup editor behind it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ManuGH/lookupd/internal/api"
	"github.com/ManuGH/lookupd/internal/auth"
	"github.com/ManuGH/lookupd/internal/config"
	"github.com/ManuGH/lookupd/internal/handler"
	"github.com/ManuGH/lookupd/internal/lookup"
	xlog "github.com/ManuGH/lookupd/internal/log"
	"github.com/ManuGH/lookupd/internal/restmap"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	xlog.Configure(xlog.Config{Level: "info", Service: "lookupd", Version: version})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}

	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "lookupd", Version: version})

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
	}
	logger.Info().Str("event", "daemon.stopped").Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.AppConfig) error {
	logger := xlog.WithComponent("daemon")

	for _, dir := range []string{cfg.AppsDir, cfg.UsersDir, cfg.BackupDir, cfg.KVDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	sessions, err := auth.NewStore(cfg.SessionTokens)
	if err != nil {
		return fmt.Errorf("build session store: %w", err)
	}
	if sessions.Empty() && !cfg.AuthAnonymous {
		logger.Warn().
			Str("event", "auth.no_tokens").
			Msg("no session tokens configured; authenticated endpoints will deny all requests")
	}

	resolver := &lookup.Resolver{
		AppsDir:   cfg.AppsDir,
		UsersDir:  cfg.UsersDir,
		BackupDir: cfg.BackupDir,
	}
	backups := lookup.NewBackups(resolver)
	editor := lookup.NewEditor(resolver, backups, nil)

	kv, err := lookup.OpenKVStore(cfg.KVDir)
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing kv store")
		}
	}()

	handlers := handler.NewRegistry()
	handlers.MustRegister(lookup.HandlerSymbol, lookup.NewEditorHandler(editor, backups, kv).Factory())

	restmapPath := cfg.RestmapPath
	if restmapPath == "" {
		// Pick up an operator-managed registry next to the data if present.
		candidate := filepath.Join(cfg.DataDir, "restmap.conf")
		if _, err := os.Stat(candidate); err == nil {
			restmapPath = candidate
		}
	}

	registry, err := restmap.Load(restmapPath, handlers)
	if err != nil {
		return fmt.Errorf("load endpoint registry: %w", err)
	}
	logger.Info().
		Str("event", "registry.loaded").
		Str("path", restmapPath).
		Int("endpoints", registry.Len()).
		Msg("endpoint registry loaded")

	holder := restmap.NewHolder(registry, restmapPath, handlers)
	if err := holder.StartWatcher(ctx); err != nil {
		return fmt.Errorf("start registry watcher: %w", err)
	}

	server, err := api.New(cfg, sessions, holder, handlers)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	return server.Run(ctx)
}

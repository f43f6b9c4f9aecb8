// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader assembles AppConfig with precedence ENV > file > defaults.
type Loader struct {
	path string
}

// NewLoader creates a loader. An empty path skips the file layer.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads, merges and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	mergeEnv(&cfg)
	cfg.deriveDirs()

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func mergeEnv(cfg *AppConfig) {
	cfg.Listen = ParseString("LOOKUPD_LISTEN", cfg.Listen)
	cfg.DataDir = ParseString("LOOKUPD_DATA", cfg.DataDir)
	cfg.AppsDir = ParseString("LOOKUPD_APPS_DIR", cfg.AppsDir)
	cfg.UsersDir = ParseString("LOOKUPD_USERS_DIR", cfg.UsersDir)
	cfg.BackupDir = ParseString("LOOKUPD_BACKUP_DIR", cfg.BackupDir)
	cfg.KVDir = ParseString("LOOKUPD_KV_DIR", cfg.KVDir)
	cfg.RestmapPath = ParseString("LOOKUPD_RESTMAP", cfg.RestmapPath)
	cfg.LogLevel = ParseString("LOOKUPD_LOG_LEVEL", cfg.LogLevel)
	cfg.AuthAnonymous = ParseBool("LOOKUPD_AUTH_ANONYMOUS", cfg.AuthAnonymous)
	cfg.ForceHTTPS = ParseBool("LOOKUPD_FORCE_HTTPS", cfg.ForceHTTPS)
	cfg.RateLimitEnabled = ParseBool("LOOKUPD_RATELIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPS = ParseInt("LOOKUPD_RATELIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = ParseInt("LOOKUPD_RATELIMIT_BURST", cfg.RateLimitBurst)
}

// Validate checks the assembled configuration for consistency.
func Validate(cfg AppConfig) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if cfg.RateLimitEnabled {
		if cfg.RateLimitRPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive, got %d", cfg.RateLimitRPS)
		}
		if cfg.RateLimitBurst < cfg.RateLimitRPS {
			return fmt.Errorf("rate limit burst %d must be >= rps %d", cfg.RateLimitBurst, cfg.RateLimitRPS)
		}
	}
	for i, entry := range cfg.SessionTokens {
		if entry.Token == "" || entry.User == "" {
			return fmt.Errorf("session_tokens[%d]: token and user are required", i)
		}
	}
	return nil
}

// SPDX-License-Identifier: MIT

// Package config loads the daemon configuration with precedence
// ENV > file > defaults and validates it before use.
package config

import (
	"path/filepath"

	"github.com/ManuGH/lookupd/internal/auth"
)

// AppConfig is the validated daemon configuration.
type AppConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// DataDir is the root under which the lookup trees live. The scoped
	// directories below default to subdirectories of it.
	DataDir   string `yaml:"data_dir"`
	AppsDir   string `yaml:"apps_dir"`
	UsersDir  string `yaml:"users_dir"`
	BackupDir string `yaml:"backup_dir"`
	KVDir     string `yaml:"kv_dir"`

	// RestmapPath points at the endpoint registry file. Empty uses the
	// embedded default registry.
	RestmapPath string `yaml:"restmap_path"`

	LogLevel string `yaml:"log_level"`

	// AuthAnonymous explicitly disables session authentication. Without it,
	// an empty token table fails closed.
	AuthAnonymous bool `yaml:"auth_anonymous"`

	// SessionTokens is the static token table (file only, never from env).
	SessionTokens []auth.TokenEntry `yaml:"session_tokens"`

	// ForceHTTPS marks session cookies Secure even behind plain HTTP,
	// for TLS-terminating proxies.
	ForceHTTPS bool `yaml:"force_https"`

	RateLimitEnabled bool `yaml:"rate_limit_enabled"`
	RateLimitRPS     int  `yaml:"rate_limit_rps"`
	RateLimitBurst   int  `yaml:"rate_limit_burst"`
}

// defaults returns the built-in configuration.
func defaults() AppConfig {
	return AppConfig{
		Listen:           ":8088",
		DataDir:          "/var/lib/lookupd",
		LogLevel:         "info",
		RateLimitEnabled: true,
		RateLimitRPS:     25,
		RateLimitBurst:   50,
	}
}

// deriveDirs fills the scoped directories from DataDir where unset.
func (c *AppConfig) deriveDirs() {
	if c.AppsDir == "" {
		c.AppsDir = filepath.Join(c.DataDir, "apps")
	}
	if c.UsersDir == "" {
		c.UsersDir = filepath.Join(c.DataDir, "users")
	}
	if c.BackupDir == "" {
		c.BackupDir = filepath.Join(c.DataDir, "backups")
	}
	if c.KVDir == "" {
		c.KVDir = filepath.Join(c.DataDir, "kvstore")
	}
}

// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/ManuGH/lookupd/internal/log"
)

// ParseString reads a string environment variable, falling back to
// defaultValue when unset or empty.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if strings.Contains(strings.ToLower(key), "token") {
			logger.Debug().Str("key", key).Bool("sensitive", true).Msg("using environment variable")
		} else {
			logger.Debug().Str("key", key).Str("value", value).Msg("using environment variable")
		}
		return value
	}
	return defaultValue
}

// ParseInt reads an integer environment variable, falling back to
// defaultValue when unset or unparsable.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			logger.Warn().Str("key", key).Str("value", value).Int("default", defaultValue).
				Msg("invalid integer in environment, using default")
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// ParseBool reads a boolean environment variable (strconv syntax), falling
// back to defaultValue when unset or unparsable.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	if value, ok := os.LookupEnv(key); ok && value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			logger.Warn().Str("key", key).Str("value", value).Bool("default", defaultValue).
				Msg("invalid boolean in environment, using default")
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

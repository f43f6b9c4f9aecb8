// SPDX-License-Identifier: MIT

package restmap

import (
	_ "embed"
	"fmt"
	"os"
)

// defaultConf is the registry shipped with the daemon. It is used when no
// restmap file exists on disk yet.
//
//go:embed restmap.conf
var defaultConf []byte

// DefaultConf returns a copy of the embedded default registry file.
func DefaultConf() []byte {
	out := make([]byte, len(defaultConf))
	copy(out, defaultConf)
	return out
}

// Load reads the registry from path, falling back to the embedded default
// when path is empty or missing, and returns a validated snapshot.
func Load(path string, resolver Resolver) (*Registry, error) {
	source, err := readConf(path)
	if err != nil {
		return nil, err
	}

	regs, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return NewRegistry(regs, resolver)
}

func readConf(path string) ([]byte, error) {
	if path == "" {
		return DefaultConf(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConf(), nil
		}
		return nil, fmt.Errorf("read restmap conf: %w", err)
	}
	return data, nil
}

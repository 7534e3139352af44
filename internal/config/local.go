package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LocalConfigFile is the workspace config path relative to the root.
const LocalConfigFile = ".polypress/config.toml"

// LocalConfig holds per-workspace overrides.
// Nil pointers indicate "not set" (inherit from global).
type LocalConfig struct {
	Tree     LocalTree          `toml:"tree"`
	Read     LocalRead          `toml:"read"`
	Programs map[string]Program `toml:"programs"` // replace global programs by platform
	Hooks    map[string]Hook    `toml:"hooks"`    // override global hooks by name
}

// LocalTree holds local tree overrides
type LocalTree struct {
	MaxDepth   *int `toml:"max_depth"`
	MaxEntries *int `toml:"max_entries"`
}

// LocalRead holds local read overrides
type LocalRead struct {
	MaxBytes *int64 `toml:"max_bytes"`
}

// LoadLocal reads <root>/.polypress/config.toml.
// Returns nil (no error) if the file doesn't exist.
// Returns an error only on parse or validation failure.
func LoadLocal(root string) (*LocalConfig, error) {
	configFile := filepath.Join(root, LocalConfigFile)

	data, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read workspace config %s: %w", configFile, err)
	}

	var local LocalConfig
	if _, err := toml.Decode(string(data), &local); err != nil {
		return nil, fmt.Errorf("failed to parse workspace config %s: %w", configFile, err)
	}

	if d := local.Tree.MaxDepth; d != nil && *d < 0 {
		return nil, fmt.Errorf("invalid tree.max_depth %d in %s: must be >= 0", *d, configFile)
	}
	if n := local.Tree.MaxEntries; n != nil && *n < 1 {
		return nil, fmt.Errorf("invalid tree.max_entries %d in %s: must be >= 1", *n, configFile)
	}
	if n := local.Read.MaxBytes; n != nil && *n < 0 {
		return nil, fmt.Errorf("invalid read.max_bytes %d in %s: must be >= 0", *n, configFile)
	}
	if err := validatePrograms(local.Programs, configFile); err != nil {
		return nil, err
	}
	if err := validateHooks(local.Hooks); err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}

	return &local, nil
}

// MergeLocal merges workspace overrides into a global config, returning a
// new Config without mutating the global.
// Returns global unchanged if local is nil.
func MergeLocal(global *Config, local *LocalConfig) *Config {
	if local == nil {
		return global
	}

	merged := *global

	if local.Tree.MaxDepth != nil {
		merged.Tree.MaxDepth = *local.Tree.MaxDepth
	}
	if local.Tree.MaxEntries != nil {
		merged.Tree.MaxEntries = *local.Tree.MaxEntries
	}
	if local.Read.MaxBytes != nil {
		merged.Read.MaxBytes = *local.Read.MaxBytes
	}

	if len(local.Programs) > 0 {
		merged.Programs = make(map[string]Program, len(global.Programs)+len(local.Programs))
		for id, p := range global.Programs {
			merged.Programs[id] = p
		}
		for id, p := range local.Programs {
			merged.Programs[id] = p
		}
	}

	if len(local.Hooks) > 0 {
		merged.Hooks = make(map[string]Hook, len(global.Hooks)+len(local.Hooks))
		for name, h := range global.Hooks {
			merged.Hooks[name] = h
		}
		for name, h := range local.Hooks {
			merged.Hooks[name] = h
		}
	}

	return &merged
}

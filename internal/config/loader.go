package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ASKHUB_"

// Load merges configuration with strict priority:
// 1. Environment variables (highest)
// 2. The given config file, or config.yaml/config.yml if present
// 3. Defaults (lowest)
func Load(configFilePath string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load default config: %w", err)
	}

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err != nil {
			return Config{}, fmt.Errorf("config file %s not found: %w", configFilePath, err)
		}
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", configFilePath, err)
		}
	} else {
		for _, candidate := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				if err := k.Load(file.Provider(candidate), yaml.Parser()); err != nil {
					return Config{}, fmt.Errorf("load config file %s: %w", candidate, err)
				}
				break
			}
		}
	}

	// ASKHUB_AUTH_ACCESS_TTL maps to auth.access_ttl. Underscores inside a key
	// segment survive because only the first separator splits section from key.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.Replace(s, "_", ".", 1)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the service cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("config: auth.secret is required")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 || c.Auth.VerifyTTL <= 0 {
		return errors.New("config: token TTLs must be greater than zero")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return errors.New("config: refresh TTL must exceed access TTL")
	}
	return nil
}

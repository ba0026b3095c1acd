// Package config loads gateway configuration from an optional YAML file and
// the environment. Environment variables use the EDUAI_ prefix with double
// underscores as section separators, e.g. EDUAI_SERVER__PORT=8080 or
// EDUAI_VAULT__MASTER_KEY=<64 hex chars>.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/qubiq-ai/edu-gateway/internal/auth"
)

const envPrefix = "EDUAI_"

// masterKeySize is the required master key length in bytes.
const masterKeySize = 32

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Vault    VaultConfig    `koanf:"vault"`
	Admin    AdminConfig    `koanf:"admin"`
	Storage  StorageConfig  `koanf:"storage"`
	Upstream UpstreamConfig `koanf:"upstream"`

	// Models overrides entries of the capability-to-model table.
	Models map[string]string `koanf:"models"`

	// Callers lists the accepted caller tokens (hashed) and their identities.
	Callers []auth.CallerConfig `koanf:"callers"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type VaultConfig struct {
	// MasterKey is the hex-encoded 256-bit key protecting credential bundles
	// at rest. It is never logged.
	MasterKey string `koanf:"master_key"`
}

type AdminConfig struct {
	// Secret is the static shared admin secret accepted by the admin
	// endpoints. Optional; admin-flagged identities also pass.
	Secret string `koanf:"secret"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type UpstreamConfig struct {
	// BaseURL overrides the upstream API base URL, mainly for tests.
	BaseURL string `koanf:"base_url"`
}

// Load reads configuration from the YAML file at path (skipped when empty)
// and then the environment, which takes precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("storage.path") {
		k.Set("storage.path", "./data/gateway.db")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects startup on a missing or malformed master key so a broken
// deployment can never write undecryptable blobs.
func (c *Config) validate() error {
	if c.Vault.MasterKey == "" {
		return fmt.Errorf("vault.master_key is not set")
	}

	key, err := hex.DecodeString(c.Vault.MasterKey)
	if err != nil {
		return fmt.Errorf("vault.master_key is not valid hex")
	}
	if len(key) != masterKeySize {
		return fmt.Errorf("vault.master_key must be %d bytes, got %d", masterKeySize, len(key))
	}

	return nil
}

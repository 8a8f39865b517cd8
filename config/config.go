package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir            string `toml:"DataDir"`
	ServiceName        string `toml:"ServiceName"`
	Environment        string `toml:"Environment"`
	MinimumTotalSupply string `toml:"MinimumTotalSupply"`
	PauseDeposits      bool   `toml:"PauseDeposits"`
	PauseConversions   bool   `toml:"PauseConversions"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a working engine.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if _, err := c.MinimumSupply(); err != nil {
		return err
	}
	return nil
}

// MinimumSupply parses the configured share floor.
func (c *Config) MinimumSupply() (*big.Int, error) {
	raw := strings.TrimSpace(c.MinimumTotalSupply)
	if raw == "" {
		return nil, fmt.Errorf("config: MinimumTotalSupply must not be empty")
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() <= 0 {
		return nil, fmt.Errorf("config: MinimumTotalSupply must be a positive integer, got %q", raw)
	}
	return value, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./vault-data"
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "vaultcore"
	}
	if strings.TrimSpace(cfg.MinimumTotalSupply) == "" {
		cfg.MinimumTotalSupply = "1000000"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's service configuration. Issuance parameters (roots,
// caps, currencies) live in the genesis params file and in state afterwards;
// this file only carries wiring.
type Config struct {
	RPCAddress       string   `toml:"RPCAddress"`
	GatewayAddress   string   `toml:"GatewayAddress"`
	DataDir          string   `toml:"DataDir"`
	GenesisFile      string   `toml:"GenesisFile"`
	NetworkName      string   `toml:"NetworkName"`
	Environment      string   `toml:"Environment"`
	Owner            string   `toml:"Owner"`
	Admins           []string `toml:"Admins"`
	GatewayJWTSecret string   `toml:"GatewayJWTSecret"`
	RateLimitPerMin  float64  `toml:"RateLimitPerMinute"`
	RateLimitBurst   int      `toml:"RateLimitBurst"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown field %s", path, undecoded[0])
	}

	applyDefaults(cfg)
	if strings.TrimSpace(cfg.Owner) == "" {
		return nil, fmt.Errorf("config file %s must set Owner", path)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.GatewayAddress) == "" {
		cfg.GatewayAddress = "127.0.0.1:8646"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "tierpass-local"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if cfg.RateLimitPerMin <= 0 {
		cfg.RateLimitPerMin = 600
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	if cfg.Admins == nil {
		cfg.Admins = []string{}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

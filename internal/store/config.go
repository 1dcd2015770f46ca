package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"keykapp/internal/keyswitch"
)

// EnvConfigDir keeps tests and alternate setups away from ~/.keykapp.
const EnvConfigDir = "KEYKAPP_CONFIG_DIR"

// Config is the user configuration, shared by every workspace on the machine.
type Config struct {
	// Layout names a built-in table ("default" or "homerow"). Keys, when set, wins.
	Layout string                `toml:"layout,omitempty" yaml:"layout,omitempty" json:"layout,omitempty"`
	Keys   []keyswitch.Keyswitch `toml:"keys,omitempty" yaml:"keys,omitempty" json:"keys,omitempty"`

	// Weights overrides the built-in manual weight of individual actions.
	Weights map[string]int64 `toml:"weights,omitempty" yaml:"weights,omitempty" json:"weights,omitempty"`

	LogLevel     string `toml:"log_level,omitempty" yaml:"log_level,omitempty" json:"logLevel,omitempty"`
	ReplicaLabel string `toml:"replica_label,omitempty" yaml:"replica_label,omitempty" json:"replicaLabel,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{Layout: "default", Weights: map[string]int64{}}
}

func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".keykapp"), nil
}

var configNames = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// ConfigPath returns the first existing config file in ConfigDir, or config.toml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return filepath.Join(dir, configNames[0]), nil
}

func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile parses path by extension. A missing file yields the defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("%s: decode TOML: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: decode YAML: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: decode JSON: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			if yerr := yaml.Unmarshal(data, cfg); yerr != nil {
				return nil, fmt.Errorf("%s: unable to parse config (tried TOML, YAML)", path)
			}
		}
	}
	if cfg.Weights == nil {
		cfg.Weights = map[string]int64{}
	}
	if _, err := cfg.KeyTable(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in the format its extension names (TOML by default).
func SaveConfig(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("save config: nil config")
	}
	var (
		raw []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = yaml.Marshal(cfg)
	case ".json":
		raw, err = json.MarshalIndent(cfg, "", "  ")
		raw = append(raw, '\n')
	default:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		raw = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return atomicWriteFile(path, raw, 0o644)
}

// KeyTable resolves the configured keyswitch table.
func (c *Config) KeyTable() (keyswitch.Table, error) {
	if len(c.Keys) > 0 {
		return keyswitch.New(c.Keys)
	}
	switch strings.ToLower(strings.TrimSpace(c.Layout)) {
	case "", "default":
		return keyswitch.Default(), nil
	case "homerow", "home-row":
		return keyswitch.HomeRow(), nil
	}
	return keyswitch.Table{}, fmt.Errorf("unknown layout %q", c.Layout)
}

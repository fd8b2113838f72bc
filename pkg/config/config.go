// Package config loads the YAML configuration of the pivx-shield tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/prover"
)

// Config is the full configuration.
type Config struct {
	Network   string `yaml:"network"`
	DataDir   string `yaml:"datadir"`
	Verbosity int    `yaml:"verbosity"`
	// Wallet names the wallet snapshot inside the data directory store.
	Wallet string       `yaml:"wallet"`
	Prover ProverConfig `yaml:"prover"`

	// File is the path the configuration was read from, if any.
	File string `yaml:"-"`
}

// ProverConfig selects where prover parameters come from. Local files win
// over URLs when both are set.
type ProverConfig struct {
	URLs        []string         `yaml:"urls"`
	SpendPath   string           `yaml:"spendPath"`
	OutputPath  string           `yaml:"outputPath"`
	Checksums   prover.Checksums `yaml:"checksums"`
	HTTPTimeout time.Duration    `yaml:"httpTimeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Network:   consensus.MainNet.Name,
		DataDir:   filepath.Join(home, ".pivx-shield"),
		Verbosity: 3,
		Wallet:    "default",
		Prover: ProverConfig{
			HTTPTimeout: 5 * time.Minute,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.File = path
	return cfg, cfg.Validate()
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if _, err := consensus.ByName(c.Network); err != nil {
		return err
	}
	if c.DataDir == "" {
		return errors.New("datadir must be set")
	}
	if c.Wallet == "" {
		return errors.New("wallet name must be set")
	}
	if c.Verbosity < 0 || c.Verbosity > 5 {
		return fmt.Errorf("verbosity %d out of range 0-5", c.Verbosity)
	}
	p := c.Prover
	if (p.SpendPath == "") != (p.OutputPath == "") {
		return errors.New("prover spendPath and outputPath must be set together")
	}
	if len(p.URLs) > 0 && p.SpendPath == "" && p.Checksums.IsZero() {
		return errors.New("prover urls require checksums")
	}
	if p.HTTPTimeout < 0 {
		return errors.New("prover httpTimeout must not be negative")
	}
	return nil
}

// NetworkParams resolves the configured network.
func (c *Config) NetworkParams() *consensus.Network {
	net, err := consensus.ByName(c.Network)
	if err != nil {
		return consensus.MainNet
	}
	return net
}

// StorePath is the LevelDB directory inside the data directory.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "wallet.db")
}

// Loader builds the parameter loader the configuration describes, or nil
// when no source is configured.
func (p *ProverConfig) Loader() prover.Loader {
	switch {
	case p.SpendPath != "":
		return &prover.FileLoader{SpendPath: p.SpendPath, OutputPath: p.OutputPath, Checksums: p.Checksums}
	case len(p.URLs) > 0:
		return prover.NewURLLoader(p.URLs, p.Checksums, p.HTTPTimeout)
	default:
		return nil
	}
}

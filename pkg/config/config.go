// Package config provides configuration loading and management for cortexgeom.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"cortexgeom/pkg/bridge"
	"cortexgeom/pkg/geodesic"
)

// ErrInvalidConfig indicates a configuration value outside its allowed range
var ErrInvalidConfig = errors.New("config: invalid value")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many tasks run in parallel
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Geodesic path search parameters
	Geodesic struct {
		// Weights and penalties of the surface cost function
		geodesic.Weights `yaml:",inline"`

		// StopWhenEndReached ends each search once the end vertex is settled
		StopWhenEndReached bool `yaml:"stopWhenEndReached"`
	} `yaml:"geodesic"`

	// Patch bridging parameters
	Bridge struct {
		// WeldTolerance is the distance below which output vertices are merged
		WeldTolerance float64 `yaml:"weldTolerance"`

		// StrictInputs turns a missing input mesh into an error instead of a no-op
		StrictInputs bool `yaml:"strictInputs"`
	} `yaml:"bridge"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// StlDir is the directory bridge meshes are written to, relative to the output file
		StlDir string `yaml:"stlDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	// Set default geodesic parameters
	cfg.Geodesic.Weights = geodesic.DefaultWeights()
	cfg.Geodesic.StopWhenEndReached = true

	// Set default bridge parameters
	cfg.Bridge.WeldTolerance = bridge.DefaultWeldTolerance
	cfg.Bridge.StrictInputs = false

	// Set default output parameters
	cfg.Output.Verbose = true
	cfg.Output.StlDir = "meshes"

	return cfg
}

// Weights returns the cost function weights
func (c *Config) Weights() geodesic.Weights {
	return c.Geodesic.Weights
}

// SearchOptions returns the path search options
func (c *Config) SearchOptions() []geodesic.Option {
	return []geodesic.Option{geodesic.WithStopWhenEndReached(c.Geodesic.StopWhenEndReached)}
}

// BridgeOptions returns the bridge builder options
func (c *Config) BridgeOptions() []bridge.Option {
	opts := []bridge.Option{bridge.WithWeldTolerance(c.Bridge.WeldTolerance)}
	if c.Bridge.StrictInputs {
		opts = append(opts, bridge.WithStrictInputs())
	}
	return opts
}

// Validate checks the configuration for values the algorithms cannot use
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("%w: processing.numCores=%d", ErrInvalidConfig, c.Processing.NumCores)
	}
	if err := c.Geodesic.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Bridge.WeldTolerance < 0 {
		return fmt.Errorf("%w: bridge.weldTolerance=%g", ErrInvalidConfig, c.Bridge.WeldTolerance)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

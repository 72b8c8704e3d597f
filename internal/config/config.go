package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/quantaplan/internal/log"
)

// Config represents the complete planner configuration.
type Config struct {
	// Logging configuration
	Log log.Config `yaml:"log"`

	// Compiler configuration
	Compiler CompilerConfig `yaml:"compiler"`

	// Execution configuration
	Execution ExecutionConfig `yaml:"execution"`

	// Browse configuration
	Browse BrowseConfig `yaml:"browse"`

	// Device configuration
	Device DeviceConfig `yaml:"device"`
}

// CompilerConfig controls plan binding behavior.
type CompilerConfig struct {
	EnableSargability            bool `yaml:"enable_sargability"`
	WarnOrderDependentAggregates bool `yaml:"warn_order_dependent_aggregates"`
	// WarningsAsErrors fails Bind when any warning was recorded.
	WarningsAsErrors bool `yaml:"warnings_as_errors"`
}

// BrowseConfig controls interactive browsing.
type BrowseConfig struct {
	PageSize int `yaml:"page_size"`
}

// DeviceConfig controls the in-memory storage device.
type DeviceConfig struct {
	Name           string `yaml:"name"`
	BTreeDegree    int    `yaml:"btree_degree"`
	NativeRestrict bool   `yaml:"native_restrict"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: log.DefaultConfig(),
		Compiler: CompilerConfig{
			EnableSargability:            true,
			WarnOrderDependentAggregates: true,
		},
		Execution: *DefaultExecutionConfig(),
		Browse: BrowseConfig{
			PageSize: 10,
		},
		Device: DeviceConfig{
			Name:        "Memory",
			BTreeDegree: 16,
		},
	}
}

// LoadFromFile loads configuration from a YAML file, then applies
// environment overrides.
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Execution.applyEnv()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Load returns the file configuration when path is set and the defaults
// with environment overrides otherwise.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	cfg := DefaultConfig()
	cfg.Execution.applyEnv()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if val := os.Getenv("QUANTAPLAN_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("QUANTAPLAN_LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
	envBool("QUANTAPLAN_ENABLE_SARGABILITY", &c.Compiler.EnableSargability)
	envBool("QUANTAPLAN_WARN_ORDER_DEPENDENT", &c.Compiler.WarnOrderDependentAggregates)
	envBool("QUANTAPLAN_NATIVE_RESTRICT", &c.Device.NativeRestrict)
	envPositiveInt("QUANTAPLAN_BROWSE_PAGE_SIZE", &c.Browse.PageSize)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
		// Valid
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
		// Valid
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.Browse.PageSize < 1 {
		return fmt.Errorf("browse page size must be at least 1")
	}

	if c.Device.Name == "" {
		return fmt.Errorf("device name is required")
	}
	if c.Device.BTreeDegree < 2 {
		return fmt.Errorf("btree degree must be at least 2")
	}

	if err := c.Execution.Validate(); err != nil {
		return fmt.Errorf("invalid execution configuration: %w", err)
	}

	return nil
}

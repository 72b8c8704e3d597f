package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ExecutionConfig controls plan execution behavior
type ExecutionConfig struct {
	// CheckAborted polls for cancellation before every node dispatch.
	CheckAborted bool `yaml:"check_aborted"`

	// RequestedCapabilities are the cursor capabilities a session asks of
	// the top-level plan, e.g. "navigable,backwardsnavigable,searchable".
	RequestedCapabilities []string `yaml:"requested_capabilities"`

	// EnableStatistics collects per-execution row and node counters.
	EnableStatistics bool `yaml:"enable_statistics"`
}

// DefaultExecutionConfig returns defaults for interactive use
func DefaultExecutionConfig() *ExecutionConfig {
	return &ExecutionConfig{
		CheckAborted:          true,
		RequestedCapabilities: []string{"navigable"},
		EnableStatistics:      true,
	}
}

// LoadExecutionConfigFromEnv loads configuration from environment variables
func LoadExecutionConfigFromEnv() *ExecutionConfig {
	config := DefaultExecutionConfig()
	config.applyEnv()
	return config
}

func (ec *ExecutionConfig) applyEnv() {
	envBool("QUANTAPLAN_CHECK_ABORTED", &ec.CheckAborted)
	envBool("QUANTAPLAN_ENABLE_STATISTICS", &ec.EnableStatistics)

	if val := os.Getenv("QUANTAPLAN_CAPABILITIES"); val != "" {
		var caps []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				caps = append(caps, part)
			}
		}
		ec.RequestedCapabilities = caps
	}
}

// Validate ensures the configuration is valid
func (ec *ExecutionConfig) Validate() error {
	for _, c := range ec.RequestedCapabilities {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("empty capability name")
		}
	}
	return nil
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			*dst = enabled
		}
	}
}

func envPositiveInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			*dst = n
		}
	}
}

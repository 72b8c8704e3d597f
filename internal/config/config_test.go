package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Compiler.EnableSargability)
	assert.Equal(t, []string{"navigable"}, cfg.Execution.RequestedCapabilities)
	assert.False(t, cfg.Device.NativeRestrict)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantaplan.yaml")
	data := `
log:
  level: debug
  format: json
compiler:
  enable_sargability: false
execution:
  requested_capabilities: [navigable, backwardsnavigable, searchable]
browse:
  page_size: 3
device:
  native_restrict: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Compiler.EnableSargability)
	assert.True(t, cfg.Compiler.WarnOrderDependentAggregates)
	assert.Equal(t, []string{"navigable", "backwardsnavigable", "searchable"}, cfg.Execution.RequestedCapabilities)
	assert.Equal(t, 3, cfg.Browse.PageSize)
	assert.True(t, cfg.Device.NativeRestrict)
	assert.Equal(t, "Memory", cfg.Device.Name)
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browse:\n  page_size: 0\n"), 0o600))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page size")

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUANTAPLAN_ENABLE_SARGABILITY", "false")
	t.Setenv("QUANTAPLAN_CAPABILITIES", "navigable, searchable")
	t.Setenv("QUANTAPLAN_BROWSE_PAGE_SIZE", "-4")
	t.Setenv("QUANTAPLAN_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Compiler.EnableSargability)
	assert.Equal(t, []string{"navigable", "searchable"}, cfg.Execution.RequestedCapabilities)
	assert.Equal(t, 10, cfg.Browse.PageSize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidateRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Device.BTreeDegree = 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Execution.RequestedCapabilities = []string{" "}
	assert.Error(t, cfg.Validate())
}

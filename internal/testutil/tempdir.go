package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteConfig writes a configuration file into a test directory and
// returns its path.
func WriteConfig(t testing.TB, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quantaplan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/demo"
	"github.com/dshills/quantaplan/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScenariosCommand(t *testing.T) {
	out, err := execute(t, "scenarios")
	require.NoError(t, err)
	for _, s := range demo.Scenarios() {
		assert.Contains(t, out, s.Description)
	}
	assert.Contains(t, out, "Orders where ID = 7")
}

func TestExplainCommand(t *testing.T) {
	out, err := execute(t, "explain", "seek")
	require.NoError(t, err)
	assert.Contains(t, out, "where ID = 7")
	assert.Contains(t, out, "strategy Seek")
	assert.Contains(t, out, "Memory")

	out, err = execute(t, "explain", "--verbatim", "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "Date('2024-01-01')")
	assert.Contains(t, out, "strategy Scan")
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "filter")
	require.NoError(t, err)
	assert.Contains(t, out, "Edsger")
	assert.NotContains(t, out, "| X ")
	assert.Contains(t, out, "(3 rows)")
	assert.Contains(t, out, "filters 1")

	out, err = execute(t, "run", "count")
	require.NoError(t, err)
	assert.Regexp(t, `\|\s+0\s+\|`, out)
	assert.NotContains(t, out, "rows)")
	assert.Contains(t, out, "nodes ")
}

func TestRunBrowsePage(t *testing.T) {
	path := testutil.WriteConfig(t, "browse:\n  page_size: 2\n")

	out, err := execute(t, "--config", path, "run", "browse")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "Ada")
	assert.NotContains(t, out, "Grace")

	out, err = execute(t, "--config", path, "run", "browse", "--backward")
	require.NoError(t, err)
	assert.Contains(t, out, "Grace")
	assert.NotContains(t, out, "Ada")
}

func TestRunLogsLatency(t *testing.T) {
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs([]string{"--log-level", "debug", "run", "seek"})
	require.NoError(t, root.Execute())
	assert.Contains(t, errOut.String(), "operation completed")
	assert.Contains(t, errOut.String(), "run seek")
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "run", "nope")
	assert.Error(t, err)

	_, err = execute(t, "explain")
	assert.Error(t, err)

	_, err = execute(t, "--log-level", "loud", "scenarios")
	assert.Error(t, err)

	_, err = execute(t, "--config", testutil.WriteConfig(t, "browse:\n  page_size: 0\n"), "scenarios")
	assert.Error(t, err)
}

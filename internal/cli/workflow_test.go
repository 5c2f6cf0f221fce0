package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/giannimassi/ehrtok/internal/prepare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstProvider(t *testing.T, root string) string {
	t.Helper()
	dirs, err := prepare.Discover(root)
	require.NoError(t, err)
	require.NotEmpty(t, dirs)
	return filepath.Base(dirs[0])
}

func TestWorkflow(t *testing.T) {
	t.Parallel()

	cfgPath, root := writeTestConfig(t, "")

	out, err := runCmd(t, "synth", "--config", cfgPath, "--providers", "2", "--events", "80")
	require.NoError(t, err)
	assert.Contains(t, out, "generated 2 providers with 80 events")

	_, err = runCmd(t, "prepare", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vocab build")

	out, err = runCmd(t, "vocab", "build", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "vocabulary of")
	assert.FileExists(t, filepath.Join(root, "vocab.yaml"))

	out, err = runCmd(t, "prepare", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "prepared 2 of 2 providers")

	out, err = runCmd(t, "prepare", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 cached")

	out, err = runCmd(t, "prepare", "--config", cfgPath, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "prepared 2 of 2 providers")

	provider := firstProvider(t, root)
	out, err = runCmd(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "last_run=")
	assert.Contains(t, out, provider)
	assert.Contains(t, out, "ready")

	out, err = runCmd(t, "inspect", provider, "--config", cfgPath, "--index", "0", "--decode")
	require.NoError(t, err)
	assert.Contains(t, out, "provider="+provider)
	assert.Contains(t, out, "METRIC_NAME=")
	assert.Contains(t, out, "special=[EOS]")

	out, err = runCmd(t, "inspect", filepath.Join(root, provider), "--config", cfgPath, "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "0: [[")
	assert.Contains(t, out, "1: [[")

	out, err = runCmd(t, "graph", "--config", cfgPath, "--width", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "#")

	out, err = runCmd(t, "split", "--config", cfgPath, "--seed", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "train=1 val=0 test=1")
	m, err := prepare.ReadManifest(filepath.Join(root, "splits.json"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), m.Seed)
}

func TestWorkflowUntokenized(t *testing.T) {
	t.Parallel()

	cfgPath, root := writeTestConfig(t, "tokenize: false\n")

	_, err := runCmd(t, "synth", "--config", cfgPath, "--providers", "1", "--events", "40", "--dates")
	require.NoError(t, err)

	out, err := runCmd(t, "prepare", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "prepared 1 of 1 providers")

	provider := firstProvider(t, root)
	out, err = runCmd(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "untokenized")

	out, err = runCmd(t, "inspect", provider, "--config", cfgPath, "--index", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "user=0")

	out, err = runCmd(t, "graph", provider, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "#")
}

func TestInspectUnknownProvider(t *testing.T) {
	t.Parallel()

	cfgPath, root := writeTestConfig(t, "tokenize: false\n")
	require.NoError(t, os.MkdirAll(root, 0755))

	_, err := runCmd(t, "inspect", "nobody", "--config", cfgPath)
	assert.Error(t, err)
}

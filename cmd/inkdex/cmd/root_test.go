package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

// isolate points home, config, and data dirs at temp directories.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	dataDir := filepath.Join(home, "data")
	t.Setenv("INKDEX_DATA_DIR", dataDir)
	return dataDir
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, "dev", strings.TrimSpace(out))
}

func TestStatusCommand_NoIndex(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "No index found")
}

func TestIndexAndSearch(t *testing.T) {
	isolate(t)

	// Given: two text files
	dir := t.TempDir()
	planning := filepath.Join(dir, "planning.txt")
	grocery := filepath.Join(dir, "grocery.txt")
	require.NoError(t, os.WriteFile(planning, []byte("Meeting notes about quarterly planning."), 0o644))
	require.NoError(t, os.WriteFile(grocery, []byte("Grocery list for the weekend."), 0o644))

	// When: indexing them
	out, err := runCLI(t, "index", planning, grocery)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 items")

	// Then: search finds the right file, case-insensitively
	out, err = runCLI(t, "search", "QUARTERLY")
	require.NoError(t, err)
	assert.Contains(t, out, "planning.txt")
	assert.NotContains(t, out, "grocery.txt")
}

func TestRemoveCommand(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("A note about sailing."), 0o644))

	_, err := runCLI(t, "index", path)
	require.NoError(t, err)

	out, err := runCLI(t, "remove", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 items")

	out, err = runCLI(t, "search", "sailing")
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestLoggingConfigTakesEffect(t *testing.T) {
	isolate(t)

	// Given: a log file override via the environment
	logPath := filepath.Join(t.TempDir(), "custom.log")
	t.Setenv("INKDEX_LOG_FILE", logPath)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("A note about rivers."), 0o644))

	// When: running a command that logs
	_, err := runCLI(t, "index", path)
	require.NoError(t, err)

	// Then: structured events land in the configured file
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "job_enqueued")
}

func TestFailedCommandReportsError(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "index", "/nonexistent/file.txt")

	require.Error(t, err)
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "/nonexistent/file.txt")
}

func TestIndexCommand_UpdateSkipsUnchanged(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("Original content."), 0o644))

	_, err := runCLI(t, "index", path)
	require.NoError(t, err)

	out, err := runCLI(t, "index", "--update", path)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")
}

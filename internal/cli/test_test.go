package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaowei-guan/pigeon/internal/store"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "text", NewTestCommand)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	output, err := execute(t, "text", NewTestCommand, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "does not exist")
}

func TestTestCommandEmptyDir(t *testing.T) {
	output, err := execute(t, "text", NewTestCommand, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	output, err := execute(t, "json", NewTestCommand, t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandAllPass(t *testing.T) {
	output, err := execute(t, "text", NewTestCommand, scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, output, "✓ search_success")
	assert.Contains(t, output, "✓ detached")
	assert.Contains(t, output, "Test Summary: 6 passed, 0 failed, 6 total")
	assert.Contains(t, output, "All scenarios passed")
}

func TestTestCommandGolden(t *testing.T) {
	output, err := execute(t, "text", NewTestCommand, scenariosDir, "--golden", goldenDir)
	require.NoError(t, err)
	assert.Contains(t, output, "Test Summary: 6 passed, 0 failed, 6 total")
}

func TestTestCommandGoldenMissing(t *testing.T) {
	golden := t.TempDir()
	output, err := execute(t, "text", NewTestCommand,
		filepath.Join(scenariosDir, "search_success.yaml"), "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ search_success")
	assert.Contains(t, output, "run with --update to create it")
}

func TestTestCommandGoldenUpdate(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden")
	_, err := execute(t, "text", NewTestCommand,
		filepath.Join(scenariosDir, "search_success.yaml"), "--golden", golden, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(golden, "search_success.golden"))
	require.NoError(t, err)
	expected, err := os.ReadFile(filepath.Join(goldenDir, "search_success.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))

	// The regenerated file now matches.
	_, err = execute(t, "text", NewTestCommand,
		filepath.Join(scenariosDir, "search_success.yaml"), "--golden", golden)
	require.NoError(t, err)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	golden := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(golden, "search_success.golden"), []byte("{}\n"), 0644))

	output, err := execute(t, "text", NewTestCommand,
		filepath.Join(scenariosDir, "search_success.yaml"), "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, output, "does not match golden file")
}

func TestTestCommandUpdateRequiresGolden(t *testing.T) {
	_, err := execute(t, "text", NewTestCommand, scenariosDir, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--update requires --golden")
}

func TestTestCommandFilter(t *testing.T) {
	output, err := execute(t, "text", NewTestCommand, scenariosDir, "--filter", "search_*")
	require.NoError(t, err)

	assert.Contains(t, output, "search_success")
	assert.Contains(t, output, "search_errors")
	assert.Contains(t, output, "search_msgpack")
	assert.NotContains(t, output, "detached")
	assert.Contains(t, output, "3 total")
}

func TestTestCommandBadFilter(t *testing.T) {
	_, err := execute(t, "text", NewTestCommand, scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	api, err := filepath.Abs(apiDir)
	require.NoError(t, err)
	writeInput(t, dir, "wrong.yaml", `name: wrong
description: Expects the wrong count
api: `+api+`
interface: SearchApi
handlers:
  search:
    returns: {}
  count:
    returns: 7
  reset: {}
calls:
  - method: count
    args: [pending]
    expect:
      result: 8
`)

	output, err := execute(t, "json", NewTestCommand, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Error  *CLIError  `json:"error"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "wrong", resp.Data.Scenarios[0].Name)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandUnloadableScenario(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "broken.yaml", "name: broken\nunknown_key: 1\n")

	output, err := execute(t, "text", NewTestCommand, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "failed to load scenario")
	assert.Contains(t, output, "1 failed")
}

func TestTestCommandRecordsRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	output, err := execute(t, "json", NewTestCommand,
		filepath.Join(scenariosDir, "search_success.yaml"), "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	runID := resp.Data.Scenarios[0].RunID
	require.NotEmpty(t, runID)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(t.Context(), runID)
	require.NoError(t, err)
	assert.Equal(t, store.RunTest, run.Kind)
	assert.Equal(t, store.StatusOK, run.Status)

	messages, err := st.ReadMessages(t.Context(), runID)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}

func TestFilterScenarios(t *testing.T) {
	paths := []string{"a/cart-test.yaml", "a/cart-add.yml", "b/inventory-test.yaml"}

	got, err := filterScenarios(paths, "cart-*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/cart-test.yaml", "a/cart-add.yml"}, got)

	got, err = filterScenarios(paths, "")
	require.NoError(t, err)
	assert.Equal(t, paths, got)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("golden", "search.golden"), goldenFilePath("golden", "search"))
}

func TestTestHelpText(t *testing.T) {
	output, err := execute(t, "text", NewTestCommand, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "conformance")
	assert.Contains(t, output, "--update")
	assert.Contains(t, output, "--filter")
	assert.Contains(t, output, "--golden")
}

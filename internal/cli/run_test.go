package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunCommandNonExistentScenariosDir(t *testing.T) {
	_, _, err := execute(t, "run", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandBadConfig(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeConfig("log_level: loud\n")

	_, _, err := execute(t, "run", ws.scenarios, "--config", ws.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandInvalidScenario(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("bad.yaml", "name: bad\nchecks: [nonsense]\n")

	_, _, err := execute(t, "run", ws.scenarios, "--config", ws.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load scenarios")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandEmptyScenariosDir(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, "run", ws.scenarios, "--config", ws.config)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestRunCommandEmptyScenariosDirJSON(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "test", data["mode"])
	assert.Empty(t, data["scenarios"])
}

func TestRunCommandRecordThenTest(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("a01_cell.yaml", cellScenario)
	ws.addScenario("a02_module.yaml", moduleScenario)

	out, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--mode", "record")
	require.NoError(t, err)
	assert.Contains(t, out, "a01 artifact saved to a01_result_")
	assert.Contains(t, out, "a01 snapshot saved to a01_result_")
	assert.Contains(t, out, "a02 snapshot saved to a02_result_")
	assert.Contains(t, out, "✓ a01\n")
	assert.Contains(t, out, "✓ a02\n")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")

	results := ws.results()
	assert.Len(t, results, 3)
	for _, name := range results {
		assert.True(t, strings.HasPrefix(name, "a01_result_") || strings.HasPrefix(name, "a02_result_"), name)
	}

	out, _, err = execute(t, "run", ws.scenarios, "--config", ws.config)
	require.NoError(t, err)
	assert.Contains(t, out, "a01 artifact matches!")
	assert.Contains(t, out, "a01 all pass!")
	assert.Contains(t, out, "a02 all pass!")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestRunCommandReportsDrift(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("a01_cell.yaml", cellScenario)

	_, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--mode", "record")
	require.NoError(t, err)

	ws.addScenario("a01_cell.yaml", strings.Replace(cellScenario, "Rs: 0.003", "Rs: 0.004", 1))

	out, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--mode", "test")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 scenario(s) failed")

	assert.Contains(t, out, "✗ a01\n")
	assert.Contains(t, out, "  Rs: 0.004 != 0.003\n")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
	assert.NotContains(t, out, "All scenarios passed")
}

func TestRunCommandMissingBaseline(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("a01_cell.yaml", cellScenario)

	out, _, err := execute(t, "run", ws.scenarios, "--config", ws.config)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ a01\n")
	assert.Contains(t, out, "a01_result_")
}

func TestRunCommandPytestStops(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("a01_cell.yaml", cellScenario)
	ws.addScenario("a02_module.yaml", moduleScenario)

	out, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--mode", "pytest")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ a01\n")
	assert.NotContains(t, out, "a02")
	assert.Contains(t, out, "\nStopped: ")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
	assert.Contains(t, out, "1 scenario(s) not run")
}

func TestRunCommandFilter(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("a01_cell.yaml", cellScenario)
	ws.addScenario("a02_module.yaml", moduleScenario)

	out, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--mode", "record", "--filter", "a02")
	require.NoError(t, err)
	assert.NotContains(t, out, "a01")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestRunCommandBadFilter(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("a01_cell.yaml", cellScenario)

	_, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandJSON(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("a01_cell.yaml", cellScenario)

	out, errOut, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--mode", "record", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "record", data["mode"])
	assert.Equal(t, float64(1), data["passed"])
	assert.Equal(t, float64(0), data["failed"])

	scenarios := data["scenarios"].([]interface{})
	require.Len(t, scenarios, 1)
	first := scenarios[0].(map[string]interface{})
	assert.Equal(t, "a01", first["scenario"])
	assert.Equal(t, true, first["pass"])
	assert.NotEmpty(t, first["baseline_id"])

	// Report lines stay out of the JSON document.
	assert.Contains(t, errOut, "a01 artifact saved to")
}

func TestRunCommandJSONFailure(t *testing.T) {
	ws := newWorkspace(t)
	ws.addScenario("a01_cell.yaml", cellScenario)

	out, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeRunFailed, resp.Error.Code)
	assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)
}

func TestRunCommandWritesLedger(t *testing.T) {
	ws := newWorkspace(t).withLedger()
	ws.addScenario("a01_cell.yaml", cellScenario)

	_, _, err := execute(t, "run", ws.scenarios, "--config", ws.config, "--mode", "record")
	require.NoError(t, err)
	_, _, err = execute(t, "run", ws.scenarios, "--config", ws.config)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(ws.dir, "state", "ledger.db"))

	out, _, err := execute(t, "history", "a01", "--config", ws.config, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   HistoryReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Len(t, resp.Data.Runs, 2)
	assert.Equal(t, "test", resp.Data.Runs[0].Mode)
	assert.Equal(t, "record", resp.Data.Runs[1].Mode)
	assert.True(t, resp.Data.Runs[0].Pass)
	assert.NotEmpty(t, resp.Data.Runs[0].BaselineID)
}

package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandValidConfig(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeConfig("mode: record\n" + baseConfig)

	out, _, err := execute(t, "validate", ws.config)
	require.NoError(t, err)
	assert.Equal(t, "✓ Config valid (mode record)\n", out)
}

func TestValidateCommandValidConfigJSON(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, "validate", ws.config, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "test", resp.Data.Mode)
}

func TestValidateCommandSchemaErrors(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeConfig("mode: test\nfields:\n  common:\n    - {name: Pmax, atol: -1}\n")

	out, _, err := execute(t, "validate", ws.config)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with")

	assert.Contains(t, out, "✗ Validation failed\n")
	assert.Contains(t, out, "line 4\n")
	assert.Contains(t, out, "  E202: fields.common.0.atol: ")
}

func TestValidateCommandSchemaErrorsJSON(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeConfig("log_level: loud\nlog_format: xml\n")

	out, _, err := execute(t, "validate", ws.config, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeInvalidConfig, resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	assert.GreaterOrEqual(t, len(resp.Data.Errors), 2)
}

func TestValidateCommandSyntaxError(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeConfig("fields: [unclosed\n")

	out, _, err := execute(t, "validate", ws.config)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E201")
}

func TestValidateCommandMissingFile(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "config file not found")
}

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const cellScenario = `name: a01
description: single cell
checks: [artifact, fields]
device:
  kind: cell
  name: cell
  params: {IL: 7.0, I01: 1e-12, I02: 1e-8, Rshunt: 1000, Rs: 0.003, area: 166}
`

const moduleScenario = `name: a02
checks: [fields]
device:
  kind: group
  name: module
  topology: series
  members:
    - kind: cell
      name: cell
      repeat: 3
      params: {IL: 7.0, I01: 1e-12, I02: 1e-8, Rshunt: 1000, Rs: 0.003, area: 166}
`

const baseConfig = `snapshot_dir: results
fields:
  common:
    - {name: Pmax}
    - {name: Voc}
    - {name: Isc}
  a02:
    - {name: num_cells}
`

// workspace is a scratch project: a config file, a scenarios directory and
// the results directory the config points at.
type workspace struct {
	t         *testing.T
	dir       string
	scenarios string
	config    string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		t:         t,
		dir:       dir,
		scenarios: filepath.Join(dir, "scenarios"),
		config:    filepath.Join(dir, "pvregress.yaml"),
	}
	require.NoError(t, os.MkdirAll(ws.scenarios, 0755))
	ws.writeConfig(baseConfig)
	return ws
}

func (ws *workspace) writeConfig(content string) {
	ws.t.Helper()
	writeFile(ws.t, ws.config, content)
}

func (ws *workspace) withLedger() *workspace {
	ws.t.Helper()
	ws.writeConfig(baseConfig + "ledger: state/ledger.db\n")
	return ws
}

func (ws *workspace) addScenario(file, content string) string {
	ws.t.Helper()
	p := filepath.Join(ws.scenarios, file)
	writeFile(ws.t, p, content)
	return p
}

func (ws *workspace) results() []string {
	ws.t.Helper()
	entries, err := os.ReadDir(filepath.Join(ws.dir, "results"))
	require.NoError(ws.t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), errBuf.String(), err
}

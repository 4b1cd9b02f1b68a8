package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/grab/internal/config"
	"github.com/zeusync/grab/internal/scenario"
)

const tapScene = `
name: tap
duration: 0.5
objects:
  - name: lamp
    position: [0, 0, 3]
    shape: {kind: sphere, radius: 0.5}
    manipulables:
      - kind: selectable
        toggle: true
actors:
  - name: hand
    kind: laser
steps:
  - {at: 0.1, action: grab, actor: hand}
  - {at: 0.2, action: release, actor: hand}
expect:
  - {object: lamp, event: tap, count: 1}
  - {object: lamp, selected: true}
`

const missScene = `
name: miss
duration: 0.3
objects:
  - name: lamp
    position: [0, 0, 3]
    shape: {kind: sphere, radius: 0.5}
    manipulables:
      - kind: selectable
actors:
  - name: hand
    kind: laser
expect:
  - {object: lamp, event: tap, count: 1}
`

// executeCommand runs a fresh command tree with args and returns captured output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "grabsim", root.Use)
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "serve", "validate", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestRunReportsAsJSON(t *testing.T) {
	a := writeFile(t, "tap.yaml", tapScene)
	b := writeFile(t, "tap-again.yaml", tapScene)

	out, err := executeCommand(t, "run", "--log-level", "error", "--json", a, b)
	require.NoError(t, err)

	var reports []scenario.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, "tap", r.Scenario)
		assert.True(t, r.Passed(), "failures: %+v", r.Failures())
		assert.Equal(t, 1, r.Events["manipulator.tap"])
	}
}

func TestRunFailsOnUnmetExpectations(t *testing.T) {
	ok := writeFile(t, "tap.yaml", tapScene)
	miss := writeFile(t, "miss.yaml", missScene)

	out, err := executeCommand(t, "run", "--log-level", "error", ok, miss)
	assert.ErrorIs(t, err, ErrScenariosFailed)
	assert.Contains(t, out, "lamp count manipulator.tap: want 1, got 0")
	assert.Contains(t, out, "1/2 scenarios passed")
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	p := writeFile(t, "tap.json", tapScene)
	_, err := executeCommand(t, "run", "--log-level", "error", p)
	assert.ErrorIs(t, err, config.ErrUnknownFormat)
}

func TestValidate(t *testing.T) {
	good := writeFile(t, "tap.yaml", tapScene)
	bad := writeFile(t, "bad.yaml", "name: broken\nduration: 0\n")

	out, err := executeCommand(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, good)

	out, err = executeCommand(t, "validate", good, bad)
	assert.ErrorIs(t, err, config.ErrInvalidScenario)
	assert.Contains(t, out, bad)
}

func TestConfigLayering(t *testing.T) {
	file := writeFile(t, "grabsim.toml", "[physics]\nfixed_timestep = 0.01\n\n[telemetry]\naddr = \":9000\"\n")
	t.Setenv("GRABSIM_PHYSICS_FRICTION", "3")

	out, err := executeCommand(t, "config", "-c", file, "--log-format", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.InDelta(t, 0.01, cfg.Physics.FixedTimestep, 1e-12)
	assert.InDelta(t, 3, cfg.Physics.Friction, 1e-12)
	assert.Equal(t, ":9000", cfg.Telemetry.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, config.Default().Interaction, cfg.Interaction)
}

func TestConfigRejectsInvalidOverride(t *testing.T) {
	_, err := executeCommand(t, "config", "--log-format", "xml")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

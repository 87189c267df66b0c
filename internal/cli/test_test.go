package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: hero_query_all
description: "Query-all loads the seeded heroes"
entities:
  - heroes.cue
seed:
  Hero:
    - { id: 1, name: "Ada" }
flow:
  - entity: Hero
    op: entity/query-all
assertions:
  - type: trace_count
    action: "[Hero] entity/query-all/success"
    count: 1
  - type: final_state
    entity: Hero
    ids: ["1"]
    loaded: true
`

const failingScenario = `name: wrong_ids
description: "Expects an id that was never seeded"
entities:
  - heroes.cue
flow:
  - entity: Hero
    op: entity/query-all
assertions:
  - type: final_state
    entity: Hero
    ids: ["42"]
`

func scenariosDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	files := map[string]string{"heroes.cue": heroesCUE}
	for name, content := range scenarios {
		files[name] = content
	}
	return writeEntityDir(t, files)
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandPassing(t *testing.T) {
	dir := scenariosDir(t, map[string]string{"hero_query_all.yaml": passingScenario})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ hero_query_all")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandFailing(t *testing.T) {
	dir := scenariosDir(t, map[string]string{
		"hero_query_all.yaml": passingScenario,
		"wrong_ids.yaml":      failingScenario,
	})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_ids")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingJSON(t *testing.T) {
	dir := scenariosDir(t, map[string]string{"wrong_ids.yaml": failingScenario})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := scenariosDir(t, map[string]string{"broken.yaml": "name: broken\nunknown_key: 1\n"})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenariosDir(t, map[string]string{
		"hero_query_all.yaml": passingScenario,
		"wrong_ids.yaml":      failingScenario,
	})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--filter", "hero_*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "wrong_ids")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := scenariosDir(t, map[string]string{"hero_query_all.yaml": passingScenario})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ hero_query_all (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "hero_query_all.golden")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"hero_query_all"`)
	assert.Contains(t, string(golden), `"state":{"Hero":[{"id":1,"name":"Ada"}]}`)

	// A matching golden passes.
	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	// A stale golden fails.
	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"stale":true}`), 0o644))
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestFindScenarioFilesSkipsGolden(t *testing.T) {
	dir := writeEntityDir(t, map[string]string{
		"a.yaml":        "x",
		"nested/b.yml":  "x",
		"golden/c.yaml": "x",
		"notes.txt":     "x",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "nested", "b.yml"),
	}, files)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "cart.golden"),
		goldenFilePath(filepath.Join("scenarios", "cart.yaml")))
}

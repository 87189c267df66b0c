package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entcache/internal/compiler"
)

func TestValidateValidEntities(t *testing.T) {
	dir := heroesDir(t)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 entity valid")
}

func TestValidateValidEntitiesJSON(t *testing.T) {
	dir := writeEntityDir(t, map[string]string{
		"heroes.cue": heroesCUE,
		"villains.cue": `package entities

entity: Villain: { sortField: "name", fields: { id: int, name: string } }
`,
	})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"Hero", "Villain"}, resp.Data.Entities)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, out, "no CUE files")
}

func TestValidateNoEntities(t *testing.T) {
	dir := writeEntityDir(t, map[string]string{"other.cue": "package entities\n\nname: \"x\"\n"})

	_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoEntities)
}

func TestValidateSchemaErrors(t *testing.T) {
	dir := writeEntityDir(t, map[string]string{"bad.cue": `package entities

entity: Hero: {
	selectId:  "key"
	sortField: "rank"
	fields: { id: int, name: string }
}
`})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrUndeclaredKey)
	assert.Contains(t, out, compiler.ErrUndeclaredSort)
}

func TestValidateSchemaErrorsJSON(t *testing.T) {
	dir := writeEntityDir(t, map[string]string{"bad.cue": `package entities

entity: Hero: { selectId: "key", fields: { id: int } }
`})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrUndeclaredKey, resp.Error.Code)
}

func TestValidateFloatField(t *testing.T) {
	dir := writeEntityDir(t, map[string]string{"bad.cue": `package entities

entity: Hero: { fields: { id: int, power: float } }
`})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, compiler.ErrFloatTypeForbidden)
	assert.Contains(t, out, "float types are forbidden")
}

func TestValidateUnknownKey(t *testing.T) {
	dir := writeEntityDir(t, map[string]string{"bad.cue": `package entities

entity: Hero: { primaryKey: "id" }
`})

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "primaryKey: unknown entity key")
}

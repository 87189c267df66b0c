package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entcache/internal/ir"
)

func compile(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("entities.cue"))
	require.NoError(t, v.Err())
	return v
}

func TestCompileEntities_Basic(t *testing.T) {
	v := compile(t, `
		entity: Villain: {}
		entity: Hero: {
			selectId:  "id"
			sortField: "name"
			fields: {
				id:     int
				name:   string
				active: bool
				tags:   [...string]
				stats:  { power: int }
			}
		}
	`)

	specs, err := CompileEntities(v)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	hero := specs[0]
	assert.Equal(t, "Hero", hero.Name, "sorted by name")
	assert.Equal(t, "id", hero.SelectID)
	assert.Equal(t, "name", hero.SortField)
	assert.False(t, hero.NoChangeTracking)
	assert.Equal(t, map[string]string{
		"id":     "int",
		"name":   "string",
		"active": "bool",
		"tags":   "array",
		"stats":  "object",
	}, hero.Fields)

	villain := specs[1]
	assert.Equal(t, "Villain", villain.Name)
	assert.Equal(t, ir.DefaultSelectID, villain.KeyField())
	assert.Nil(t, villain.Fields)
}

func TestCompileEntities_None(t *testing.T) {
	specs, err := CompileEntities(compile(t, `other: 1`))
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestCompileEntity_NoChangeTracking(t *testing.T) {
	v := compile(t, `entity: Log: { noChangeTracking: true }`)

	spec, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Log")))
	require.NoError(t, err)
	assert.Equal(t, "Log", spec.Name)
	assert.True(t, spec.Metadata().NoChangeTracking)
}

func TestCompileEntity_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"select id not a string", `entity: Hero: { selectId: 1 }`, "selectId"},
		{"sort field not a string", `entity: Hero: { sortField: true }`, "sortField"},
		{"change tracking not a bool", `entity: Hero: { noChangeTracking: "yes" }`, "noChangeTracking"},
		{"float field", `entity: Hero: { fields: { score: float } }`, "type"},
		{"number field", `entity: Hero: { fields: { score: number } }`, "type"},
		{"unknown key", `entity: Hero: { selctId: "id" }`, "selctId"},
		{"not a struct", `entity: Hero: "id"`, "entity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileEntities(compile(t, tt.src))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileError_Position(t *testing.T) {
	v := compile(t, "entity: Hero: {\n\tselectId: 42\n}\n")

	_, err := CompileEntities(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entities.cue:2:")
	assert.Contains(t, err.Error(), "selectId: must be a string")
}

func TestCompileError_WithoutPosition(t *testing.T) {
	err := &CompileError{Field: "entity", Message: "bad"}
	assert.Equal(t, "entity: bad", err.Error())
}

func TestMetadataMap(t *testing.T) {
	specs := []*EntitySpec{
		{Name: "Hero", SortField: "name"},
		{Name: "Villain", SelectID: "code"},
	}

	md := MetadataMap(specs)
	assert.Equal(t, []string{"Hero", "Villain"}, md.Names())
	assert.Equal(t, "name", md.Lookup("Hero").SortField)
	assert.Equal(t, "code", md.Lookup("Villain").KeyField())
}

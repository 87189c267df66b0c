package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/store"
)

const heroesCUE = `package entities

entity: Hero: {
	selectId: "id"
	fields: {
		id:   int
		name: string
	}
}
`

// writeEntityDir writes files (name -> content) into a fresh directory.
func writeEntityDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// heroesDir returns a directory declaring the Hero entity.
func heroesDir(t *testing.T) string {
	t.Helper()
	return writeEntityDir(t, map[string]string{"heroes.cue": heroesCUE})
}

// seedHeroes creates a database whose entity table holds recs.
func seedHeroes(t *testing.T, recs ...ir.Object) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ents := st.Entities(ir.MetadataMap{"Hero": {EntityName: "Hero", SelectID: "id"}})
	for _, rec := range recs {
		_, err := ents.Add(context.Background(), "Hero", rec)
		require.NoError(t, err)
	}
	return dbPath
}

// execute runs cmd with args and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func hero(id int64, name string) ir.Object {
	return ir.Object{"id": ir.Int(id), "name": ir.String(name)}
}

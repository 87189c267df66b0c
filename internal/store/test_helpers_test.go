package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/entcache/internal/ir"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testMetadata() ir.MetadataMap {
	return ir.MetadataMap{
		"Hero":    {EntityName: "Hero"},
		"Villain": {EntityName: "Villain", SelectID: "code"},
	}
}

func hero(id int64, name string) ir.Object {
	return ir.Obj(ir.O("id", ir.Int(id)), ir.O("name", ir.String(name)))
}

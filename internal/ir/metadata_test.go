package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityIDOf(t *testing.T) {
	id, err := EntityIDOf(Int(30))
	require.NoError(t, err)
	assert.Equal(t, EntityID("30"), id)

	id, err = EntityIDOf(String("abc"))
	require.NoError(t, err)
	assert.Equal(t, EntityID("abc"), id)

	for _, bad := range []Value{nil, Null{}, String(""), Bool(true), Array{}} {
		_, err := EntityIDOf(bad)
		assert.Error(t, err, "%#v", bad)
	}
}

func TestMetadataIDOf(t *testing.T) {
	md := EntityMetadata{EntityName: "Villain", SelectID: "key"}
	id, err := md.IDOf(Obj(O("key", String("v1"))))
	require.NoError(t, err)
	assert.Equal(t, EntityID("v1"), id)

	_, err = md.IDOf(Obj(O("id", Int(1))))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Villain record field "key"`)
}

func TestMetadataLookupUnknownName(t *testing.T) {
	m := NewMetadataMap("Hero", "Villain")
	assert.Equal(t, []string{"Hero", "Villain"}, m.Names())

	md := m.Lookup("Sidekick")
	assert.Equal(t, "Sidekick", md.EntityName)
	assert.Equal(t, DefaultSelectID, md.KeyField())
}

func TestActionDigestStable(t *testing.T) {
	a := ActionDigest("[Hero] entity/query-all", 1, []byte(`{"x":1}`))
	b := ActionDigest("[Hero] entity/query-all", 1, []byte(`{"x":1}`))
	c := ActionDigest("[Hero] entity/query-all", 2, []byte(`{"x":1}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestRecordDigest(t *testing.T) {
	d1, err := RecordDigest(Obj(O("id", Int(1)), O("name", String("A"))))
	require.NoError(t, err)
	d2, err := RecordDigest(Obj(O("name", String("A")), O("id", Int(1))))
	require.NoError(t, err)
	assert.Equal(t, d1, d2, "key order does not matter")
}

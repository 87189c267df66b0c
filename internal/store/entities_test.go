package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/effects"
	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/queryir"
)

func TestEntities_AddAndGetAll(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()

	for _, rec := range []ir.Object{hero(2, "B"), hero(1, "A"), hero(10, "J")} {
		_, err := ds.Add(ctx, "Hero", rec)
		require.NoError(t, err)
	}

	all, err := ds.GetAll(ctx, "Hero")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, ir.Equal(hero(2, "B"), all[0]), "insertion order")
	assert.True(t, ir.Equal(hero(1, "A"), all[1]))
	assert.True(t, ir.Equal(hero(10, "J"), all[2]))

	empty, err := ds.GetAll(ctx, "Villain")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestEntities_AddDuplicate(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()

	_, err := ds.Add(ctx, "Hero", hero(1, "A"))
	require.NoError(t, err)
	_, err = ds.Add(ctx, "Hero", hero(1, "Again"))
	assert.ErrorIs(t, err, ErrExists)
}

func TestEntities_AddWithoutKey(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())

	_, err := ds.Add(context.Background(), "Villain", ir.Obj(ir.O("id", ir.Int(1))))
	assert.ErrorContains(t, err, `field "code"`)
}

func TestEntities_SelectID(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	evil := ir.Obj(ir.O("code", ir.String("DE")), ir.O("name", ir.String("Dr. Evil")))

	_, err := ds.Add(ctx, "Villain", evil)
	require.NoError(t, err)

	got, err := ds.GetByKey(ctx, "Villain", "DE")
	require.NoError(t, err)
	assert.True(t, ir.Equal(evil, got))
}

func TestEntities_GetByKeyNotFound(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())

	_, err := ds.GetByKey(context.Background(), "Hero", "404")
	assert.ErrorIs(t, err, effects.ErrNotFound)
}

func TestEntities_GetWithQuery(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	for _, rec := range []ir.Object{hero(1, "A"), hero(2, "B"), hero(3, "A")} {
		_, err := ds.Add(ctx, "Hero", rec)
		require.NoError(t, err)
	}

	got, err := ds.GetWithQuery(ctx, "Hero", ir.Obj(ir.O("name", ir.String("A"))))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ir.Int(1), got[0]["id"])
	assert.Equal(t, ir.Int(3), got[1]["id"])

	got, err = ds.GetWithQuery(ctx, "Hero", ir.Obj(ir.O("power", ir.String("flight"))))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ds.GetWithQuery(ctx, "Hero", ir.Object{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestEntities_GetWithQueryMultiField(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	rank := func(id int64, name string, team string, active bool) ir.Object {
		rec := hero(id, name)
		rec["team"] = ir.String(team)
		rec["active"] = ir.Bool(active)
		rec["rank"] = ir.Int(id % 2)
		return rec
	}
	for _, rec := range []ir.Object{
		rank(4, "D", "red", true),
		rank(1, "A", "red", true),
		rank(2, "B", "blue", true),
		rank(3, "C", "red", false),
	} {
		_, err := ds.Add(ctx, "Hero", rec)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		query ir.Object
		want  []int64
	}{
		{"two string and bool fields", ir.Obj(ir.O("team", ir.String("red")), ir.O("active", ir.Bool(true))), []int64{4, 1}},
		{"bool false", ir.Obj(ir.O("active", ir.Bool(false))), []int64{3}},
		{"int and string", ir.Obj(ir.O("rank", ir.Int(1)), ir.O("team", ir.String("red"))), []int64{1, 3}},
		{"int does not match bool", ir.Obj(ir.O("active", ir.Int(1))), nil},
		{"string does not match int", ir.Obj(ir.O("rank", ir.String("1"))), nil},
		{"no match", ir.Obj(ir.O("team", ir.String("red")), ir.O("name", ir.String("B"))), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ds.GetWithQuery(ctx, "Hero", tc.query)
			require.NoError(t, err)
			var ids []int64
			for _, rec := range got {
				ids = append(ids, int64(rec["id"].(ir.Int)))
			}
			assert.Equal(t, tc.want, ids, "insertion order")
		})
	}
}

func TestEntities_GetWithQueryNullAndUnicode(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()

	withPower := hero(1, "Ren\u00e9e")
	withPower["power"] = ir.Null{}
	_, err := ds.Add(ctx, "Hero", withPower)
	require.NoError(t, err)
	_, err = ds.Add(ctx, "Hero", hero(2, "B"))
	require.NoError(t, err)

	got, err := ds.GetWithQuery(ctx, "Hero", ir.Obj(ir.O("power", ir.Null{})))
	require.NoError(t, err)
	require.Len(t, got, 1, "a missing field is not null")
	assert.Equal(t, ir.Int(1), got[0]["id"])

	// Stored strings are NFC; the query value is normalized the same way.
	got, err = ds.GetWithQuery(ctx, "Hero", ir.Obj(ir.O("name", ir.String("Rene\u0301e"))))
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestEntities_GetWithQueryRejectsNestedValues(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()

	_, err := ds.GetWithQuery(ctx, "Hero", ir.Obj(ir.O("tags", ir.Array{ir.String("x")})))
	var verr *queryir.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), `field "tags"`)
}

func TestEntities_GetWithQueryScopedToEntity(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	_, err := ds.Add(ctx, "Hero", hero(1, "A"))
	require.NoError(t, err)
	_, err = ds.Add(ctx, "Villain", ir.Obj(ir.O("code", ir.String("v1")), ir.O("name", ir.String("A"))))
	require.NoError(t, err)

	got, err := ds.GetWithQuery(ctx, "Villain", ir.Obj(ir.O("name", ir.String("A"))))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ir.String("v1"), got[0]["code"])
}

func TestEntities_Update(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	_, err := ds.Add(ctx, "Hero", hero(1, "A"))
	require.NoError(t, err)
	_, err = ds.Add(ctx, "Hero", hero(2, "B"))
	require.NoError(t, err)

	saved, err := ds.Update(ctx, "Hero", collection.Update{
		ID:      "1",
		Changes: ir.Obj(ir.O("name", ir.String("Updated")), ir.O("power", ir.String("flight"))),
	})
	require.NoError(t, err)
	assert.Equal(t, ir.String("flight"), saved["power"])

	got, err := ds.GetByKey(ctx, "Hero", "1")
	require.NoError(t, err)
	assert.Equal(t, ir.String("Updated"), got["name"])

	_, err = ds.Update(ctx, "Hero", collection.Update{ID: "404", Changes: ir.Object{}})
	assert.ErrorIs(t, err, effects.ErrNotFound)
}

func TestEntities_UpdateMovesKeyInPlace(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	for _, rec := range []ir.Object{hero(1, "A"), hero(2, "B")} {
		_, err := ds.Add(ctx, "Hero", rec)
		require.NoError(t, err)
	}

	_, err := ds.Update(ctx, "Hero", collection.Update{ID: "1", Changes: ir.Obj(ir.O("id", ir.Int(7)))})
	require.NoError(t, err)

	all, err := ds.GetAll(ctx, "Hero")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ir.Int(7), all[0]["id"], "position kept")

	_, err = ds.Update(ctx, "Hero", collection.Update{ID: "7", Changes: ir.Obj(ir.O("id", ir.Int(2)))})
	assert.Error(t, err, "key clash")
}

func TestEntities_Upsert(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	_, err := ds.Upsert(ctx, "Hero", hero(1, "A"))
	require.NoError(t, err)
	_, err = ds.Upsert(ctx, "Hero", hero(2, "B"))
	require.NoError(t, err)
	_, err = ds.Upsert(ctx, "Hero", hero(1, "A2"))
	require.NoError(t, err)

	all, err := ds.GetAll(ctx, "Hero")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, ir.Equal(hero(1, "A2"), all[0]), "replaced in place")
}

func TestEntities_Delete(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	_, err := ds.Add(ctx, "Hero", hero(1, "A"))
	require.NoError(t, err)

	require.NoError(t, ds.Delete(ctx, "Hero", "1"))
	n, err := ds.Count(ctx, "Hero")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, ds.Delete(ctx, "Hero", "1"), effects.ErrNotFound)
}

func TestEntities_InTxRollsBack(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	boom := errors.New("boom")

	err := ds.InTx(ctx, func(tx effects.DataService) error {
		if _, err := tx.Add(ctx, "Hero", hero(1, "A")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := ds.Count(ctx, "Hero")
	require.NoError(t, err)
	assert.Zero(t, n, "rolled back")
}

func TestEntities_InTxCommits(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()

	err := ds.InTx(ctx, func(tx effects.DataService) error {
		for _, rec := range []ir.Object{hero(1, "A"), hero(2, "B")} {
			if _, err := tx.Add(ctx, "Hero", rec); err != nil {
				return err
			}
		}
		// Nested transactions join the outer one.
		return tx.(effects.TxRunner).InTx(ctx, func(inner effects.DataService) error {
			_, err := inner.Upsert(ctx, "Hero", hero(3, "C"))
			return err
		})
	})
	require.NoError(t, err)

	n, err := ds.Count(ctx, "Hero")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEntities_LargeIntegersKeepPrecision(t *testing.T) {
	ds := createTestStore(t).Entities(testMetadata())
	ctx := context.Background()
	rec := ir.Obj(ir.O("id", ir.Int(1)), ir.O("big", ir.Int(1<<62+1)))

	_, err := ds.Add(ctx, "Hero", rec)
	require.NoError(t, err)

	got, err := ds.GetByKey(ctx, "Hero", "1")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(1<<62+1), got["big"])
}

func TestEntities_DigestStored(t *testing.T) {
	s := createTestStore(t)
	ds := s.Entities(testMetadata())
	ctx := context.Background()
	_, err := ds.Add(ctx, "Hero", hero(1, "A"))
	require.NoError(t, err)

	var digest string
	require.NoError(t, s.db.QueryRow(`SELECT digest FROM entities WHERE entity_id = '1'`).Scan(&digest))
	want, err := ir.RecordDigest(hero(1, "A"))
	require.NoError(t, err)
	assert.Equal(t, want, digest)
}

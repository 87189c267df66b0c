package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAction_RoundTrip(t *testing.T) {
	f := NewEntityActionFactory(NewSequenceGenerator("crid-1", "crid-2"))
	orig := f.Create("Hero", OpSaveAddOne,
		WithData(Obj(O("id", Int(1)), O("name", String("A")))),
		WithOptimistic(true),
		WithTag("Heroes page"),
	)
	failed := f.CreateFromAction(orig, ErrorOf(orig.Op()),
		WithError(&EntityActionError{Message: "boom", Original: &orig}),
	)

	tests := []struct {
		name   string
		action Action
	}{
		{"plain", NewAction("test/get-everything-succeeded", Obj(O("Hero", Array{})))},
		{"plain without payload", NewAction("noop", nil)},
		{"entity", orig},
		{"entity with error", failed},
		{"entity skip and strategy", f.Create("Villain", OpQueryAll,
			WithSkip(true), WithMergeStrategy(OverwriteChanges), WithData(Null{}))},
		{"cache", CacheAction{
			Op:            CacheMergeQuerySet,
			Names:         []string{"Hero"},
			Collections:   map[string][]Object{"Hero": {Obj(O("id", Int(2)))}},
			MergeStrategy: PreserveChanges,
			Tag:           "bulk",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := EncodeAction(tt.action)
			require.NoError(t, err)

			data, err := MarshalCanonical(enc)
			require.NoError(t, err)
			parsed, err := ParseJSON(data)
			require.NoError(t, err)

			got, err := DecodeAction(parsed.(Object))
			require.NoError(t, err)
			assert.Equal(t, tt.action.Type(), got.Type())

			again, err := EncodeAction(got)
			require.NoError(t, err)
			assert.True(t, Equal(enc, again), "re-encoding is stable")
		})
	}
}

func TestEncodeAction_EntityFields(t *testing.T) {
	a := NewEntityActionFactory(nil).Create("Hero", OpQueryAll)
	enc, err := EncodeAction(&a)
	require.NoError(t, err)

	data, err := MarshalCanonical(enc)
	require.NoError(t, err)
	assert.Equal(t, `{"entity_name":"Hero","entity_op":"entity/query-all","kind":"entity","type":"[Hero] entity/query-all"}`, string(data))
}

type customAction struct{}

func (customAction) Type() string { return "custom" }

func TestEncodeAction_Unsupported(t *testing.T) {
	_, err := EncodeAction(customAction{})
	assert.ErrorContains(t, err, "unsupported action")
}

func TestDecodeAction_Errors(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{"no kind", Obj(O("type", String("x"))), `missing field "kind"`},
		{"unknown kind", Obj(O("kind", String("weird"))), `unknown kind "weird"`},
		{"entity without op", Obj(O("kind", String(KindEntity)), O("type", String("x")), O("entity_name", String("Hero"))), `missing field "entity_op"`},
		{"bad optimistic flag", Obj(
			O("kind", String(KindEntity)), O("type", String("x")),
			O("entity_name", String("Hero")), O("entity_op", String(OpSaveAddOne)),
			O("is_optimistic", String("yes")),
		), `field "is_optimistic": expected bool`},
		{"bad names", Obj(O("kind", String(KindCache)), O("op", String(CacheClearCollections)), O("names", String("Hero"))), `field "names": expected array`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction(tt.obj)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/di"
	"github.com/roach88/entcache/internal/engine"
	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/reducer"
)

// liveStore wires the database as both the data service and the action log.
func liveStore(t *testing.T, s *Store, opts ...engine.Option) *engine.Store {
	t.Helper()
	md := testMetadata()
	c := di.NewContainer()
	c.ProvideValue(di.TokenDataService, s.Entities(md))

	lastSeq, err := s.LastSeq(context.Background())
	require.NoError(t, err)

	all := append([]engine.Option{
		engine.WithActionLog(s),
		engine.WithClock(engine.NewClockAt(lastSeq)),
	}, opts...)
	st, err := engine.Build(engine.Config{EntityMetadata: md}, c, all...)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestReplayLog_ReproducesLiveCache(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	st := liveStore(t, s)
	f := ir.NewEntityActionFactory(ir.UUIDv7Generator{})

	require.NoError(t, st.Dispatch(ctx, f.Create("Hero", ir.OpSaveAddMany,
		ir.WithData(ir.Array{hero(1, "A"), hero(2, "B")}))))
	require.NoError(t, st.Dispatch(ctx, f.Create("Hero", ir.OpSaveUpdateOne,
		ir.WithOptimistic(true),
		ir.WithData(ir.Obj(ir.O("id", ir.Int(2)), ir.O("changes", ir.Obj(ir.O("name", ir.String("B2")))))))))
	require.NoError(t, st.Dispatch(ctx, f.Create("Hero", ir.OpSaveDeleteOne, ir.WithData(ir.Int(1)))))
	require.NoError(t, st.Dispatch(ctx, f.Create("Hero", ir.OpQueryAll)))
	require.NoError(t, st.Dispatch(ctx, f.Create("Villain", ir.OpAddOne,
		ir.WithData(ir.Obj(ir.O("code", ir.String("DE")))))))

	actions, lastSeq, err := s.ReplayLog(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.Clock().Current(), lastSeq)
	assert.Len(t, actions, int(lastSeq), "every processed action is logged")

	md := testMetadata()
	base := reducer.EntityCacheReducerFactory{Metadata: md}.Create()
	replayed := engine.Replay(base, cache.New(md, nil), actions)

	live := st.State()
	assert.Equal(t, live.Snapshot(), replayed.Snapshot())
	for _, name := range live.Names() {
		assert.Equal(t, live.Get(name).Loaded, replayed.Get(name).Loaded, name)
		assert.Equal(t, live.Get(name).ChangeState, replayed.Get(name).ChangeState, name)
	}

	heroes := live.Get("Hero")
	assert.Equal(t, []ir.EntityID{"2"}, heroes.IDs)
	assert.Equal(t, ir.String("B2"), heroes.Entities["2"]["name"])
}

func TestReplayLog_ContinuesNumbering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := liveStore(t, s)
	require.NoError(t, first.Dispatch(ctx, ir.NewAction("one", nil)))
	first.Close()

	second := liveStore(t, s)
	require.NoError(t, second.Dispatch(ctx, ir.NewAction("two", nil)))

	logged, err := s.ReadActions(ctx)
	require.NoError(t, err)
	require.Len(t, logged, 2)
	assert.Equal(t, int64(1), logged[0].Seq)
	assert.Equal(t, int64(2), logged[1].Seq)
}

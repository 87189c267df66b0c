package cli

import (
	"context"
	"fmt"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/engine"
	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/reducer"
	"github.com/roach88/entcache/internal/store"
)

// session is an opened database plus the entity metadata of a directory,
// with the cache rebuilt from the action log.
type session struct {
	loaded  *LoadResult
	db      *store.Store
	reducer reducer.Reducer
	initial *cache.Cache
	state   *cache.Cache
	actions []ir.Action
	lastSeq int64
}

// openSession loads dir, opens dbPath and replays its action log.
// Errors are *ExitError values ready to return from a command.
func openSession(ctx context.Context, formatter *OutputFormatter, dir, dbPath string) (*session, error) {
	loaded, err := LoadEntities(dir)
	if err != nil {
		loadErr := asLoadError(err)
		return nil, formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Error())
	}
	formatter.VerboseLog("Loaded %d entit%s from %s", len(loaded.Specs), plural(len(loaded.Specs), "y", "ies"), dir)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("open database: %v", err))
	}

	// A store without effects supplies the reducer pipeline and the
	// initial cache the live store would start from.
	replayer, err := engine.Build(engine.Config{EntityMetadata: loaded.Metadata}, nil)
	if err != nil {
		db.Close()
		return nil, formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	defer replayer.Close()

	actions, lastSeq, err := db.ReplayLog(ctx)
	if err != nil {
		db.Close()
		return nil, formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}
	formatter.VerboseLog("Replaying %d logged action(s)", len(actions))

	initial := replayer.State()
	return &session{
		loaded:  loaded,
		db:      db,
		reducer: replayer.Reducer(),
		initial: initial,
		state:   engine.Replay(replayer.Reducer(), initial, actions),
		actions: actions,
		lastSeq: lastSeq,
	}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

// collectionView is the printable form of one collection.
type collectionView struct {
	Name     string        `json:"name"`
	IDs      []ir.EntityID `json:"ids"`
	Entities []ir.Object   `json:"entities"`
	Loaded   bool          `json:"loaded"`
	Loading  bool          `json:"loading"`
	Changed  []ir.EntityID `json:"changed,omitempty"`
}

func viewOf(c *cache.Cache, name string) collectionView {
	coll := c.Get(name)
	view := collectionView{
		Name:     name,
		IDs:      coll.IDs,
		Entities: coll.All(),
		Loaded:   coll.Loaded,
		Loading:  coll.Loading,
	}
	for _, id := range coll.IDs {
		if _, ok := coll.ChangeState[id]; ok {
			view.Changed = append(view.Changed, id)
		}
	}
	return view
}

// printView writes a collection in text form: a header line then one
// canonical JSON record per line.
func printView(formatter *OutputFormatter, view collectionView) error {
	status := ""
	if view.Loaded {
		status = " (loaded)"
	}
	fmt.Fprintf(formatter.Writer, "%s: %d entit%s%s\n",
		view.Name, len(view.IDs), plural(len(view.IDs), "y", "ies"), status)
	for _, rec := range view.Entities {
		data, err := ir.MarshalCanonical(rec)
		if err != nil {
			return err
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", data)
	}
	if len(view.Changed) > 0 {
		fmt.Fprintf(formatter.Writer, "  unsaved changes: %v\n", view.Changed)
	}
	return nil
}

package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/di"
	"github.com/roach88/entcache/internal/effects"
	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/reducer"
)

// MetaReducerEntry is one element of the meta-reducer chain: either a
// function or a token resolved once when the store is built.
type MetaReducerEntry struct {
	Func  reducer.MetaReducer
	Token di.Token
}

// Func wraps a meta-reducer function as an entry.
func Func(m reducer.MetaReducer) MetaReducerEntry {
	return MetaReducerEntry{Func: m}
}

// Token refers to a meta-reducer provided under t.
func Token(t di.Token) MetaReducerEntry {
	return MetaReducerEntry{Token: t}
}

// Config is the construction-time configuration of a store.
type Config struct {
	// EntityMetadata lists the configured entity types. May be empty.
	EntityMetadata ir.MetadataMap

	// MetaReducers wrap the base reducer; the first entry is outermost.
	MetaReducers []MetaReducerEntry

	// Effects, when set, replaces the default effects entirely.
	Effects effects.Source
}

// Build resolves dependencies and returns a fresh store.
//
// Resolution, each optional:
//   - di.TokenCollectionCreator: *collection.Creator (default: over the metadata)
//   - di.TokenActionFactory: *ir.EntityActionFactory (default: UUIDv7 ids)
//   - di.TokenLogger: *slog.Logger; adds LoggingMetaReducer outermost
//   - di.TokenEntityEffects: effects.Source, used unless cfg.Effects is set
//   - di.TokenDataService: effects.DataService for the default EntityEffects
//
// With neither an effects source nor a data service the store runs no
// effects. A nil resolver resolves nothing.
func Build(cfg Config, r di.Resolver, opts ...Option) (*Store, error) {
	if r == nil {
		r = di.NewContainer()
	}
	md := cfg.EntityMetadata
	if md == nil {
		md = ir.MetadataMap{}
	}

	creator, ok, err := di.Optional[*collection.Creator](r, di.TokenCollectionCreator)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}
	if !ok {
		creator = collection.NewCreator(md)
	}

	factory, ok, err := di.Optional[*ir.EntityActionFactory](r, di.TokenActionFactory)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}
	if !ok {
		factory = ir.NewEntityActionFactory(ir.UUIDv7Generator{})
	}

	metas := make([]reducer.MetaReducer, 0, len(cfg.MetaReducers)+1)
	logger, ok, err := di.Optional[*slog.Logger](r, di.TokenLogger)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}
	if ok {
		metas = append(metas, reducer.LoggingMetaReducer(logger))
	}
	for i, entry := range cfg.MetaReducers {
		m, err := resolveMetaReducer(r, entry)
		if err != nil {
			return nil, fmt.Errorf("build store: meta-reducer %d: %w", i, err)
		}
		metas = append(metas, m)
	}

	src, err := resolveEffects(cfg, r, factory, creator)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	all := append([]Option{WithInitialState(cache.New(md, creator))}, opts...)
	s := New(nil, src, all...)
	base := reducer.EntityCacheReducerFactory{
		Creator:  creator,
		Metadata: md,
		OnError:  s.ReportError,
	}.Create()
	s.reducer = reducer.Compose(metas, base)

	slog.Debug("store built",
		"entities", len(md),
		"meta_reducers", len(metas),
		"effects", len(s.effects),
	)
	return s, nil
}

func resolveMetaReducer(r di.Resolver, entry MetaReducerEntry) (reducer.MetaReducer, error) {
	if entry.Func != nil {
		return entry.Func, nil
	}
	if entry.Token == "" {
		return nil, fmt.Errorf("entry has neither a function nor a token")
	}
	v, err := r.Resolve(entry.Token)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case reducer.MetaReducer:
		return m, nil
	case func(reducer.Reducer) reducer.Reducer:
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s is %T, want reducer.MetaReducer", di.ErrTypeMismatch, entry.Token, v)
}

func resolveEffects(cfg Config, r di.Resolver, factory *ir.EntityActionFactory, creator *collection.Creator) (effects.Source, error) {
	if cfg.Effects != nil {
		return cfg.Effects, nil
	}
	src, ok, err := di.Optional[effects.Source](r, di.TokenEntityEffects)
	if err != nil || ok {
		return src, err
	}
	ds, ok, err := di.Optional[effects.DataService](r, di.TokenDataService)
	if err != nil {
		return nil, err
	}
	if !ok {
		return effects.None, nil
	}
	return effects.NewEntityEffects(ds, factory, creator), nil
}

package engine

import (
	"context"

	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/effects"
	"github.com/roach88/entcache/internal/ir"
)

// memService is an in-memory effects.DataService keyed by "id".
type memService struct {
	ids     map[string][]ir.EntityID
	records map[string]map[ir.EntityID]ir.Object
	calls   int
}

func newMemService() *memService {
	return &memService{
		ids:     map[string][]ir.EntityID{},
		records: map[string]map[ir.EntityID]ir.Object{},
	}
}

func (m *memService) put(name string, rec ir.Object) {
	id, _ := ir.EntityIDOf(rec["id"])
	if m.records[name] == nil {
		m.records[name] = map[ir.EntityID]ir.Object{}
	}
	if _, ok := m.records[name][id]; !ok {
		m.ids[name] = append(m.ids[name], id)
	}
	m.records[name][id] = rec
}

func (m *memService) GetAll(_ context.Context, name string) ([]ir.Object, error) {
	m.calls++
	out := make([]ir.Object, 0, len(m.ids[name]))
	for _, id := range m.ids[name] {
		out = append(out, m.records[name][id])
	}
	return out, nil
}

func (m *memService) GetByKey(_ context.Context, name string, id ir.EntityID) (ir.Object, error) {
	m.calls++
	rec, ok := m.records[name][id]
	if !ok {
		return nil, effects.ErrNotFound
	}
	return rec, nil
}

func (m *memService) GetWithQuery(ctx context.Context, name string, query ir.Object) ([]ir.Object, error) {
	all, err := m.GetAll(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []ir.Object
	for _, rec := range all {
		match := true
		for k, v := range query {
			if !ir.Equal(rec[k], v) {
				match = false
				break
			}
		}
		if match {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memService) Add(_ context.Context, name string, rec ir.Object) (ir.Object, error) {
	m.calls++
	m.put(name, rec)
	return rec, nil
}

func (m *memService) Update(_ context.Context, name string, u collection.Update) (ir.Object, error) {
	m.calls++
	rec, ok := m.records[name][u.ID]
	if !ok {
		return nil, effects.ErrNotFound
	}
	next := make(ir.Object, len(rec)+len(u.Changes))
	for k, v := range rec {
		next[k] = v
	}
	for k, v := range u.Changes {
		next[k] = v
	}
	m.records[name][u.ID] = next
	return next, nil
}

func (m *memService) Upsert(_ context.Context, name string, rec ir.Object) (ir.Object, error) {
	m.calls++
	m.put(name, rec)
	return rec, nil
}

func (m *memService) Delete(_ context.Context, name string, id ir.EntityID) error {
	m.calls++
	if _, ok := m.records[name][id]; !ok {
		return effects.ErrNotFound
	}
	delete(m.records[name], id)
	ids := m.ids[name][:0:0]
	for _, cur := range m.ids[name] {
		if cur != id {
			ids = append(ids, cur)
		}
	}
	m.ids[name] = ids
	return nil
}

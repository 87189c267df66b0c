package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/effects"
	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/queryir"
	"github.com/roach88/entcache/internal/querysql"
)

// ErrExists is returned by Add when a record with the same key is stored.
var ErrExists = errors.New("entity already exists")

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Entities is the entity table seen as an effects.DataService. Keys are
// read with each entity type's metadata; unknown names use the "id" field.
type Entities struct {
	db *sql.DB // nil inside a transaction
	q  querier
	md ir.MetadataMap
}

var (
	_ effects.DataService = (*Entities)(nil)
	_ effects.TxRunner    = (*Entities)(nil)
)

// Entities returns the data service over the entity table.
func (s *Store) Entities(md ir.MetadataMap) *Entities {
	return &Entities{db: s.db, q: s.db, md: md}
}

// InTx runs fn against a transaction-scoped data service. fn's error rolls
// back every call it made. Nested calls join the outer transaction.
func (e *Entities) InTx(ctx context.Context, fn func(ds effects.DataService) error) error {
	if e.db == nil {
		return fn(e)
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&Entities{q: tx, md: e.md}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll returns every record of entityName in insertion order.
// Returns an empty slice (not nil) when there are none.
func (e *Entities) GetAll(ctx context.Context, entityName string) ([]ir.Object, error) {
	return e.selectRecords(ctx, queryir.Select{From: entityName})
}

// selectRecords runs a compiled query and decodes every record it returns.
func (e *Entities) selectRecords(ctx context.Context, q queryir.Select) ([]ir.Object, error) {
	query, params, err := querysql.NewCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.From, err)
	}
	rows, err := e.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.From, err)
	}
	defer rows.Close()

	recs := []ir.Object{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.From, err)
		}
		rec, err := unmarshalRecord(data)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.From, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.From, err)
	}
	return recs, nil
}

// GetByKey returns the record with key id, or effects.ErrNotFound.
func (e *Entities) GetByKey(ctx context.Context, entityName string, id ir.EntityID) (ir.Object, error) {
	var data string
	err := e.q.QueryRowContext(ctx, `
		SELECT record FROM entities
		WHERE entity_name = ? AND entity_id = ?
	`, entityName, string(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s %s: %w", entityName, id, effects.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", entityName, id, err)
	}
	return unmarshalRecord(data)
}

// GetWithQuery returns the records whose fields equal every field of query,
// in insertion order. An empty query matches everything. Array and object
// values in query are rejected with a *queryir.ValidationError.
func (e *Entities) GetWithQuery(ctx context.Context, entityName string, query ir.Object) ([]ir.Object, error) {
	return e.selectRecords(ctx, queryir.FromExample(entityName, query))
}

// Add inserts rec. Returns ErrExists when its key is already stored.
func (e *Entities) Add(ctx context.Context, entityName string, rec ir.Object) (ir.Object, error) {
	id, data, digest, err := e.prepare(entityName, rec)
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	result, err := e.q.ExecContext(ctx, `
		INSERT INTO entities (entity_name, entity_id, pos, record, digest)
		VALUES (?, ?, (SELECT COALESCE(MAX(pos), 0) + 1 FROM entities WHERE entity_name = ?), ?, ?)
		ON CONFLICT(entity_name, entity_id) DO NOTHING
	`, entityName, string(id), entityName, data, digest)
	if err != nil {
		return nil, fmt.Errorf("add %s %s: %w", entityName, id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("add %s %s: %w", entityName, id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("add %s %s: %w", entityName, id, ErrExists)
	}
	return rec, nil
}

// Update merges u.Changes into the stored record and returns the result.
// A change of key moves the record; it keeps its position.
func (e *Entities) Update(ctx context.Context, entityName string, u collection.Update) (ir.Object, error) {
	current, err := e.GetByKey(ctx, entityName, u.ID)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	merged := current.Merge(u.Changes)
	id, data, digest, err := e.prepare(entityName, merged)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	_, err = e.q.ExecContext(ctx, `
		UPDATE entities
		SET entity_id = ?, record = ?, digest = ?
		WHERE entity_name = ? AND entity_id = ?
	`, string(id), data, digest, entityName, string(u.ID))
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", entityName, u.ID, err)
	}
	return merged, nil
}

// Upsert inserts rec or replaces the stored record with the same key.
func (e *Entities) Upsert(ctx context.Context, entityName string, rec ir.Object) (ir.Object, error) {
	id, data, digest, err := e.prepare(entityName, rec)
	if err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}

	_, err = e.q.ExecContext(ctx, `
		INSERT INTO entities (entity_name, entity_id, pos, record, digest)
		VALUES (?, ?, (SELECT COALESCE(MAX(pos), 0) + 1 FROM entities WHERE entity_name = ?), ?, ?)
		ON CONFLICT(entity_name, entity_id) DO UPDATE SET
			record = excluded.record,
			digest = excluded.digest
	`, entityName, string(id), entityName, data, digest)
	if err != nil {
		return nil, fmt.Errorf("upsert %s %s: %w", entityName, id, err)
	}
	return rec, nil
}

// Delete removes the record with key id, or returns effects.ErrNotFound.
func (e *Entities) Delete(ctx context.Context, entityName string, id ir.EntityID) error {
	result, err := e.q.ExecContext(ctx, `
		DELETE FROM entities WHERE entity_name = ? AND entity_id = ?
	`, entityName, string(id))
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", entityName, id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", entityName, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s %s: %w", entityName, id, effects.ErrNotFound)
	}
	return nil
}

// Count returns the number of stored records of entityName.
func (e *Entities) Count(ctx context.Context, entityName string) (int, error) {
	var n int
	err := e.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entities WHERE entity_name = ?
	`, entityName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", entityName, err)
	}
	return n, nil
}

func (e *Entities) prepare(entityName string, rec ir.Object) (ir.EntityID, string, string, error) {
	id, err := e.md.Lookup(entityName).IDOf(rec)
	if err != nil {
		return "", "", "", err
	}
	data, digest, err := marshalRecord(rec)
	if err != nil {
		return "", "", "", err
	}
	return id, data, digest, nil
}

package effects

import (
	"context"
	"errors"

	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/ir"
)

// ErrNotFound is returned by a DataService when a keyed record is absent.
var ErrNotFound = errors.New("entity not found")

// DataService persists the records of every entity type.
type DataService interface {
	GetAll(ctx context.Context, entityName string) ([]ir.Object, error)
	// GetByKey returns ErrNotFound when no record has key id.
	GetByKey(ctx context.Context, entityName string, id ir.EntityID) (ir.Object, error)
	// GetWithQuery returns records whose fields equal every field of query.
	GetWithQuery(ctx context.Context, entityName string, query ir.Object) ([]ir.Object, error)
	Add(ctx context.Context, entityName string, rec ir.Object) (ir.Object, error)
	Update(ctx context.Context, entityName string, u collection.Update) (ir.Object, error)
	Upsert(ctx context.Context, entityName string, rec ir.Object) (ir.Object, error)
	Delete(ctx context.Context, entityName string, id ir.EntityID) error
}

// TxRunner is implemented by data services that can run several calls
// atomically. Batch saves use it when available.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ds DataService) error) error
}

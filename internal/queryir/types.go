package queryir

import "github.com/roach88/entcache/internal/ir"

// Query is a sealed query node.
type Query interface {
	queryNode()
}

// Predicate is a sealed filter node.
type Predicate interface {
	predicateNode()
}

// Select reads the records of one entity type.
//
//	SELECT record FROM entities
//	WHERE entity_name = <From> AND <Filter>
//
// Results always come back in insertion order.
type Select struct {
	From   string    // entity name
	Filter Predicate // nil matches every record
}

func (Select) queryNode() {}

// Equals holds when the record has Field and its value equals Value.
// A missing field never matches, not even Null.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// And holds when every predicate holds. Empty is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// FromExample builds the query matching every record of entityName whose
// fields equal the fields of example. Predicates follow the canonical key
// order so the same example always yields the same query.
func FromExample(entityName string, example ir.Object) Select {
	q := Select{From: entityName}
	if len(example) == 0 {
		return q
	}
	keys := example.SortedKeys()
	preds := make([]Predicate, 0, len(keys))
	for _, k := range keys {
		preds = append(preds, Equals{Field: k, Value: example[k]})
	}
	if len(preds) == 1 {
		q.Filter = preds[0]
	} else {
		q.Filter = And{Predicates: preds}
	}
	return q
}

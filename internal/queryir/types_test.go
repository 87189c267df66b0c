package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/entcache/internal/ir"
)

func TestFromExample_Empty(t *testing.T) {
	q := FromExample("Hero", nil)
	assert.Equal(t, Select{From: "Hero"}, q)
	assert.Nil(t, q.Filter)
}

func TestFromExample_SingleField(t *testing.T) {
	q := FromExample("Hero", ir.Obj(ir.O("name", ir.String("A"))))
	assert.Equal(t, Equals{Field: "name", Value: ir.String("A")}, q.Filter)
}

func TestFromExample_SortsFields(t *testing.T) {
	q := FromExample("Hero", ir.Obj(
		ir.O("team", ir.String("red")),
		ir.O("active", ir.Bool(true)),
		ir.O("rank", ir.Int(2)),
	))

	assert.Equal(t, And{Predicates: []Predicate{
		Equals{Field: "active", Value: ir.Bool(true)},
		Equals{Field: "rank", Value: ir.Int(2)},
		Equals{Field: "team", Value: ir.String("red")},
	}}, q.Filter)
}

func TestSealedInterfaces(t *testing.T) {
	var _ Query = Select{}
	var _ Query = &Select{}
	var _ Predicate = Equals{}
	var _ Predicate = &Equals{}
	var _ Predicate = And{}
	var _ Predicate = &And{}
}

// Package querysql compiles queryir queries to parameterized SQLite SQL
// over the entity table.
//
// Every statement ends in the table's deterministic order (pos, then
// entity_id with binary collation) and every value, JSON path included,
// is passed as a parameter.
package querysql

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/queryir"
)

// OrderBy is the ordering every compiled query uses.
const OrderBy = "pos ASC, entity_id COLLATE BINARY ASC"

// Compiler compiles queries against one entity table.
type Compiler struct {
	// Table is the entity table name. Defaults to "entities".
	Table string
	// Column holds the canonical JSON record. Defaults to "record".
	Column string
}

// NewCompiler returns a compiler for the default entity table.
func NewCompiler() *Compiler {
	return &Compiler{Table: "entities", Column: "record"}
}

// Compile validates q and converts it to SQL plus parameters. The
// statement selects the record column only.
func (c *Compiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *Compiler) compileSelect(q queryir.Select) (string, []any, error) {
	where := "entity_name = ?"
	params := []any{q.From}
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if filterSQL != "" {
			where += " AND " + filterSQL
			params = append(params, filterParams...)
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		c.column(), c.table(), where, OrderBy)
	return sql, params, nil
}

// compilePredicate returns "" for a predicate that is always true.
func (c *Compiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals checks the JSON type first so that Int 1 never matches
// Bool true: json_extract returns 1 for both.
func (c *Compiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	path := jsonPath(eq.Field)
	typeSQL := fmt.Sprintf("json_type(%s, ?) = ?", c.column())

	switch v := eq.Value.(type) {
	case ir.String:
		return fmt.Sprintf("(%s AND json_extract(%s, ?) = ?)", typeSQL, c.column()),
			[]any{path, "text", path, norm.NFC.String(string(v))}, nil
	case ir.Int:
		return fmt.Sprintf("(%s AND json_extract(%s, ?) = ?)", typeSQL, c.column()),
			[]any{path, "integer", path, int64(v)}, nil
	case ir.Bool:
		jsonType := "false"
		if v {
			jsonType = "true"
		}
		return typeSQL, []any{path, jsonType}, nil
	case ir.Null:
		return typeSQL, []any{path, "null"}, nil
	default:
		return "", nil, fmt.Errorf("field %q: unsupported value %T", eq.Field, eq.Value)
	}
}

func (c *Compiler) compileAnd(and queryir.And) (string, []any, error) {
	var parts []string
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (c *Compiler) table() string {
	if c.Table == "" {
		return "entities"
	}
	return c.Table
}

func (c *Compiler) column() string {
	if c.Column == "" {
		return "record"
	}
	return c.Column
}

// jsonPath returns the SQLite JSON path of a top-level field. The label is
// always quoted so dots and brackets in field names stay literal.
func jsonPath(field string) string {
	return `$."` + field + `"`
}

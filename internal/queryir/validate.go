package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/entcache/internal/ir"
)

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks q against what the backends can execute. Returns nil or
// a *ValidationError.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addProblem("nil query")
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addProblem("select needs an entity name")
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	switch {
	case eq.Field == "":
		v.addProblem("empty field name")
	case strings.ContainsAny(eq.Field, `"\`):
		v.addProblem("field %q: quotes and backslashes are not allowed", eq.Field)
	}

	switch eq.Value.(type) {
	case ir.String, ir.Int, ir.Bool, ir.Null:
	case ir.Array, ir.Object:
		v.addProblem("field %q: arrays and objects cannot be compared", eq.Field)
	case nil:
		v.addProblem("field %q: missing value", eq.Field)
	default:
		v.addProblem("field %q: unsupported value %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateAnd(and And) {
	for _, p := range and.Predicates {
		v.validatePredicate(p)
	}
}

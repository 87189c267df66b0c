package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/entcache/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Entity declaration errors (E101-E109)
	ErrEntityNameInvalid  = "E101" // empty name or one that breaks "[name] op" types
	ErrDuplicateEntity    = "E102" // same entity declared twice
	ErrUndeclaredKey      = "E103" // selectId not among declared fields
	ErrInvalidKeyType     = "E104" // key field must be int or string
	ErrUndeclaredSort     = "E105" // sortField not among declared fields
	ErrInvalidFieldType   = "E106" // unknown field type name
	ErrFloatTypeForbidden = "E107" // float types not allowed

	// Record errors (E110-E119)
	ErrRecordMissingKey = "E110" // record has no usable key
	ErrRecordFieldType  = "E111" // field value does not match the declared type
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var validTypes = map[string]bool{
	"string": true,
	"int":    true,
	"bool":   true,
	"array":  true,
	"object": true,
}

// Validate checks entity specs. Returns all errors found (does not
// fail-fast).
func Validate(specs []*EntitySpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int)

	for i, spec := range specs {
		path := fmt.Sprintf("entity.%s", spec.Name)
		line := 0
		if spec.Pos.IsValid() {
			line = spec.Pos.Line()
		}

		// E101
		if strings.TrimSpace(spec.Name) == "" || strings.ContainsAny(spec.Name, "[]\n") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("entity[%d]", i),
				Message: fmt.Sprintf("invalid entity name %q", spec.Name),
				Code:    ErrEntityNameInvalid,
				Line:    line,
			})
		}

		// E102
		if prev, dup := seen[spec.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("entity %q already declared (entity[%d])", spec.Name, prev),
				Code:    ErrDuplicateEntity,
				Line:    line,
			})
		} else {
			seen[spec.Name] = i
		}

		errs = append(errs, validateFields(spec, path, line)...)
	}

	return errs
}

func validateFields(spec *EntitySpec, path string, line int) []ValidationError {
	var errs []ValidationError

	for _, name := range sortedFieldNames(spec.Fields) {
		typ := spec.Fields[name]
		if typ == "float" || typ == "number" {
			errs = append(errs, ValidationError{
				Field:   path + ".fields." + name,
				Message: fmt.Sprintf("float type forbidden for field %q, use int instead", name),
				Code:    ErrFloatTypeForbidden,
				Line:    line,
			})
			continue
		}
		if !validTypes[typ] {
			errs = append(errs, ValidationError{
				Field:   path + ".fields." + name,
				Message: fmt.Sprintf("invalid type %q for field %q", typ, name),
				Code:    ErrInvalidFieldType,
				Line:    line,
			})
		}
	}

	// Key and sort checks need a declared schema.
	if len(spec.Fields) == 0 {
		return errs
	}

	key := spec.KeyField()
	keyType, ok := spec.Fields[key]
	switch {
	case !ok:
		errs = append(errs, ValidationError{
			Field:   path + ".selectId",
			Message: fmt.Sprintf("key field %q is not declared in fields", key),
			Code:    ErrUndeclaredKey,
			Line:    line,
		})
	case keyType != "int" && keyType != "string":
		errs = append(errs, ValidationError{
			Field:   path + ".selectId",
			Message: fmt.Sprintf("key field %q must be int or string, got %s", key, keyType),
			Code:    ErrInvalidKeyType,
			Line:    line,
		})
	}

	if spec.SortField != "" {
		if _, ok := spec.Fields[spec.SortField]; !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".sortField",
				Message: fmt.Sprintf("sort field %q is not declared in fields", spec.SortField),
				Code:    ErrUndeclaredSort,
				Line:    line,
			})
		}
	}

	return errs
}

// ValidateRecord checks rec against spec: a usable key, and declared field
// types when spec declares fields. Undeclared fields are allowed.
func ValidateRecord(spec *EntitySpec, rec ir.Object) []ValidationError {
	var errs []ValidationError

	if _, err := spec.Metadata().IDOf(rec); err != nil {
		errs = append(errs, ValidationError{
			Field:   spec.KeyField(),
			Message: err.Error(),
			Code:    ErrRecordMissingKey,
		})
	}

	for _, name := range sortedFieldNames(spec.Fields) {
		v, ok := rec[name]
		if !ok {
			continue
		}
		if _, isNull := v.(ir.Null); isNull {
			continue
		}
		if got := valueTypeName(v); got != spec.Fields[name] {
			errs = append(errs, ValidationError{
				Field:   name,
				Message: fmt.Sprintf("expected %s, got %s", spec.Fields[name], got),
				Code:    ErrRecordFieldType,
			})
		}
	}

	return errs
}

func valueTypeName(v ir.Value) string {
	switch v.(type) {
	case ir.String:
		return "string"
	case ir.Int:
		return "int"
	case ir.Bool:
		return "bool"
	case ir.Array:
		return "array"
	case ir.Object:
		return "object"
	case ir.Null:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func sortedFieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package compiler turns CUE entity declarations into entity metadata.
//
// A declaration file looks like:
//
//	entity: Hero: {
//		selectId:  "id"
//		sortField: "name"
//		fields: { id: int, name: string }
//	}
//
// Every key inside an entity block is optional. CompileEntities returns
// the specs sorted by name; Validate checks them.
package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/entcache/internal/ir"
)

// EntitySpec is one compiled entity declaration.
type EntitySpec struct {
	Name             string            `json:"name"`
	SelectID         string            `json:"select_id,omitempty"`
	SortField        string            `json:"sort_field,omitempty"`
	NoChangeTracking bool              `json:"no_change_tracking,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`

	Pos token.Pos `json:"-"`
}

// Metadata returns the runtime metadata for the spec.
func (s *EntitySpec) Metadata() ir.EntityMetadata {
	return ir.EntityMetadata{
		EntityName:       s.Name,
		SelectID:         s.SelectID,
		SortField:        s.SortField,
		NoChangeTracking: s.NoChangeTracking,
	}
}

// KeyField returns SelectID or the default key field.
func (s *EntitySpec) KeyField() string {
	return s.Metadata().KeyField()
}

// MetadataMap builds the runtime metadata map for specs.
func MetadataMap(specs []*EntitySpec) ir.MetadataMap {
	md := make(ir.MetadataMap, len(specs))
	for _, s := range specs {
		md[s.Name] = s.Metadata()
	}
	return md
}

// CompileEntities compiles every entity under the top-level "entity"
// field of v. A value without that field has no entities.
func CompileEntities(v cue.Value) ([]*EntitySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entities := v.LookupPath(cue.ParsePath("entity"))
	if !entities.Exists() {
		return nil, nil
	}

	iter, err := entities.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []*EntitySpec
	for iter.Next() {
		spec, err := CompileEntity(iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Name = iter.Selector().Unquoted()
		specs = append(specs, spec)
	}

	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs, nil
}

// CompileEntity parses one entity block. The name comes from the last
// selector of the value's path.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: Hero: { selectId: "id" }`)
//	spec, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Hero")))
func CompileEntity(v cue.Value) (*EntitySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   "entity",
			Message: fmt.Sprintf("entity must be a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	spec := &EntitySpec{Pos: v.Pos()}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		spec.Name = sels[len(sels)-1].Unquoted()
	}

	var err error
	if spec.SelectID, err = optionalString(v, "selectId"); err != nil {
		return nil, err
	}
	if spec.SortField, err = optionalString(v, "sortField"); err != nil {
		return nil, err
	}

	if ct := v.LookupPath(cue.ParsePath("noChangeTracking")); ct.Exists() {
		b, err := ct.Bool()
		if err != nil {
			return nil, &CompileError{
				Field:   "noChangeTracking",
				Message: "must be a bool",
				Pos:     ct.Pos(),
			}
		}
		spec.NoChangeTracking = b
	}

	if spec.Fields, err = parseFields(v); err != nil {
		return nil, err
	}

	if err := rejectUnknownKeys(v); err != nil {
		return nil, err
	}

	return spec, nil
}

var knownKeys = map[string]bool{
	"selectId":         true,
	"sortField":        true,
	"noChangeTracking": true,
	"fields":           true,
}

func rejectUnknownKeys(v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if label := iter.Selector().Unquoted(); !knownKeys[label] {
			return &CompileError{
				Field:   label,
				Message: "unknown entity key",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func optionalString(v cue.Value, key string) (string, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{
			Field:   key,
			Message: "must be a string",
			Pos:     f.Pos(),
		}
	}
	return s, nil
}

// parseFields reads the optional field schema.
func parseFields(v cue.Value) (map[string]string, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	fields := make(map[string]string)
	for iter.Next() {
		typ, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		fields[iter.Selector().Unquoted()] = typ
	}
	return fields, nil
}

// extractTypeName converts a CUE type to a record field type name.
// Floats are forbidden: record numbers are int64.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.ListKind:
		return "array", nil
	case cue.StructKind:
		return "object", nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

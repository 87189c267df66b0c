package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entcache/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	specs := []*EntitySpec{
		{Name: "Hero", SortField: "name", Fields: map[string]string{"id": "int", "name": "string"}},
		{Name: "Villain", SelectID: "code", Fields: map[string]string{"code": "string"}},
		{Name: "Untyped"},
	}
	assert.Empty(t, Validate(specs))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec *EntitySpec
		want []string
	}{
		{"empty name", &EntitySpec{Name: " "}, []string{ErrEntityNameInvalid}},
		{"bracket in name", &EntitySpec{Name: "Hero]"}, []string{ErrEntityNameInvalid}},
		{"undeclared key", &EntitySpec{Name: "Hero", Fields: map[string]string{"name": "string"}}, []string{ErrUndeclaredKey}},
		{"bool key", &EntitySpec{Name: "Hero", SelectID: "flag", Fields: map[string]string{"flag": "bool"}}, []string{ErrInvalidKeyType}},
		{"undeclared sort", &EntitySpec{Name: "Hero", SortField: "rank", Fields: map[string]string{"id": "int"}}, []string{ErrUndeclaredSort}},
		{"bad type", &EntitySpec{Name: "Hero", Fields: map[string]string{"id": "int", "x": "date"}}, []string{ErrInvalidFieldType}},
		{"float", &EntitySpec{Name: "Hero", Fields: map[string]string{"id": "int", "score": "float"}}, []string{ErrFloatTypeForbidden}},
		{"all at once", &EntitySpec{Name: "", SortField: "rank", Fields: map[string]string{"score": "float"}},
			[]string{ErrEntityNameInvalid, ErrFloatTypeForbidden, ErrUndeclaredKey, ErrUndeclaredSort}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate([]*EntitySpec{tt.spec})))
		})
	}
}

func TestValidate_Duplicate(t *testing.T) {
	errs := Validate([]*EntitySpec{{Name: "Hero"}, {Name: "Hero"}})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateEntity, errs[0].Code)
	assert.Contains(t, errs[0].Message, "entity[0]")
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "[E101] entity[0]: bad", ValidationError{Field: "entity[0]", Message: "bad", Code: "E101"}.Error())
	assert.Equal(t, "[E101] line 3: entity[0]: bad", ValidationError{Field: "entity[0]", Message: "bad", Code: "E101", Line: 3}.Error())
}

func TestValidateRecord(t *testing.T) {
	spec := &EntitySpec{Name: "Hero", Fields: map[string]string{"id": "int", "name": "string", "tags": "array"}}

	ok := ir.Obj(ir.O("id", ir.Int(1)), ir.O("name", ir.String("A")), ir.O("extra", ir.Bool(true)))
	assert.Empty(t, ValidateRecord(spec, ok), "undeclared fields are allowed")

	nullName := ir.Obj(ir.O("id", ir.Int(1)), ir.O("name", ir.Null{}))
	assert.Empty(t, ValidateRecord(spec, nullName))

	bad := ir.Obj(ir.O("name", ir.Int(5)), ir.O("tags", ir.String("x")))
	errs := ValidateRecord(spec, bad)
	assert.Equal(t, []string{ErrRecordMissingKey, ErrRecordFieldType, ErrRecordFieldType}, codes(errs))
	assert.Equal(t, "name", errs[1].Field)
	assert.Equal(t, "expected string, got int", errs[1].Message)
}

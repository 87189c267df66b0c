package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// CompileFiles compiles the entity declarations of every file in paths as
// one unified CUE value. Declarations may span files; conflicting values
// for the same key are a CUE error.
func CompileFiles(paths ...string) ([]*EntitySpec, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	ctx := cuecontext.New()
	var unified cue.Value
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read entity file: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		if i == 0 {
			unified = v
			continue
		}
		unified = unified.Unify(v)
	}
	if err := unified.Validate(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileEntities(unified)
}

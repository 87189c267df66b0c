package reducer

import (
	"fmt"

	"github.com/roach88/entcache/internal/ir"
)

// flag reads a boolean payload.
func flag(v ir.Value) (bool, error) {
	b, ok := v.(ir.Bool)
	if !ok {
		return false, fmt.Errorf("data must be a bool, got %T", v)
	}
	return bool(b), nil
}

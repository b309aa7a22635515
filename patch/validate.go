package patch

import (
	"fmt"
)

// ValidateOperations checks that every op targets one of the allowed pointers
// exactly. An empty set allows everything.
func ValidateOperations(ops []Operation, allowed map[string]bool) error {
	if len(allowed) == 0 {
		return nil
	}
	for i, op := range ops {
		if !allowed[op.Path] {
			return fmt.Errorf("operation %d: %w: %q", i, ErrPathNotAllowed, op.Path)
		}
	}
	return nil
}

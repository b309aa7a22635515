package state

import (
	"encoding/json"
	"fmt"

	"github.com/tbxark/csagent/patch"
)

// Reducer defines how writes to one field are combined and applied.
type Reducer interface {
	// Merge combines two pending writes. It must be associative.
	Merge(prev, next any) (any, error)
	// Ops renders a write to the field at pointer as RFC 6902 operations.
	Ops(pointer string, value any) ([]patch.Operation, error)
	// Paths lists the pointers Ops may emit for the field at pointer.
	Paths(pointer string) []string
}

type appendReducer[E any] struct{}

// Append concatenates writes. A write is either a []E or a single E.
func Append[E any]() Reducer {
	return appendReducer[E]{}
}

func (appendReducer[E]) elements(value any) ([]E, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []E:
		return v, nil
	case E:
		return []E{v}, nil
	default:
		var zero E
		return nil, fmt.Errorf("%w: want []%T, got %T", ErrTypeMismatch, zero, value)
	}
}

func (r appendReducer[E]) Merge(prev, next any) (any, error) {
	a, err := r.elements(prev)
	if err != nil {
		return nil, err
	}
	b, err := r.elements(next)
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...), nil
}

func (r appendReducer[E]) Ops(pointer string, value any) ([]patch.Operation, error) {
	elems, err := r.elements(value)
	if err != nil {
		return nil, err
	}
	ops := make([]patch.Operation, 0, len(elems))
	for _, e := range elems {
		ops = append(ops, patch.Operation{Op: patch.OperationAdd, Path: patch.AppendPath(pointer), Value: jsonValue(e)})
	}
	return ops, nil
}

func (appendReducer[E]) Paths(pointer string) []string {
	return []string{pointer, patch.AppendPath(pointer)}
}

type overwriteReducer struct{}

// Overwrite keeps the last write.
func Overwrite() Reducer {
	return overwriteReducer{}
}

func (overwriteReducer) Merge(_, next any) (any, error) {
	return next, nil
}

func (overwriteReducer) Ops(pointer string, value any) ([]patch.Operation, error) {
	return []patch.Operation{{Op: patch.OperationReplace, Path: pointer, Value: jsonValue(value)}}, nil
}

func (overwriteReducer) Paths(pointer string) []string {
	return []string{pointer}
}

// jsonValue keeps nil writes visible to the patch encoder, which drops nil values.
func jsonValue(v any) any {
	if v == nil {
		return json.RawMessage("null")
	}
	return v
}

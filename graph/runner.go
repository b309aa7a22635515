package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/tbxark/csagent/state"
)

// Runner executes a compiled graph. It is safe for concurrent use; every
// invocation gets its own state.
type Runner[S any] struct {
	name     string
	schema   *state.Schema[S]
	runnable compose.Runnable[seed[S], S]
}

func (r *Runner[S]) Name() string {
	return r.name
}

// Invoke merges inputs with the schema, applies them to initial and runs the
// graph. It returns the final state; initial is not modified.
func (r *Runner[S]) Invoke(ctx context.Context, initial S, inputs ...state.Update) (S, error) {
	var zero S
	input, err := r.schema.Merge(inputs...)
	if err != nil {
		return zero, fmt.Errorf("merge input: %w", err)
	}
	initial, err = r.schema.Clone(initial)
	if err != nil {
		return zero, err
	}
	out, err := r.runnable.Invoke(ctx, seed[S]{initial: initial, input: input})
	if err != nil {
		return zero, fmt.Errorf("run graph %q: %w", r.name, err)
	}
	return out, nil
}

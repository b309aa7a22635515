package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/tbxark/csagent/state"
)

const (
	Start = compose.START
	End   = compose.END

	inputNode  = "__input__"
	outputNode = "__output__"
)

var (
	ErrReservedNode  = errors.New("reserved node name")
	ErrDuplicateNode = errors.New("duplicate node")
	ErrUnknownNode   = errors.New("unknown node")
	ErrNoEntry       = errors.New("graph has no edge from start")
)

// NodeFunc reads a snapshot of the shared state and returns a partial update.
type NodeFunc[S any] func(ctx context.Context, current S) (state.Update, error)

type edge struct {
	from, to string
}

// Builder assembles nodes and edges over a state schema before compiling them
// into an eino graph.
type Builder[S any] struct {
	name   string
	schema *state.Schema[S]
	nodes  map[string]NodeFunc[S]
	order  []string
	edges  []edge
}

type BuilderOption[S any] func(*Builder[S])

func WithName[S any](name string) BuilderOption[S] {
	return func(b *Builder[S]) {
		b.name = name
	}
}

func NewBuilder[S any](schema *state.Schema[S], opts ...BuilderOption[S]) *Builder[S] {
	b := &Builder[S]{
		name:   "state_graph",
		schema: schema,
		nodes:  map[string]NodeFunc[S]{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Builder[S]) AddNode(name string, fn NodeFunc[S]) error {
	switch name {
	case "", Start, End, inputNode, outputNode:
		return fmt.Errorf("%w: %q", ErrReservedNode, name)
	}
	if _, ok := b.nodes[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	if fn == nil {
		return fmt.Errorf("node %q: nil function", name)
	}
	b.nodes[name] = fn
	b.order = append(b.order, name)
	return nil
}

func (b *Builder[S]) AddEdge(from, to string) error {
	if from != Start {
		if _, ok := b.nodes[from]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNode, from)
		}
	}
	if to != End {
		if _, ok := b.nodes[to]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNode, to)
		}
	}
	b.edges = append(b.edges, edge{from: from, to: to})
	return nil
}

// localState is the eino graph local state of one invocation.
type localState[S any] struct {
	value S
}

type seed[S any] struct {
	initial S
	input   state.Update
}

// delta carries the updates produced upstream of a node.
type delta struct {
	updates []state.Update
}

var registerDeltaMerge = sync.OnceFunc(func() {
	compose.RegisterValuesMergeFunc(func(ds []delta) (delta, error) {
		var out delta
		for _, d := range ds {
			out.updates = append(out.updates, d.updates...)
		}
		return out, nil
	})
})

func (b *Builder[S]) Compile(ctx context.Context) (*Runner[S], error) {
	if b.schema == nil {
		return nil, errors.New("graph: schema is required")
	}
	hasEntry := false
	for _, e := range b.edges {
		if e.from == Start {
			hasEntry = true
			break
		}
	}
	if !hasEntry {
		return nil, ErrNoEntry
	}
	registerDeltaMerge()

	g := compose.NewGraph[seed[S], S](compose.WithGenLocalState(func(ctx context.Context) *localState[S] {
		return &localState[S]{}
	}))

	err := g.AddLambdaNode(inputNode,
		compose.InvokableLambda(func(ctx context.Context, in seed[S]) (delta, error) {
			return delta{updates: []state.Update{in.input}}, nil
		}),
		compose.WithStatePreHandler(func(ctx context.Context, in seed[S], st *localState[S]) (seed[S], error) {
			next, err := b.schema.Apply(in.initial, in.input)
			if err != nil {
				return in, fmt.Errorf("apply input: %w", err)
			}
			st.value = next
			return in, nil
		}),
	)
	if err != nil {
		return nil, err
	}

	for _, name := range b.order {
		if err := g.AddLambdaNode(name, b.lambda(name, b.nodes[name]),
			compose.WithNodeName(name),
			compose.WithStatePostHandler(b.postHandler(name)),
		); err != nil {
			return nil, err
		}
	}

	err = g.AddLambdaNode(outputNode,
		compose.InvokableLambda(func(ctx context.Context, _ delta) (S, error) {
			return b.snapshot(ctx)
		}),
	)
	if err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, inputNode); err != nil {
		return nil, err
	}
	for _, e := range b.edges {
		from, to := e.from, e.to
		if from == Start {
			from = inputNode
		}
		if to == End {
			to = outputNode
		}
		if err := g.AddEdge(from, to); err != nil {
			return nil, err
		}
	}
	if err := g.AddEdge(outputNode, compose.END); err != nil {
		return nil, err
	}

	runnable, err := g.Compile(ctx,
		compose.WithGraphName(b.name),
		compose.WithNodeTriggerMode(compose.AllPredecessor),
	)
	if err != nil {
		return nil, fmt.Errorf("compile graph %q: %w", b.name, err)
	}
	return &Runner[S]{name: b.name, schema: b.schema, runnable: runnable}, nil
}

func (b *Builder[S]) lambda(name string, fn NodeFunc[S]) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ delta) (delta, error) {
		current, err := b.snapshot(ctx)
		if err != nil {
			return delta{}, err
		}
		slog.Debug("Running node", "graph", b.name, "node", name)
		update, err := fn(ctx, current)
		if err != nil {
			return delta{}, fmt.Errorf("node %q: %w", name, err)
		}
		slog.Debug("Node returned update", "graph", b.name, "node", name, "fields", update.Fields())
		return delta{updates: []state.Update{update}}, nil
	})
}

func (b *Builder[S]) postHandler(name string) func(ctx context.Context, out delta, st *localState[S]) (delta, error) {
	return func(ctx context.Context, out delta, st *localState[S]) (delta, error) {
		for _, u := range out.updates {
			next, err := b.schema.Apply(st.value, u)
			if err != nil {
				return out, fmt.Errorf("node %q: %w", name, err)
			}
			st.value = next
		}
		return out, nil
	}
}

func (b *Builder[S]) snapshot(ctx context.Context) (S, error) {
	var current S
	err := compose.ProcessState(ctx, func(_ context.Context, st *localState[S]) error {
		var cErr error
		current, cErr = b.schema.Clone(st.value)
		return cErr
	})
	return current, err
}

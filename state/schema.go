package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/tbxark/csagent/patch"
)

// Schema is the merge registry of a state type S: every field that an Update
// may write is declared with the Reducer that combines and applies it.
type Schema[S any] struct {
	reducers map[string]Reducer
	allowed  map[string]bool
	clone    func(S) S
}

type SchemaOption[S any] func(*Schema[S])

// WithClone sets the deep copy used by Clone. The default is a JSON round trip.
func WithClone[S any](clone func(S) S) SchemaOption[S] {
	return func(s *Schema[S]) {
		s.clone = clone
	}
}

func NewSchema[S any](reducers map[string]Reducer, opts ...SchemaOption[S]) *Schema[S] {
	s := &Schema[S]{
		reducers: make(map[string]Reducer, len(reducers)),
		allowed:  map[string]bool{},
	}
	for field, r := range reducers {
		s.reducers[field] = r
		for _, p := range r.Paths(patch.FieldPointer(field)) {
			s.allowed[p] = true
		}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Schema[S]) Fields() []string {
	return slices.Sorted(maps.Keys(s.reducers))
}

func (s *Schema[S]) Reducer(field string) (Reducer, bool) {
	r, ok := s.reducers[field]
	return r, ok
}

// Merge folds updates left to right into one Update, combining writes to the
// same field with that field's reducer.
func (s *Schema[S]) Merge(updates ...Update) (Update, error) {
	out := Update{}
	for _, u := range updates {
		for _, field := range u.Fields() {
			r, ok := s.reducers[field]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
			}
			merged, err := r.Merge(out[field], u[field])
			if err != nil {
				return nil, fmt.Errorf("merge field %q: %w", field, err)
			}
			out[field] = merged
		}
	}
	return out, nil
}

// Ops renders u as RFC 6902 operations against a document of type S.
func (s *Schema[S]) Ops(u Update) ([]patch.Operation, error) {
	var ops []patch.Operation
	for _, field := range u.Fields() {
		r, ok := s.reducers[field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		fieldOps, err := r.Ops(patch.FieldPointer(field), u[field])
		if err != nil {
			return nil, fmt.Errorf("render field %q: %w", field, err)
		}
		ops = append(ops, fieldOps...)
	}
	return ops, nil
}

// Apply returns current with u applied. current is not modified.
func (s *Schema[S]) Apply(current S, u Update) (S, error) {
	var zero S
	if len(u) == 0 {
		return current, nil
	}
	ops, err := s.Ops(u)
	if err != nil {
		return zero, err
	}
	if err := patch.ValidateOperations(ops, s.allowed); err != nil {
		return zero, fmt.Errorf("validate update: %w", err)
	}
	slog.Debug("Applying state update", "fields", u.Fields(), "ops", len(ops))
	next, err := patch.ApplyRFC6902(current, ops)
	if err != nil {
		return zero, fmt.Errorf("apply update: %w", err)
	}
	return next, nil
}

func (s *Schema[S]) Clone(v S) (S, error) {
	if s.clone != nil {
		return s.clone(v), nil
	}
	var out S
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("clone state: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("clone state: %w", err)
	}
	return out, nil
}

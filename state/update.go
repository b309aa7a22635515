package state

import (
	"errors"
	"maps"
	"slices"

	"github.com/tbxark/csagent/patch"
)

var (
	ErrUnknownField = errors.New("unknown state field")
	ErrTypeMismatch = patch.ErrTypeMismatch
)

// Update is a partial state write keyed by the JSON name of each field.
type Update map[string]any

// Fields returns the written field names in sorted order.
func (u Update) Fields() []string {
	return slices.Sorted(maps.Keys(u))
}

func (u Update) Clone() Update {
	if u == nil {
		return Update{}
	}
	return maps.Clone(u)
}

package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticket struct {
	Notes  []string `json:"notes"`
	Status string   `json:"status"`
	Amount int      `json:"amount"`
}

func TestApplyRFC6902_AppendToNullArray(t *testing.T) {
	current := ticket{Status: "open"}

	got, err := ApplyRFC6902(current, []Operation{
		{Op: OperationAdd, Path: AppendPath("/notes"), Value: "first"},
		{Op: OperationAdd, Path: AppendPath("/notes"), Value: "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, got.Notes)
	assert.Equal(t, "open", got.Status)
	assert.Nil(t, current.Notes, "input must not be mutated")
}

func TestApplyRFC6902_AppendKeepsExisting(t *testing.T) {
	current := ticket{Notes: []string{"a", "b"}}

	got, err := ApplyRFC6902(current, []Operation{
		{Op: OperationAdd, Path: "/notes/-", Value: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.Notes)
	assert.Equal(t, []string{"a", "b"}, current.Notes)
}

func TestApplyRFC6902_NoOps(t *testing.T) {
	current := ticket{Status: "open"}
	got, err := ApplyRFC6902(current, nil)
	require.NoError(t, err)
	assert.Equal(t, current, got)
}

func TestApplyRFC6902_TypeMismatch(t *testing.T) {
	_, err := ApplyRFC6902(ticket{}, []Operation{
		{Op: OperationReplace, Path: "/amount", Value: "ten"},
	})
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestFixOperation(t *testing.T) {
	doc := []byte(`{"status":"open","notes":null}`)

	got := FixOperation(doc, []Operation{
		{Op: OperationReplace, Path: "/missing", Value: 1},
		{Op: OperationReplace, Path: "/status", Value: "closed"},
		{Op: OperationRemove, Path: "/gone"},
		{Op: OperationAdd, Path: "/notes/-", Value: "x"},
	})

	require.Len(t, got, 4)
	assert.Equal(t, Operation{Op: OperationAdd, Path: "/missing", Value: 1}, got[0])
	assert.Equal(t, Operation{Op: OperationReplace, Path: "/status", Value: "closed"}, got[1])
	assert.Equal(t, Operation{Op: OperationAdd, Path: "/notes", Value: []any{}}, got[2])
	assert.Equal(t, Operation{Op: OperationAdd, Path: "/notes/-", Value: "x"}, got[3])
}

func TestFieldPointer(t *testing.T) {
	assert.Equal(t, "/chat_history", FieldPointer("chat_history"))
	assert.Equal(t, "/a~1b~0c", FieldPointer("a/b~c"))
	assert.Equal(t, "a/b~c", unescapeJSONPointer("a~1b~0c"))
}

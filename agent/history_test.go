package agent

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/csagent/repository"
)

func TestKeepSystemLastNTrimmer(t *testing.T) {
	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("1"),
		nil,
		schema.AssistantMessage("2", nil),
		schema.UserMessage("3"),
	}

	got := KeepSystemLastNTrimmer{N: 2}.Trim(history)
	require.Len(t, got, 3)
	assert.Equal(t, "sys", got[0].Content)
	assert.Equal(t, "2", got[1].Content)
	assert.Equal(t, "3", got[2].Content)

	got = KeepSystemLastNTrimmer{}.Trim(history)
	require.Len(t, got, 1)
	assert.Equal(t, schema.System, got[0].Role)

	assert.Len(t, KeepSystemLastNTrimmer{N: 10}.Trim(history), len(history))
}

func TestHistoryRecorder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	r := NewHistoryRecorder(repo, 2)

	require.NoError(t, r.Record(ctx, "s", schema.UserMessage("a"), nil, schema.AssistantMessage("b", nil), schema.UserMessage("c")))

	got, err := r.Load(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, schema.Assistant, got[0].Role)
	assert.Equal(t, "b", got[0].Content)
	assert.Equal(t, "c", got[1].Content)

	empty, err := r.Load(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

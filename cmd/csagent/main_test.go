package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/csagent/agent"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestClassifyCommand(t *testing.T) {
	out := execute(t, "", "classify", "--refund", "approved", "where", "is", "my", "order")
	var st agent.ConversationState
	require.NoError(t, sonic.UnmarshalString(out, &st))
	assert.Equal(t, "refund", st.Intent)
	assert.Equal(t, "approved", st.Refund)
	require.Len(t, st.ChatHistory, 1)
	assert.Equal(t, "where is my order", st.ChatHistory[0].Content)
}

func TestClassifyCommand_KeywordConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intent:\n  recognizer: keyword\n"), 0o600))

	out := execute(t, "", "classify", "--config", path, "--refund", "", "track", "my", "order")
	var st agent.ConversationState
	require.NoError(t, sonic.UnmarshalString(out, &st))
	assert.Equal(t, "order", st.Intent)
}

func TestChatCommand(t *testing.T) {
	out := execute(t, "hello\n\nI need a refund\n", "chat", "--config", "", "--session", "s1")
	assert.Contains(t, out, "session s1")
	assert.Contains(t, out, "intent: refund (history 1)")
	assert.Contains(t, out, "intent: refund (history 2)")
}

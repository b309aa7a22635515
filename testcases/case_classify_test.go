package testcases

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
)

// TestClassifySingleTurn checks the live model on unambiguous requests.
func TestClassifySingleTurn(t *testing.T) {
	t.Parallel()
	a, _ := NewTestAgent(t)

	cases := []struct {
		input string
		want  string
	}{
		{"The blender arrived broken, I want my money back.", "refund"},
		{"我的订单到哪里了？单号 20240518", "order"},
		{"I can't log in, I forgot my password.", "account"},
	}
	for _, tc := range cases {
		ctx := WithFreshSession(context.Background(), t)
		st, err := a.Send(ctx, schema.UserMessage(tc.input))
		if err != nil {
			t.Fatalf("turn failed: %v", err)
		}
		if st.Intent != tc.want {
			t.Errorf("input %q: expected intent %q, got %q", tc.input, tc.want, st.Intent)
		}
		t.Logf("input %q -> %s", tc.input, st.Intent)
	}
}

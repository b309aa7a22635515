package intent

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type Intent string

const (
	Refund  Intent = "refund"
	Order   Intent = "order"
	Product Intent = "product"
	Account Intent = "account"
	Human   Intent = "human"
	Unknown Intent = "unknown"
)

// All lists every label a recognizer may return.
var All = []Intent{Refund, Order, Product, Account, Human, Unknown}

func (i Intent) Valid() bool {
	for _, v := range All {
		if v == i {
			return true
		}
	}
	return false
}

// Request is what a recognizer sees of the conversation.
type Request struct {
	History        []*schema.Message
	Refund         string
	PreviousIntent Intent
}

// LatestUserMessage returns the content of the last user message, or "".
func (r *Request) LatestUserMessage() string {
	if r == nil {
		return ""
	}
	for i := len(r.History) - 1; i >= 0; i-- {
		m := r.History[i]
		if m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}

type Recognizer interface {
	RecognizeIntent(ctx context.Context, req *Request) (Intent, error)
}

package agent

import (
	"github.com/cloudwego/eino/schema"
)

const (
	FieldChatHistory = "chat_history"
	FieldRefund      = "refund"
	FieldIntent      = "intent"
)

// ConversationState is the shared state of one customer-service session.
// ChatHistory only grows: updates append to it and never replace it.
type ConversationState struct {
	ChatHistory []*schema.Message `json:"chat_history"`
	Refund      string            `json:"refund"`
	Intent      string            `json:"intent"`
}

type Request struct {
	State    *ConversationState `json:"state"`
	Messages []*schema.Message  `json:"messages"`
}

type Response struct {
	State    *ConversationState `json:"state,omitempty"`
	Metadata map[string]string  `json:"metadata,omitempty"`
}

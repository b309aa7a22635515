package agent

import (
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/csagent/state"
)

// ConversationSchema is the merge registry of ConversationState.
var ConversationSchema = state.NewSchema[ConversationState](map[string]state.Reducer{
	FieldChatHistory: state.Append[*schema.Message](),
	FieldRefund:      state.Overwrite(),
	FieldIntent:      state.Overwrite(),
}, state.WithClone[ConversationState](cloneConversation))

func NewConversationState() ConversationState {
	return ConversationState{ChatHistory: []*schema.Message{}}
}

func cloneConversation(s ConversationState) ConversationState {
	out := s
	out.ChatHistory = cloneMessages(s.ChatHistory)
	return out
}

func cloneMessages(msgs []*schema.Message) []*schema.Message {
	if msgs == nil {
		return nil
	}
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			out = append(out, nil)
			continue
		}
		c := *m
		out = append(out, &c)
	}
	return out
}

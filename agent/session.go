package agent

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// StateReadWriter provides read/write access to the conversation state of the
// session selected by the context.
type StateReadWriter interface {
	// Read returns the stored state, or a fresh one with found set to false.
	Read(ctx context.Context) (state *ConversationState, found bool, err error)
	Write(ctx context.Context, state *ConversationState) error
	Remove(ctx context.Context) error
}

type sessionKeyContext struct{}

const defaultSessionKey = "default"

// WithSessionKey sets the session routing key in the context.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyContext{}, key)
}

// SessionKeyFromContext gets the session routing key from the context.
func SessionKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(sessionKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok && key != ""
}

func sessionKeyOrDefault(ctx context.Context) (string, bool) {
	if key, ok := SessionKeyFromContext(ctx); ok {
		return key, true
	}
	return defaultSessionKey, true
}

// StoreStateReadWriter keeps states in a Cache under "agent:state:<session>".
// Every write refreshes the entry's SessionTTL.
type StoreStateReadWriter struct {
	store Store[ConversationState]
}

func NewStoreStateReadWriter(core Cache[ConversationState]) *StoreStateReadWriter {
	return &StoreStateReadWriter{
		store: NewStore(core, "agent:state", sessionKeyOrDefault, WithTTL[ConversationState](SessionTTL)),
	}
}

func NewMemoryStateReadWriter() *StoreStateReadWriter {
	return NewStoreStateReadWriter(NewMemoryCache[ConversationState]())
}

func (s *StoreStateReadWriter) Read(ctx context.Context) (*ConversationState, bool, error) {
	st, ok, err := s.store.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		fresh := NewConversationState()
		return &fresh, false, nil
	}
	st = cloneConversation(st)
	if st.ChatHistory == nil {
		st.ChatHistory = []*schema.Message{}
	}
	return &st, true, nil
}

func (s *StoreStateReadWriter) Write(ctx context.Context, state *ConversationState) error {
	if state == nil {
		return s.store.Del(ctx)
	}
	return s.store.Set(ctx, cloneConversation(*state))
}

func (s *StoreStateReadWriter) Remove(ctx context.Context) error {
	return s.store.Del(ctx)
}

var _ StateReadWriter = (*StoreStateReadWriter)(nil)

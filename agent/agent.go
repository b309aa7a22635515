package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

var _ adk.Agent = (*Agent)(nil)

// Agent runs a Flow per call against the state of the session in the context.
// The resulting ConversationState is emitted as the event's CustomizedOutput.
type Agent struct {
	name        string
	description string
	flow        *Flow
	states      StateReadWriter
	recorder    *HistoryRecorder
	locker      Locker
}

type AgentOption func(*Agent)

func WithStateReadWriter(rw StateReadWriter) AgentOption {
	return func(a *Agent) {
		a.states = rw
	}
}

func WithHistoryRecorder(r *HistoryRecorder) AgentOption {
	return func(a *Agent) {
		a.recorder = r
	}
}

// WithLocker replaces the in-process session lock, e.g. with a RedisLocker
// when several processes share the state store.
func WithLocker(l Locker) AgentOption {
	return func(a *Agent) {
		a.locker = l
	}
}

func NewAgent(name, description string, flow *Flow, opts ...AgentOption) *Agent {
	a := &Agent{
		name:        name,
		description: description,
		flow:        flow,
	}
	for _, o := range opts {
		o(a)
	}
	if a.states == nil {
		a.states = NewMemoryStateReadWriter()
	}
	if a.locker == nil {
		a.locker = NewMemoryLocker()
	}
	return a
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if input == nil || len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("no messages in input"),
			})
			return
		}
		st, err := a.turn(ctx, input.Messages[len(input.Messages)-1])
		if err != nil {
			gen.Send(&adk.AgentEvent{Err: err})
			return
		}
		gen.Send(&adk.AgentEvent{
			Output: &adk.AgentOutput{
				CustomizedOutput: st,
			},
		})
	}()
	return iter
}

// Send runs one turn with msg and drains the event stream.
func (a *Agent) Send(ctx context.Context, msg *schema.Message) (*ConversationState, error) {
	iter := a.Run(ctx, &adk.AgentInput{Messages: []adk.Message{msg}})
	return StateFromEvents(iter)
}

// Reset replaces the state of the session in the context with a fresh one.
// The transcript is kept, but it is not restored into the session again.
func (a *Agent) Reset(ctx context.Context) error {
	sessionID, _ := sessionKeyOrDefault(ctx)
	unlock, err := a.locker.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()
	fresh := NewConversationState()
	return a.states.Write(ctx, &fresh)
}

// State returns the stored state of the session in the context.
func (a *Agent) State(ctx context.Context) (*ConversationState, error) {
	st, _, err := a.states.Read(ctx)
	return st, err
}

func (a *Agent) turn(ctx context.Context, msg *schema.Message) (*ConversationState, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	sessionID, _ := sessionKeyOrDefault(ctx)
	unlock, err := a.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	st, found, err := a.states.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	// restore only when the state is gone, not after a reset
	if !found && a.recorder != nil {
		history, err := a.recorder.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if len(history) > 0 {
			slog.Debug("Restored history", "session", sessionID, "messages", len(history))
			st.ChatHistory = history
		}
	}

	resp, err := a.flow.Invoke(ctx, &Request{
		State:    st,
		Messages: []*schema.Message{msg},
	})
	if err != nil {
		return nil, fmt.Errorf("flow invoke failed: %w", err)
	}
	if reason, ok := resp.Metadata["error"]; ok {
		return nil, fmt.Errorf("flow invoke failed: %s", reason)
	}

	if err := a.states.Write(ctx, resp.State); err != nil {
		return nil, fmt.Errorf("write state: %w", err)
	}
	if a.recorder != nil {
		if err := a.recorder.Record(ctx, sessionID, msg); err != nil {
			return nil, err
		}
	}
	return resp.State, nil
}

// StateFromEvents drains iter and returns the last state it carried.
func StateFromEvents(iter *adk.AsyncIterator[*adk.AgentEvent]) (*ConversationState, error) {
	var out *ConversationState
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if event.Err != nil {
			return nil, event.Err
		}
		if event.Output == nil {
			continue
		}
		if st, ok := event.Output.CustomizedOutput.(*ConversationState); ok {
			out = st
		}
	}
	if out == nil {
		return nil, errors.New("no state in agent output")
	}
	return out, nil
}

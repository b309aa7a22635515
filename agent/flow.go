package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/csagent/graph"
	"github.com/tbxark/csagent/intent"
	"github.com/tbxark/csagent/state"
)

// Flow runs one conversation turn: the incoming messages are appended to the
// history and the graph start -> classify_intent -> end is executed.
type Flow struct {
	runner *graph.Runner[ConversationState]
}

type flowOptions struct {
	recognizer intent.Recognizer
	trimmer    Trimmer
}

type FlowOption func(*flowOptions)

// WithRecognizer replaces the constant refund recognizer.
func WithRecognizer(r intent.Recognizer) FlowOption {
	return func(o *flowOptions) {
		o.recognizer = r
	}
}

func WithTrimmer(t Trimmer) FlowOption {
	return func(o *flowOptions) {
		o.trimmer = t
	}
}

func NewFlow(ctx context.Context, opts ...FlowOption) (*Flow, error) {
	o := &flowOptions{}
	for _, opt := range opts {
		opt(o)
	}

	recognizer := o.recognizer
	if recognizer == nil {
		recognizer = intent.NewConstantRecognizer(intent.Refund)
	}
	node := ClassifyIntentNode(recognizer, o.trimmer)

	b := graph.NewBuilder(ConversationSchema, graph.WithName[ConversationState]("customer_service"))
	if err := b.AddNode(ClassifyIntentNodeName, node); err != nil {
		return nil, err
	}
	if err := b.AddEdge(graph.Start, ClassifyIntentNodeName); err != nil {
		return nil, err
	}
	if err := b.AddEdge(ClassifyIntentNodeName, graph.End); err != nil {
		return nil, err
	}
	runner, err := b.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile flow: %w", err)
	}
	return &Flow{runner: runner}, nil
}

func (f *Flow) Invoke(ctx context.Context, input *Request) (*Response, error) {
	if input == nil {
		return nil, errors.New("nil request")
	}
	if input.State == nil {
		s := NewConversationState()
		input.State = &s
	}

	var updates []state.Update
	if msgs := compactMessages(input.Messages); len(msgs) > 0 {
		updates = append(updates, state.Update{FieldChatHistory: msgs})
	}

	slog.Debug("Running turn", "history", len(input.State.ChatHistory), "messages", len(input.Messages))
	next, err := f.runner.Invoke(ctx, *input.State, updates...)
	if err != nil {
		return f.handleError(fmt.Errorf("failed to run turn: %w", err), input)
	}
	slog.Debug("Turn finished", "intent", next.Intent, "history", len(next.ChatHistory))

	return &Response{State: &next}, nil
}

func (f *Flow) handleError(err error, input *Request) (*Response, error) {
	slog.Warn("Turn failed", "error", err)
	return &Response{
		State: input.State,
		Metadata: map[string]string{
			"error": err.Error(),
		},
	}, nil
}

func compactMessages(msgs []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

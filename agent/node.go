package agent

import (
	"context"
	"fmt"

	"github.com/tbxark/csagent/graph"
	"github.com/tbxark/csagent/intent"
	"github.com/tbxark/csagent/state"
)

const ClassifyIntentNodeName = "classify_intent"

var classifyRefund = ClassifyIntentNode(intent.NewConstantRecognizer(intent.Refund), nil)

// ClassifyIntent labels every turn as a refund request. It ignores the state
// and only writes the intent field.
func ClassifyIntent(ctx context.Context, current ConversationState) (state.Update, error) {
	return classifyRefund(ctx, current)
}

// ClassifyIntentNode builds a classify_intent node around r. The trimmer, if
// set, bounds the history r sees.
func ClassifyIntentNode(r intent.Recognizer, trimmer Trimmer) graph.NodeFunc[ConversationState] {
	return func(ctx context.Context, current ConversationState) (state.Update, error) {
		history := current.ChatHistory
		if trimmer != nil {
			history = trimmer.Trim(history)
		}
		label, err := r.RecognizeIntent(ctx, &intent.Request{
			History:        history,
			Refund:         current.Refund,
			PreviousIntent: intent.Intent(current.Intent),
		})
		if err != nil {
			return nil, fmt.Errorf("recognize intent: %w", err)
		}
		return state.Update{FieldIntent: string(label)}, nil
	}
}

package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/csagent/structured"
)

const (
	classifyIntentToolName        = "classify_intent"
	classifyIntentToolDescription = "Classify the customer's intent for the current turn: refund, order, product, account, human, unknown."
)

// DefaultClassifySystemPromptTemplate is the default system prompt used by
// ToolBasedRecognizer. It may contain a single "%s" placeholder for the tool name.
const DefaultClassifySystemPromptTemplate = `
You are the intent classifier of a customer-service assistant for an online shop.

Read the conversation and decide what the customer wants in their latest message. Use the earlier turns only to resolve references like "it" or "that order".

Choose exactly one intent:
- refund: the customer asks for money back, a return, or the status of a refund.
- order: questions about an existing order, shipping, delivery or tracking.
- product: questions about products, prices, availability or specifications.
- account: login, password, profile or account settings.
- human: the customer explicitly asks to talk to a human agent.
- unknown: greetings, chatter, or anything that fits none of the above.

Call the '%s' tool with the result.
`

type PromptBuilder func(systemPrompt string) structured.PromptBuilder[*Request]

type recognizerOptions struct {
	systemPromptTemplate string
	promptBuilder        PromptBuilder
}

type RecognizerOption func(*recognizerOptions)

func WithSystemPromptTemplate(systemPromptTemplate string) RecognizerOption {
	return func(o *recognizerOptions) {
		o.systemPromptTemplate = systemPromptTemplate
	}
}

func WithPromptBuilder(promptBuilder PromptBuilder) RecognizerOption {
	return func(o *recognizerOptions) {
		o.promptBuilder = promptBuilder
	}
}

func defaultPromptBuilder(systemPrompt string) structured.PromptBuilder[*Request] {
	return func(ctx context.Context, req *Request) ([]*schema.Message, error) {
		if req == nil {
			return nil, fmt.Errorf("nil intent request")
		}
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(FormatRequest(req)),
		}, nil
	}
}

func newRecognizerOptions(opts ...RecognizerOption) *recognizerOptions {
	opt := recognizerOptions{
		systemPromptTemplate: DefaultClassifySystemPromptTemplate,
		promptBuilder:        defaultPromptBuilder,
	}
	for _, o := range opts {
		if o != nil {
			o(&opt)
		}
	}
	return &opt
}

type classifyIntentInput struct {
	Intent Intent `json:"intent" jsonschema:"required,enum=refund,enum=order,enum=product,enum=account,enum=human,enum=unknown,description=The customer's intent for the latest message"`
}

// ToolBasedRecognizer asks a tool-calling chat model to classify the intent.
type ToolBasedRecognizer struct {
	chain *structured.Chain[*Request, classifyIntentInput]
}

func NewToolBasedRecognizer(chatModel model.ToolCallingChatModel, opts ...RecognizerOption) (*ToolBasedRecognizer, error) {
	options := newRecognizerOptions(opts...)
	systemPrompt := options.systemPromptTemplate
	if strings.Contains(systemPrompt, "%s") {
		systemPrompt = fmt.Sprintf(systemPrompt, classifyIntentToolName)
	}
	chain, err := structured.NewChain[*Request, classifyIntentInput](
		chatModel,
		options.promptBuilder(systemPrompt),
		classifyIntentToolName,
		classifyIntentToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedRecognizer{chain: chain}, nil
}

func (p *ToolBasedRecognizer) RecognizeIntent(ctx context.Context, req *Request) (Intent, error) {
	result, err := p.chain.Invoke(ctx, req)
	if err != nil {
		return Unknown, err
	}
	if result == nil || result.Intent == "" {
		return Unknown, fmt.Errorf("empty intent returned by %s", classifyIntentToolName)
	}
	label := Intent(strings.ToLower(strings.TrimSpace(string(result.Intent))))
	if !label.Valid() {
		return Unknown, fmt.Errorf("unsupported intent %q returned by %s", result.Intent, classifyIntentToolName)
	}
	return label, nil
}

var _ Recognizer = (*ToolBasedRecognizer)(nil)

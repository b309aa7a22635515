package testcases

import (
	"context"
	"os"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/tbxark/csagent/agent"
	"github.com/tbxark/csagent/config"
	"github.com/tbxark/csagent/intent"
	"github.com/tbxark/csagent/repository"
)

func InitChatModel(t *testing.T) *openai.ChatModel {
	if os.Getenv("CSAGENT_RUN_LIVE_TESTS") != "1" {
		t.Skip("set CSAGENT_RUN_LIVE_TESTS=1 to run live LLM tests")
		return nil
	}

	ctx := context.Background()
	conf, err := config.Load("../config.yaml")
	if err != nil {
		t.Skipf("failed to load config: %v", err)
		return nil
	}
	if conf.LLM.APIKey == "" {
		t.Skip("config.yaml llm.api_key is empty")
		return nil
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  conf.LLM.APIKey,
		Model:   conf.LLM.Model,
		BaseURL: conf.LLM.BaseURL,
	})
	if err != nil {
		t.Fatalf("failed to init chat model: %v", err)
		return nil
	}
	return chatModel
}

// NewTestAgent builds an agent whose intent comes from the live model.
func NewTestAgent(t *testing.T) (*agent.Agent, *repository.MemoryRepository) {
	chatModel := InitChatModel(t)
	if chatModel == nil {
		return nil, nil
	}
	recognizer, err := intent.NewToolBasedRecognizer(chatModel)
	if err != nil {
		t.Fatalf("failed to create recognizer: %v", err)
	}
	flow, err := agent.NewFlow(context.Background(),
		agent.WithRecognizer(recognizer),
		agent.WithTrimmer(agent.KeepSystemLastNTrimmer{N: 10}),
	)
	if err != nil {
		t.Fatalf("failed to create flow: %v", err)
	}
	repo := repository.NewMemoryRepository()
	return agent.NewAgent("CustomerService", "live test agent", flow,
		agent.WithHistoryRecorder(agent.NewHistoryRecorder(repo, 20)),
	), repo
}

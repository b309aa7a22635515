package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tbxark/csagent/agent"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session on stdin",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id (default: random)")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, closer, err := newAgent(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closer()

	if chatSession == "" {
		chatSession = uuid.NewString()
	}
	ctx = agent.WithSessionKey(ctx, chatSession)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: a})

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())
	fmt.Fprintf(out, "session %s, empty line or EOF to quit\n", chatSession)
	for {
		fmt.Fprint(out, "user: ")
		input, rErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if rErr == nil {
				continue
			}
			return nil
		}
		st, sErr := agent.StateFromEvents(runner.Run(ctx, []adk.Message{schema.UserMessage(input)}))
		if sErr != nil {
			return sErr
		}
		fmt.Fprintf(out, "intent: %s (history %d)\n", st.Intent, len(st.ChatHistory))
		if rErr != nil {
			return nil
		}
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"
	"github.com/tbxark/csagent/agent"
)

var classifyRefund string

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Run one turn on a fresh state and print the resulting state",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyRefund, "refund", "", "refund information of the state")
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flow, err := newFlow(ctx, appConfig)
	if err != nil {
		return err
	}
	st := agent.NewConversationState()
	st.Refund = classifyRefund
	resp, err := flow.Invoke(ctx, &agent.Request{
		State:    &st,
		Messages: []*schema.Message{schema.UserMessage(strings.Join(args, " "))},
	})
	if err != nil {
		return err
	}
	if reason, ok := resp.Metadata["error"]; ok {
		return fmt.Errorf("classify: %s", reason)
	}
	body, err := sonic.ConfigStd.MarshalIndent(resp.State, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}

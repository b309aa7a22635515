package intent

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

func formatHistorySection(history []*schema.Message) string {
	if len(history) == 0 {
		return "# Conversation:\n(empty)"
	}
	var buf strings.Builder
	buf.WriteString("# Conversation:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("#", "Role", "Content")
	for i, m := range history {
		if m == nil {
			continue
		}
		_ = table.Append(fmt.Sprint(i+1), string(m.Role), flatten(m.Content))
	}
	_ = table.Render()
	return buf.String()
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FormatRequest renders req as the user prompt of an LLM recognizer.
func FormatRequest(req *Request) string {
	sections := []string{formatHistorySection(req.History)}
	if req.Refund != "" {
		sections = append(sections, fmt.Sprintf("# Refund info:\n%s", req.Refund))
	}
	if req.PreviousIntent != "" {
		sections = append(sections, fmt.Sprintf("# Previous intent:\n%s", req.PreviousIntent))
	}
	if latest := req.LatestUserMessage(); latest != "" {
		sections = append(sections, fmt.Sprintf("# Latest user message:\n%s", latest))
	}
	return strings.Join(sections, "\n\n")
}

package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/csagent/repository"
)

// Trimmer bounds the history handed to a recognizer.
type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepSystemLastNTrimmer keeps every system message plus the last N others,
// in their original order. N <= 0 keeps system messages only.
type KeepSystemLastNTrimmer struct {
	N int
}

func (t KeepSystemLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	others := 0
	for _, m := range history {
		if m != nil && m.Role != schema.System {
			others++
		}
	}
	if t.N > 0 && others <= t.N {
		return history
	}

	skip := others - max(t.N, 0)
	out := make([]*schema.Message, 0, len(history)-skip)
	for _, m := range history {
		if m == nil {
			continue
		}
		if m.Role != schema.System && skip > 0 {
			skip--
			continue
		}
		out = append(out, m)
	}
	return out
}

// HistoryRecorder mirrors turns into a ChatRepository and rebuilds the chat
// history of a session whose state is gone.
type HistoryRecorder struct {
	repo  repository.ChatRepository
	limit int
}

const defaultRecordLimit = 50

func NewHistoryRecorder(repo repository.ChatRepository, limit int) *HistoryRecorder {
	if limit <= 0 {
		limit = defaultRecordLimit
	}
	return &HistoryRecorder{repo: repo, limit: limit}
}

func (r *HistoryRecorder) Record(ctx context.Context, sessionID string, msgs ...*schema.Message) error {
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if err := r.repo.Save(ctx, repository.NewChatMessage(sessionID, string(m.Role), m.Content)); err != nil {
			return fmt.Errorf("record message: %w", err)
		}
	}
	return nil
}

func (r *HistoryRecorder) Load(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	rows, err := r.repo.GetHistory(ctx, sessionID, r.limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]*schema.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, &schema.Message{
			Role:    schema.RoleType(row.Role),
			Content: row.Content,
		})
	}
	return out, nil
}

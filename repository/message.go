package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one persisted line of a session transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRepository stores session transcripts.
type ChatRepository interface {
	// Save persists one message. A zero ID or CreatedAt is filled in.
	Save(ctx context.Context, msg *ChatMessage) error
	// GetHistory returns the latest limit messages of a session, oldest first.
	GetHistory(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error)
}

// NewChatMessage builds a message with a fresh ID and the current UTC time.
func NewChatMessage(sessionID, role, content string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func prepare(msg *ChatMessage) error {
	if msg == nil {
		return errors.New("repository: message must not be nil")
	}
	if msg.SessionID == "" {
		return errors.New("repository: session id is required")
	}
	if msg.Role == "" {
		return errors.New("repository: role is required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return nil
}

func reverse(msgs []*ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

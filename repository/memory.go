package repository

import (
	"context"
	"sync"
)

// MemoryRepository keeps transcripts in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string][]*ChatMessage
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: map[string][]*ChatMessage{}}
}

func (m *MemoryRepository) Save(ctx context.Context, msg *ChatMessage) error {
	if err := prepare(msg); err != nil {
		return err
	}
	cp := *msg
	m.mu.Lock()
	m.sessions[msg.SessionID] = append(m.sessions[msg.SessionID], &cp)
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) GetHistory(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.sessions[sessionID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*ChatMessage, 0, len(all))
	for _, msg := range all {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

var _ ChatRepository = (*MemoryRepository)(nil)

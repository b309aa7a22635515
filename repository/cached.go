package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

func sessionCacheKey(sessionID string) string {
	return "chat:session:" + sessionID
}

func cacheTTL() time.Duration {
	return time.Hour + time.Duration(rand.IntN(180))*time.Second
}

// CachedRepository puts a Redis list "chat:session:<id>" in front of another
// ChatRepository. Reads that miss load from the backing repository and fill
// the list; saves append only to lists that already exist, so a list never
// holds a partial tail of the transcript.
type CachedRepository struct {
	repo ChatRepository
	rdb  redis.UniversalClient
}

func NewCachedRepository(repo ChatRepository, rdb redis.UniversalClient) (*CachedRepository, error) {
	if repo == nil {
		return nil, errors.New("repository: backing repository must not be nil")
	}
	if rdb == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	return &CachedRepository{repo: repo, rdb: rdb}, nil
}

func (r *CachedRepository) Save(ctx context.Context, msg *ChatMessage) error {
	if err := r.repo.Save(ctx, msg); err != nil {
		return err
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("repository: marshal cached message: %w", err)
	}
	key := sessionCacheKey(msg.SessionID)
	pipe := r.rdb.Pipeline()
	pipe.RPushX(ctx, key, data)
	pipe.Expire(ctx, key, cacheTTL())
	if _, err := pipe.Exec(ctx); err != nil {
		// a stale list would hide this message, drop it
		slog.Warn("Chat cache append failed", "session", msg.SessionID, "error", err)
		_ = r.rdb.Del(ctx, key).Err()
	}
	return nil
}

func (r *CachedRepository) GetHistory(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	if cached, ok := r.getRecent(ctx, sessionID, limit); ok {
		return cached, nil
	}
	msgs, err := r.repo.GetHistory(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	// the list is only complete when the backing store held fewer than limit
	// messages; otherwise a later, larger limit would be served short
	if len(msgs) < limit {
		r.setSession(ctx, sessionID, msgs)
	}
	return msgs, nil
}

func (r *CachedRepository) getRecent(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, bool) {
	key := sessionCacheKey(sessionID)
	vals, err := r.rdb.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Chat cache read failed", "session", sessionID, "error", err)
		}
		return nil, false
	}
	if len(vals) == 0 {
		return nil, false
	}
	out := make([]*ChatMessage, 0, len(vals))
	for _, v := range vals {
		var m ChatMessage
		if err := sonic.UnmarshalString(v, &m); err != nil {
			slog.Warn("Chat cache entry is corrupt", "key", key, "error", err)
			return nil, false
		}
		out = append(out, &m)
	}
	return out, true
}

func (r *CachedRepository) setSession(ctx context.Context, sessionID string, msgs []*ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	key := sessionCacheKey(sessionID)
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := sonic.Marshal(m)
		if err != nil {
			slog.Warn("Chat cache marshal failed", "session", sessionID, "error", err)
			return
		}
		values = append(values, data)
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, cacheTTL())
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Chat cache fill failed", "session", sessionID, "error", err)
	}
}

var _ ChatRepository = (*CachedRepository)(nil)

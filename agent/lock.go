package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var ErrSessionBusy = errors.New("session is busy")

// Locker serializes turns of one session.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func
	// releases the lock and may be called more than once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker is a keyed mutex for a single process. Slots are dropped once
// nobody holds or waits for them.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: map[string]*lockSlot{}}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(key, slot)
		})
	}, nil
}

func (l *MemoryLocker) release(key string, slot *lockSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

const (
	defaultLockTTL   = 30 * time.Second
	lockRetryBackoff = 100 * time.Millisecond
)

// RedisLocker holds "agent:lock:<session>" in Redis so that turns are
// serialized across processes. Waiting retries every 100ms for up to the
// lock ttl.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	retries := max(int(l.ttl/lockRetryBackoff), 1)
	lock, err := l.client.Obtain(ctx, "agent:lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryBackoff), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain session lock: %w", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rErr := lock.Release(context.WithoutCancel(ctx))
			if rErr != nil && !errors.Is(rErr, redislock.ErrLockNotHeld) {
				slog.Warn("Release session lock failed", "session", key, "error", rErr)
			}
		})
	}, nil
}

var (
	_ Locker = (*MemoryLocker)(nil)
	_ Locker = (*RedisLocker)(nil)
)

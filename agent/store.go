package agent

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

var ErrNoSessionKey = errors.New("session key not found")

// SessionTTL is an hour plus up to three minutes of jitter, so that sessions
// created together do not expire together.
func SessionTTL() time.Duration {
	return time.Hour + time.Duration(rand.IntN(180))*time.Second
}

// Store resolves the key of every call from the context, prefixes it with a
// namespace and refreshes the expiry on every write.
type Store[S any] struct {
	core      Cache[S]
	namespace string
	keyFn     func(ctx context.Context) (string, bool)
	ttl       func() time.Duration
}

type StoreOption[S any] func(*Store[S])

// WithTTL sets the expiry used by Set. Without it entries never expire.
func WithTTL[S any](ttl func() time.Duration) StoreOption[S] {
	return func(s *Store[S]) {
		s.ttl = ttl
	}
}

func NewStore[S any](core Cache[S], namespace string, keyFn func(ctx context.Context) (string, bool), opts ...StoreOption[S]) Store[S] {
	s := Store[S]{
		core:      core,
		namespace: namespace,
		keyFn:     keyFn,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

func (c Store[S]) key(ctx context.Context) (string, error) {
	key, exist := c.keyFn(ctx)
	if !exist {
		return "", ErrNoSessionKey
	}
	return c.namespace + ":" + key, nil
}

func (c Store[S]) Set(ctx context.Context, val S) error {
	key, err := c.key(ctx)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if c.ttl != nil {
		ttl = c.ttl()
	}
	return c.core.Set(ctx, key, val, ttl)
}

func (c Store[S]) Get(ctx context.Context) (S, bool, error) {
	key, err := c.key(ctx)
	if err != nil {
		var zero S
		return zero, false, err
	}
	return c.core.Get(ctx, key)
}

func (c Store[S]) Del(ctx context.Context) error {
	key, err := c.key(ctx)
	if err != nil {
		return err
	}
	return c.core.Del(ctx, key)
}

func (c Store[S]) Exists(ctx context.Context) (bool, error) {
	key, err := c.key(ctx)
	if err != nil {
		return false, err
	}
	return c.core.Exists(ctx, key)
}

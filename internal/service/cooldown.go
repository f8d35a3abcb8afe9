package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Clock is injected so cooldown behavior is testable without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// ResendCooldownStore remembers the last OTP send per user. The in-memory
// implementation is process-local and loses state on restart, which is
// acceptable for a resend throttle; the Redis implementation shares state
// across instances.
type ResendCooldownStore interface {
	LastSend(ctx context.Context, userID string) (time.Time, bool, error)
	MarkSend(ctx context.Context, userID string, at time.Time) error
}

type InMemoryCooldownStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewInMemoryCooldownStore() *InMemoryCooldownStore {
	return &InMemoryCooldownStore{last: make(map[string]time.Time)}
}

func (s *InMemoryCooldownStore) LastSend(_ context.Context, userID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.last[userID]
	return t, ok, nil
}

func (s *InMemoryCooldownStore) MarkSend(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[userID] = at
	return nil
}

type RedisCooldownStore struct {
	client redis.UniversalClient
	prefix string
	window time.Duration
}

// NewRedisCooldownStore keeps entries for twice the cooldown window; by then
// a record can no longer influence a throttle decision.
func NewRedisCooldownStore(client redis.UniversalClient, prefix string, window time.Duration) *RedisCooldownStore {
	if prefix == "" {
		prefix = "otp_cooldown"
	}
	return &RedisCooldownStore{client: client, prefix: prefix, window: window}
}

func (s *RedisCooldownStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *RedisCooldownStore) LastSend(ctx context.Context, userID string) (time.Time, bool, error) {
	ms, err := s.client.Get(ctx, s.key(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func (s *RedisCooldownStore) MarkSend(ctx context.Context, userID string, at time.Time) error {
	return s.client.Set(ctx, s.key(userID), at.UnixMilli(), 2*s.window).Err()
}

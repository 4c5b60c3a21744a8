package sso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// DefaultStateTTL bounds how long a login attempt may sit between the
// redirect and the callback.
const DefaultStateTTL = 10 * time.Minute

const stateKeyPrefix = "sso:state:"

// StateStore tracks in-flight login state tokens in redis. Each token is
// single use: Consume removes it atomically, so a replayed callback fails
// even when two requests race.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore creates a state store. A non-positive ttl uses
// DefaultStateTTL.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{client: client, ttl: ttl}
}

// Issue mints a random state token and stores it with the configured TTL.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.client.Set(ctx, stateKeyPrefix+state, "login", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store login state: %w", err)
	}
	return state, nil
}

// Consume validates and removes a state token. It returns false for tokens
// that were never issued, already consumed, or expired.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	_, err := s.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume login state: %w", err)
	}
	return true, nil
}

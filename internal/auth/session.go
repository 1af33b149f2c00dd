package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"

	sessionPrefix = "session:"
)

// Sessions maps opaque session ids to user ids.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionStore keeps sessions in Redis as plain keys that expire after ttl.
// Session ids are random UUIDs; anything else is treated as unknown without
// a round trip.
type SessionStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewSessionStore uses SessionTTL when ttl is not positive.
func NewSessionStore(rdb redis.UniversalClient, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	sid := id.String()
	if err := s.rdb.Set(ctx, sessionPrefix+sid, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}
	return sid, nil
}

// Get returns "" for unknown, expired or malformed sessions.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	key, ok := sessionKey(sessionID)
	if !ok {
		return "", nil
	}
	userID, err := s.rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("session get: %w", err)
	}
	return userID, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	key, ok := sessionKey(sessionID)
	if !ok {
		return nil
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) (string, bool) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return "", false
	}
	return sessionPrefix + id.String(), true
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
)

const gateSessionPrefix = "beatwave:gate:session:"

// gateSessionStore keeps gate sessions as JSON strings with a TTL
type gateSessionStore struct {
	client *redis.Client
}

// NewGateSessionStore creates a new gate session store
func NewGateSessionStore(client *redis.Client) *gateSessionStore {
	return &gateSessionStore{client: client}
}

// Put stores session, replacing any previous version and restarting its TTL
func (s *gateSessionStore) Put(ctx context.Context, session *models.GateSession, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal gate session: %w", err)
	}

	if err := s.client.Set(ctx, gateSessionPrefix+session.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store gate session: %w", err)
	}
	return nil
}

// Get loads a session. Missing or expired sessions are reported as not found.
func (s *gateSessionStore) Get(ctx context.Context, id string) (*models.GateSession, error) {
	raw, err := s.client.Get(ctx, gateSessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: gate session expired or does not exist", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gate session: %w", err)
	}

	var session models.GateSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gate session: %w", err)
	}
	return &session, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *gateSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, gateSessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete gate session: %w", err)
	}
	return nil
}

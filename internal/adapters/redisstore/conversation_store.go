// Package redisstore keeps chatbot conversation context in Redis with a
// sliding TTL, so idle conversations expire instead of accumulating.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/claimdesk/internal/ports/secondary"
)

// RedisClient is the subset of go-redis client methods used by ConversationStore.
// Keeping it as an interface enables mocking in tests.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Config holds the store settings.
type Config struct {
	Prefix string        // Key prefix, default "claimdesk:conversation"
	TTL    time.Duration // Idle lifetime, default 30m
}

// ConversationStore implements secondary.ConversationStore on Redis.
type ConversationStore struct {
	client RedisClient
	cfg    Config
	now    func() time.Time
}

// NewConversationStore creates a store on an existing client.
func NewConversationStore(client RedisClient, cfg Config) *ConversationStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "claimdesk:conversation"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &ConversationStore{client: client, cfg: cfg, now: time.Now}
}

var _ secondary.ConversationStore = (*ConversationStore)(nil)

func (s *ConversationStore) key(userID string) string {
	return s.cfg.Prefix + ":" + userID
}

// Get returns the conversation for a user, or ErrNotFound once it has expired.
func (s *ConversationStore) Get(ctx context.Context, userID string) (*secondary.Conversation, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("conversation %s: %w", userID, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var conv secondary.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", userID, err)
	}
	return &conv, nil
}

// Save stores the conversation and resets its expiry.
func (s *ConversationStore) Save(ctx context.Context, conv *secondary.Conversation) error {
	if conv.UserID == "" {
		return errors.New("conversation has no user id")
	}
	conv.UpdatedAt = s.now().UTC()

	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := s.client.Set(ctx, s.key(conv.UserID), raw, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Touch resets the expiry without changing the content.
func (s *ConversationStore) Touch(ctx context.Context, userID string) error {
	ok, err := s.client.Expire(ctx, s.key(userID), s.cfg.TTL).Result()
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if !ok {
		return fmt.Errorf("conversation %s: %w", userID, secondary.ErrNotFound)
	}
	return nil
}

// Delete removes the conversation.
func (s *ConversationStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

package redisstream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guideops/chat-core/internal/config"
	"github.com/guideops/chat-core/internal/models"
)

// DedupeGuard collapses retried submissions of the same logical message
// into a single log entry. The marker is a short-TTL write-once key; no
// manual unlock exists and a claim can never outlive its TTL, so a
// crashed publisher self-heals. A retry arriving after the TTL window
// creates a second, distinct log entry by design.
type DedupeGuard interface {
	// Claim atomically marks (room, client message id) as in flight.
	// first=false means a prior submission already claimed it;
	// existingID carries the stream id the first submission recorded,
	// or "" if its append has not landed yet.
	Claim(ctx context.Context, roomID, clientMessageID string) (first bool, existingID string, err error)

	// Record stores the assigned stream id on the marker so later
	// retries can return the original id. Keeps the claim's TTL.
	Record(ctx context.Context, roomID, clientMessageID, streamID string) error

	// Release drops the marker after a failed append so the client's
	// retry is not swallowed for the rest of the window.
	Release(ctx context.Context, roomID, clientMessageID string) error
}

type dedupeGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedupeGuard(client *redis.Client, conf *config.Config) DedupeGuard {
	return &dedupeGuard{
		client: client,
		ttl:    conf.Chat.DedupeTTL,
	}
}

func (g *dedupeGuard) Claim(ctx context.Context, roomID, clientMessageID string) (bool, string, error) {
	key := dedupeKey(roomID, clientMessageID)
	first, err := g.client.SetNX(ctx, key, "", g.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("%w: setnx %s: %v", models.ErrStoreUnavailable, key, err)
	}
	if first {
		return true, "", nil
	}

	existingID, err := g.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			// marker expired between SETNX and GET; treat as duplicate
			// with unknown id rather than double-appending
			return false, "", nil
		}
		return false, "", fmt.Errorf("%w: get %s: %v", models.ErrStoreUnavailable, key, err)
	}
	return false, existingID, nil
}

func (g *dedupeGuard) Record(ctx context.Context, roomID, clientMessageID, streamID string) error {
	key := dedupeKey(roomID, clientMessageID)
	if err := g.client.Set(ctx, key, streamID, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", models.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (g *dedupeGuard) Release(ctx context.Context, roomID, clientMessageID string) error {
	key := dedupeKey(roomID, clientMessageID)
	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", models.ErrStoreUnavailable, key, err)
	}
	return nil
}

package redisstream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/guideops/chat-core/internal/models"
)

// CursorStore persists each (user, room) delivery cursor. A cursor only
// moves forward, and only through Advance; delivery never touches it.
type CursorStore interface {
	// Get returns the cursor for one room, "" if none exists yet.
	Get(ctx context.Context, userID, roomID string) (string, error)

	// GetAll returns all of the user's cursors keyed by room id.
	GetAll(ctx context.Context, userID string) (map[string]string, error)

	// Advance moves the cursor to candidateID if it is strictly greater
	// than the stored value (or no cursor exists). Returns false for
	// non-monotonic candidates; never errors on them and never
	// regresses, even under concurrent duplicate acks.
	Advance(ctx context.Context, userID, roomID, candidateID string) (bool, error)
}

// advanceScript does the monotonic compare-and-set inside Redis, which
// serializes concurrent acks for the same (user, room) without any lock.
var advanceScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if not cur then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return 1
end
local cdash = string.find(cur, '-', 1, true)
local ndash = string.find(ARGV[2], '-', 1, true)
local cms = tonumber(string.sub(cur, 1, cdash - 1))
local cseq = tonumber(string.sub(cur, cdash + 1))
local nms = tonumber(string.sub(ARGV[2], 1, ndash - 1))
local nseq = tonumber(string.sub(ARGV[2], ndash + 1))
if nms > cms or (nms == cms and nseq > cseq) then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return 1
end
return 0
`)

type cursorStore struct {
	client *redis.Client
}

func NewCursorStore(client *redis.Client) CursorStore {
	return &cursorStore{client: client}
}

func (c *cursorStore) Get(ctx context.Context, userID, roomID string) (string, error) {
	val, err := c.client.HGet(ctx, cursorKey(userID), roomID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("%w: hget cursor %s/%s: %v", models.ErrStoreUnavailable, userID, roomID, err)
	}
	return val, nil
}

func (c *cursorStore) GetAll(ctx context.Context, userID string) (map[string]string, error) {
	vals, err := c.client.HGetAll(ctx, cursorKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall cursor %s: %v", models.ErrStoreUnavailable, userID, err)
	}
	return vals, nil
}

func (c *cursorStore) Advance(ctx context.Context, userID, roomID, candidateID string) (bool, error) {
	if _, _, err := ParseStreamID(candidateID); err != nil {
		return false, nil // malformed candidate is a silent no-op
	}
	res, err := advanceScript.Run(ctx, c.client, []string{cursorKey(userID)}, roomID, candidateID).Int()
	if err != nil {
		return false, fmt.Errorf("%w: advance cursor %s/%s: %v", models.ErrStoreUnavailable, userID, roomID, err)
	}
	return res == 1, nil
}

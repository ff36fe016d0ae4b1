package redisstream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/redis/go-redis/v9"

	"github.com/guideops/chat-core/internal/config"
	"github.com/guideops/chat-core/internal/models"
)

// Store is the delivery core's contract with the room logs. Redis Streams
// provide the actual primitives: XADD assigns the monotonically increasing
// per-room id and enforces approximate retention, XREVRANGE/XRANGE serve
// range reads with exclusive "(" bounds, and XREAD BLOCK is the live tail.
type Store interface {
	// Append writes msg to its room log and returns the assigned id.
	Append(ctx context.Context, msg *models.Message) (string, error)

	// PageBefore returns up to count messages strictly older than
	// beforeID, newest first, plus the raw id of the oldest entry
	// scanned, decoded or not ("" when the range is empty). Callers use
	// the raw id as the next pagination boundary so a run of
	// undecodable entries cannot stall a backward walk.
	PageBefore(ctx context.Context, roomID, beforeID string, count int64) ([]*models.Message, string, error)

	// After returns up to count messages strictly newer than afterID,
	// oldest first.
	After(ctx context.Context, roomID, afterID string, count int64) ([]*models.Message, error)

	// HasBefore reports whether any entry older than id exists, decodable
	// or not.
	HasBefore(ctx context.Context, roomID, id string) (bool, error)

	// HeadID returns the newest id in the room log, or "" for an empty
	// log.
	HeadID(ctx context.Context, roomID string) (string, error)

	// ReadBlocking blocks until at least one of the rooms has an entry
	// newer than its position, or the timeout elapses. A nil result with
	// nil error means timeout (heartbeat time). Each room's LastID
	// covers every raw entry returned, decoded or not; positions must
	// advance by it or an undecodable entry would be re-read forever.
	ReadBlocking(ctx context.Context, positions map[string]string, block time.Duration, count int64) (map[string]ReadResult, error)

	// DeleteRoom drops the whole room log.
	DeleteRoom(ctx context.Context, roomID string) error

	Ping(ctx context.Context) error
}

// ReadResult is one room's slice of a blocking read.
type ReadResult struct {
	Messages []*models.Message
	LastID   string
}

type store struct {
	client *redis.Client
	maxLen int64
}

func NewStore(client *redis.Client, conf *config.Config) Store {
	return &store{
		client: client,
		maxLen: conf.Chat.StreamMaxLen,
	}
}

func (s *store) Append(ctx context.Context, msg *models.Message) (string, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: roomStreamKey(msg.RoomID),
		MaxLen: s.maxLen,
		Approx: true,
		Values: encodeMessage(msg),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("%w: xadd room %s: %v", models.ErrStoreUnavailable, msg.RoomID, err)
	}
	return id, nil
}

func (s *store) PageBefore(ctx context.Context, roomID, beforeID string, count int64) ([]*models.Message, string, error) {
	start := "+"
	if beforeID != "" {
		start = "(" + beforeID
	}
	raw, err := s.client.XRevRangeN(ctx, roomStreamKey(roomID), start, "-", count).Result()
	if err != nil {
		return nil, "", fmt.Errorf("%w: xrevrange room %s: %v", models.ErrStoreUnavailable, roomID, err)
	}
	oldestID := ""
	if len(raw) > 0 {
		oldestID = raw[len(raw)-1].ID
	}
	return s.decodeAll(ctx, roomID, raw), oldestID, nil
}

func (s *store) After(ctx context.Context, roomID, afterID string, count int64) ([]*models.Message, error) {
	start := "(" + afterID
	if afterID == "" {
		start = "-"
	}
	raw, err := s.client.XRangeN(ctx, roomStreamKey(roomID), start, "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: xrange room %s: %v", models.ErrStoreUnavailable, roomID, err)
	}
	return s.decodeAll(ctx, roomID, raw), nil
}

func (s *store) HasBefore(ctx context.Context, roomID, id string) (bool, error) {
	raw, err := s.client.XRevRangeN(ctx, roomStreamKey(roomID), "("+id, "-", 1).Result()
	if err != nil {
		return false, fmt.Errorf("%w: xrevrange room %s: %v", models.ErrStoreUnavailable, roomID, err)
	}
	return len(raw) > 0, nil
}

func (s *store) HeadID(ctx context.Context, roomID string) (string, error) {
	raw, err := s.client.XRevRangeN(ctx, roomStreamKey(roomID), "+", "-", 1).Result()
	if err != nil {
		return "", fmt.Errorf("%w: xrevrange room %s: %v", models.ErrStoreUnavailable, roomID, err)
	}
	if len(raw) == 0 {
		return "", nil
	}
	return raw[0].ID, nil
}

func (s *store) ReadBlocking(ctx context.Context, positions map[string]string, block time.Duration, count int64) (map[string]ReadResult, error) {
	if len(positions) == 0 {
		return nil, nil
	}

	// XREAD wants all keys followed by all ids, in matching order.
	rooms := make([]string, 0, len(positions))
	for roomID := range positions {
		rooms = append(rooms, roomID)
	}
	sort.Strings(rooms)

	streams := make([]string, 0, 2*len(rooms))
	for _, roomID := range rooms {
		streams = append(streams, roomStreamKey(roomID))
	}
	for _, roomID := range rooms {
		streams = append(streams, positions[roomID])
	}

	res, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: streams,
		Count:   count,
		Block:   block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // timeout, nothing new
		}
		return nil, fmt.Errorf("%w: xread: %v", models.ErrStoreUnavailable, err)
	}

	out := make(map[string]ReadResult, len(res))
	for _, stream := range res {
		roomID := roomIDFromStreamKey(stream.Stream)
		if roomID == "" || len(stream.Messages) == 0 {
			continue
		}
		out[roomID] = ReadResult{
			Messages: s.decodeAll(ctx, roomID, stream.Messages),
			LastID:   stream.Messages[len(stream.Messages)-1].ID,
		}
	}
	return out, nil
}

func (s *store) DeleteRoom(ctx context.Context, roomID string) error {
	if err := s.client.Del(ctx, roomStreamKey(roomID)).Err(); err != nil {
		return fmt.Errorf("%w: del room %s: %v", models.ErrStoreUnavailable, roomID, err)
	}
	return nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// decodeAll skips undecodable entries instead of failing the read; one
// corrupt record must never abort a page or a live stream.
func (s *store) decodeAll(ctx context.Context, roomID string, raw []redis.XMessage) []*models.Message {
	msgs := make([]*models.Message, 0, len(raw))
	for _, entry := range raw {
		msg, err := decodeMessage(roomID, entry)
		if err != nil {
			log.Warnw(ctx, "skipping malformed stream entry",
				"room_id", roomID, "entry_id", entry.ID, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

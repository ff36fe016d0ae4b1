package usecase

import (
	"context"
	"fmt"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/guideops/chat-core/internal/chat"
	"github.com/guideops/chat-core/internal/models"
	"github.com/guideops/chat-core/internal/repo/mongodb"
	"github.com/guideops/chat-core/internal/repo/redisstream"
	"github.com/guideops/chat-core/pkg/util"
)

// PublishUsecase is the single write path for every message, whatever
// transport it arrived on (HTTP, Kafka ingest).
type PublishUsecase interface {
	// Publish validates, deduplicates and appends one message. A retried
	// submission inside the dedupe window returns the original message
	// as if the write had just succeeded; callers cannot tell a first
	// success from a retried one by return value alone.
	Publish(ctx context.Context, roomID, authorID string, payload models.RawPayload) (*models.Message, error)

	// PublishInfo appends a system notice to the room. No normalization,
	// no dedupe; intended for room lifecycle events.
	PublishInfo(ctx context.Context, roomID, text string) (*models.Message, error)
}

type publishUsecase struct {
	store   redisstream.Store
	dedupe  redisstream.DedupeGuard
	members mongodb.MembershipRepository
	metrics *prometheus.HistogramVec
}

func NewPublishUsecase(
	store redisstream.Store,
	dedupe redisstream.DedupeGuard,
	members mongodb.MembershipRepository,
) (PublishUsecase, error) {
	metrics, err := util.GetHistogramVec("chat_messages_published", "status", "kind")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}
	return &publishUsecase{
		store:   store,
		dedupe:  dedupe,
		members: members,
		metrics: metrics,
	}, nil
}

func (uc *publishUsecase) observe(start time.Time, status, kind string) {
	uc.metrics.WithLabelValues(status, kind).Observe(time.Since(start).Seconds())
}

func (uc *publishUsecase) Publish(ctx context.Context, roomID, authorID string, payload models.RawPayload) (*models.Message, error) {
	start := time.Now()

	ok, err := uc.members.IsMember(ctx, roomID, authorID)
	if err != nil {
		uc.observe(start, "error", models.KindMessage)
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if !ok {
		uc.observe(start, "rejected", models.KindMessage)
		return nil, models.ErrNotMember
	}

	// Fail fast: validation happens before any side effect.
	msg, err := chat.Normalize(roomID, authorID, payload)
	if err != nil {
		uc.observe(start, "rejected", models.KindMessage)
		return nil, err
	}

	first, existingID, err := uc.dedupe.Claim(ctx, roomID, msg.ClientMessageID)
	if err != nil {
		uc.observe(start, "error", models.KindMessage)
		return nil, err
	}
	if !first {
		// Duplicate accept-as-ack: hand back the original entry's id when
		// the first submission already recorded it.
		msg.ID = existingID
		log.Infow(ctx, "duplicate submission collapsed",
			"room_id", roomID, "message_id", msg.ClientMessageID, "id", existingID)
		uc.observe(start, "duplicate", models.KindMessage)
		return msg, nil
	}

	id, err := uc.store.Append(ctx, msg)
	if err != nil {
		// Roll the claim back so the client's retry is not swallowed
		// until the TTL expires.
		if relErr := uc.dedupe.Release(ctx, roomID, msg.ClientMessageID); relErr != nil {
			log.Errorw(ctx, "failed to release dedupe claim after append failure",
				"room_id", roomID, "message_id", msg.ClientMessageID, "error", relErr)
		}
		uc.observe(start, "error", models.KindMessage)
		return nil, err
	}
	msg.ID = id
	uc.observe(start, "success", models.KindMessage)

	if err := uc.dedupe.Record(ctx, roomID, msg.ClientMessageID, id); err != nil {
		// The entry is appended and immutable; a retry inside the window
		// will just come back without the original id.
		log.Warnw(ctx, "failed to record stream id on dedupe marker",
			"room_id", roomID, "message_id", msg.ClientMessageID, "error", err)
	}

	// Live fan-out needs no extra step: the XADD above is what unblocks
	// every subscriber currently parked in XREAD on this room.
	return msg, nil
}

func (uc *publishUsecase) PublishInfo(ctx context.Context, roomID, text string) (*models.Message, error) {
	start := time.Now()
	msg := &models.Message{
		RoomID:   roomID,
		AuthorID: "info",
		Text:     text,
		TsMs:     time.Now().UnixMilli(),
		Kind:     models.KindInfo,
		Version:  models.SchemaVersion,
	}

	id, err := uc.store.Append(ctx, msg)
	if err != nil {
		uc.observe(start, "error", models.KindInfo)
		return nil, err
	}
	msg.ID = id
	uc.observe(start, "success", models.KindInfo)
	return msg, nil
}

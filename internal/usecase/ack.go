package usecase

import (
	"context"

	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/guideops/chat-core/internal/repo/redisstream"
)

// AckUsecase applies a batch of per-room acknowledgments to the caller's
// delivery cursors. Non-monotonic and malformed ids are counted as
// ignored, never surfaced as errors: duplicate and late ack retries are
// normal traffic.
type AckUsecase interface {
	Acknowledge(ctx context.Context, userID string, cursors map[string]string) (accepted, ignored int, err error)
}

type ackUsecase struct {
	cursors redisstream.CursorStore
}

func NewAckUsecase(cursors redisstream.CursorStore) AckUsecase {
	return &ackUsecase{cursors: cursors}
}

func (uc *ackUsecase) Acknowledge(ctx context.Context, userID string, cursors map[string]string) (int, int, error) {
	accepted, ignored := 0, 0
	for roomID, candidateID := range cursors {
		advanced, err := uc.cursors.Advance(ctx, userID, roomID, candidateID)
		if err != nil {
			return accepted, ignored, err
		}
		if advanced {
			accepted++
			continue
		}
		ignored++
		log.Debugw(ctx, "ignored non-monotonic ack",
			"user_id", userID, "room_id", roomID, "candidate_id", candidateID)
	}
	return accepted, ignored, nil
}

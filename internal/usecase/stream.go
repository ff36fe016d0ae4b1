package usecase

import (
	"context"
	"fmt"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/guideops/chat-core/internal/config"
	"github.com/guideops/chat-core/internal/models"
	"github.com/guideops/chat-core/internal/repo/mongodb"
	"github.com/guideops/chat-core/internal/repo/redisstream"
)

// EventSink receives the framed events for one subscriber connection.
// Send and Heartbeat return an error once the underlying connection is
// gone, which ends the read loop.
type EventSink interface {
	Send(ev *models.StreamEvent) error
	Heartbeat() error
}

// StreamUsecase runs the catch-up + live-tail delivery loop for one
// subscriber across all of its rooms.
//
// Delivery never advances cursors; only an explicit ack does. Redelivery
// of unacknowledged messages after a reconnect is expected (at-least-once
// across connections), but within a single subscription no id is
// delivered twice.
type StreamUsecase interface {
	Subscribe(ctx context.Context, userID string, sink EventSink) error
}

type streamUsecase struct {
	store        redisstream.Store
	cursors      redisstream.CursorStore
	members      mongodb.MembershipRepository
	block        time.Duration
	catchupLimit int64
	pageSize     int64
	readCount    int64
}

func NewStreamUsecase(
	store redisstream.Store,
	cursors redisstream.CursorStore,
	members mongodb.MembershipRepository,
	conf *config.Config,
) StreamUsecase {
	return &streamUsecase{
		store:        store,
		cursors:      cursors,
		members:      members,
		block:        conf.Chat.BlockInterval,
		catchupLimit: conf.Chat.CatchupLimit,
		pageSize:     conf.Chat.HistoryPageSize,
		readCount:    conf.Chat.LiveReadCount,
	}
}

func (uc *streamUsecase) Subscribe(ctx context.Context, userID string, sink EventSink) error {
	rooms, err := uc.members.RoomsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}

	positions, err := uc.replayBacklog(ctx, userID, rooms, sink)
	if err != nil {
		return err
	}

	if err := sink.Send(&models.StreamEvent{
		Type:      models.EventTypeBacklogEnd,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		return nil // subscriber went away during replay
	}

	log.Debugw(ctx, "backlog complete, entering live tail",
		"user_id", userID, "rooms", len(rooms))

	return uc.liveTail(ctx, positions, sink)
}

// replayBacklog emits everything between each room's cursor and its head
// at subscribe time, bounded per room. Rooms without a cursor get only the
// most recent page, never full history. The returned positions are where
// live tailing picks up; a room whose backlog was truncated by the bound
// keeps its position at the last emitted id, so the remainder arrives
// through the live reads instead of being skipped.
func (uc *streamUsecase) replayBacklog(ctx context.Context, userID string, rooms []string, sink EventSink) (map[string]string, error) {
	positions := make(map[string]string, len(rooms))

	for _, roomID := range rooms {
		head, err := uc.store.HeadID(ctx, roomID)
		if err != nil {
			return nil, err
		}

		cursor, err := uc.cursors.Get(ctx, userID, roomID)
		if err != nil {
			return nil, err
		}

		var backlog []*models.Message
		if cursor != "" {
			backlog, err = uc.store.After(ctx, roomID, cursor, uc.catchupLimit)
			if err != nil {
				return nil, err
			}
		} else {
			page, _, err := uc.store.PageBefore(ctx, roomID, "", uc.pageSize)
			if err != nil {
				return nil, err
			}
			backlog = make([]*models.Message, 0, len(page))
			for i := len(page) - 1; i >= 0; i-- {
				backlog = append(backlog, page[i])
			}
		}

		for _, msg := range backlog {
			if err := sink.Send(&models.StreamEvent{
				Type:    models.EventTypeMessage,
				Data:    msg,
				Backlog: true,
			}); err != nil {
				return nil, err
			}
		}

		switch {
		case len(backlog) > 0:
			positions[roomID] = backlog[len(backlog)-1].ID
		case head != "":
			positions[roomID] = head
		default:
			// Empty room: everything appended from here on is new.
			positions[roomID] = "0-0"
		}
	}

	return positions, nil
}

func (uc *streamUsecase) liveTail(ctx context.Context, positions map[string]string, sink EventSink) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if len(positions) == 0 {
			// No rooms to tail; keep the connection alive with
			// heartbeats until the subscriber goes away.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(uc.block):
			}
			if err := sink.Heartbeat(); err != nil {
				return nil
			}
			continue
		}

		batches, err := uc.store.ReadBlocking(ctx, positions, uc.block, uc.readCount)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if len(batches) == 0 {
			// Blocking read timed out with no traffic; the heartbeat is
			// what keeps proxies from declaring the connection idle.
			if err := sink.Heartbeat(); err != nil {
				return nil
			}
			continue
		}

		delivered := false
		for roomID, batch := range batches {
			for _, msg := range batch.Messages {
				positions[roomID] = msg.ID
				if err := sink.Send(&models.StreamEvent{
					Type: models.EventTypeMessage,
					Data: msg,
				}); err != nil {
					return nil
				}
				delivered = true
			}
			// Advance past every raw entry the read returned, including
			// undecodable ones the store skipped; otherwise the next XREAD
			// would return the same entry again, forever.
			if batch.LastID != "" && redisstream.CompareStreamIDs(batch.LastID, positions[roomID]) > 0 {
				positions[roomID] = batch.LastID
			}
		}

		if !delivered {
			// The read returned only skipped entries; treat it like an
			// idle cycle so the connection still sees heartbeats.
			if err := sink.Heartbeat(); err != nil {
				return nil
			}
		}
	}
}

package usecase

import (
	"context"
	"fmt"

	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/guideops/chat-core/internal/config"
	"github.com/guideops/chat-core/internal/models"
	"github.com/guideops/chat-core/internal/repo/mongodb"
	"github.com/guideops/chat-core/internal/repo/redisstream"
)

// HistoryUsecase serves backward pagination over a room log.
//
// hasMore=false means "no older entries in the log right now". Entries
// discarded by retention trimming are indistinguishable from entries that
// never existed, so a page that once reported hasMore=true can later
// report false at the same boundary.
type HistoryUsecase interface {
	GetHistory(ctx context.Context, roomID, userID string, count int64, beforeID string) (*models.MessageHistory, error)

	// ClearRoom drops the room's entire log and leaves an info notice in
	// the fresh one.
	ClearRoom(ctx context.Context, roomID, userID string) error
}

type historyUsecase struct {
	store    redisstream.Store
	members  mongodb.MembershipRepository
	publish  PublishUsecase
	pageSize int64
	maxPage  int64
}

func NewHistoryUsecase(
	store redisstream.Store,
	members mongodb.MembershipRepository,
	publish PublishUsecase,
	conf *config.Config,
) HistoryUsecase {
	return &historyUsecase{
		store:    store,
		members:  members,
		publish:  publish,
		pageSize: conf.Chat.HistoryPageSize,
		maxPage:  conf.Chat.HistoryPageLimit,
	}
}

func (uc *historyUsecase) GetHistory(ctx context.Context, roomID, userID string, count int64, beforeID string) (*models.MessageHistory, error) {
	ok, err := uc.members.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if !ok {
		return nil, models.ErrNotMember
	}

	if count <= 0 {
		count = uc.pageSize
	}
	if count > uc.maxPage {
		count = uc.maxPage
	}

	// Newest first from the store, flipped to chronological below. The
	// oldest id comes from the raw scan, not the decoded page: a run of
	// undecodable entries still moves the boundary, so the next before_id
	// reaches the readable entries behind it.
	page, oldestID, err := uc.store.PageBefore(ctx, roomID, beforeID, count)
	if err != nil {
		return nil, err
	}

	history := &models.MessageHistory{
		Messages: make([]*models.Message, 0, len(page)),
	}
	if oldestID == "" {
		return history, nil
	}

	history.OldestID = oldestID
	if len(page) > 0 {
		history.NewestID = page[0].ID
	}

	hasMore, err := uc.store.HasBefore(ctx, roomID, history.OldestID)
	if err != nil {
		return nil, err
	}
	history.HasMore = hasMore

	for i := len(page) - 1; i >= 0; i-- {
		history.Messages = append(history.Messages, page[i])
	}
	history.Count = len(history.Messages)

	return history, nil
}

func (uc *historyUsecase) ClearRoom(ctx context.Context, roomID, userID string) error {
	ok, err := uc.members.IsMember(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}
	if !ok {
		return models.ErrNotMember
	}

	if err := uc.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	if _, err := uc.publish.PublishInfo(ctx, roomID, "Room history was cleared"); err != nil {
		log.Warnw(ctx, "failed to append clear notice", "room_id", roomID, "error", err)
	}
	return nil
}

package kafka

import (
	"context"
	"errors"

	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/guideops/chat-core/internal/models"
	"github.com/guideops/chat-core/internal/usecase"
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, data models.KafkaMessageData) error
}

// messageHandler feeds ingested events through the same write path as
// HTTP submissions, so dedupe and validation apply identically.
type messageHandler struct {
	publishUsecase usecase.PublishUsecase
}

func NewMessageHandler(publishUsecase usecase.PublishUsecase) MessageHandler {
	return &messageHandler{
		publishUsecase: publishUsecase,
	}
}

func (h *messageHandler) HandleMessage(ctx context.Context, data models.KafkaMessageData) error {
	payload := models.RawPayload{
		Message:   data.Message,
		MessageID: data.ClientGenID,
	}

	_, err := h.publishUsecase.Publish(ctx, data.RoomID, data.SenderID, payload)
	if models.IsValidation(err) || errors.Is(err, models.ErrNotMember) {
		// A malformed or unauthorized event will never become valid;
		// retrying it would wedge the partition.
		log.Warnw(ctx, "dropping rejected ingested message",
			"room_id", data.RoomID, "sender_id", data.SenderID, "error", err)
		return nil
	}
	return err
}

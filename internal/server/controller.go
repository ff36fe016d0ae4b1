package server

import (
	"net/http"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/labstack/echo/v4"

	"github.com/guideops/chat-core/internal/models"
	"github.com/guideops/chat-core/internal/repo/mongodb"
	"github.com/guideops/chat-core/internal/repo/redisstream"
	"github.com/guideops/chat-core/internal/usecase"
)

type Controller interface {
	SubmitMessage(c echo.Context) error
	GetHistory(c echo.Context) error
	ClearHistory(c echo.Context) error
	Acknowledge(c echo.Context) error
	JoinRoom(c echo.Context) error
	LeaveRoom(c echo.Context) error
	Health(c echo.Context) error
}

type controller struct {
	publishUsecase usecase.PublishUsecase
	historyUsecase usecase.HistoryUsecase
	ackUsecase     usecase.AckUsecase
	members        mongodb.MembershipRepository
	store          redisstream.Store
	db             *mongodb.DB
}

func NewHandler(
	publishUsecase usecase.PublishUsecase,
	historyUsecase usecase.HistoryUsecase,
	ackUsecase usecase.AckUsecase,
	members mongodb.MembershipRepository,
	store redisstream.Store,
	db *mongodb.DB,
) Controller {
	return &controller{
		publishUsecase: publishUsecase,
		historyUsecase: historyUsecase,
		ackUsecase:     ackUsecase,
		members:        members,
		store:          store,
		db:             db,
	}
}

func (h *controller) SubmitMessage(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("user_id").(string)

	var payload models.RawPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	msg, err := h.publishUsecase.Publish(ctx, roomID, userID, payload)
	if err != nil {
		return err
	}

	// A collapsed duplicate gets the same body and status as its original
	// submission; the client's retry loop must not be able to tell.
	return c.JSON(http.StatusCreated, msg)
}

type HistoryQuery struct {
	Count    int64  `query:"count"`
	BeforeID string `query:"before_id"`
}

func (h *controller) GetHistory(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("user_id").(string)

	var q HistoryQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	ctx := c.Request().Context()
	history, err := h.historyUsecase.GetHistory(ctx, roomID, userID, q.Count, q.BeforeID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, history)
}

func (h *controller) ClearHistory(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("user_id").(string)

	ctx := c.Request().Context()
	if err := h.historyUsecase.ClearRoom(ctx, roomID, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "cleared",
	})
}

type AckRequest struct {
	Cursors map[string]string `json:"cursors" validate:"required"`
}

func (h *controller) Acknowledge(c echo.Context) error {
	userID := c.Get("user_id").(string)

	var req AckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	accepted, ignored, err := h.ackUsecase.Acknowledge(ctx, userID, req.Cursors)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]int{
		"accepted": accepted,
		"ignored":  ignored,
	})
}

func (h *controller) JoinRoom(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("user_id").(string)

	ctx := c.Request().Context()
	if err := h.members.AddMember(ctx, roomID, userID); err != nil {
		return err
	}

	if _, err := h.publishUsecase.PublishInfo(ctx, roomID, userID+" joined the room"); err != nil {
		log.Warnw(ctx, "failed to append join notice", "room_id", roomID, "error", err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "joined",
	})
}

func (h *controller) LeaveRoom(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("user_id").(string)

	ctx := c.Request().Context()
	if err := h.members.RemoveMember(ctx, roomID, userID); err != nil {
		return err
	}

	if _, err := h.publishUsecase.PublishInfo(ctx, roomID, userID+" left the room"); err != nil {
		log.Warnw(ctx, "failed to append leave notice", "room_id", roomID, "error", err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "left",
	})
}

func (h *controller) Health(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.store.Ping(ctx); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "log store unreachable")
	}
	if err := h.db.Client.Ping(ctx, nil); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "membership store unreachable")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "chat-core",
	})
}

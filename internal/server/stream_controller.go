package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/guideops/chat-core/internal/models"
	"github.com/guideops/chat-core/internal/usecase"
)

type StreamController interface {
	Stream(c echo.Context) error
}

type streamController struct {
	streamUsecase usecase.StreamUsecase
}

func NewStreamController(streamUsecase usecase.StreamUsecase) StreamController {
	return &streamController{streamUsecase: streamUsecase}
}

// Stream holds the connection open and feeds it SSE frames until the
// client disconnects: replayed backlog first, then live traffic.
func (sc *streamController) Stream(c echo.Context) error {
	userID := c.Get("user_id").(string)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	// no-transform matters as much as no-cache: an intermediary that
	// re-encodes the body would break the SSE framing.
	resp.Header().Set(echo.HeaderCacheControl, "no-cache, no-transform")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	// Tells nginx-style proxies not to buffer the stream.
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	sink := &sseSink{resp: resp}
	return sc.streamUsecase.Subscribe(c.Request().Context(), userID, sink)
}

// sseSink frames stream events as server-sent events on one response.
// Write errors mean the client is gone; the subscription loop treats
// them as a normal end of stream.
type sseSink struct {
	resp *echo.Response
}

func (s *sseSink) Send(ev *models.StreamEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.resp, "data: %s\n\n", body); err != nil {
		return err
	}
	s.resp.Flush()
	return nil
}

// Heartbeat writes an SSE comment frame. Clients ignore it; proxies and
// load balancers see a live connection.
func (s *sseSink) Heartbeat() error {
	if _, err := fmt.Fprintf(s.resp, ": heartbeat %d\n\n", time.Now().Unix()); err != nil {
		return err
	}
	s.resp.Flush()
	return nil
}

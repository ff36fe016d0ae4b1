package models

const (
	EventTypeMessage    = "message"
	EventTypeBacklogEnd = "backlog_end"
)

// StreamEvent is a single framed event on a subscriber connection.
// Backlog distinguishes replayed messages from live traffic; the
// backlog_end frame marks the transition between the two.
type StreamEvent struct {
	Type      string   `json:"type"`
	Data      *Message `json:"data,omitempty"`
	Backlog   bool     `json:"backlog,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// KafkaMessage is the envelope sibling services publish on the ingest
// topic. Only "message.sent" events are processed.
type KafkaMessage struct {
	Pattern string           `json:"pattern"`
	Data    KafkaMessageData `json:"data"`
}

type KafkaMessageData struct {
	RoomID      string `json:"room_id" validate:"required"`
	SenderID    string `json:"sender_id" validate:"required"`
	Message     string `json:"message" validate:"required"`
	ClientGenID string `json:"client_gen_id"`
	CreatedAt   int64  `json:"created_at"`
}

package models

// SchemaVersion is stamped into every entry written to a room stream so
// older readers can detect fields they do not understand.
const SchemaVersion = 2

const (
	KindMessage = "message"
	KindInfo    = "info"
)

// Message is the canonical wire schema for a chat message. It is produced
// only by the normalizer (or by PublishInfo for system notices); nothing
// past that boundary handles raw client payloads.
type Message struct {
	// ID is the log-assigned stream id ("<epoch_ms>-<seq>"), totally
	// ordered within a room. Empty until the message has been appended.
	ID              string   `json:"id,omitempty"`
	ClientMessageID string   `json:"message_id"`
	RoomID          string   `json:"room_id"`
	AuthorID        string   `json:"author_id"`
	Text            string   `json:"text"`
	TsMs            int64    `json:"ts_ms"`
	Lat             *float64 `json:"lat,omitempty"`
	Long            *float64 `json:"long,omitempty"`
	Kind            string   `json:"kind"`
	Version         int      `json:"v"`
}

// RawPayload is the inbound message body before normalization. Older
// clients send "message"/"id"/"latitude"/"longitude", newer ones
// "text"/"message_id"/"lat"/"long"; both are accepted. Lat/Long are typed
// loosely because clients have been observed sending them as strings.
type RawPayload struct {
	Text      string `json:"text"`
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
	ID        string `json:"id"`
	Lat       any    `json:"lat"`
	Latitude  any    `json:"latitude"`
	Long      any    `json:"long"`
	Longitude any    `json:"longitude"`
}

// MessageHistory is one backward page of room history.
type MessageHistory struct {
	Messages []*Message `json:"messages"`
	HasMore  bool       `json:"has_more"`
	OldestID string     `json:"oldest_id,omitempty"`
	NewestID string     `json:"newest_id,omitempty"`
	Count    int        `json:"count"`
}

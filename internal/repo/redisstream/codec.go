package redisstream

import (
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/guideops/chat-core/internal/models"
)

// Stream entry field names. Changing these breaks every reader of the
// room streams.
const (
	fieldMessageID = "message_id"
	fieldRoomID    = "room_id"
	fieldAuthorID  = "author_id"
	fieldText      = "text"
	fieldTsMs      = "ts_ms"
	fieldLat       = "lat"
	fieldLong      = "long"
	fieldKind      = "kind"
	fieldVersion   = "v"
)

func encodeMessage(msg *models.Message) map[string]any {
	fields := map[string]any{
		fieldMessageID: msg.ClientMessageID,
		fieldRoomID:    msg.RoomID,
		fieldAuthorID:  msg.AuthorID,
		fieldText:      msg.Text,
		fieldTsMs:      strconv.FormatInt(msg.TsMs, 10),
		fieldKind:      msg.Kind,
		fieldVersion:   strconv.Itoa(msg.Version),
	}
	if msg.Lat != nil {
		fields[fieldLat] = strconv.FormatFloat(*msg.Lat, 'f', -1, 64)
	}
	if msg.Long != nil {
		fields[fieldLong] = strconv.FormatFloat(*msg.Long, 'f', -1, 64)
	}
	return fields
}

func decodeMessage(roomID string, entry redis.XMessage) (*models.Message, error) {
	text, ok := stringField(entry.Values, fieldText)
	if !ok || text == "" {
		return nil, fmt.Errorf("entry %s: missing text", entry.ID)
	}
	authorID, ok := stringField(entry.Values, fieldAuthorID)
	if !ok || authorID == "" {
		return nil, fmt.Errorf("entry %s: missing author_id", entry.ID)
	}

	msg := &models.Message{
		ID:       entry.ID,
		RoomID:   roomID,
		AuthorID: authorID,
		Text:     text,
		Kind:     models.KindMessage,
		Version:  models.SchemaVersion,
	}

	if mid, ok := stringField(entry.Values, fieldMessageID); ok {
		msg.ClientMessageID = mid
	}
	if kind, ok := stringField(entry.Values, fieldKind); ok && kind != "" {
		msg.Kind = kind
	}
	if raw, ok := stringField(entry.Values, fieldTsMs); ok {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %s: bad ts_ms %q", entry.ID, raw)
		}
		msg.TsMs = ts
	}
	if raw, ok := stringField(entry.Values, fieldVersion); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			msg.Version = v
		}
	}
	if raw, ok := stringField(entry.Values, fieldLat); ok {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %s: bad lat %q", entry.ID, raw)
		}
		msg.Lat = &f
	}
	if raw, ok := stringField(entry.Values, fieldLong); ok {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %s: bad long %q", entry.ID, raw)
		}
		msg.Long = &f
	}
	return msg, nil
}

func stringField(values map[string]any, key string) (string, bool) {
	v, ok := values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guideops/chat-core/internal/models"
)

// Normalize validates and canonicalizes an inbound payload into the wire
// schema. author_id, ts_ms and the schema version are always stamped
// server-side; client-sent values for them are discarded. The function has
// no side effects beyond reading the server clock.
func Normalize(roomID, authorID string, payload models.RawPayload) (*models.Message, error) {
	return normalizeAt(roomID, authorID, payload, time.Now())
}

func normalizeAt(roomID, authorID string, payload models.RawPayload, now time.Time) (*models.Message, error) {
	text := payload.Text
	if text == "" {
		text = payload.Message
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.ErrEmptyMessage
	}

	lat, err := parseCoordinate(firstValue(payload.Lat, payload.Latitude), -90, 90, "lat")
	if err != nil {
		return nil, err
	}
	long, err := parseCoordinate(firstValue(payload.Long, payload.Longitude), -180, 180, "long")
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ClientMessageID: canonicalMessageID(payload),
		RoomID:          roomID,
		AuthorID:        authorID,
		Text:            text,
		TsMs:            now.UnixMilli(),
		Lat:             lat,
		Long:            long,
		Kind:            models.KindMessage,
		Version:         models.SchemaVersion,
	}, nil
}

// canonicalMessageID accepts a client-supplied UUID or generates one. A
// malformed client id falls back to generation instead of erroring, which
// means retries of that submission will not dedupe. Same for submissions
// with no client id at all: a generated id never matches a retry.
func canonicalMessageID(payload models.RawPayload) string {
	raw := payload.MessageID
	if raw == "" {
		raw = payload.ID
	}
	if raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

func firstValue(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func parseCoordinate(value any, min, max float64, name string) (*float64, error) {
	if value == nil {
		return nil, nil
	}

	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not a number", models.ErrInvalidLocation, name)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not a number", models.ErrInvalidLocation, name)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("%w: %s has unsupported type %T", models.ErrInvalidLocation, name, value)
	}

	if f < min || f > max {
		return nil, fmt.Errorf("%w: %s out of range", models.ErrInvalidLocation, name)
	}
	return &f, nil
}

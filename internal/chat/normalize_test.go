package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guideops/chat-core/internal/models"
)

func TestNormalizeStampsServerFields(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	msg, err := normalizeAt("5", "u1", models.RawPayload{Text: "  hi  "}, now)
	require.NoError(t, err)

	assert.Equal(t, "5", msg.RoomID)
	assert.Equal(t, "u1", msg.AuthorID)
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, int64(1700000000000), msg.TsMs)
	assert.Equal(t, models.KindMessage, msg.Kind)
	assert.Equal(t, models.SchemaVersion, msg.Version)
	assert.Empty(t, msg.ID)

	// a generated client id must still be a valid UUID
	_, err = uuid.Parse(msg.ClientMessageID)
	assert.NoError(t, err)
}

func TestNormalizeEmptyText(t *testing.T) {
	_, err := Normalize("5", "u1", models.RawPayload{Text: "   "})
	assert.ErrorIs(t, err, models.ErrEmptyMessage)

	_, err = Normalize("5", "u1", models.RawPayload{})
	assert.ErrorIs(t, err, models.ErrEmptyMessage)
}

func TestNormalizeTextAliases(t *testing.T) {
	msg, err := Normalize("5", "u1", models.RawPayload{Message: "legacy field"})
	require.NoError(t, err)
	assert.Equal(t, "legacy field", msg.Text)

	// "text" wins over "message" when both are present
	msg, err = Normalize("5", "u1", models.RawPayload{Text: "new", Message: "old"})
	require.NoError(t, err)
	assert.Equal(t, "new", msg.Text)
}

func TestNormalizeClientMessageID(t *testing.T) {
	id := "A1CE2D9B-96B0-4D4E-9B54-2C2A1F0A5E55"
	msg, err := Normalize("5", "u1", models.RawPayload{Text: "hi", MessageID: id})
	require.NoError(t, err)
	// canonical lowercase form
	assert.Equal(t, "a1ce2d9b-96b0-4d4e-9b54-2c2a1f0a5e55", msg.ClientMessageID)

	// legacy "id" field
	msg, err = Normalize("5", "u1", models.RawPayload{Text: "hi", ID: id})
	require.NoError(t, err)
	assert.Equal(t, "a1ce2d9b-96b0-4d4e-9b54-2c2a1f0a5e55", msg.ClientMessageID)

	// malformed client id falls back to generation, never errors
	msg, err = Normalize("5", "u1", models.RawPayload{Text: "hi", MessageID: "not-a-uuid"})
	require.NoError(t, err)
	_, err = uuid.Parse(msg.ClientMessageID)
	assert.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", msg.ClientMessageID)
}

func TestNormalizeLocation(t *testing.T) {
	msg, err := Normalize("5", "u1", models.RawPayload{Text: "hi", Lat: 45.0, Long: -122.5})
	require.NoError(t, err)
	require.NotNil(t, msg.Lat)
	require.NotNil(t, msg.Long)
	assert.Equal(t, 45.0, *msg.Lat)
	assert.Equal(t, -122.5, *msg.Long)

	// absent coordinates stay nil without error
	msg, err = Normalize("5", "u1", models.RawPayload{Text: "hi"})
	require.NoError(t, err)
	assert.Nil(t, msg.Lat)
	assert.Nil(t, msg.Long)

	// string coordinates are tolerated
	msg, err = Normalize("5", "u1", models.RawPayload{Text: "hi", Latitude: "10.5", Longitude: "20"})
	require.NoError(t, err)
	assert.Equal(t, 10.5, *msg.Lat)
	assert.Equal(t, 20.0, *msg.Long)

	for _, tc := range []models.RawPayload{
		{Text: "hi", Lat: 95.0},
		{Text: "hi", Lat: -90.1},
		{Text: "hi", Long: 181.0},
		{Text: "hi", Long: "east"},
		{Text: "hi", Lat: true},
	} {
		_, err := Normalize("5", "u1", tc)
		assert.ErrorIs(t, err, models.ErrInvalidLocation)
	}

	// location failure is independent of valid text, and vice versa
	_, err = Normalize("5", "u1", models.RawPayload{Text: " ", Lat: 45.0})
	assert.ErrorIs(t, err, models.ErrEmptyMessage)
}

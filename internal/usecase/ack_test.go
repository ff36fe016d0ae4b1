package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcknowledgeAdvancesForward(t *testing.T) {
	cursors := newFakeCursors()
	uc := NewAckUsecase(cursors)

	accepted, ignored, err := uc.Acknowledge(context.Background(), "alice", map[string]string{
		"general": "100-0",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)
	assert.Zero(t, ignored)

	got, err := cursors.Get(context.Background(), "alice", "general")
	require.NoError(t, err)
	assert.Equal(t, "100-0", got)
}

func TestAcknowledgeIgnoresBackwardAndEqual(t *testing.T) {
	cursors := newFakeCursors()
	cursors.set("alice", "general", "100-0")
	uc := NewAckUsecase(cursors)

	// Older than the cursor: ignored, cursor untouched.
	accepted, ignored, err := uc.Acknowledge(context.Background(), "alice", map[string]string{
		"general": "50-0",
	})
	require.NoError(t, err)
	assert.Zero(t, accepted)
	assert.Equal(t, 1, ignored)

	// Strictly newer: advances.
	accepted, ignored, err = uc.Acknowledge(context.Background(), "alice", map[string]string{
		"general": "150-0",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)
	assert.Zero(t, ignored)

	// Replay of the same ack: ignored.
	accepted, ignored, err = uc.Acknowledge(context.Background(), "alice", map[string]string{
		"general": "150-0",
	})
	require.NoError(t, err)
	assert.Zero(t, accepted)
	assert.Equal(t, 1, ignored)

	got, err := cursors.Get(context.Background(), "alice", "general")
	require.NoError(t, err)
	assert.Equal(t, "150-0", got)
}

func TestAcknowledgeComparesNumerically(t *testing.T) {
	cursors := newFakeCursors()
	cursors.set("alice", "general", "9-0")
	uc := NewAckUsecase(cursors)

	// "10-0" sorts before "9-0" as a string but is newer as an id.
	accepted, _, err := uc.Acknowledge(context.Background(), "alice", map[string]string{
		"general": "10-0",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)
}

func TestAcknowledgeIgnoresMalformedIDs(t *testing.T) {
	cursors := newFakeCursors()
	uc := NewAckUsecase(cursors)

	accepted, ignored, err := uc.Acknowledge(context.Background(), "alice", map[string]string{
		"general": "not-an-id",
		"random":  "200-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, ignored)

	got, err := cursors.Get(context.Background(), "alice", "general")
	require.NoError(t, err)
	assert.Empty(t, got)
}

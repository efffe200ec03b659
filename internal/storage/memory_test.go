package storage

import (
	"context"
	"testing"

	"github.com/parlor-games/session-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(room string, ts int64, text string) domain.MessageRecord {
	return domain.MessageRecord{
		ID:        text,
		RoomAddr:  room,
		Identity:  "alice",
		Text:      text,
		Kind:      domain.KindChat,
		Timestamp: ts,
	}
}

func TestMemory_RecentMessagesOldestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// appended out of order on purpose
	require.NoError(t, m.AppendMessage(ctx, rec("r1", 30, "three")))
	require.NoError(t, m.AppendMessage(ctx, rec("r1", 10, "one")))
	require.NoError(t, m.AppendMessage(ctx, rec("r1", 20, "two")))
	require.NoError(t, m.AppendMessage(ctx, rec("r2", 5, "elsewhere")))

	got, err := m.RecentMessages(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].Text)
	assert.Equal(t, "two", got[1].Text)
	assert.Equal(t, "three", got[2].Text)
}

func TestMemory_LimitKeepsNewest(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, m.AppendMessage(ctx, rec("r1", i*10, "")))
	}

	got, err := m.RecentMessages(ctx, "r1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(40), got[0].Timestamp)
	assert.Equal(t, int64(50), got[1].Timestamp)
}

func TestMemory_EmptyRoom(t *testing.T) {
	m := NewMemory()
	got, err := m.RecentMessages(context.Background(), "nowhere", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_Snapshots(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.LoadSnapshot(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)

	snap := domain.Snapshot{
		Ver:           domain.SnapshotVer,
		Addr:          "r1",
		LastTimestamp: 42,
		Scores:        map[string]int{"alice": 3},
		Game:          domain.GameState{Mode: domain.ModeActive, Participants: []string{"alice", "bob"}},
	}
	require.NoError(t, m.SaveSnapshot(ctx, snap))

	got, err := m.LoadSnapshot(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

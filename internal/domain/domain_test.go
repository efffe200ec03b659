package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTimestamp_Monotonic(t *testing.T) {
	r := NewRoomState("r1")

	assert.Equal(t, int64(100), r.NextTimestamp(100))
	// wall clock stalls: still strictly increasing
	assert.Equal(t, int64(101), r.NextTimestamp(100))
	// wall clock jumps backwards
	assert.Equal(t, int64(102), r.NextTimestamp(50))
	// wall clock moves on
	assert.Equal(t, int64(500), r.NextTimestamp(500))
}

func TestTSKey_LexicographicOrderMatchesNumeric(t *testing.T) {
	small := MessageRecord{Timestamp: 999}
	large := MessageRecord{Timestamp: 1000}
	assert.Less(t, small.TSKey(), large.TSKey())
	assert.Len(t, small.TSKey(), 20)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	r := NewRoomState("r1")
	r.LastTimestamp = 77
	r.Scores["alice"] = 2
	r.Game = GameState{
		Mode:         ModeActive,
		Participants: []string{"alice", "bob"},
		TurnIndex:    1,
		Initiator:    "alice",
		Content:      "lighthouse",
		Overlay:      true,
		Questions:    3,
	}

	data, err := SnapshotOf(r).Marshal()
	require.NoError(t, err)
	snap, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	restored := snap.Restore()
	assert.Equal(t, r.Addr, restored.Addr)
	assert.Equal(t, r.LastTimestamp, restored.LastTimestamp)
	assert.Equal(t, r.Scores, restored.Scores)
	assert.Equal(t, r.Game, restored.Game)
}

func TestSnapshot_IsolatedFromLiveState(t *testing.T) {
	r := NewRoomState("r1")
	r.Scores["alice"] = 1
	r.Game.Participants = []string{"alice"}

	snap := SnapshotOf(r)
	r.Scores["alice"] = 9
	r.Game.Participants[0] = "mallory"

	assert.Equal(t, 1, snap.Scores["alice"])
	assert.Equal(t, "alice", snap.Game.Participants[0])
}

func TestConfirmationTicket_Quorum(t *testing.T) {
	tk := &ConfirmationTicket{
		Initiator:    "alice",
		Participants: []string{"alice", "bob", "carol"},
		Confirmed:    map[string]bool{},
	}

	assert.True(t, tk.Invited("bob"))
	assert.False(t, tk.Invited("mallory"))

	assert.False(t, tk.Quorum())
	tk.Confirmed["bob"] = true
	assert.False(t, tk.Quorum())
	tk.Confirmed["carol"] = true
	assert.True(t, tk.Quorum())
}

func TestCurrentPlayer(t *testing.T) {
	g := GameState{Mode: ModeIdle}
	assert.Empty(t, g.CurrentPlayer())

	g = GameState{Mode: ModeActive, Participants: []string{"a", "b"}, TurnIndex: 1}
	assert.Equal(t, "b", g.CurrentPlayer())
}

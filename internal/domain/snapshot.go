package domain

import "encoding/json"

// Snapshot is the serialized projection of a room written after every
// state-changing transition and read once on coordinator activation.
type Snapshot struct {
	Ver           int            `json:"ver"`
	Addr          string         `json:"addr"`
	LastTimestamp int64          `json:"last_ts"`
	Scores        map[string]int `json:"scores"`
	Game          GameState      `json:"game"`
}

const SnapshotVer = 1

// SnapshotOf projects the room state into its persisted form.
func SnapshotOf(r *RoomState) Snapshot {
	scores := make(map[string]int, len(r.Scores))
	for k, v := range r.Scores {
		scores[k] = v
	}
	game := r.Game
	game.Participants = append([]string(nil), r.Game.Participants...)
	return Snapshot{
		Ver:           SnapshotVer,
		Addr:          r.Addr,
		LastTimestamp: r.LastTimestamp,
		Scores:        scores,
		Game:          game,
	}
}

// Restore rebuilds room state from a snapshot.
func (s Snapshot) Restore() *RoomState {
	r := NewRoomState(s.Addr)
	r.LastTimestamp = s.LastTimestamp
	for k, v := range s.Scores {
		r.Scores[k] = v
	}
	r.Game = s.Game
	if r.Game.Mode == "" {
		r.Game.Mode = ModeIdle
	}
	return r
}

func (s Snapshot) Marshal() ([]byte, error) { return json.Marshal(s) }

func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(data, &s)
	return s, err
}

package domain

// RoomState is everything one coordinator owns for its room. It is mutated
// only from the coordinator goroutine.
type RoomState struct {
	Addr          string         `json:"addr"`
	LastTimestamp int64          `json:"last_ts"` // room-monotonic, unix nanos
	Scores        map[string]int `json:"scores"`
	Game          GameState      `json:"game"`
}

// NewRoomState returns an empty room at the given address.
func NewRoomState(addr string) *RoomState {
	return &RoomState{
		Addr:   addr,
		Scores: make(map[string]int),
		Game:   GameState{Mode: ModeIdle},
	}
}

// NextTimestamp returns a timestamp strictly greater than every one handed
// out before, even if the wall clock stalls or jumps backwards.
func (r *RoomState) NextTimestamp(now int64) int64 {
	if now <= r.LastTimestamp {
		now = r.LastTimestamp + 1
	}
	r.LastTimestamp = now
	return now
}

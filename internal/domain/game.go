package domain

import "time"

// GameMode is the coordinator state machine position.
type GameMode string

const (
	ModeIdle    GameMode = "idle"
	ModePending GameMode = "pending"
	ModeActive  GameMode = "active"
	ModeEnded   GameMode = "ended"
)

// GameState is the per-room turn game. Participants is frozen once the
// mode is Active; TurnIndex is always a valid index into it.
type GameState struct {
	Mode         GameMode `json:"mode"`
	Participants []string `json:"participants,omitempty"`
	TurnIndex    int      `json:"turn_index"`
	Initiator    string   `json:"initiator,omitempty"`
	Content      string   `json:"content,omitempty"` // selected puzzle reference
	Overlay      bool     `json:"overlay"`           // AI narration attached
	Questions    int      `json:"questions"`         // overlay questions asked
}

// CurrentPlayer returns the identity whose turn it is, or "" outside Active.
func (g *GameState) CurrentPlayer() string {
	if g.Mode != ModeActive || g.TurnIndex >= len(g.Participants) {
		return ""
	}
	return g.Participants[g.TurnIndex]
}

// ConfirmationTicket tracks one pending start request. The participant list
// is captured when the request is made and never recounted afterwards.
type ConfirmationTicket struct {
	Initiator    string
	Participants []string // frozen, includes the initiator
	Confirmed    map[string]bool
	Generation   uint64 // matches expiry timers to the ticket they guard
	OpenedAt     time.Time
}

// Quorum reports whether every invited participant except the initiator
// has accepted.
func (t *ConfirmationTicket) Quorum() bool {
	return len(t.Confirmed) == len(t.Participants)-1
}

// Invited reports whether id is on the frozen list.
func (t *ConfirmationTicket) Invited(id string) bool {
	for _, p := range t.Participants {
		if p == id {
			return true
		}
	}
	return false
}

package domain

import "fmt"

// MessageKind marks how a persisted record was produced.
type MessageKind string

const (
	KindChat       MessageKind = "chat"
	KindGameTurn   MessageKind = "turn"
	KindAIQuestion MessageKind = "ai_question"
)

// MessageRecord is one persisted room message. Timestamp is strictly
// increasing within a room, so TSKey sorts records in delivery order.
type MessageRecord struct {
	ID        string      `json:"id"`
	RoomAddr  string      `json:"room_addr"`
	Identity  string      `json:"identity"`
	Text      string      `json:"text"`
	Kind      MessageKind `json:"kind"`
	Timestamp int64       `json:"ts"` // unix nanos, room-monotonic
}

// TSKey renders the timestamp as a zero-padded decimal so that
// lexicographic order equals numeric order.
func (m MessageRecord) TSKey() string {
	return fmt.Sprintf("%020d", m.Timestamp)
}

package storage

import (
	"context"

	"github.com/parlor-games/session-service/internal/domain"
)

// Store is the persistence boundary of a room coordinator: an ordered
// message log plus one snapshot slot per room.
type Store interface {
	// AppendMessage writes one record under its timestamp-derived key.
	AppendMessage(ctx context.Context, rec domain.MessageRecord) error
	// RecentMessages returns up to limit of the newest records, oldest first.
	RecentMessages(ctx context.Context, roomAddr string, limit int) ([]domain.MessageRecord, error)
	// SaveSnapshot overwrites the room's snapshot slot.
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) error
	// LoadSnapshot returns domain.ErrNoSnapshot when the slot is empty.
	LoadSnapshot(ctx context.Context, roomAddr string) (domain.Snapshot, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/parlor-games/session-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres persistence backend. Messages are keyed by
// (room_addr, ts_key) where ts_key is the zero-padded timestamp, so a
// lexicographic range scan reads the backlog in order.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) AppendMessage(ctx context.Context, rec domain.MessageRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO room_messages (room_addr, ts_key, id, identity, text, kind)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_addr, ts_key) DO NOTHING
	`, rec.RoomAddr, rec.TSKey(), rec.ID, rec.Identity, rec.Text, string(rec.Kind))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, roomAddr string, limit int) ([]domain.MessageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, identity, text, kind, ts_key
		FROM room_messages
		WHERE room_addr = $1
		ORDER BY ts_key DESC
		LIMIT $2
	`, roomAddr, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MessageRecord
	for rows.Next() {
		var (
			rec   domain.MessageRecord
			kind  string
			tsKey string
		)
		if err := rows.Scan(&rec.ID, &rec.Identity, &rec.Text, &kind, &tsKey); err != nil {
			return nil, err
		}
		rec.RoomAddr = roomAddr
		rec.Kind = domain.MessageKind(kind)
		fmt.Sscanf(tsKey, "%d", &rec.Timestamp)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest-first from the index, oldest-first to the caller
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO room_snapshots (room_addr, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (room_addr) DO UPDATE SET state = EXCLUDED.state, updated_at = now()
	`, snap.Addr, data)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context, roomAddr string) (domain.Snapshot, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT state FROM room_snapshots WHERE room_addr = $1`, roomAddr).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, domain.ErrNoSnapshot
		}
		return domain.Snapshot{}, err
	}
	return domain.UnmarshalSnapshot(data)
}

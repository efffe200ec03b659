package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/parlor-games/session-service/internal/domain"
)

// Memory is the in-process Store used when no postgres DSN is configured,
// and by tests. Keys and ordering match the Postgres implementation.
type Memory struct {
	mu        sync.RWMutex
	messages  map[string]map[string]domain.MessageRecord // roomAddr -> tsKey -> record
	snapshots map[string]domain.Snapshot
}

func NewMemory() *Memory {
	return &Memory{
		messages:  make(map[string]map[string]domain.MessageRecord),
		snapshots: make(map[string]domain.Snapshot),
	}
}

func (m *Memory) AppendMessage(_ context.Context, rec domain.MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log, ok := m.messages[rec.RoomAddr]
	if !ok {
		log = make(map[string]domain.MessageRecord)
		m.messages[rec.RoomAddr] = log
	}
	log[rec.TSKey()] = rec
	return nil
}

func (m *Memory) RecentMessages(_ context.Context, roomAddr string, limit int) ([]domain.MessageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.messages[roomAddr]
	keys := make([]string, 0, len(log))
	for k := range log {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}
	out := make([]domain.MessageRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, log[k])
	}
	return out, nil
}

func (m *Memory) SaveSnapshot(_ context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.Addr] = snap
	return nil
}

func (m *Memory) LoadSnapshot(_ context.Context, roomAddr string) (domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[roomAddr]
	if !ok {
		return domain.Snapshot{}, domain.ErrNoSnapshot
	}
	return snap, nil
}

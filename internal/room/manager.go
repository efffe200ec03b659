package room

import (
	"context"
	"sync"

	"github.com/parlor-games/session-service/internal/narrator"
	"github.com/parlor-games/session-service/internal/storage"
)

// Manager keys live coordinators by resolved room address. Activation is
// lazy: the first connection (or control-plane call) for an address loads
// the snapshot and starts the loop.
type Manager struct {
	store storage.Store
	narr  narrator.Client
	cfg   Config

	mu    sync.Mutex
	rooms map[string]*Coordinator
}

func NewManager(store storage.Store, narr narrator.Client, cfg Config) *Manager {
	return &Manager{
		store: store,
		narr:  narr,
		cfg:   cfg,
		rooms: make(map[string]*Coordinator),
	}
}

// Get returns the live coordinator for addr, activating one if needed.
func (m *Manager) Get(ctx context.Context, addr string) (*Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.rooms[addr]; ok {
		return c, nil
	}
	c, err := NewCoordinator(ctx, addr, m.store, m.narr, m.cfg)
	if err != nil {
		return nil, err
	}
	m.rooms[addr] = c
	return c, nil
}

// Shutdown stops every coordinator, letting each persist a final snapshot.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	rooms := make([]*Coordinator, 0, len(m.rooms))
	for _, c := range m.rooms {
		rooms = append(rooms, c)
	}
	m.rooms = make(map[string]*Coordinator)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range rooms {
		wg.Add(1)
		go func(c *Coordinator) {
			defer wg.Done()
			c.Shutdown(ctx)
		}(c)
	}
	wg.Wait()
}

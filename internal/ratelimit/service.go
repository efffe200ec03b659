package ratelimit

import (
	"sync"
	"time"
)

// Options tune the shared limiter behaviour. One unit is booked per action;
// the grace window is the burst a fresh key may spend before throttling
// engages.
type Options struct {
	Unit      time.Duration
	Grace     time.Duration
	IdleAfter time.Duration
	Clock     func() time.Time
}

func (o *Options) defaults() {
	if o.Unit <= 0 {
		o.Unit = time.Second
	}
	if o.Grace <= 0 {
		o.Grace = 3 * time.Second
	}
	if o.IdleAfter <= 0 {
		o.IdleAfter = 5 * time.Minute
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Service hands out actor references by key. The key space is shared by all
// rooms (typically the source address), but each key has its own actor, so
// rooms only contend when they share a key.
type Service struct {
	mu     sync.Mutex
	actors map[string]*Actor
	opts   Options
}

func NewService(opts Options) *Service {
	opts.defaults()
	return &Service{
		actors: make(map[string]*Actor),
		opts:   opts,
	}
}

// Ref returns a live actor for the key, respawning one that idled out.
func (s *Service) Ref(key string) *Actor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.actors[key]; ok && !a.stopped() {
		return a
	}
	a := newActor(key, s.opts.Unit, s.opts.Grace, s.opts.IdleAfter, s.opts.Clock)
	s.actors[key] = a
	return a
}

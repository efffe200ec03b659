package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// Proxy is the per-connection side of the limiter. Allow is optimistic: it
// answers immediately and books the action against the key's actor in the
// background; a positive wait from the actor flips the connection into
// cooldown until the wait elapses.
type Proxy struct {
	key     string
	svc     *Service
	onFatal func(error)

	mu  sync.Mutex
	ref *Actor

	inCooldown atomic.Bool
	sleep      func(time.Duration)
}

// NewProxy binds a proxy to its key. onFatal fires when the actor reference
// cannot be rebuilt; the owning connection treats that as a fatal error.
func NewProxy(svc *Service, key string, onFatal func(error)) *Proxy {
	return &Proxy{
		key:     key,
		svc:     svc,
		onFatal: onFatal,
		ref:     svc.Ref(key),
		sleep:   time.Sleep,
	}
}

// Allow reports whether the next action may proceed. False while cooling
// down; otherwise true, with the consume issued asynchronously so the hot
// path never blocks on the actor.
func (p *Proxy) Allow() bool {
	if p.inCooldown.Load() {
		return false
	}
	go p.consume()
	return true
}

func (p *Proxy) consume() {
	wait, err := p.currentRef().Consume()
	if err != nil {
		// stale reference: rebuild once and retry
		wait, err = p.rebuildRef().Consume()
		if err != nil {
			if p.onFatal != nil {
				p.onFatal(err)
			}
			return
		}
	}
	if wait > 0 {
		p.inCooldown.Store(true)
		p.sleep(wait)
		p.inCooldown.Store(false)
	}
}

func (p *Proxy) currentRef() *Actor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ref
}

func (p *Proxy) rebuildRef() *Actor {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ref = p.svc.Ref(p.key)
	return p.ref
}

// Key identifies the rate-limit bucket this proxy is bound to. It is part
// of the session descriptor, so a resumed connection rebinds to the same
// bucket.
func (p *Proxy) Key() string { return p.key }

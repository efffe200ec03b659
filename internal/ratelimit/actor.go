package ratelimit

import (
	"time"

	"github.com/parlor-games/session-service/internal/domain"
)

type consumeReq struct {
	reply chan time.Duration
}

// Actor owns the single next-allowed-time scalar for one rate-limit key.
// All consume calls for the key are serialized through its inbox, so the
// cooldown it hands out never goes backwards. An actor that sits idle for
// idleAfter stops itself; callers observe that as a closed reply channel
// and rebuild the reference through the Service.
type Actor struct {
	key   string
	inbox chan consumeReq
	done  chan struct{}

	unit      time.Duration
	grace     time.Duration
	idleAfter time.Duration
	clock     func() time.Time
}

func newActor(key string, unit, grace, idleAfter time.Duration, clock func() time.Time) *Actor {
	a := &Actor{
		key:       key,
		inbox:     make(chan consumeReq, 16),
		done:      make(chan struct{}),
		unit:      unit,
		grace:     grace,
		idleAfter: idleAfter,
		clock:     clock,
	}
	go a.run()
	return a
}

func (a *Actor) run() {
	var nextAllowed time.Time

	idle := time.NewTimer(a.idleAfter)
	defer idle.Stop()

	for {
		select {
		case req := <-a.inbox:
			now := a.clock()
			if nextAllowed.Before(now) {
				nextAllowed = now
			}
			nextAllowed = nextAllowed.Add(a.unit)

			wait := nextAllowed.Sub(now) - a.grace
			if wait < 0 {
				wait = 0
			}
			req.reply <- wait

			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(a.idleAfter)

		case <-idle.C:
			close(a.done)
			// unblock anyone who won the race against shutdown
			for {
				select {
				case req := <-a.inbox:
					close(req.reply)
				default:
					return
				}
			}
		}
	}
}

// Consume books one action and returns how long the caller must cool down.
// Returns domain.ErrActorStopped once the actor has shut down; the caller
// is expected to fetch a fresh reference and retry.
func (a *Actor) Consume() (time.Duration, error) {
	req := consumeReq{reply: make(chan time.Duration, 1)}
	select {
	case a.inbox <- req:
	case <-a.done:
		return 0, domain.ErrActorStopped
	}
	select {
	case wait, ok := <-req.reply:
		if !ok {
			return 0, domain.ErrActorStopped
		}
		return wait, nil
	case <-a.done:
		// the reply may have raced in just before shutdown
		select {
		case wait, ok := <-req.reply:
			if ok {
				return wait, nil
			}
		default:
		}
		return 0, domain.ErrActorStopped
	}
}

func (a *Actor) stopped() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

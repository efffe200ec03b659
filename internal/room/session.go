package room

import (
	"github.com/parlor-games/session-service/internal/ratelimit"
	"github.com/parlor-games/session-service/internal/transport/proto"
)

// Conn is the transport attachment a session owns. The websocket layer
// implements it; tests use in-memory fakes.
type Conn interface {
	Send(env proto.Envelope) error
	Close() error
}

// Descriptor is the connection-attached metadata that must survive a
// suspended connection: everything needed to rebuild the session without
// any in-memory table. Serialized next to the connection handle.
type Descriptor struct {
	Ver      int    `json:"ver"`
	Identity string `json:"identity,omitempty"`
	LimitKey string `json:"limit_key"`
}

const DescriptorVer = 1

// Session is one live connection inside a room. Owned exclusively by the
// coordinator; no field is touched off its goroutine.
type Session struct {
	conn    Conn
	limiter *ratelimit.Proxy

	identity string // empty until the claim arrives
	pending  []proto.Envelope
	quit     bool
	notified bool // quit announcement already emitted for this session
}

// NewSession wraps an accepted connection. identity is non-empty only on
// the resume path, when a descriptor restored it.
func NewSession(conn Conn, limiter *ratelimit.Proxy, identity string) *Session {
	return &Session{conn: conn, limiter: limiter, identity: identity}
}

// Limiter exposes the session's rate-limit proxy to the transport layer.
func (s *Session) Limiter() *ratelimit.Proxy { return s.limiter }

// Identity is the registered identity, or "" before the handshake.
func (s *Session) Identity() string { return s.identity }

// Descriptor snapshots the resume metadata for this session.
func (s *Session) Descriptor() Descriptor {
	key := ""
	if s.limiter != nil {
		key = s.limiter.Key()
	}
	return Descriptor{Ver: DescriptorVer, Identity: s.identity, LimitKey: key}
}

func (s *Session) handshaken() bool { return s.identity != "" }

// deliver sends to a handshaken session and queues for one that is not.
// Queued frames flush, in order, when the claim lands.
func (s *Session) deliver(env proto.Envelope) error {
	if s.quit {
		return nil
	}
	if !s.handshaken() {
		s.pending = append(s.pending, env)
		return nil
	}
	return s.conn.Send(env)
}

// push sends regardless of handshake state; used for error notices and
// other frames addressed to this session alone.
func (s *Session) push(env proto.Envelope) {
	if s.quit {
		return
	}
	_ = s.conn.Send(env)
}

package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parlor-games/session-service/internal/narrator"
	"github.com/parlor-games/session-service/internal/storage"
	"github.com/parlor-games/session-service/internal/transport/proto"

	"github.com/stretchr/testify/require"
)

// fakeConn records everything the coordinator sends to one session.
type fakeConn struct {
	mu     sync.Mutex
	envs   []proto.Envelope
	fail   bool
	closed bool
}

func (f *fakeConn) Send(env proto.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errSendFailed
	}
	f.envs = append(f.envs, env)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var errSendFailed = errors.New("send failed")

func (f *fakeConn) typed(typ string) []proto.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []proto.Envelope
	for _, e := range f.envs {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeConn) count(typ string) int { return len(f.typed(typ)) }

func (f *fakeConn) last(t *testing.T, typ string, dst any) {
	t.Helper()
	envs := f.typed(typ)
	require.NotEmpty(t, envs, "no %s frame seen", typ)
	require.NoError(t, json.Unmarshal(envs[len(envs)-1].Payload, dst))
}

// fakeNarrator replies with a scripted verdict.
type fakeNarrator struct {
	mu       sync.Mutex
	verdict  narrator.Verdict
	err      error
	asked    []string
	contents []string
}

func (f *fakeNarrator) Ask(_ context.Context, question, content string) (narrator.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, question)
	f.contents = append(f.contents, content)
	return f.verdict, f.err
}

type testRoom struct {
	coord *Coordinator
	store *storage.Memory
	narr  *fakeNarrator
}

func newTestRoom(t *testing.T, cfg Config) *testRoom {
	t.Helper()
	store := storage.NewMemory()
	narr := &fakeNarrator{verdict: narrator.Verdict{Answer: "yes", Score: 5, Feedback: "warm", Progress: 10}}
	if cfg.ConfirmTimeout == 0 {
		cfg.ConfirmTimeout = time.Minute
	}
	if cfg.RevealDelay == 0 {
		cfg.RevealDelay = time.Millisecond
	}
	coord, err := NewCoordinator(context.Background(), "test-room-addr", store, narr, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		coord.Shutdown(ctx)
	})
	return &testRoom{coord: coord, store: store, narr: narr}
}

// barrier waits until every event posted before it has been handled.
func (r *testRoom) barrier(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.coord.Info(ctx)
}

// join attaches a connection and completes its handshake.
func (r *testRoom) join(t *testing.T, identity string) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	sess := NewSession(conn, nil, "")
	r.coord.Attach(sess)
	r.send(sess, proto.TypeClaim, proto.ClaimPayload{Identity: identity})
	r.barrier(t)
	return sess, conn
}

// attach adds a connection without claiming an identity.
func (r *testRoom) attach(t *testing.T) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	sess := NewSession(conn, nil, "")
	r.coord.Attach(sess)
	r.barrier(t)
	return sess, conn
}

func (r *testRoom) send(sess *Session, typ string, payload any) {
	r.coord.Deliver(sess, proto.MustEnvelope(typ, payload))
}

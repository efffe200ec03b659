package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parlor-games/session-service/internal/domain"
	"github.com/parlor-games/session-service/internal/narrator"
	"github.com/parlor-games/session-service/internal/storage"
	"github.com/parlor-games/session-service/internal/transport/proto"
)

const maxIdentityLen = 32

// Config tunes a coordinator. Zero values pick the defaults below.
type Config struct {
	BacklogSize     int
	ConfirmTimeout  time.Duration
	RevealDelay     time.Duration
	SolvedThreshold int
	StoreTimeout    time.Duration
	NarratorTimeout time.Duration
}

func (c *Config) defaults() {
	if c.BacklogSize <= 0 {
		c.BacklogSize = 50
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 30 * time.Second
	}
	if c.RevealDelay <= 0 {
		c.RevealDelay = 1200 * time.Millisecond
	}
	if c.SolvedThreshold <= 0 {
		c.SolvedThreshold = 80
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.NarratorTimeout <= 0 {
		c.NarratorTimeout = 60 * time.Second
	}
}

// Info is the control-plane view of a live room.
type Info struct {
	Occupancy int             `json:"occupancy"`
	Mode      domain.GameMode `json:"mode"`
}

// Coordinator is the sequential owner of one room. Every event (joins,
// leaves, inbound frames, timers, narrator verdicts) funnels through one
// inbox and is handled on one goroutine, which is the whole mutual
// exclusion story.
type Coordinator struct {
	addr  string
	cfg   Config
	store storage.Store
	narr  narrator.Client

	inbox chan event
	stop  chan struct{}
	done  chan struct{}

	// below: coordinator-goroutine state only
	state    *domain.RoomState
	sessions []*Session
	ticket   *domain.ConfirmationTicket
	tickets  uint64 // ticket generation counter
	epoch    uint64 // bumps on Active/Ended, pins async work to its game
	awaiting bool   // overlay verdict in flight, turn input held
	reveals  []*delayedTask
}

// NewCoordinator restores the room from its snapshot (if any) before any
// session traffic is accepted, then starts the event loop.
func NewCoordinator(ctx context.Context, addr string, store storage.Store, narr narrator.Client, cfg Config) (*Coordinator, error) {
	cfg.defaults()
	c := &Coordinator{
		addr:  addr,
		cfg:   cfg,
		store: store,
		narr:  narr,
		inbox: make(chan event, 256),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	snap, err := store.LoadSnapshot(ctx, addr)
	switch {
	case err == nil:
		c.state = snap.Restore()
		slog.Info("room restored", "room", addr, "mode", c.state.Game.Mode)
	case errors.Is(err, domain.ErrNoSnapshot):
		c.state = domain.NewRoomState(addr)
	default:
		return nil, err
	}

	// a pending request cannot survive a restart: its timer is gone and its
	// sessions are gone, so fold it back to idle
	if c.state.Game.Mode == domain.ModePending {
		c.state.Game = domain.GameState{Mode: domain.ModeIdle}
	}

	go c.run()
	return c, nil
}

func (c *Coordinator) Addr() string { return c.addr }

// post enqueues an event, dropping it if the room already shut down.
func (c *Coordinator) post(ev event) {
	select {
	case c.inbox <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) Attach(sess *Session) { c.post(evAttach{sess: sess}) }
func (c *Coordinator) Detach(sess *Session) { c.post(evDetach{sess: sess}) }

func (c *Coordinator) Deliver(sess *Session, env proto.Envelope) {
	c.post(evInbound{sess: sess, env: env})
}

// Info answers the control-plane query on the coordinator goroutine.
func (c *Coordinator) Info(ctx context.Context) Info {
	reply := make(chan Info, 1)
	select {
	case c.inbox <- evInfo{reply: reply}:
	case <-ctx.Done():
		return Info{}
	case <-c.done:
		return Info{}
	}
	select {
	case info := <-reply:
		return info
	case <-ctx.Done():
		return Info{}
	}
}

// Shutdown persists a final snapshot and stops the loop.
func (c *Coordinator) Shutdown(ctx context.Context) {
	select {
	case <-c.done:
		return
	case c.stop <- struct{}{}:
	case <-ctx.Done():
		return
	}
	select {
	case <-c.done:
	case <-ctx.Done():
	}
}

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		select {
		case ev := <-c.inbox:
			c.dispatch(ev)
		case <-c.stop:
			c.persist()
			for _, s := range c.sessions {
				_ = s.conn.Close()
			}
			return
		}
	}
}

// dispatch is the top-level failure boundary: a panicking handler turns
// into an error notice for the sender and the room keeps its last
// persisted-consistent state.
func (c *Coordinator) dispatch(ev event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("room handler panic", "room", c.addr, "panic", r, "stack", string(debug.Stack()))
			if in, ok := ev.(evInbound); ok {
				c.notifyError(in.sess, "internal error")
			}
		}
	}()

	switch ev := ev.(type) {
	case evAttach:
		c.handleAttach(ev)
	case evDetach:
		c.handleDetach(ev)
	case evInbound:
		c.handleInbound(ev.sess, ev.env)
	case evScheduled:
		c.handleScheduled(ev)
	case evVerdict:
		c.handleVerdict(ev)
	case evInfo:
		ev.reply <- Info{Occupancy: len(c.identities()), Mode: c.state.Game.Mode}
	}
}

func (c *Coordinator) handleInbound(sess *Session, env proto.Envelope) {
	if env.Type == proto.TypeClaim {
		c.handleClaim(sess, env.Payload)
		return
	}
	if !sess.handshaken() {
		// nothing but setup traffic before the identity is registered
		c.notifyError(sess, "claim an identity first")
		return
	}

	switch env.Type {
	case proto.TypeChat:
		c.handleChat(sess, env.Payload)
	case proto.TypeGameInitiate:
		c.handleInitiate(sess)
	case proto.TypeGameConfirm:
		c.handleConfirm(sess, env.Payload)
	case proto.TypeGameTurn:
		c.handleTurn(sess, env.Payload)
	case proto.TypeGameEnd:
		c.handleGameEnd(sess)
	case proto.TypeContentSelect:
		c.handleContentSelect(sess, env.Payload)
	case proto.TypeOverlayInitiate:
		c.handleOverlayInitiate(sess)
	case proto.TypeOverlayEnd:
		c.handleOverlayEnd(sess)
	default:
		c.notifyError(sess, domain.ErrUnknownMessage.Error())
	}
}

func (c *Coordinator) handleClaim(sess *Session, payload json.RawMessage) {
	var p proto.ClaimPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.notifyError(sess, domain.ErrBadPayload.Error())
		return
	}
	name := strings.TrimSpace(p.Identity)
	if name == "" {
		c.notifyError(sess, domain.ErrBadPayload.Error())
		return
	}
	if len(name) > maxIdentityLen {
		// oversized claim is a protocol error and ends the connection
		c.notifyError(sess, domain.ErrIdentityTooLong.Error())
		c.removeSession(sess)
		return
	}
	if sess.handshaken() {
		return // claim is one-shot
	}
	sess.identity = name
	c.completeHandshake(sess)
}

func (c *Coordinator) handleChat(sess *Session, payload json.RawMessage) {
	var p proto.ChatInPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.notifyError(sess, domain.ErrBadPayload.Error())
		return
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return
	}

	rec := c.record(sess.identity, text, domain.KindChat)
	c.appendMessage(rec)
	c.broadcast(proto.MustEnvelope(proto.TypeChat, proto.ChatOutPayload{
		Identity: rec.Identity,
		Text:     rec.Text,
		Kind:     string(rec.Kind),
		MsgID:    rec.ID,
		TSUnix:   rec.Timestamp,
	}))
}

// record stamps a message with the room-monotonic timestamp.
func (c *Coordinator) record(identity, text string, kind domain.MessageKind) domain.MessageRecord {
	return domain.MessageRecord{
		ID:        uuid.NewString(),
		RoomAddr:  c.addr,
		Identity:  identity,
		Text:      text,
		Kind:      kind,
		Timestamp: c.state.NextTimestamp(time.Now().UnixNano()),
	}
}

func (c *Coordinator) appendMessage(rec domain.MessageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StoreTimeout)
	defer cancel()
	if err := c.store.AppendMessage(ctx, rec); err != nil {
		slog.Warn("append message failed", "room", c.addr, "err", err)
	}
}

// persist writes the snapshot. Transitions call it before the matching
// broadcast, so a reconnecting observer never sees un-persisted state.
func (c *Coordinator) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StoreTimeout)
	defer cancel()
	if err := c.store.SaveSnapshot(ctx, domain.SnapshotOf(c.state)); err != nil {
		slog.Error("snapshot write failed", "room", c.addr, "err", err)
	}
}

func (c *Coordinator) notifyError(sess *Session, msg string) {
	sess.push(proto.MustEnvelope(proto.TypeError, proto.ErrorPayload{Message: msg}))
}

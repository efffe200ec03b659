package room

import (
	"context"
	"log/slog"

	"github.com/parlor-games/session-service/internal/domain"
	"github.com/parlor-games/session-service/internal/transport/proto"
)

// Session registry: bookkeeping and fan-out for the room's live
// connections. Join order is preserved; it is what makes the authoritative
// participant list deterministic.

func (c *Coordinator) handleAttach(ev evAttach) {
	c.sessions = append(c.sessions, ev.sess)
	if ev.sess.handshaken() {
		// resumed connection: descriptor already carries the identity
		c.completeHandshake(ev.sess)
	}
}

func (c *Coordinator) handleDetach(ev evDetach) {
	c.removeSession(ev.sess)
	c.announceQuit(ev.sess)
}

func (c *Coordinator) removeSession(sess *Session) {
	for i, s := range c.sessions {
		if s == sess {
			c.sessions = append(c.sessions[:i], c.sessions[i+1:]...)
			break
		}
	}
	sess.quit = true
	_ = sess.conn.Close()
}

// announceQuit emits the leave notice exactly once per session, no matter
// how many paths observed the death.
func (c *Coordinator) announceQuit(sess *Session) {
	if sess.notified || !sess.handshaken() {
		return
	}
	sess.notified = true
	c.broadcast(proto.MustEnvelope(proto.TypeQuit, proto.PeerPayload{Identity: sess.identity}))
	slog.Debug("session left", "room", c.addr, "identity", sess.identity)
}

// broadcast fans out to every handshaken session and queues for the rest.
// Failed sends mark the session quit; removal and the leave announcement
// are deferred until after the iteration so the session set is never
// mutated mid-loop.
func (c *Coordinator) broadcast(env proto.Envelope) {
	var dead []*Session
	for _, s := range c.sessions {
		if err := s.deliver(env); err != nil {
			s.quit = true
			dead = append(dead, s)
		}
	}
	for _, s := range dead {
		c.removeSession(s)
	}
	for _, s := range dead {
		c.announceQuit(s)
	}
}

// broadcastExcept skips one session (typically the subject of the frame).
func (c *Coordinator) broadcastExcept(skip *Session, env proto.Envelope) {
	var dead []*Session
	for _, s := range c.sessions {
		if s == skip {
			continue
		}
		if err := s.deliver(env); err != nil {
			s.quit = true
			dead = append(dead, s)
		}
	}
	for _, s := range dead {
		c.removeSession(s)
	}
	for _, s := range dead {
		c.announceQuit(s)
	}
}

// identities lists handshaken sessions in join order.
func (c *Coordinator) identities() []string {
	out := make([]string, 0, len(c.sessions))
	for _, s := range c.sessions {
		if s.handshaken() {
			out = append(out, s.identity)
		}
	}
	return out
}

// completeHandshake runs the post-claim sequence: flush what queued during
// the handshake, replay the persisted backlog oldest-first, signal ready,
// announce the join, and resync the game if one is running.
func (c *Coordinator) completeHandshake(sess *Session) {
	queued := sess.pending
	sess.pending = nil
	for _, env := range queued {
		_ = sess.conn.Send(env)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StoreTimeout)
	backlog, err := c.store.RecentMessages(ctx, c.addr, c.cfg.BacklogSize)
	cancel()
	if err != nil {
		slog.Warn("backlog read failed", "room", c.addr, "err", err)
	}
	for _, rec := range backlog {
		sess.push(proto.MustEnvelope(proto.TypeChat, proto.ChatOutPayload{
			Identity: rec.Identity,
			Text:     rec.Text,
			Kind:     string(rec.Kind),
			MsgID:    rec.ID,
			TSUnix:   rec.Timestamp,
		}))
	}

	sess.push(proto.MustEnvelope(proto.TypeReady, nil))
	c.broadcastExcept(sess, proto.MustEnvelope(proto.TypeJoined, proto.PeerPayload{Identity: sess.identity}))

	if c.state.Game.Mode == domain.ModePending || c.state.Game.Mode == domain.ModeActive {
		sess.push(proto.MustEnvelope(proto.TypeStateResync, c.resyncPayload()))
	}
	slog.Info("session joined", "room", c.addr, "identity", sess.identity)
}

func (c *Coordinator) resyncPayload() proto.StateResyncPayload {
	g := c.state.Game
	return proto.StateResyncPayload{
		Mode:          string(g.Mode),
		Participants:  append([]string(nil), g.Participants...),
		TurnIndex:     g.TurnIndex,
		CurrentPlayer: g.CurrentPlayer(),
		Initiator:     g.Initiator,
		Scores:        c.state.Scores,
		Overlay:       g.Overlay,
		Content:       g.Content,
	}
}

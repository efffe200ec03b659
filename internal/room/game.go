package room

import (
	"encoding/json"
	"time"

	"github.com/parlor-games/session-service/internal/domain"
	"github.com/parlor-games/session-service/internal/transport/proto"
)

// Idle → PendingConfirmation. The coordinator computes the participant set
// itself from the registered sessions; nothing the requester sent is
// trusted. Exactly one ticket per initiator: a repeat while one is open is
// silently ignored.
func (c *Coordinator) handleInitiate(sess *Session) {
	if c.state.Game.Mode == domain.ModeActive {
		c.notifyError(sess, domain.ErrGameAlreadyActive.Error())
		return
	}
	if c.ticket != nil {
		if c.ticket.Initiator == sess.identity {
			return // duplicate request, ignore
		}
		c.notifyError(sess, domain.ErrGameAlreadyActive.Error())
		return
	}

	participants := c.identities()
	if len(participants) < 2 {
		c.notifyError(sess, domain.ErrTooFewParticipants.Error())
		return
	}

	c.tickets++
	c.ticket = &domain.ConfirmationTicket{
		Initiator:    sess.identity,
		Participants: participants,
		Confirmed:    make(map[string]bool),
		Generation:   c.tickets,
		OpenedAt:     time.Now(),
	}
	c.state.Game = domain.GameState{
		Mode:         domain.ModePending,
		Participants: participants,
		Initiator:    sess.identity,
	}

	c.persist()
	c.broadcast(proto.MustEnvelope(proto.TypeGameRequest, proto.GameRequestPayload{
		Initiator:    sess.identity,
		Participants: participants,
	}))

	gen := c.tickets
	c.schedule(c.cfg.ConfirmTimeout, func() { c.expireTicket(gen) })
}

// expireTicket runs on the coordinator goroutine. The generation check
// makes a stale timer a no-op: a ticket discarded and reopened in the
// meantime is a different ticket.
func (c *Coordinator) expireTicket(gen uint64) {
	if c.ticket == nil || c.ticket.Generation != gen {
		return
	}
	c.discardTicket()
	c.persist()
	c.broadcast(proto.MustEnvelope(proto.TypeError, proto.ErrorPayload{
		Message: "game request timed out",
	}))
}

func (c *Coordinator) discardTicket() {
	c.ticket = nil
	c.state.Game = domain.GameState{Mode: domain.ModeIdle}
}

// PendingConfirmation → Active, or back to Idle on any decline.
// Acceptance counts against the frozen list; one answer per participant.
func (c *Coordinator) handleConfirm(sess *Session, payload json.RawMessage) {
	var p proto.ConfirmPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.notifyError(sess, domain.ErrBadPayload.Error())
		return
	}
	if c.ticket == nil || c.state.Game.Mode != domain.ModePending {
		c.notifyError(sess, domain.ErrGameNotActive.Error())
		return
	}
	t := c.ticket
	if sess.identity == t.Initiator || !t.Invited(sess.identity) {
		c.notifyError(sess, domain.ErrNotInvited.Error())
		return
	}
	if t.Confirmed[sess.identity] {
		return // second answer from the same participant is ignored
	}

	if !p.Accept {
		// all-or-nothing: one decline cancels the whole request
		c.discardTicket()
		c.persist()
		c.broadcast(proto.MustEnvelope(proto.TypeGameOver, proto.GameOverPayload{
			Reason: "declined by " + sess.identity,
		}))
		return
	}

	t.Confirmed[sess.identity] = true
	c.broadcast(proto.MustEnvelope(proto.TypeGameConfirmEcho, proto.ConfirmEchoPayload{
		Identity: sess.identity,
		Accept:   true,
	}))

	if !t.Quorum() {
		return
	}

	// fires exactly once: the ticket is consumed on this transition
	participants := t.Participants
	c.ticket = nil
	c.epoch++
	c.state.Game = domain.GameState{
		Mode:         domain.ModeActive,
		Participants: participants,
		Initiator:    t.Initiator,
	}
	c.state.Scores = make(map[string]int, len(participants))
	for _, id := range participants {
		c.state.Scores[id] = 0
	}

	c.persist()
	c.broadcast(proto.MustEnvelope(proto.TypeGameStart, proto.GameStartPayload{
		Participants: participants,
		TurnIndex:    0,
		FirstPlayer:  participants[0],
	}))
}

// Active: only participants[turnIndex] may speak a turn. An accepted turn
// scores, rotates, persists, then broadcasts.
func (c *Coordinator) handleTurn(sess *Session, payload json.RawMessage) {
	var p proto.TurnPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.notifyError(sess, domain.ErrBadPayload.Error())
		return
	}
	g := &c.state.Game
	if g.Mode != domain.ModeActive {
		c.notifyError(sess, domain.ErrGameNotActive.Error())
		return
	}
	if g.CurrentPlayer() != sess.identity || c.awaiting {
		c.notifyError(sess, domain.ErrNotYourTurn.Error())
		return
	}

	if g.Overlay {
		c.handleOverlayTurn(sess, p.Text)
		return
	}

	rec := c.record(sess.identity, p.Text, domain.KindGameTurn)
	c.appendMessage(rec)

	c.state.Scores[sess.identity]++
	g.TurnIndex = (g.TurnIndex + 1) % len(g.Participants)

	c.persist()
	c.broadcast(proto.MustEnvelope(proto.TypeChat, proto.ChatOutPayload{
		Identity: rec.Identity,
		Text:     rec.Text,
		Kind:     string(rec.Kind),
		MsgID:    rec.ID,
		TSUnix:   rec.Timestamp,
	}))
	c.broadcast(proto.MustEnvelope(proto.TypeGameTurnChange, proto.TurnChangePayload{
		TurnIndex:  g.TurnIndex,
		NextPlayer: g.CurrentPlayer(),
	}))
}

// Active/Pending → Ended → Idle. Initiator only; the overlay, if attached,
// is torn down before the base game clears.
func (c *Coordinator) handleGameEnd(sess *Session) {
	g := &c.state.Game
	if g.Mode != domain.ModeActive && g.Mode != domain.ModePending {
		c.notifyError(sess, domain.ErrGameNotActive.Error())
		return
	}
	if g.Initiator != sess.identity {
		c.notifyError(sess, domain.ErrNotInitiator.Error())
		return
	}

	if g.Overlay {
		c.teardownOverlay()
	}
	c.endGame("ended by " + sess.identity)
}

// endGame clears the game state and folds back to Idle.
func (c *Coordinator) endGame(reason string) {
	scores := c.state.Scores
	c.ticket = nil
	c.epoch++
	c.awaiting = false
	c.state.Game = domain.GameState{Mode: domain.ModeIdle}
	c.state.Scores = make(map[string]int)

	c.persist()
	c.broadcast(proto.MustEnvelope(proto.TypeGameOver, proto.GameOverPayload{
		Scores: scores,
		Reason: reason,
	}))
}

// content_select: the initiator picks the puzzle the overlay will narrate.
func (c *Coordinator) handleContentSelect(sess *Session, payload json.RawMessage) {
	var p proto.ContentSelectPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.notifyError(sess, domain.ErrBadPayload.Error())
		return
	}
	g := &c.state.Game
	if g.Mode != domain.ModeActive {
		c.notifyError(sess, domain.ErrGameNotActive.Error())
		return
	}
	if g.Initiator != sess.identity {
		c.notifyError(sess, domain.ErrNotInitiator.Error())
		return
	}
	g.Content = p.Content
	c.persist()
}

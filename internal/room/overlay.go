package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/parlor-games/session-service/internal/domain"
	"github.com/parlor-games/session-service/internal/narrator"
	"github.com/parlor-games/session-service/internal/transport/proto"
)

// AI overlay: an optional sub-mode of Active where each turn's text is a
// question for the narration collaborator, whose reply replaces the local
// turn result.

func (c *Coordinator) handleOverlayInitiate(sess *Session) {
	g := &c.state.Game
	if g.Mode != domain.ModeActive {
		c.notifyError(sess, domain.ErrGameNotActive.Error())
		return
	}
	if g.Initiator != sess.identity {
		c.notifyError(sess, domain.ErrNotInitiator.Error())
		return
	}
	if g.Overlay {
		c.notifyError(sess, domain.ErrOverlayActive.Error())
		return
	}
	if g.Content == "" {
		c.notifyError(sess, domain.ErrNoContentSelected.Error())
		return
	}

	g.Overlay = true
	g.Questions = 0
	c.persist()
	c.broadcast(proto.MustEnvelope(proto.TypeOverlayStart, proto.OverlayStartPayload{
		Content:      g.Content,
		StartMessage: fmt.Sprintf("The narrator takes the stage. Ask about %q: yes, no, or unrelated.", g.Content),
	}))
}

func (c *Coordinator) handleOverlayEnd(sess *Session) {
	g := &c.state.Game
	if g.Mode != domain.ModeActive || !g.Overlay {
		c.notifyError(sess, domain.ErrGameNotActive.Error())
		return
	}
	if g.Initiator != sess.identity {
		c.notifyError(sess, domain.ErrNotInitiator.Error())
		return
	}

	stats := c.overlayStats()
	c.teardownOverlay()
	c.persist()
	c.broadcast(proto.MustEnvelope(proto.TypeOverlayOver, proto.OverlayOverPayload{Statistics: stats}))
}

// teardownOverlay releases overlay resources: pending reveals are
// cancelled and in-flight verdicts are orphaned via the epoch bump.
func (c *Coordinator) teardownOverlay() {
	for _, t := range c.reveals {
		t.cancel()
	}
	c.reveals = nil
	c.awaiting = false
	c.epoch++
	g := &c.state.Game
	g.Overlay = false
	g.Questions = 0
}

// handleOverlayTurn routes the turn text to the narrator without blocking
// the room: the call runs in its own goroutine and the verdict comes back
// through the inbox. Turn input is held until it lands.
func (c *Coordinator) handleOverlayTurn(sess *Session, question string) {
	rec := c.record(sess.identity, question, domain.KindAIQuestion)
	c.appendMessage(rec)

	c.awaiting = true
	epoch := c.epoch
	questioner := sess.identity
	content := c.state.Game.Content

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.NarratorTimeout)
		defer cancel()

		v, err := c.narr.Ask(ctx, question, content)
		if err != nil {
			// the collaborator is fallible by contract; the game goes on
			if !errors.Is(err, context.Canceled) {
				slog.Warn("narrator failed, using fallback", "room", c.addr, "err", err)
			}
			v = narrator.Fallback()
		}
		c.post(evVerdict{epoch: epoch, questioner: questioner, question: question, verdict: v})
	}()
}

func (c *Coordinator) handleVerdict(ev evVerdict) {
	if ev.epoch != c.epoch {
		return // verdict for a game that no longer exists
	}
	g := &c.state.Game
	if g.Mode != domain.ModeActive || !g.Overlay {
		return
	}

	c.awaiting = false
	g.Questions++
	c.state.Scores[ev.questioner] += ev.verdict.Score
	g.TurnIndex = (g.TurnIndex + 1) % len(g.Participants)

	solved := ev.verdict.Progress >= c.cfg.SolvedThreshold
	c.persist()

	reply := proto.MustEnvelope(proto.TypeOverlayReply, proto.OverlayReplyPayload{
		Questioner:       ev.questioner,
		Question:         ev.question,
		FormattedMessage: formatVerdict(ev.questioner, ev.question, ev.verdict),
		GameState: proto.OverlayGameState{
			Progress:  ev.verdict.Progress,
			Questions: g.Questions,
		},
	})

	// staged reveal: a deliberate beat between question and answer
	task := c.schedule(c.cfg.RevealDelay, func() {
		c.broadcast(reply)
		if solved {
			c.resolveSolved()
			return
		}
		c.broadcast(proto.MustEnvelope(proto.TypeGameTurnChange, proto.TurnChangePayload{
			TurnIndex:  c.state.Game.TurnIndex,
			NextPlayer: c.state.Game.CurrentPlayer(),
		}))
	})
	live := c.reveals[:0]
	for _, t := range c.reveals {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	c.reveals = append(live, task)
}

// resolveSolved force-ends the game once the narrator reports the puzzle
// cracked.
func (c *Coordinator) resolveSolved() {
	stats := c.overlayStats()
	content := c.state.Game.Content
	c.broadcast(proto.MustEnvelope(proto.TypeOverlaySolved, proto.OverlaySolvedPayload{
		EndMessage: fmt.Sprintf("Solved! The answer was %q.", content),
		Statistics: stats,
	}))
	c.teardownOverlay()
	c.endGame("solved")
}

func (c *Coordinator) overlayStats() proto.OverlayStatistics {
	scores := make(map[string]int, len(c.state.Scores))
	for k, v := range c.state.Scores {
		scores[k] = v
	}
	return proto.OverlayStatistics{Scores: scores, Questions: c.state.Game.Questions}
}

func formatVerdict(questioner, question string, v narrator.Verdict) string {
	msg := fmt.Sprintf("%s asked: %s. Answer: %s. %s", questioner, question, v.Answer, v.Feedback)
	if v.Hint != "" {
		msg += " Hint: " + v.Hint
	}
	return msg
}

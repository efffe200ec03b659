package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parlor-games/session-service/internal/domain"
	"github.com/parlor-games/session-service/internal/narrator"
	"github.com/parlor-games/session-service/internal/transport/proto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startOverlay(t *testing.T, r *testRoom, content string) (a, b, c *Session, ac, bc, cc *fakeConn) {
	t.Helper()
	a, b, c, ac, bc, cc = startActive(t, r)
	r.send(a, proto.TypeContentSelect, proto.ContentSelectPayload{Content: content})
	r.send(a, proto.TypeOverlayInitiate, nil)
	r.barrier(t)
	return
}

func TestOverlayInitiate_RequiresContentAndInitiator(t *testing.T) {
	r := newTestRoom(t, Config{})
	a, b, _, ac, bc, _ := startActive(t, r)

	r.send(a, proto.TypeOverlayInitiate, nil) // no content selected yet
	r.barrier(t)
	assert.Zero(t, ac.count(proto.TypeOverlayStart))
	assert.GreaterOrEqual(t, ac.count(proto.TypeError), 1)

	r.send(a, proto.TypeContentSelect, proto.ContentSelectPayload{Content: "lighthouse"})
	r.send(b, proto.TypeOverlayInitiate, nil) // not the initiator
	r.barrier(t)
	assert.Zero(t, bc.count(proto.TypeOverlayStart))

	r.send(a, proto.TypeOverlayInitiate, nil)
	r.barrier(t)

	var start proto.OverlayStartPayload
	bc.last(t, proto.TypeOverlayStart, &start)
	assert.Equal(t, "lighthouse", start.Content)
}

func TestOverlayTurn_VerdictRevealsThenRotates(t *testing.T) {
	r := newTestRoom(t, Config{})
	r.narr.verdict = narrator.Verdict{Answer: "yes", Score: 7, Feedback: "getting close", Progress: 40}
	a, _, _, _, bc, _ := startOverlay(t, r, "lighthouse")

	r.send(a, proto.TypeGameTurn, proto.TurnPayload{Text: "is it man-made?"})

	require.Eventually(t, func() bool {
		return bc.count(proto.TypeOverlayReply) == 1
	}, 2*time.Second, 5*time.Millisecond)

	var reply proto.OverlayReplyPayload
	bc.last(t, proto.TypeOverlayReply, &reply)
	assert.Equal(t, "alice", reply.Questioner)
	assert.Equal(t, "is it man-made?", reply.Question)
	assert.Equal(t, 40, reply.GameState.Progress)
	assert.Equal(t, 1, reply.GameState.Questions)
	assert.Contains(t, reply.FormattedMessage, "yes")

	require.Eventually(t, func() bool {
		return bc.count(proto.TypeGameTurnChange) == 1
	}, 2*time.Second, 5*time.Millisecond)
	var change proto.TurnChangePayload
	bc.last(t, proto.TypeGameTurnChange, &change)
	assert.Equal(t, "bob", change.NextPlayer)

	r.narr.mu.Lock()
	defer r.narr.mu.Unlock()
	require.Len(t, r.narr.contents, 1)
	assert.Equal(t, "lighthouse", r.narr.contents[0])
}

func TestOverlayTurn_SolvedEndsTheGame(t *testing.T) {
	r := newTestRoom(t, Config{SolvedThreshold: 80})
	r.narr.verdict = narrator.Verdict{Answer: "yes", Score: 10, Feedback: "that is it", Progress: 95}
	a, _, _, ac, _, _ := startOverlay(t, r, "lighthouse")

	r.send(a, proto.TypeGameTurn, proto.TurnPayload{Text: "is it the lighthouse?"})

	require.Eventually(t, func() bool {
		return ac.count(proto.TypeOverlaySolved) == 1
	}, 2*time.Second, 5*time.Millisecond)

	var solved proto.OverlaySolvedPayload
	ac.last(t, proto.TypeOverlaySolved, &solved)
	assert.Contains(t, solved.EndMessage, "lighthouse")
	assert.Equal(t, 10, solved.Statistics.Scores["alice"])
	assert.Equal(t, 1, solved.Statistics.Questions)

	var over proto.GameOverPayload
	ac.last(t, proto.TypeGameOver, &over)
	assert.Equal(t, "solved", over.Reason)
	assert.Equal(t, domain.ModeIdle, r.coord.Info(context.Background()).Mode)
}

func TestOverlayTurn_NarratorFailureFallsBack(t *testing.T) {
	r := newTestRoom(t, Config{})
	r.narr.err = errors.New("narrator down")
	a, _, _, _, bc, _ := startOverlay(t, r, "lighthouse")

	r.send(a, proto.TypeGameTurn, proto.TurnPayload{Text: "is it alive?"})

	// the fallback verdict still answers and the turn still rotates
	require.Eventually(t, func() bool {
		return bc.count(proto.TypeGameTurnChange) == 1
	}, 2*time.Second, 5*time.Millisecond)
	var reply proto.OverlayReplyPayload
	bc.last(t, proto.TypeOverlayReply, &reply)
	assert.Contains(t, reply.FormattedMessage, narrator.Fallback().Answer)
	assert.Equal(t, domain.ModeActive, r.coord.Info(context.Background()).Mode)
}

func TestOverlayEnd_DetachesButGameContinues(t *testing.T) {
	r := newTestRoom(t, Config{})
	a, b, _, ac, bc, _ := startOverlay(t, r, "lighthouse")

	r.send(b, proto.TypeOverlayEnd, nil) // not the initiator
	r.barrier(t)
	assert.Zero(t, bc.count(proto.TypeOverlayOver))

	r.send(a, proto.TypeOverlayEnd, nil)
	r.barrier(t)

	assert.Equal(t, 1, ac.count(proto.TypeOverlayOver))
	assert.Equal(t, domain.ModeActive, r.coord.Info(context.Background()).Mode)

	// overlay gone: a turn is an ordinary turn again
	r.send(a, proto.TypeGameTurn, proto.TurnPayload{Text: "plain move"})
	r.barrier(t)
	var change proto.TurnChangePayload
	bc.last(t, proto.TypeGameTurnChange, &change)
	assert.Equal(t, "bob", change.NextPlayer)
}

func TestGameEnd_TearsDownOverlayToo(t *testing.T) {
	r := newTestRoom(t, Config{})
	a, _, _, ac, _, _ := startOverlay(t, r, "lighthouse")

	r.send(a, proto.TypeGameEnd, nil)
	r.barrier(t)

	assert.Equal(t, 1, ac.count(proto.TypeGameOver))
	info := r.coord.Info(context.Background())
	assert.Equal(t, domain.ModeIdle, info.Mode)
}

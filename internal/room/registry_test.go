package room

import (
	"encoding/json"
	"testing"

	"github.com/parlor-games/session-service/internal/transport/proto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshake_NoBroadcastBeforeClaim(t *testing.T) {
	r := newTestRoom(t, Config{})

	alice, _ := r.join(t, "alice")
	_, lurker := r.attach(t)

	r.send(alice, proto.TypeChat, proto.ChatInPayload{Text: "secret plans"})
	r.barrier(t)

	// the lurker has not claimed an identity: nothing reaches its transport
	assert.Zero(t, lurker.count(proto.TypeChat))
	assert.Zero(t, lurker.count(proto.TypeJoined))
}

func TestHandshake_FlushReadyAndAnnounce(t *testing.T) {
	r := newTestRoom(t, Config{})

	alice, aliceConn := r.join(t, "alice")
	bob, bobConn := r.attach(t)

	r.send(alice, proto.TypeChat, proto.ChatInPayload{Text: "hello?"})
	r.send(bob, proto.TypeClaim, proto.ClaimPayload{Identity: "bob"})
	r.barrier(t)

	// queued broadcast flushed on claim completion
	assert.GreaterOrEqual(t, bobConn.count(proto.TypeChat), 1)
	assert.Equal(t, 1, bobConn.count(proto.TypeReady))

	var joined proto.PeerPayload
	aliceConn.last(t, proto.TypeJoined, &joined)
	assert.Equal(t, "bob", joined.Identity)
}

func TestHandshake_BacklogReplayOldestFirst(t *testing.T) {
	r := newTestRoom(t, Config{BacklogSize: 10})

	alice, _ := r.join(t, "alice")
	for _, text := range []string{"one", "two", "three"} {
		r.send(alice, proto.TypeChat, proto.ChatInPayload{Text: text})
	}
	r.barrier(t)

	_, bobConn := r.join(t, "bob")

	chats := bobConn.typed(proto.TypeChat)
	require.Len(t, chats, 3)
	var texts []string
	for _, env := range chats {
		var p proto.ChatOutPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		texts = append(texts, p.Text)
	}
	assert.Equal(t, []string{"one", "two", "three"}, texts)
}

func TestClaim_TooLongRejectedAndClosed(t *testing.T) {
	r := newTestRoom(t, Config{})

	sess, conn := r.attach(t)
	r.send(sess, proto.TypeClaim, proto.ClaimPayload{Identity: "this-identity-is-way-past-the-thirty-two-limit"})
	r.barrier(t)

	assert.Equal(t, 1, conn.count(proto.TypeError))
	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	assert.True(t, closed)
}

func TestBroadcast_FailedSendBecomesSingleQuit(t *testing.T) {
	r := newTestRoom(t, Config{})

	_, aliceConn := r.join(t, "alice")
	bob, bobConn := r.join(t, "bob")
	carol, _ := r.join(t, "carol")

	bobConn.mu.Lock()
	bobConn.fail = true
	bobConn.mu.Unlock()

	r.send(carol, proto.TypeChat, proto.ChatInPayload{Text: "ping"})
	r.barrier(t)

	assert.Equal(t, 1, aliceConn.count(proto.TypeQuit))
	var quit proto.PeerPayload
	aliceConn.last(t, proto.TypeQuit, &quit)
	assert.Equal(t, "bob", quit.Identity)

	// a later detach of the same session must not announce again
	r.coord.Detach(bob)
	r.barrier(t)
	assert.Equal(t, 1, aliceConn.count(proto.TypeQuit))
}

func TestResume_DescriptorCompletesHandshake(t *testing.T) {
	r := newTestRoom(t, Config{})

	conn := &fakeConn{}
	sess := NewSession(conn, nil, "alice") // identity restored from descriptor
	r.coord.Attach(sess)
	r.barrier(t)

	assert.Equal(t, 1, conn.count(proto.TypeReady))
	desc := sess.Descriptor()
	assert.Equal(t, DescriptorVer, desc.Ver)
	assert.Equal(t, "alice", desc.Identity)
}

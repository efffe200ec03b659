package room

import (
	"github.com/parlor-games/session-service/internal/narrator"
	"github.com/parlor-games/session-service/internal/transport/proto"
)

// Coordinator inbox events. Everything a room reacts to arrives as one of
// these and is handled on the coordinator goroutine, one at a time.
type event interface{ isEvent() }

type evAttach struct {
	sess *Session
}

type evDetach struct {
	sess *Session
}

type evInbound struct {
	sess *Session
	env  proto.Envelope
}

// evScheduled delivers a timer-armed task back onto the coordinator
// goroutine; cancelled tasks are dropped here.
type evScheduled struct {
	task *delayedTask
}

// evVerdict carries the narrator's reply for an overlay question. Epoch
// pins it to the game generation that asked; stale verdicts are dropped.
type evVerdict struct {
	epoch      uint64
	questioner string
	question   string
	verdict    narrator.Verdict
}

type evInfo struct {
	reply chan Info
}

func (evAttach) isEvent()    {}
func (evDetach) isEvent()    {}
func (evInbound) isEvent()   {}
func (evScheduled) isEvent() {}
func (evVerdict) isEvent()   {}
func (evInfo) isEvent()      {}

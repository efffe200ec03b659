package domain

import "errors"

// Protocol errors: malformed or oversized input, rejected with no state change.
var (
	ErrNameTooLong     = errors.New("room name too long")
	ErrIdentityTooLong = errors.New("identity too long")
	ErrUnknownMessage  = errors.New("unknown message type")
	ErrBadPayload      = errors.New("malformed payload")
)

// Policy errors: valid message at the wrong moment. Notice to the sender only.
var (
	ErrNotYourTurn        = errors.New("not your turn")
	ErrGameAlreadyActive  = errors.New("game already active")
	ErrGameNotActive      = errors.New("no active game")
	ErrNotInitiator       = errors.New("only the initiator may do that")
	ErrNotInvited         = errors.New("not part of this request")
	ErrTooFewParticipants = errors.New("not enough participants")
	ErrNoContentSelected  = errors.New("no content selected")
	ErrOverlayActive      = errors.New("overlay already active")
	ErrRateLimited        = errors.New("slow down")
)

// Resource errors.
var (
	ErrNoSnapshot   = errors.New("no snapshot")
	ErrActorStopped = errors.New("rate limiter actor stopped")
)

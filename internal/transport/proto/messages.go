package proto

import "encoding/json"

// Inbound message types.
const (
	TypeClaim           = "claim"            // identity claim, completes handshake
	TypeChat            = "chat"             // plain chat text
	TypeGameInitiate    = "game_initiate"    // open a confirmation request
	TypeGameConfirm     = "game_confirm"     // accept/decline a pending request
	TypeGameTurn        = "game_turn"        // turn-scoped text
	TypeGameEnd         = "game_end"         // initiator terminates
	TypeContentSelect   = "content_select"   // initiator picks puzzle content
	TypeOverlayInitiate = "overlay_initiate" // attach the AI narration overlay
	TypeOverlayEnd      = "overlay_end"      // detach the overlay
)

// Outbound message types.
const (
	TypeJoined          = "joined"
	TypeQuit            = "quit"
	TypeReady           = "ready" // backlog fully flushed
	TypeError           = "error"
	TypeGameRequest     = "game_request" // carries the authoritative list
	TypeGameConfirmEcho = "game_confirm_echo"
	TypeGameStart       = "game_start"
	TypeGameTurnChange  = "game_turn_change"
	TypeGameOver        = "game_over"
	TypeOverlayStart    = "overlay_start"
	TypeOverlayReply    = "overlay_response"
	TypeOverlaySolved   = "overlay_solved"
	TypeOverlayOver     = "overlay_end"
	TypeStateResync     = "state_resync"
)

// Envelope is the wire frame in both directions. Inbound payloads stay raw
// until the type is known; unknown types are a protocol error.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func MustEnvelope(typ string, payload any) Envelope {
	raw, _ := json.Marshal(payload)
	return Envelope{Type: typ, Payload: raw}
}

// --- inbound payloads ---

type ClaimPayload struct {
	Identity string `json:"identity"`
}

type ChatInPayload struct {
	Text string `json:"text"`
}

type ConfirmPayload struct {
	Accept bool `json:"accept"`
}

type TurnPayload struct {
	Text string `json:"text"`
}

type ContentSelectPayload struct {
	Content string `json:"content"`
}

// --- outbound payloads ---

type PeerPayload struct {
	Identity string `json:"identity"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type ChatOutPayload struct {
	Identity string `json:"identity"`
	Text     string `json:"text"`
	Kind     string `json:"kind"`
	MsgID    string `json:"msg_id,omitempty"`
	TSUnix   int64  `json:"ts_unix,omitempty"`
}

type GameRequestPayload struct {
	Initiator    string   `json:"initiator"`
	Participants []string `json:"participants"`
}

type ConfirmEchoPayload struct {
	Identity string `json:"identity"`
	Accept   bool   `json:"accept"`
}

type GameStartPayload struct {
	Participants []string `json:"participants"`
	TurnIndex    int      `json:"turn_index"`
	FirstPlayer  string   `json:"first_player"`
}

type TurnChangePayload struct {
	TurnIndex  int    `json:"turn_index"`
	NextPlayer string `json:"next_player"`
}

type GameOverPayload struct {
	Scores map[string]int `json:"scores"`
	Reason string         `json:"reason,omitempty"`
}

type OverlayStartPayload struct {
	Content      string `json:"content"`
	StartMessage string `json:"start_message"`
}

type OverlayGameState struct {
	Progress  int `json:"progress"`
	Questions int `json:"questions"`
}

type OverlayReplyPayload struct {
	Questioner       string           `json:"questioner"`
	Question         string           `json:"question"`
	FormattedMessage string           `json:"formatted_message"`
	GameState        OverlayGameState `json:"game_state"`
}

type OverlayStatistics struct {
	Scores    map[string]int `json:"scores"`
	Questions int            `json:"questions"`
}

type OverlaySolvedPayload struct {
	EndMessage string            `json:"end_message"`
	Statistics OverlayStatistics `json:"statistics"`
}

type OverlayOverPayload struct {
	Statistics OverlayStatistics `json:"statistics"`
}

type StateResyncPayload struct {
	Mode          string         `json:"mode"`
	Participants  []string       `json:"participants,omitempty"`
	TurnIndex     int            `json:"turn_index"`
	CurrentPlayer string         `json:"current_player,omitempty"`
	Initiator     string         `json:"initiator,omitempty"`
	Scores        map[string]int `json:"scores,omitempty"`
	Overlay       bool           `json:"overlay"`
	Content       string         `json:"content,omitempty"`
}

package ws

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/parlor-games/session-service/internal/domain"
	"github.com/parlor-games/session-service/internal/ratelimit"
	"github.com/parlor-games/session-service/internal/resolver"
	"github.com/parlor-games/session-service/internal/room"
	"github.com/parlor-games/session-service/internal/transport/proto"
	"github.com/parlor-games/session-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type Server struct {
	upgrader websocket.Upgrader
	rooms    *room.Manager
	limits   *ratelimit.Service

	pingEvery time.Duration
}

func NewServer(rooms *room.Manager, limits *ratelimit.Service) *Server {
	return &Server{
		rooms:  rooms,
		limits: limits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/rooms/{id}?resume=...
// {id} is a public name or a 64-hex private token; resume carries the
// session descriptor of a suspended connection.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.Error(w, http.StatusBadRequest, "missing room id", nil)
		return
	}
	addr, err := resolver.Resolve(id)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	desc := decodeDescriptor(r.URL.Query().Get("resume"))
	if desc.LimitKey == "" {
		desc.LimitKey = clientKey(r)
	}

	coord, err := s.rooms.Get(r.Context(), addr.String())
	if err != nil {
		slog.Error("room activation failed", "room", addr.String(), "err", err)
		httputil.Error(w, http.StatusServiceUnavailable, "room unavailable", nil)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	proxy := ratelimit.NewProxy(s.limits, desc.LimitKey, func(err error) {
		// limiter reference could not be rebuilt: this connection only
		slog.Warn("rate limiter unreachable, dropping connection", "key", desc.LimitKey, "err", err)
		_ = c.Close()
	})
	sess := room.NewSession(c, proxy, desc.Identity)

	coord.Attach(sess)

	go s.writeLoop(c)
	s.readLoop(c, coord, sess)

	coord.Detach(sess)
	_ = c.Close()
}

func (s *Server) readLoop(c *wsConn, coord *room.Coordinator, sess *room.Session) {
	c.conn.SetReadLimit(1 << 16)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	// transport hygiene: cap raw frame throughput before any parsing
	frames := rate.NewLimiter(rate.Limit(20), 40)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !frames.Allow() {
			continue
		}

		var env proto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError(domain.ErrBadPayload.Error())
			continue
		}

		if gated(env.Type) && !sess.Limiter().Allow() {
			c.sendError(domain.ErrRateLimited.Error())
			continue
		}
		coord.Deliver(sess, env)
	}
}

// gated marks the message types the distributed limiter charges for.
// Setup traffic (the claim) is free.
func gated(typ string) bool {
	switch typ {
	case proto.TypeChat, proto.TypeGameInitiate, proto.TypeGameConfirm,
		proto.TypeGameTurn, proto.TypeGameEnd, proto.TypeContentSelect,
		proto.TypeOverlayInitiate, proto.TypeOverlayEnd:
		return true
	}
	return false
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func decodeDescriptor(raw string) room.Descriptor {
	if raw == "" {
		return room.Descriptor{}
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return room.Descriptor{}
	}
	var d room.Descriptor
	if err := json.Unmarshal(data, &d); err != nil || d.Ver != room.DescriptorVer {
		return room.Descriptor{}
	}
	if len(d.Identity) > 32 {
		d.Identity = ""
	}
	return d
}

// EncodeDescriptor is the inverse of the resume query parameter.
func EncodeDescriptor(d room.Descriptor) string {
	data, _ := json.Marshal(d)
	return base64.RawURLEncoding.EncodeToString(data)
}

// clientKey is the default rate-limit key: the source address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return strings.TrimSpace(host)
}

type wsConn struct {
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(env proto.Envelope) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(env)
}

func (c *wsConn) sendError(msg string) {
	_ = c.Send(proto.MustEnvelope(proto.TypeError, proto.ErrorPayload{Message: msg}))
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

// Package ws exposes the broker over a websocket endpoint. Clients send
// JSON call frames and receive JSON push frames; every connection gets a
// dedicated writer goroutine draining its session queue in FIFO order.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"chattr/auth"
	"chattr/domain"
	"chattr/observability"
	"chattr/services"
	"chattr/sink"
)

const maxFrameBytes = 16 * 1024

type Server struct {
	log        *slog.Logger
	service    services.IRoomService
	verifier   *auth.Verifier
	monitoring *observability.Monitoring
	upgrader   websocket.Upgrader
	httpServer *http.Server

	// queueSize bounds each connection's outbound buffer.
	queueSize int
}

func NewServer(log *slog.Logger, service services.IRoomService, verifier *auth.Verifier,
	monitoring *observability.Monitoring, addr string, queueSize int) *Server {
	s := &Server{
		log:        log,
		service:    service,
		verifier:   verifier,
		monitoring: monitoring,
		queueSize:  queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The handshake is gated by the bearer token, not the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Websocket server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// handleWS authenticates the handshake, upgrades it and runs the connection
// until the peer goes away. The lobby join happens before the first client
// frame is read, so the initial snapshot is always the first thing pushed.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		s.log.Warn("Rejected websocket handshake", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "error", err)
		return
	}
	wsConn.SetReadLimit(maxFrameBytes)

	identity := domain.User{ID: claims.UserID, DisplayName: claims.DisplayName}
	c := &connection{
		id:       uuid.New().String(),
		identity: identity,
		conn:     wsConn,
		sink:     sink.NewSessionSink(s.log, s.queueSize, s.monitoring),
		replies:  make(chan ServerFrame, 16),
		log:      s.log.With("conn", identity.DisplayName),
		service:  s.service,
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c.service.EnterLobby(ctx, c.id, identity, c.sink)
	s.log.Info("Connection established", "user", identity.DisplayName, "conn_id", c.id)

	go c.writePump(ctx, cancel)
	c.readPump(ctx, cancel)
}

// authenticate accepts the token as a Bearer header or, for browser
// websocket clients that cannot set headers, as a query parameter.
func (s *Server) authenticate(r *http.Request) (*auth.CustomClaims, error) {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		return nil, fmt.Errorf("missing token")
	}
	return s.verifier.ValidateToken(token)
}

// connection ties one websocket to one broker session.
type connection struct {
	id       string
	identity domain.User
	conn     *websocket.Conn
	sink     *sink.SessionSink
	replies  chan ServerFrame
	log      *slog.Logger
	service  services.IRoomService
}

// readPump consumes client frames until the socket dies, then disconnects
// the session. Disconnect uses a fresh context: the request context is
// already collapsing when the peer goes away, and room reconciliation must
// still run.
func (c *connection) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		_ = c.conn.Close()
		disconnectCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		c.service.Disconnect(disconnectCtx, c.id)
		c.log.Info("Connection closed")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Read failed", "error", err)
			}
			return
		}
		c.dispatch(ctx, data)
	}
}

// writePump is the only goroutine writing to the socket. It interleaves
// broker pushes with call replies; either stream keeps its own order.
func (c *connection) writePump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		// Unblocks the read pump right away instead of leaving it in
		// ReadMessage until the peer's TCP timeout expires.
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-c.sink.Events:
			frame, ok := encodeEvent(evt)
			if !ok {
				c.log.Debug("Skipping unencodable event", "room", evt.RoomName())
				continue
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				c.log.Warn("Write failed", "error", err)
				return
			}
		case frame := <-c.replies:
			if err := c.conn.WriteJSON(frame); err != nil {
				c.log.Warn("Write failed", "error", err)
				return
			}
		}
	}
}

func (c *connection) reply(ctx context.Context, frame ServerFrame) {
	select {
	case c.replies <- frame:
	case <-ctx.Done():
	}
}

// dispatch routes one client frame to its broker operation.
func (c *connection) dispatch(ctx context.Context, data []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.reply(ctx, ServerFrame{Type: FrameError, Code: CodeBadFrame, Message: "malformed frame"})
		return
	}
	if err := validate.Struct(frame); err != nil {
		c.reply(ctx, ServerFrame{Type: FrameError, Code: CodeBadFrame, Message: "missing op"})
		return
	}

	switch frame.Op {
	case OpEnterLobby:
		// Idempotent resync: membership is unchanged, the snapshot is
		// pushed again.
		c.service.EnterLobby(ctx, c.id, c.identity, c.sink)
		c.reply(ctx, resultFrame(frame.RequestID, toUserDTO(c.identity)))

	case OpCreateRoom:
		var payload CreateRoomPayload
		if !c.decode(ctx, frame, &payload) {
			return
		}
		descriptor, err := c.service.CreateRoom(ctx, c.id, payload.Name, payload.Passkey)
		if err != nil {
			c.reply(ctx, errorFrame(frame.RequestID, err))
			return
		}
		c.reply(ctx, resultFrame(frame.RequestID, toRoomDTO(descriptor)))

	case OpEnterRoom:
		var payload EnterRoomPayload
		if !c.decode(ctx, frame, &payload) {
			return
		}
		if err := c.service.EnterRoom(ctx, c.id, payload.Name, payload.Passkey); err != nil {
			c.reply(ctx, errorFrame(frame.RequestID, err))
			return
		}
		c.reply(ctx, resultFrame(frame.RequestID, map[string]string{"room": payload.Name}))

	case OpSendMessageToLobby:
		var payload SendMessagePayload
		if !c.decode(ctx, frame, &payload) {
			return
		}
		if err := c.service.SendMessageToLobby(ctx, c.id, payload.Text); err != nil {
			c.reply(ctx, errorFrame(frame.RequestID, err))
			return
		}
		c.reply(ctx, resultFrame(frame.RequestID, nil))

	case OpSendMessageToRoom:
		var payload SendMessagePayload
		if !c.decode(ctx, frame, &payload) {
			return
		}
		if payload.Room == "" {
			c.reply(ctx, ServerFrame{
				Type: FrameError, RequestID: frame.RequestID,
				Code: CodeInvalidPayload, Message: "room is required",
			})
			return
		}
		if err := c.service.SendMessageToRoom(ctx, c.id, payload.Room, payload.Text); err != nil {
			c.reply(ctx, errorFrame(frame.RequestID, err))
			return
		}
		c.reply(ctx, resultFrame(frame.RequestID, nil))

	default:
		c.reply(ctx, ServerFrame{
			Type: FrameError, RequestID: frame.RequestID,
			Code: CodeUnknownOp, Message: fmt.Sprintf("unknown op %q", frame.Op),
		})
	}
}

// decode unmarshals and validates an op payload, replying on failure.
func (c *connection) decode(ctx context.Context, frame ClientFrame, payload any) bool {
	if err := json.Unmarshal(frame.Payload, payload); err != nil {
		c.reply(ctx, ServerFrame{
			Type: FrameError, RequestID: frame.RequestID,
			Code: CodeInvalidPayload, Message: "malformed payload",
		})
		return false
	}
	if err := validate.Struct(payload); err != nil {
		c.reply(ctx, ServerFrame{
			Type: FrameError, RequestID: frame.RequestID,
			Code: CodeInvalidPayload, Message: err.Error(),
		})
		return false
	}
	return true
}

package e2e

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"chattr/auth"
	"chattr/ws"
)

// BaseWsSuite holds the shared plumbing for websocket scenarios: config
// loading, token issuance and a framed client wrapper.
type BaseWsSuite struct {
	suite.Suite
	Config   Config
	verifier *auth.Verifier
}

// SetupSuite loads the environment configuration before running tests.
// Scenarios are skipped entirely when no server address is configured.
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping e2e scenarios")
	}
	s.verifier = auth.NewVerifier([]byte(s.Config.JWTSecret))
}

// Step prints a colorized header so scenario phases stand out in logs.
func (s *BaseWsSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// WsClient is a thin synchronous wrapper over one authenticated connection.
// Frames read while waiting for a specific one are buffered, because pushes
// and call replies interleave on the wire in no fixed order.
type WsClient struct {
	Name    string
	conn    *websocket.Conn
	pending []ws.ServerFrame
	s       *BaseWsSuite
}

// Connect dials the broker as the given user. The connection carries a
// bearer token minted with the shared e2e secret.
func (s *BaseWsSuite) Connect(userID, displayName string) *WsClient {
	token, err := s.verifier.GenerateToken(userID, displayName, time.Hour)
	s.Require().NoError(err)

	endpoint := url.URL{Scheme: "ws", Host: s.Config.ServerAddr, Path: "/ws",
		RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(endpoint.String(), nil)
	s.Require().NoError(err, "Failed to connect to broker at "+s.Config.ServerAddr)

	return &WsClient{Name: displayName, conn: conn, s: s}
}

func (c *WsClient) Close() {
	_ = c.conn.Close()
}

// Call sends one op frame and returns nothing; replies arrive interleaved
// with pushes and are collected through Expect.
func (c *WsClient) Call(op string, payload any) {
	raw, err := json.Marshal(payload)
	c.s.Require().NoError(err)
	err = c.conn.WriteJSON(ws.ClientFrame{Op: op, RequestID: op, Payload: raw})
	c.s.Require().NoError(err)
}

// Expect returns the first frame satisfying the predicate, reading more
// frames if none of the buffered ones match.
func (c *WsClient) Expect(timeout time.Duration, match func(ws.ServerFrame) bool) ws.ServerFrame {
	for i, frame := range c.pending {
		if match(frame) {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return frame
		}
	}

	deadline := time.Now().Add(timeout)
	c.s.Require().NoError(c.conn.SetReadDeadline(deadline))

	for {
		var frame ws.ServerFrame
		err := c.conn.ReadJSON(&frame)
		c.s.Require().NoError(err, "%s: no matching frame within %v", c.Name, timeout)
		if match(frame) {
			return frame
		}
		c.s.T().Logf("%s: buffering frame type=%s event=%s", c.Name, frame.Type, frame.Event)
		c.pending = append(c.pending, frame)
	}
}

// ExpectEvent waits for a specific push event in a specific room.
func (c *WsClient) ExpectEvent(event, room string) ws.ServerFrame {
	return c.Expect(10*time.Second, func(f ws.ServerFrame) bool {
		return f.Type == ws.FrameEvent && f.Event == event && f.Room == room
	})
}

// ExpectResult waits for the reply to the given op.
func (c *WsClient) ExpectResult(op string) ws.ServerFrame {
	return c.Expect(10*time.Second, func(f ws.ServerFrame) bool {
		return (f.Type == ws.FrameResult || f.Type == ws.FrameError) && f.RequestID == op
	})
}

// Package transport wraps the WebSocket framing Twitch IRC rides on top of,
// behind interfaces small enough that connection.Conn can be driven against
// an in-memory fake in tests instead of a real socket.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// TwitchWebSocket is the WebSocket URL Twitch chat speaks IRC over.
const TwitchWebSocket = "wss://irc-ws.chat.twitch.tv:443"

// FrameReader reads one logical frame of IRC traffic at a time. A text frame
// may carry several CRLF-terminated IRC lines batched together by Twitch.
type FrameReader interface {
	ReadFrame() (data []byte, err error)
}

// FrameWriter writes one IRC line as a single text frame.
type FrameWriter interface {
	WriteFrame(line string) error
	WriteClose() error
	WritePing(data []byte) error
}

// Conn is a FrameReader and FrameWriter backed by a live WebSocket.
type Conn struct {
	ws *websocket.Conn
}

// Dial opens a WebSocket connection to url (TwitchWebSocket in production).
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// SetReadDeadline bounds the next ReadFrame call. connection.Conn does not
// set one; its heartbeat detects a silent server by a missing IRC PONG.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// SetPongHandler installs fn to run whenever a control-frame PONG arrives.
func (c *Conn) SetPongHandler(fn func(appData string) error) {
	c.ws.SetPongHandler(fn)
}

// ReadFrame blocks for the next WebSocket message and returns its payload.
// Twitch only ever sends text frames; anything else is surfaced as an error
// so the caller can treat it as a protocol violation.
func (c *Conn) ReadFrame() ([]byte, error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	if kind != websocket.TextMessage {
		return nil, fmt.Errorf("transport: unexpected frame kind %d", kind)
	}
	return data, nil
}

// WriteFrame sends line (with no trailing CRLF of its own) as a single text
// frame, appending the CRLF the IRC wire format expects.
func (c *Conn) WriteFrame(line string) error {
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(line+"\r\n")); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// WritePing sends a control-frame PING. connection.Conn's heartbeat does not
// use it; it sends an IRC-level PING as a text frame.
func (c *Conn) WritePing(data []byte) error {
	if err := c.ws.WriteMessage(websocket.PingMessage, data); err != nil {
		return fmt.Errorf("transport: ping: %w", err)
	}
	return nil
}

// WriteClose sends a normal-closure control frame.
func (c *Conn) WriteClose() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.ws.WriteMessage(websocket.CloseMessage, msg); err != nil {
		return fmt.Errorf("transport: close: %w", err)
	}
	return nil
}

// Close closes the underlying network connection immediately.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// IsCloseError reports whether err is the ordinary "peer closed the
// connection" outcome, which callers generally don't need to log as a
// failure. It unwraps err (ReadFrame wraps the underlying
// *websocket.CloseError with fmt.Errorf) since websocket.IsCloseError
// itself only does a direct type assertion and would miss it wrapped.
func IsCloseError(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	return websocket.IsCloseError(closeErr,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

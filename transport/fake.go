package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrFakeClosed is returned from a closed Fake's read/write side.
var ErrFakeClosed = errors.New("transport: fake connection closed")

// frame is one queued inbox item: either a text-frame payload or a terminal
// read error (a close frame or a simulated transport failure).
type frame struct {
	data []byte
	err  error
}

// Fake is an in-memory FrameReader/FrameWriter substitute for a live
// WebSocket, letting connection.Conn's state machine run in tests without a
// network round trip.
type Fake struct {
	mu          sync.Mutex
	inbox       chan frame
	done        chan struct{}
	sent        []string
	closed      bool
	pings       int
	pongHandler func(string) error
}

// NewFake returns a ready Fake with a buffered inbox.
func NewFake(inboxSize int) *Fake {
	return &Fake{inbox: make(chan frame, inboxSize), done: make(chan struct{})}
}

// Push queues data to be returned by a future ReadFrame, simulating a
// server-sent text frame.
func (f *Fake) Push(data string) {
	f.inbox <- frame{data: []byte(data)}
}

// PushCloseFrame queues a simulated WebSocket close frame with the given
// close code, wrapped the same way Conn.ReadFrame wraps a real
// *websocket.CloseError, so transport.IsCloseError detects it correctly
// through the wrap chain.
func (f *Fake) PushCloseFrame(code int) {
	closeErr := &websocket.CloseError{Code: code}
	f.inbox <- frame{err: fmt.Errorf("transport: read: %w", closeErr)}
}

// PushReadError queues an arbitrary read failure, simulating a genuine
// transport error distinct from an ordinary close frame.
func (f *Fake) PushReadError(err error) {
	f.inbox <- frame{err: err}
}

// ReadFrame implements FrameReader.
func (f *Fake) ReadFrame() ([]byte, error) {
	var fr frame
	var ok bool
	select {
	case fr, ok = <-f.inbox:
	case <-f.done:
		return nil, ErrFakeClosed
	}
	if !ok {
		return nil, ErrFakeClosed
	}
	if fr.err != nil {
		return nil, fr.err
	}
	return fr.data, nil
}

// WriteFrame implements FrameWriter, recording line for later inspection.
func (f *Fake) WriteFrame(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFakeClosed
	}
	f.sent = append(f.sent, line)
	return nil
}

// WritePing implements FrameWriter.
func (f *Fake) WritePing(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFakeClosed
	}
	f.pings++
	return nil
}

// WriteClose implements FrameWriter.
func (f *Fake) WriteClose() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Sent returns every line handed to WriteFrame so far, in order.
func (f *Fake) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

// CloseInbox ends the fake's read side, causing the next ReadFrame to
// return ErrFakeClosed, the way a dropped socket would.
func (f *Fake) CloseInbox() {
	close(f.inbox)
}

// Close implements the Transport lifecycle method connection.Conn expects.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	f.mu.Unlock()
	return nil
}

// SetReadDeadline is a no-op: the fake has no real I/O to bound.
func (f *Fake) SetReadDeadline(t time.Time) error { return nil }

// SetPongHandler records fn so tests can simulate a control-frame PONG via
// SimulatePong.
func (f *Fake) SetPongHandler(fn func(string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pongHandler = fn
}

// SimulatePong invokes the registered pong handler, standing in for the
// WebSocket library doing so when a real control-frame PONG arrives.
func (f *Fake) SimulatePong(appData string) error {
	f.mu.Lock()
	handler := f.pongHandler
	f.mu.Unlock()
	if handler == nil {
		return nil
	}
	return handler(appData)
}

// Pings returns how many WritePing calls have been made so far.
func (f *Fake) Pings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

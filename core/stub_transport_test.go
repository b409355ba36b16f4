package live

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transport"
)

var errStubConnClosed = errors.New("stub connection closed")

type stubConn struct {
	frames  chan []byte
	readErr chan error
	closed  chan struct{}

	mu          sync.Mutex
	written     [][]byte
	writeErr    error
	closeCode   int
	closeReason string

	closeOnce  sync.Once
	closeCalls atomic.Int32
}

func newStubConn() *stubConn {
	return &stubConn{
		frames:  make(chan []byte, 16),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (c *stubConn) WriteFrame(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), frame...))
	return nil
}

func (c *stubConn) ReadFrame() ([]byte, error) {
	select {
	case frame := <-c.frames:
		return frame, nil
	case err := <-c.readErr:
		return nil, err
	case <-c.closed:
		return nil, errStubConnClosed
	}
}

func (c *stubConn) Close(code int, reason string) error {
	c.closeCalls.Add(1)
	c.mu.Lock()
	c.closeCode = code
	c.closeReason = reason
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *stubConn) send(frame string) { c.frames <- []byte(frame) }

func (c *stubConn) setWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *stubConn) writtenFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *stubConn) closedWith() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason
}

// stubDialer hands out conns in order. A non-nil release channel holds each
// dial until it is closed or the dial context is cancelled.
type stubDialer struct {
	conns   []*stubConn
	err     error
	release chan struct{}

	mu    sync.Mutex
	urls  []string
	dials int
}

func (d *stubDialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	d.mu.Lock()
	index := d.dials
	d.dials++
	d.urls = append(d.urls, url)
	d.mu.Unlock()

	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			if index < len(d.conns) {
				return d.conns[index], nil
			}
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if index >= len(d.conns) {
		return nil, errors.New("no stub connection available")
	}
	return d.conns[index], nil
}

func (d *stubDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) HandleEvent(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *eventRecorder) kinds() []events.Kind {
	var kinds []events.Kind
	for _, event := range r.snapshot() {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func (r *eventRecorder) count(kind events.Kind) int {
	n := 0
	for _, event := range r.snapshot() {
		if event.Kind() == kind {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(kind events.Kind) (events.Event, bool) {
	recorded := r.snapshot()
	for i := len(recorded) - 1; i >= 0; i-- {
		if recorded[i].Kind() == kind {
			return recorded[i], true
		}
	}
	return nil, false
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a slog
// handler.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		Host:         DefaultHost,
		APIVersion:   DefaultAPIVersion,
		Model:        "gemini-2.0-flash-live-001",
		APIKey:       "test-key",
		VADSilenceMs: DefaultVADSilenceMs,
	}
}

func newTestManager(dialer transport.Dialer, opts ...ManagerOption) (*Manager, *eventRecorder, *syncBuffer) {
	recorder := &eventRecorder{}
	logger, logs := newTestLogger()
	opts = append([]ManagerOption{WithDialer(dialer), WithEventHandler(recorder), WithLogger(logger)}, opts...)
	return NewManager(opts...), recorder, logs
}

// connectReady connects m and completes the handshake on conn, which must be
// the next conn handed out by the manager's dialer.
func connectReady(t *testing.T, m *Manager, conn *stubConn) {
	t.Helper()

	if err := m.Connect(context.Background(), testSessionConfig()); err != nil {
		t.Fatalf("expected connect to succeed, got %v", err)
	}
	waitForState(t, m, StateAwaitingHandshake)
	conn.send(`{"setupComplete":{}}`)
	waitForState(t, m, StateReady)
}

func newReadyManager(t *testing.T, conn *stubConn, opts ...ManagerOption) (*Manager, *eventRecorder) {
	t.Helper()

	m, recorder, _ := newTestManager(&stubDialer{conns: []*stubConn{conn}}, opts...)
	connectReady(t, m, conn)
	waitForCondition(t, 2*time.Second, "handshake ready event", func() bool {
		return recorder.count(events.KindHandshakeReady) == 1
	})
	return m, recorder
}

func waitForState(t *testing.T, m *Manager, want State) {
	t.Helper()
	waitForCondition(t, 2*time.Second, "state "+want.String(), func() bool { return m.State() == want })
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", description)
}

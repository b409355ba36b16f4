package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultPingInterval     = 30 * time.Second
	closeGracePeriod        = 2 * time.Second
)

type Dialer struct {
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	pingInterval     time.Duration
	header           http.Header
	logger           *slog.Logger
}

type DialerOption func(*Dialer)

func WithHandshakeTimeout(timeout time.Duration) DialerOption {
	return func(d *Dialer) { d.handshakeTimeout = timeout }
}

func WithWriteTimeout(timeout time.Duration) DialerOption {
	return func(d *Dialer) { d.writeTimeout = timeout }
}

// WithPingInterval sets how often keep-alive pings are sent. Zero disables
// them.
func WithPingInterval(interval time.Duration) DialerOption {
	return func(d *Dialer) { d.pingInterval = interval }
}

func WithHeader(header http.Header) DialerOption {
	return func(d *Dialer) { d.header = header.Clone() }
}

func WithLogger(l *slog.Logger) DialerOption {
	return func(d *Dialer) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDialer(opts ...DialerOption) *Dialer {
	d := &Dialer{
		handshakeTimeout: defaultHandshakeTimeout,
		writeTimeout:     defaultWriteTimeout,
		pingInterval:     defaultPingInterval,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ transport.Dialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, rawURL string) (transport.Conn, error) {
	ctx, span := tracer.Start(ctx, "dial websocket")
	defer span.End()

	u, err := url.Parse(rawURL)
	if err != nil {
		span.SetStatus(codes.Error, "invalid url")
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	span.SetAttributes(attribute.String("server.address", u.Host))

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.handshakeTimeout,
	}

	d.logger.Debug("Connecting to websocket", slog.String("url", redact(u)))
	conn, resp, err := dialer.DialContext(ctx, u.String(), d.header)
	if err != nil {
		if resp != nil {
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to open websocket connection: %w", err)
	}
	d.logger.Info("Websocket connected", slog.String("host", u.Host))

	c := &Conn{
		conn:         conn,
		writeTimeout: d.writeTimeout,
		done:         make(chan struct{}),
		logger:       d.logger,
	}
	if d.pingInterval > 0 {
		go c.keepAlive(d.pingInterval)
	}
	return c, nil
}

// Conn is a transport.Conn over a gorilla websocket.
type Conn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

var _ transport.Conn = (*Conn)(nil)

// WriteFrame sends frame as a text message.
func (c *Conn) WriteFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame returns the next text or binary message. A close from the peer
// is reported as *transport.CloseError.
func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, &transport.CloseError{Code: closeErr.Code, Reason: closeErr.Text}
			}
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return msg, nil
		}
	}
}

// Close sends a close frame and releases the connection. The connection is
// released even if the close frame cannot be written.
func (c *Conn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		writeErr := c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(closeGracePeriod))
		c.writeMu.Unlock()
		if errors.Is(writeErr, websocket.ErrCloseSent) {
			writeErr = nil
		}

		err = errors.Join(writeErr, c.conn.Close())
	})
	return err
}

func (c *Conn) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(closeGracePeriod)
			if c.writeTimeout > 0 {
				deadline = time.Now().Add(c.writeTimeout)
			}
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, deadline)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("Failed to send keep-alive ping", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func redact(u *url.URL) string {
	redacted := *u
	query := redacted.Query()
	if query.Has("key") {
		query.Set("key", "REDACTED")
		redacted.RawQuery = query.Encode()
	}
	return redacted.String()
}

// Package transport defines the full-duplex frame transport the live session
// runs over.
package transport

import (
	"context"
	"fmt"
)

const CloseNormalClosure = 1000

// Conn is a single open connection. ReadFrame is called from one goroutine
// only; WriteFrame and Close may be called concurrently with it.
type Conn interface {
	WriteFrame(frame []byte) error
	ReadFrame() ([]byte, error)
	Close(code int, reason string) error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// CloseError is returned by ReadFrame when the peer closed the connection.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed: %d %s", e.Code, e.Reason)
}

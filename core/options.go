package live

import (
	"log/slog"
	"time"

	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/transport"
)

type ManagerOption func(*Manager)

// EventHandler receives every session event. Handlers may be invoked
// concurrently: the read loop and a background disconnect can both emit at the
// same time. An inbound event already being delivered when Disconnect is
// called may follow the transition to closing, but never Closed.
type EventHandler interface {
	HandleEvent(event events.Event)
}

type EventHandlerFunc func(event events.Event)

func (f EventHandlerFunc) HandleEvent(event events.Event) { f(event) }

// WithDialer replaces the default websocket dialer.
func WithDialer(dialer transport.Dialer) ManagerOption {
	return func(m *Manager) {
		if dialer != nil {
			m.dialer = dialer
		}
	}
}

// WithPlaybackSink routes decoded remote audio to sink. If sink also
// implements [PlaybackClearer] its buffer is cleared when the remote turn is
// interrupted.
func WithPlaybackSink(sink PlaybackSink) ManagerOption {
	return func(m *Manager) { m.sink = sink }
}

func WithEventHandler(handler EventHandler) ManagerOption {
	return func(m *Manager) {
		if handler != nil {
			m.handlers = append(m.handlers, handler)
		}
	}
}

func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHandshakeTimeout sets how long to wait for the handshake before
// logging a warning. The session keeps waiting either way. Zero disables the
// warning.
func WithHandshakeTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) { m.handshakeTimeout = timeout }
}

func WithOnStateChanged(callback func(from, to string)) ManagerOption {
	return func(m *Manager) { m.callbacks.onStateChanged = callback }
}

func WithOnConnectionOpened(callback func()) ManagerOption {
	return func(m *Manager) { m.callbacks.onConnectionOpened = callback }
}

func WithOnHandshakeReady(callback func()) ManagerOption {
	return func(m *Manager) { m.callbacks.onHandshakeReady = callback }
}

// WithOnTranscriptUpdated registers a callback for transcript changes. The
// utterances are a snapshot, most recent first.
func WithOnTranscriptUpdated(callback func(utterances []transcript.Utterance)) ManagerOption {
	return func(m *Manager) { m.callbacks.onTranscriptUpdated = callback }
}

// WithOnAudioChunk registers a callback for decoded remote audio. The slice
// is not copied.
func WithOnAudioChunk(callback func(audio []byte)) ManagerOption {
	return func(m *Manager) { m.callbacks.onAudioChunk = callback }
}

func WithOnResumptionUpdated(callback func(handle string, resumable bool)) ManagerOption {
	return func(m *Manager) { m.callbacks.onResumptionUpdated = callback }
}

func WithOnGoAway(callback func(timeLeft time.Duration)) ManagerOption {
	return func(m *Manager) { m.callbacks.onGoAway = callback }
}

func WithOnClosed(callback func(code int, reason string)) ManagerOption {
	return func(m *Manager) { m.callbacks.onClosed = callback }
}

func WithOnError(callback func(err error)) ManagerOption {
	return func(m *Manager) { m.callbacks.onError = callback }
}

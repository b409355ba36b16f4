package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/protocol"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	disconnectReason  = "client disconnected"
	abandonedReason   = "connection attempt abandoned"
	maxLoggedFrameLen = 200
)

// connection is the session state machine. It exclusively owns the transport
// connection and the session state; both are guarded by mu. Events are
// emitted outside of mu so handlers may call back into the session.
type connection struct {
	dialer           transport.Dialer
	handshakeTimeout time.Duration
	aggregator       *transcript.Aggregator
	playback         *playbackOutput
	flow             *flowController
	emitEvent        eventEmitter
	logger           *slog.Logger

	// delivering is held while an inbound event reaches the sink and handlers.
	// finishClosing waits on it so Closed never precedes that event.
	delivering sync.Mutex

	mu             sync.Mutex
	state          State
	conn           transport.Conn
	attemptID      string
	cancelDial     context.CancelFunc
	span           trace.Span
	openedAt       time.Time
	handshakeTimer *time.Timer
	sending        bool
	receiving      bool
}

func newConnection(dialer transport.Dialer, aggregator *transcript.Aggregator, playback *playbackOutput, emitEvent eventEmitter, logger *slog.Logger) *connection {
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}
	return &connection{
		dialer:     dialer,
		aggregator: aggregator,
		playback:   playback,
		flow:       newFlowController(logger),
		emitEvent:  emitEvent,
		logger:     logger,
	}
}

// connect starts a connection attempt and returns without waiting for the
// transport. ctx bounds the dial only.
func (c *connection) connect(ctx context.Context, config SessionConfig) error {
	setup, err := protocol.EncodeSetup(config.setupConfig())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.mu.Lock()
	if !c.state.canConnect() {
		state, activeAttempt := c.state, c.attemptID
		c.mu.Unlock()
		err := fmt.Errorf("%w: session is %s", ErrAlreadyConnected, state)
		c.logger.Warn("Connect ignored, session already active", slog.String("state", state.String()))
		c.emitEvent(events.NewError(activeAttempt, err))
		return err
	}

	attemptID := uuid.NewString()
	_, span := tracer.Start(context.WithoutCancel(ctx), "live session",
		trace.WithAttributes(
			attribute.String("session.attempt_id", attemptID),
			attribute.String("session.model", config.Model),
			attribute.Bool("session.resuming", config.ResumptionHandle != ""),
		))
	dialCtx, cancel := context.WithCancel(trace.ContextWithSpan(ctx, span))

	from := c.transitionLocked(StateConnecting)
	c.attemptID = attemptID
	c.cancelDial = cancel
	c.span = span
	c.sending = false
	c.receiving = false
	c.mu.Unlock()

	c.logger.Info("Connecting live session",
		slog.String("attempt_id", attemptID),
		slog.String("model", config.Model),
		slog.Bool("resuming", config.ResumptionHandle != ""))
	c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateConnecting.String()))

	go c.open(dialCtx, attemptID, config.URL(), setup)
	return nil
}

func (c *connection) open(ctx context.Context, attemptID, url string, setup []byte) {
	conn, err := c.dialer.Dial(ctx, url)

	c.mu.Lock()
	if c.attemptID != attemptID || c.state != StateConnecting {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close(transport.CloseNormalClosure, abandonedReason)
		}
		return
	}
	c.cancelDial = nil

	if err != nil {
		from := c.transitionLocked(StateFailed)
		c.endSpanLocked(err)
		c.mu.Unlock()

		openErr := fmt.Errorf("failed to open connection: %w", err)
		c.logger.Error("Live session failed to open",
			slog.String("attempt_id", attemptID),
			slog.String("error", err.Error()))
		c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateFailed.String()))
		c.emitEvent(events.NewError(attemptID, openErr))
		return
	}

	// Setup is written under the lock before the state allows audio, so it
	// is always the first outbound frame.
	if err := conn.WriteFrame(setup); err != nil {
		from := c.transitionLocked(StateFailed)
		c.endSpanLocked(err)
		c.mu.Unlock()

		_ = conn.Close(transport.CloseNormalClosure, abandonedReason)
		setupErr := fmt.Errorf("failed to send setup: %w", err)
		c.logger.Error("Live session setup failed",
			slog.String("attempt_id", attemptID),
			slog.String("error", err.Error()))
		c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateFailed.String()))
		c.emitEvent(events.NewError(attemptID, setupErr))
		return
	}

	from := c.transitionLocked(StateAwaitingHandshake)
	c.conn = conn
	c.openedAt = time.Now()
	c.span.AddEvent("setup sent")
	if c.handshakeTimeout > 0 {
		c.handshakeTimer = time.AfterFunc(c.handshakeTimeout, func() { c.warnHandshakeOverdue(attemptID) })
	}
	c.mu.Unlock()

	c.logger.Debug("Setup sent, awaiting handshake", slog.String("attempt_id", attemptID), slog.Int("bytes", len(setup)))
	c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateAwaitingHandshake.String()))
	c.emitEvent(events.NewConnectionOpened(attemptID))

	c.readLoop(attemptID, conn)
}

func (c *connection) readLoop(attemptID string, conn transport.Conn) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			c.handleReadError(attemptID, conn, err)
			return
		}
		if !c.dispatch(attemptID, frame) {
			return
		}
	}
}

// dispatch processes one inbound frame. It returns false once the frame's
// attempt is no longer current.
func (c *connection) dispatch(attemptID string, frame []byte) bool {
	c.mu.Lock()
	if c.attemptID != attemptID {
		c.mu.Unlock()
		return false
	}

	switch c.state {
	case StateAwaitingHandshake:
		if !protocol.IsHandshakeAck(frame) {
			c.mu.Unlock()
			c.logger.Warn("Unexpected frame while awaiting handshake",
				slog.String("attempt_id", attemptID),
				slog.String("frame", truncate(frame)))
			return true
		}

		from := c.transitionLocked(StateReady)
		c.stopHandshakeTimerLocked()
		handshakeDuration := time.Since(c.openedAt)
		c.span.AddEvent("handshake ready")
		c.mu.Unlock()

		handshakeDurationHist.Record(context.Background(), handshakeDuration.Seconds())
		c.logger.Info("Live session ready",
			slog.String("attempt_id", attemptID),
			slog.Duration("handshake", handshakeDuration))
		c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateReady.String()))
		c.emitEvent(events.NewHandshakeReady(attemptID))
		return true

	case StateReady:
		c.mu.Unlock()

	default:
		c.mu.Unlock()
		return false
	}

	decoded, err := protocol.Decode(frame)
	if err != nil {
		decodeErrorCounter.Add(context.Background(), 1)
		c.logger.Warn("Failed to decode frame",
			slog.String("attempt_id", attemptID),
			slog.String("error", err.Error()),
			slog.String("frame", truncate(frame)))
	}
	for _, event := range decoded {
		if !c.deliver(attemptID, event) {
			return false
		}
	}
	return true
}

// deliver hands one decoded event to its consumer. It returns false once the
// attempt is no longer ready.
func (c *connection) deliver(attemptID string, event protocol.InboundEvent) bool {
	c.delivering.Lock()
	defer c.delivering.Unlock()

	c.mu.Lock()
	if c.attemptID != attemptID || c.state != StateReady {
		c.mu.Unlock()
		return false
	}
	if _, ok := event.(protocol.AudioChunk); ok {
		c.receiving = true
	}
	c.mu.Unlock()

	switch typedEvent := event.(type) {
	case protocol.TranscriptionFragment:
		if c.aggregator.Add(typedEvent.Fragment()) {
			c.emitEvent(events.NewTranscriptUpdated(attemptID, c.aggregator.Utterances()))
		}
	case protocol.AudioChunk:
		c.playback.SendAudio(typedEvent.Data)
		c.emitEvent(events.NewAudioChunkReceived(attemptID, typedEvent.Data))
	case protocol.SessionResumptionUpdate:
		c.logger.Debug("Resumption update received",
			slog.String("attempt_id", attemptID),
			slog.Bool("resumable", typedEvent.Resumable),
			slog.Bool("has_handle", typedEvent.Handle != ""))
		c.emitEvent(events.NewResumptionUpdated(attemptID, typedEvent.Handle, typedEvent.Resumable))
	case protocol.Interrupted:
		c.playback.Clear()
		c.emitEvent(events.NewGenerationInterrupted(attemptID))
	case protocol.TurnComplete:
		c.emitEvent(events.NewTurnCompleted(attemptID))
	case protocol.GoAway:
		c.logger.Info("Server announced disconnect",
			slog.String("attempt_id", attemptID),
			slog.Duration("time_left", typedEvent.TimeLeft))
		c.emitEvent(events.NewGoAway(attemptID, typedEvent.TimeLeft))
	case protocol.HandshakeAck:
		c.logger.Debug("Ignoring repeated handshake acknowledgement", slog.String("attempt_id", attemptID))
	}
	return true
}

func (c *connection) handleReadError(attemptID string, conn transport.Conn, err error) {
	c.mu.Lock()
	if c.attemptID != attemptID || c.conn != conn {
		// Closed locally; disconnect owns the teardown.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.sending = false
	c.stopHandshakeTimerLocked()

	var closeErr *transport.CloseError
	if errors.As(err, &closeErr) {
		from := c.transitionLocked(StateClosing)
		c.mu.Unlock()

		c.logger.Info("Live session closed by server",
			slog.String("attempt_id", attemptID),
			slog.Int("code", closeErr.Code),
			slog.String("reason", closeErr.Reason))
		c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateClosing.String()))
		if err := conn.Close(closeErr.Code, closeErr.Reason); err != nil {
			c.logger.Debug("Close after server close failed", slog.String("error", err.Error()))
		}
		c.finishClosing(attemptID, closeErr.Code, closeErr.Reason)
		return
	}

	from := c.transitionLocked(StateFailed)
	c.endSpanLocked(err)
	c.mu.Unlock()

	_ = conn.Close(transport.CloseNormalClosure, abandonedReason)
	c.logger.Error("Live session transport failed",
		slog.String("attempt_id", attemptID),
		slog.String("error", err.Error()))
	c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateFailed.String()))
	c.emitEvent(events.NewError(attemptID, fmt.Errorf("transport failure: %w", err)))
}

// disconnect moves the session to closing immediately and tears down the
// transport in the background. It reports whether anything was done.
func (c *connection) disconnect() bool {
	c.mu.Lock()
	switch c.state {
	case StateIdle, StateClosing:
		c.mu.Unlock()
		return false
	case StateFailed:
		attemptID := c.attemptID
		from := c.transitionLocked(StateIdle)
		c.mu.Unlock()
		c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateIdle.String()))
		return true
	}

	attemptID := c.attemptID
	conn := c.conn
	cancel := c.cancelDial
	c.conn = nil
	c.cancelDial = nil
	c.sending = false
	c.stopHandshakeTimerLocked()
	from := c.transitionLocked(StateClosing)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.logger.Info("Disconnecting live session", slog.String("attempt_id", attemptID), slog.String("from", from.String()))
	c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateClosing.String()))

	go func() {
		if conn != nil {
			if err := conn.Close(transport.CloseNormalClosure, disconnectReason); err != nil {
				c.logger.Debug("Close handshake failed", slog.String("attempt_id", attemptID), slog.String("error", err.Error()))
			}
		}
		c.finishClosing(attemptID, transport.CloseNormalClosure, disconnectReason)
	}()
	return true
}

func (c *connection) finishClosing(attemptID string, code int, reason string) {
	c.delivering.Lock()
	c.delivering.Unlock()

	c.mu.Lock()
	if c.attemptID != attemptID || c.state != StateClosing {
		c.mu.Unlock()
		return
	}
	from := c.transitionLocked(StateIdle)
	c.endSpanLocked(nil)
	c.mu.Unlock()

	c.emitEvent(events.NewStateChanged(attemptID, from.String(), StateIdle.String()))
	c.emitEvent(events.NewClosed(attemptID, code, reason))
}

// submitAudio writes pcm if the session is ready and drops it otherwise. The
// write happens under mu so it cannot race teardown.
func (c *connection) submitAudio(pcm []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.flow.admit(c.state, len(pcm)) {
		return false
	}

	frame, err := protocol.EncodeAudio(pcm)
	if err != nil {
		c.logger.Warn("Failed to encode audio", slog.String("error", err.Error()))
		return false
	}
	if err := c.conn.WriteFrame(frame); err != nil {
		c.logger.Warn("Failed to send audio",
			slog.String("attempt_id", c.attemptID),
			slog.Int("bytes", len(pcm)),
			slog.String("error", err.Error()))
		return false
	}

	c.sending = true
	audioSentCounter.Add(context.Background(), 1)
	return true
}

func (c *connection) warnHandshakeOverdue(attemptID string) {
	c.mu.Lock()
	overdue := c.attemptID == attemptID && c.state == StateAwaitingHandshake
	c.mu.Unlock()

	if overdue {
		c.logger.Warn("Handshake not acknowledged yet, still waiting",
			slog.String("attempt_id", attemptID),
			slog.Duration("timeout", c.handshakeTimeout))
	}
}

func (c *connection) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *connection) isSending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

func (c *connection) isReceiving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receiving
}

func (c *connection) transitionLocked(to State) State {
	from := c.state
	c.state = to
	return from
}

func (c *connection) stopHandshakeTimerLocked() {
	if c.handshakeTimer != nil {
		c.handshakeTimer.Stop()
		c.handshakeTimer = nil
	}
}

func (c *connection) endSpanLocked(err error) {
	if c.span == nil {
		return
	}
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	}
	c.span.End()
	c.span = nil
}

func truncate(frame []byte) string {
	if len(frame) <= maxLoggedFrameLen {
		return string(frame)
	}
	return string(frame[:maxLoggedFrameLen]) + "..."
}

package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/transport"
	"github.com/koscakluka/ema-live/core/transport/ws"
)

const defaultHandshakeTimeout = 15 * time.Second

// Manager is the entry point for one logical live session. It owns the
// session configuration and the resumption handle; the connection itself is
// driven by an internal state machine and reported through events.
type Manager struct {
	dialer           transport.Dialer
	sink             PlaybackSink
	handlers         []EventHandler
	callbacks        callbackOptions
	logger           *slog.Logger
	handshakeTimeout time.Duration

	aggregator *transcript.Aggregator
	connection *connection

	mu         sync.Mutex
	lastConfig *SessionConfig
	resumption resumptionTracker
}

// resumptionTracker holds the handle from the most recent resumption update.
// known is false until the server has sent one.
type resumptionTracker struct {
	handle string
	known  bool
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:           logger,
		handshakeTimeout: defaultHandshakeTimeout,
		aggregator:       transcript.NewAggregator(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = ws.NewDialer(ws.WithLogger(m.logger))
	}

	emitters := []eventEmitter{m.trackResumption, newCallbackEventEmitter(m.callbacks)}
	for _, handler := range m.handlers {
		emitters = append(emitters, handler.HandleEvent)
	}

	m.connection = newConnection(m.dialer, m.aggregator, newPlaybackOutput(m.sink, m.logger), fanOut(emitters...), m.logger)
	m.connection.handshakeTimeout = m.handshakeTimeout
	return m
}

// Connect validates config and starts connecting. It returns as soon as the
// attempt has started; progress is reported through events. A resumption
// handle received in an earlier session replaces config.ResumptionHandle.
func (m *Manager) Connect(ctx context.Context, config SessionConfig) error {
	if err := config.Validate(); err != nil {
		m.logger.Warn("Rejected session config", slog.String("error", err.Error()))
		return err
	}

	m.mu.Lock()
	if m.resumption.known {
		config.ResumptionHandle = m.resumption.handle
	}
	m.mu.Unlock()

	if err := m.connection.connect(ctx, config); err != nil {
		return err
	}

	m.mu.Lock()
	m.lastConfig = &config
	m.mu.Unlock()
	return nil
}

// Reconnect connects again with the config of the last successful Connect
// call, carrying over the latest resumption handle.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	last := m.lastConfig
	m.mu.Unlock()

	if last == nil {
		return ErrNoPreviousConfig
	}
	return m.Connect(ctx, *last)
}

// Disconnect requests the session to close. It returns immediately and is a
// no-op when the session is idle or already closing.
func (m *Manager) Disconnect() {
	m.connection.disconnect()
}

// SubmitAudio sends one chunk of 16kHz mono PCM. It reports whether the chunk
// was written; chunks submitted before the handshake completes are dropped.
func (m *Manager) SubmitAudio(pcm []byte) bool {
	return m.connection.submitAudio(pcm)
}

func (m *Manager) State() State { return m.connection.currentState() }

// IsSending reports whether audio has been written during the current
// session.
func (m *Manager) IsSending() bool { return m.connection.isSending() }

// IsReceiving reports whether remote audio has arrived during the current
// session.
func (m *Manager) IsReceiving() bool { return m.connection.isReceiving() }

// Transcript returns the utterances so far, most recent first.
func (m *Manager) Transcript() []transcript.Utterance { return m.aggregator.Utterances() }

func (m *Manager) ClearTranscript() { m.aggregator.Reset() }

// ResumptionHandle returns the latest handle received from the server. It is
// empty before the first update and after the server marks the session as not
// resumable.
func (m *Manager) ResumptionHandle() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumption.handle
}

// DroppedAudio returns how many audio chunks were dropped because the
// session was not ready.
func (m *Manager) DroppedAudio() uint64 { return m.connection.flow.droppedChunks() }

func (m *Manager) trackResumption(event events.Event) {
	update, ok := event.(events.ResumptionUpdated)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !update.Resumable:
		m.resumption = resumptionTracker{known: true}
	case update.Handle != "":
		m.resumption = resumptionTracker{handle: update.Handle, known: true}
	}
}

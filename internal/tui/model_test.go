package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transcript"
)

type stubSession struct {
	connectErr  error
	connects    int
	disconnects int
	clears      int
	sending     bool
	muted       bool
}

func (s *stubSession) Connect() error    { s.connects++; return s.connectErr }
func (s *stubSession) Reconnect() error  { return nil }
func (s *stubSession) Disconnect()       { s.disconnects++ }
func (s *stubSession) ClearTranscript()  { s.clears++ }
func (s *stubSession) IsSending() bool   { return s.sending }
func (s *stubSession) IsReceiving() bool { return false }
func (s *stubSession) ToggleMute() bool  { s.muted = !s.muted; return s.muted }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Update to return a Model, got %T", next)
	}
	return model, cmd
}

func TestStateAndTranscriptMessagesUpdateView(t *testing.T) {
	m := NewModel(&stubSession{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 12})
	m, _ = update(t, m, stateMsg{from: "awaiting_handshake", to: "ready"})
	m, _ = update(t, m, transcriptMsg{utterances: []transcript.Utterance{
		{Text: "Hola", Speaker: transcript.SpeakerRemote},
		{Text: "Hello", Speaker: transcript.SpeakerUser},
	}})

	view := m.View()
	if !strings.Contains(view, "READY") {
		t.Fatalf("expected status bar to show the state, got %q", view)
	}
	hello, hola := strings.Index(view, "Hello"), strings.Index(view, "Hola")
	if hello < 0 || hola < 0 || hello > hola {
		t.Fatalf("expected oldest utterance first, got %q", view)
	}
}

func TestConnectKeyReportsErrors(t *testing.T) {
	session := &stubSession{connectErr: errors.New("session already active")}
	m := NewModel(session)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if cmd == nil {
		t.Fatalf("expected connect to run as a command")
	}
	msg := cmd()
	if session.connects != 1 {
		t.Fatalf("expected one connect call, got %d", session.connects)
	}

	m, _ = update(t, m, msg)
	if !m.statusIsError || !strings.Contains(m.View(), "session already active") {
		t.Fatalf("expected error in status bar, got %q", m.View())
	}
}

func TestDisconnectRunsOffTheUpdateLoop(t *testing.T) {
	session := &stubSession{}
	m := NewModel(session)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if session.disconnects != 0 {
		t.Fatalf("expected disconnect to wait for the command, got %d calls", session.disconnects)
	}
	if cmd == nil {
		t.Fatalf("expected disconnect to run as a command")
	}
	cmd()
	if session.disconnects != 1 {
		t.Fatalf("expected one disconnect call, got %d", session.disconnects)
	}
}

func TestMuteKeyTogglesMicrophone(t *testing.T) {
	session := &stubSession{sending: true}
	m := NewModel(session)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	if !m.muted || !session.muted {
		t.Fatalf("expected microphone to be muted")
	}
	if !strings.Contains(m.View(), "mic muted") {
		t.Fatalf("expected status bar to show the muted microphone, got %q", m.View())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	if m.muted || session.muted {
		t.Fatalf("expected microphone to be unmuted")
	}
	if strings.Contains(m.View(), "mic muted") {
		t.Fatalf("expected muted marker to be gone, got %q", m.View())
	}
}

func TestClearKeyResetsTranscript(t *testing.T) {
	session := &stubSession{}
	m := NewModel(session)
	m, _ = update(t, m, transcriptMsg{utterances: []transcript.Utterance{{Text: "Hello", Speaker: transcript.SpeakerUser}}})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if session.clears != 1 || len(m.utterances) != 0 {
		t.Fatalf("expected transcript to be cleared, got %d clears and %d utterances", session.clears, len(m.utterances))
	}
}

func TestActivityTickPollsSession(t *testing.T) {
	m := NewModel(&stubSession{sending: true})

	m, cmd := update(t, m, activityTickMsg{})
	if !m.sending {
		t.Fatalf("expected sending flag from session")
	}
	if cmd == nil {
		t.Fatalf("expected the next tick to be scheduled")
	}
}

func TestEventHandlerTranslatesEvents(t *testing.T) {
	var sent []tea.Msg
	handler := EventHandler(func(msg tea.Msg) { sent = append(sent, msg) })

	handler.HandleEvent(events.NewStateChanged("a", "idle", "connecting"))
	handler.HandleEvent(events.NewError("a", errors.New("socket reset")))
	handler.HandleEvent(events.NewAudioChunkReceived("a", []byte{0x01}))

	if len(sent) != 2 {
		t.Fatalf("expected audio chunks to be skipped, got %d messages", len(sent))
	}
	if state, ok := sent[0].(stateMsg); !ok || state.to != "connecting" {
		t.Fatalf("expected state message, got %#v", sent[0])
	}
	if status, ok := sent[1].(statusMsg); !ok || !status.isError || status.text != "socket reset" {
		t.Fatalf("expected error status, got %#v", sent[1])
	}
}

func TestRenderTranscriptWraps(t *testing.T) {
	rendered := renderTranscript([]transcript.Utterance{
		{Text: "one two three four five six", Speaker: transcript.SpeakerUser},
	}, 12)

	lines := strings.Split(rendered, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected wrapped body under the label, got %q", rendered)
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "  ") {
			t.Fatalf("expected indented body line, got %q", line)
		}
	}
}

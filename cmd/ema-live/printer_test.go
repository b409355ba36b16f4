package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	live "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/transport"
)

func TestTranscriptPrinterPrintsEachTurnOnce(t *testing.T) {
	var out bytes.Buffer
	printer := &transcriptPrinter{out: &out}

	printer.HandleEvent(events.NewTranscriptUpdated("a", []transcript.Utterance{
		{Text: "Hola", Speaker: transcript.SpeakerRemote},
		{Text: "Hello", Speaker: transcript.SpeakerUser},
	}))
	printer.HandleEvent(events.NewTurnCompleted("a"))
	printer.HandleEvent(events.NewTranscriptUpdated("a", []transcript.Utterance{
		{Text: "Bien", Speaker: transcript.SpeakerRemote},
		{Text: "How are you", Speaker: transcript.SpeakerUser},
		{Text: "Hola", Speaker: transcript.SpeakerRemote},
		{Text: "Hello", Speaker: transcript.SpeakerUser},
	}))
	printer.HandleEvent(events.NewTurnCompleted("a"))

	want := "you: Hello\ngemini: Hola\nyou: How are you\ngemini: Bien\n"
	if got := out.String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestTranscriptPrinterReportsConnectionEvents(t *testing.T) {
	var out bytes.Buffer
	printer := &transcriptPrinter{out: &out}

	printer.HandleEvent(events.NewStateChanged("a", "idle", "connecting"))
	printer.HandleEvent(events.NewError("a", errors.New("socket reset")))
	printer.HandleEvent(events.NewClosed("a", 1000, "client disconnected"))

	for _, line := range []string{"* connecting", "* error: socket reset", "* closed (1000) client disconnected"} {
		if !strings.Contains(out.String(), line) {
			t.Fatalf("expected output to contain %q, got %q", line, out.String())
		}
	}
}

func TestSessionControlReconnectFallsBackToConnect(t *testing.T) {
	dialer := transport.DialerFunc(func(ctx context.Context, url string) (transport.Conn, error) {
		return nil, errors.New("offline")
	})
	manager := live.NewManager(live.WithDialer(dialer))
	session := &sessionControl{
		Manager: manager,
		ctx:     context.Background(),
		config: live.SessionConfig{
			Host:       live.DefaultHost,
			APIVersion: live.DefaultAPIVersion,
			Model:      "gemini-live-test",
			APIKey:     "key",
		},
	}

	if err := session.Reconnect(); err != nil {
		t.Fatalf("expected reconnect to start a session, got %v", err)
	}
	if state := manager.State(); state != live.StateConnecting && state != live.StateFailed {
		t.Fatalf("expected a connection attempt, got %s", state)
	}
}

func TestSessionControlMuteGatesCapturedAudio(t *testing.T) {
	manager := live.NewManager()
	session := &sessionControl{Manager: manager, ctx: context.Background()}

	if !session.ToggleMute() || !session.Muted() {
		t.Fatalf("expected first toggle to mute")
	}
	if session.SubmitAudio([]byte{0x01, 0x02}) {
		t.Fatalf("expected muted audio to be held back")
	}
	if dropped := manager.DroppedAudio(); dropped != 0 {
		t.Fatalf("expected muted audio to never reach the session, got %d drops", dropped)
	}

	if session.ToggleMute() || session.Muted() {
		t.Fatalf("expected second toggle to unmute")
	}
	session.SubmitAudio([]byte{0x01, 0x02})
	if dropped := manager.DroppedAudio(); dropped != 1 {
		t.Fatalf("expected unmuted audio to reach the idle session, got %d drops", dropped)
	}
}

func TestMaskKeepsOnlyTheTail(t *testing.T) {
	if got := mask("abcdefgh"); got != "****efgh" {
		t.Fatalf("expected masked key, got %q", got)
	}
	if got := mask("abc"); got != "****" {
		t.Fatalf("expected short key to be fully masked, got %q", got)
	}
}

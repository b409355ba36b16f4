package events

import (
	"errors"
	"testing"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "state changed", event: NewStateChanged("a", "idle", "connecting"), expected: KindStateChanged},
		{name: "connection opened", event: NewConnectionOpened("a"), expected: KindConnectionOpened},
		{name: "handshake ready", event: NewHandshakeReady("a"), expected: KindHandshakeReady},
		{name: "resumption updated", event: NewResumptionUpdated("a", "h", true), expected: KindResumptionUpdated},
		{name: "go away", event: NewGoAway("a", 0), expected: KindGoAway},
		{name: "closed", event: NewClosed("a", 1000, "bye"), expected: KindClosed},
		{name: "error", event: NewError("a", errors.New("boom")), expected: KindError},
		{name: "transcript updated", event: NewTranscriptUpdated("a", nil), expected: KindTranscriptUpdated},
		{name: "audio chunk received", event: NewAudioChunkReceived("a", []byte{1}), expected: KindAudioChunkReceived},
		{name: "generation interrupted", event: NewGenerationInterrupted("a"), expected: KindGenerationInterrupted},
		{name: "turn completed", event: NewTurnCompleted("a"), expected: KindTurnCompleted},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if got := testCase.event.AttemptID(); got != "a" {
				t.Fatalf("expected attempt id %q, got %q", "a", got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestNewErrorWithoutCauseHasMessage(t *testing.T) {
	event := NewError("", nil)
	if event.Message == "" {
		t.Fatalf("expected a human-readable message for a nil cause")
	}
}

package protocol

import (
	"time"

	"github.com/koscakluka/ema-live/core/transcript"
)

// InboundEvent is a typed event decoded from a server frame or produced by
// the transport.
type InboundEvent interface {
	inboundEvent()
}

// HandshakeAck acknowledges the setup frame; audio may flow after it.
type HandshakeAck struct{}

type TranscriptionFragment struct {
	Speaker transcript.Speaker
	Text    string
	IsFinal bool
}

// Fragment converts the event into the aggregator's input type.
func (f TranscriptionFragment) Fragment() transcript.Fragment {
	return transcript.Fragment{Speaker: f.Speaker, Text: f.Text, IsFinal: f.IsFinal}
}

// AudioChunk carries decoded PCM for playback.
type AudioChunk struct {
	Data []byte
}

// SessionResumptionUpdate carries a new resumption handle. Handle is empty
// when the server did not send one.
type SessionResumptionUpdate struct {
	Handle    string
	Resumable bool
}

// GoAway announces that the server will close the connection soon.
type GoAway struct {
	TimeLeft time.Duration
}

// Interrupted reports that remote generation was cut off by user speech.
type Interrupted struct{}

type TurnComplete struct{}

type Closed struct {
	Code   int
	Reason string
}

type TransportError struct {
	Cause error
}

func (HandshakeAck) inboundEvent()            {}
func (TranscriptionFragment) inboundEvent()   {}
func (AudioChunk) inboundEvent()              {}
func (SessionResumptionUpdate) inboundEvent() {}
func (GoAway) inboundEvent()                  {}
func (Interrupted) inboundEvent()             {}
func (TurnComplete) inboundEvent()            {}
func (Closed) inboundEvent()                  {}
func (TransportError) inboundEvent()          {}

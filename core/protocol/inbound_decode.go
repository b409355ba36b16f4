package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buger/jsonparser"
	"github.com/koscakluka/ema-live/core/transcript"
)

var ErrMalformedFrame = errors.New("malformed frame")

// IsHandshakeAck reports whether frame acknowledges the setup frame.
func IsHandshakeAck(frame []byte) bool {
	return bytes.Contains(frame, []byte(handshakeToken))
}

// Decode turns a server frame into zero or more events. Unknown and absent
// fields are ignored. A frame that is not JSON yields ErrMalformedFrame and no
// events; undecodable audio parts are skipped and reported in the returned
// error while every other event is still returned.
func Decode(frame []byte) ([]InboundEvent, error) {
	if !json.Valid(frame) {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(frame))
	}
	if IsHandshakeAck(frame) {
		return []InboundEvent{HandshakeAck{}}, nil
	}

	var decoded []InboundEvent
	var errs []error

	if fragment, ok := decodeTranscription(frame, "inputTranscription", transcript.SpeakerUser); ok {
		decoded = append(decoded, fragment)
	}
	if fragment, ok := decodeTranscription(frame, "outputTranscription", transcript.SpeakerRemote); ok {
		decoded = append(decoded, fragment)
	}

	for _, path := range [][]string{
		{"serverContent", "parts"},
		{"serverContent", "modelTurn", "parts"},
	} {
		chunks, err := decodeInlineAudio(frame, path...)
		decoded = append(decoded, chunks...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if interrupted, err := jsonparser.GetBoolean(frame, "serverContent", "interrupted"); err == nil && interrupted {
		decoded = append(decoded, Interrupted{})
	}
	if complete, err := jsonparser.GetBoolean(frame, "serverContent", "turnComplete"); err == nil && complete {
		decoded = append(decoded, TurnComplete{})
	}

	if update, _, _, err := jsonparser.Get(frame, "sessionResumptionUpdate"); err == nil {
		handle, _ := jsonparser.GetString(update, "newHandle")
		resumable, _ := jsonparser.GetBoolean(update, "resumable")
		decoded = append(decoded, SessionResumptionUpdate{Handle: handle, Resumable: resumable})
	}

	if goAway, _, _, err := jsonparser.Get(frame, "goAway"); err == nil {
		event := GoAway{}
		if timeLeft, err := jsonparser.GetString(goAway, "timeLeft"); err == nil {
			if parsed, err := time.ParseDuration(timeLeft); err == nil {
				event.TimeLeft = parsed
			}
		}
		decoded = append(decoded, event)
	}

	return decoded, errors.Join(errs...)
}

// decodeTranscription prefers the serverContent-nested transcription and
// falls back to the top-level one.
func decodeTranscription(frame []byte, field string, speaker transcript.Speaker) (TranscriptionFragment, bool) {
	for _, path := range [][]string{{"serverContent", field}, {field}} {
		node, _, _, err := jsonparser.Get(frame, path...)
		if err != nil {
			continue
		}
		text, err := jsonparser.GetString(node, "text")
		if err != nil {
			continue
		}
		finished, _ := jsonparser.GetBoolean(node, "finished")
		return TranscriptionFragment{Speaker: speaker, Text: text, IsFinal: finished}, true
	}
	return TranscriptionFragment{}, false
}

func decodeInlineAudio(frame []byte, path ...string) ([]InboundEvent, error) {
	var chunks []InboundEvent
	var errs []error

	_, err := jsonparser.ArrayEach(frame, func(part []byte, _ jsonparser.ValueType, _ int, err error) {
		if err != nil {
			return
		}
		data, err := jsonparser.GetString(part, "inlineData", "data")
		if err != nil {
			return
		}
		pcm, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to decode inline audio: %w", err))
			return
		}
		if len(pcm) > 0 {
			chunks = append(chunks, AudioChunk{Data: pcm})
		}
	}, path...)
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		errs = append(errs, fmt.Errorf("failed to read %v: %w", path, err))
	}

	return chunks, errors.Join(errs...)
}

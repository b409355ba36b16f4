package live

import (
	"time"

	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transcript"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts callbackOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.StateChanged:
			if opts.onStateChanged != nil {
				opts.onStateChanged(typedEvent.From, typedEvent.To)
			}
		case events.ConnectionOpened:
			if opts.onConnectionOpened != nil {
				opts.onConnectionOpened()
			}
		case events.HandshakeReady:
			if opts.onHandshakeReady != nil {
				opts.onHandshakeReady()
			}
		case events.TranscriptUpdated:
			if opts.onTranscriptUpdated != nil {
				opts.onTranscriptUpdated(typedEvent.Utterances)
			}
		case events.AudioChunkReceived:
			if opts.onAudioChunk != nil {
				opts.onAudioChunk(typedEvent.Audio)
			}
		case events.ResumptionUpdated:
			if opts.onResumptionUpdated != nil {
				opts.onResumptionUpdated(typedEvent.Handle, typedEvent.Resumable)
			}
		case events.GoAway:
			if opts.onGoAway != nil {
				opts.onGoAway(typedEvent.TimeLeft)
			}
		case events.Closed:
			if opts.onClosed != nil {
				opts.onClosed(typedEvent.Code, typedEvent.Reason)
			}
		case events.Error:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		}
	}
}

// fanOut delivers every event to each emitter in order.
func fanOut(emitters ...eventEmitter) eventEmitter {
	return func(event events.Event) {
		for _, emit := range emitters {
			if emit != nil {
				emit(event)
			}
		}
	}
}

type callbackOptions struct {
	onStateChanged      func(from, to string)
	onConnectionOpened  func()
	onHandshakeReady    func()
	onTranscriptUpdated func(utterances []transcript.Utterance)
	onAudioChunk        func(audio []byte)
	onResumptionUpdated func(handle string, resumable bool)
	onGoAway            func(timeLeft time.Duration)
	onClosed            func(code int, reason string)
	onError             func(err error)
}

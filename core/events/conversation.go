package events

import "github.com/koscakluka/ema-live/core/transcript"

const (
	// KindTranscriptUpdated identifies transcript snapshots.
	KindTranscriptUpdated Kind = "transcript.updated"
	// KindAudioChunkReceived identifies remote audio chunks.
	KindAudioChunkReceived Kind = "playback.audio_chunk"
	// KindGenerationInterrupted identifies interrupted remote speech.
	KindGenerationInterrupted Kind = "playback.interrupted"
	// KindTurnCompleted identifies a finished remote turn.
	KindTurnCompleted Kind = "turn.completed"
)

// TranscriptUpdated carries the whole transcript, most recent first.
type TranscriptUpdated struct {
	Base
	Utterances []transcript.Utterance
}

func NewTranscriptUpdated(attemptID string, utterances []transcript.Utterance) TranscriptUpdated {
	return TranscriptUpdated{Base: NewBase(KindTranscriptUpdated, attemptID), Utterances: utterances}
}

type AudioChunkReceived struct {
	Base
	Audio []byte
}

func NewAudioChunkReceived(attemptID string, audio []byte) AudioChunkReceived {
	return AudioChunkReceived{Base: NewBase(KindAudioChunkReceived, attemptID), Audio: audio}
}

type GenerationInterrupted struct{ Base }

func NewGenerationInterrupted(attemptID string) GenerationInterrupted {
	return GenerationInterrupted{Base: NewBase(KindGenerationInterrupted, attemptID)}
}

type TurnCompleted struct{ Base }

func NewTurnCompleted(attemptID string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted, attemptID)}
}

package main

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-live/core/audio/miniaudio"
	"github.com/koscakluka/ema-live/core/audio/portaudio"
	"github.com/koscakluka/ema-live/internal/config"
)

// portaudioFramesPerBuffer is 30ms at the input rate.
const portaudioFramesPerBuffer = 480

type audioDevice interface {
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	SendAudio(audio []byte) error
	ClearBuffer()
	Close()
}

// openAudio opens the configured backend. It returns nil for the none
// backend.
func openAudio(backend string) (audioDevice, error) {
	switch backend {
	case config.AudioBackendMiniaudio:
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to open miniaudio: %w", err)
		}
		return client, nil
	case config.AudioBackendPortaudio:
		client, err := portaudio.NewClient(portaudioFramesPerBuffer)
		if err != nil {
			return nil, fmt.Errorf("failed to open portaudio: %w", err)
		}
		return client, nil
	case config.AudioBackendNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

package live

import (
	"log/slog"
	"reflect"
)

// PlaybackSink consumes decoded remote audio.
type PlaybackSink interface {
	SendAudio(audio []byte) error
}

// PlaybackClearer is implemented by sinks that can drop buffered audio. It is
// called when the remote side reports that its speech was interrupted.
type PlaybackClearer interface {
	ClearBuffer()
}

// playbackOutput routes remote audio to an optional sink. Sink errors are
// logged and never affect the session.
type playbackOutput struct {
	sink    PlaybackSink
	clearer PlaybackClearer
	logger  *slog.Logger
}

func newPlaybackOutput(sink PlaybackSink, logger *slog.Logger) *playbackOutput {
	output := &playbackOutput{logger: logger}
	if isNilPlaybackSink(sink) {
		return output
	}

	output.sink = sink
	if clearer, ok := sink.(PlaybackClearer); ok {
		output.clearer = clearer
	}
	return output
}

func (p *playbackOutput) isConfigured() bool {
	return p != nil && p.sink != nil
}

func (p *playbackOutput) SendAudio(audio []byte) {
	if !p.isConfigured() {
		return
	}
	if err := p.sink.SendAudio(audio); err != nil {
		p.logger.Warn("Playback sink rejected audio",
			slog.Int("bytes", len(audio)),
			slog.String("error", err.Error()))
	}
}

func (p *playbackOutput) Clear() {
	if p != nil && p.clearer != nil {
		p.clearer.ClearBuffer()
	}
}

// isNilPlaybackSink detects nil and typed-nil sinks so they are treated as
// unconfigured.
func isNilPlaybackSink(sink PlaybackSink) bool {
	if sink == nil {
		return true
	}

	v := reflect.ValueOf(sink)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

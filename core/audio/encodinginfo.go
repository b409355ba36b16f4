package audio

import "time"

const (
	// InputSampleRate is the rate the live endpoint expects for microphone
	// audio.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of the audio the live endpoint sends back.
	OutputSampleRate = 24000
	DefaultFormat    = "linear16"
)

func InputEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: InputSampleRate, Format: EncodingLinear16, Channels: 1}
}

func OutputEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: OutputSampleRate, Format: EncodingLinear16, Channels: 1}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
	Channels   int
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	}
	return 0
}

// FrameSize is the size in bytes of one sample across all channels.
func (e EncodingInfo) FrameSize() int {
	channels := e.Channels
	if channels <= 0 {
		channels = 1
	}
	return e.Format.ByteSize() * channels
}

// BytesFor returns how many bytes of audio cover d, rounded down to whole
// frames.
func (e EncodingInfo) BytesFor(d time.Duration) int {
	frames := int(int64(e.SampleRate) * int64(d) / int64(time.Second))
	return frames * e.FrameSize()
}

// Duration returns the playback length of n bytes of audio.
func (e EncodingInfo) Duration(n int) time.Duration {
	frameSize := e.FrameSize()
	if e.SampleRate == 0 || frameSize <= 0 {
		return 0
	}
	return time.Duration(int64(n/frameSize) * int64(time.Second) / int64(e.SampleRate))
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)

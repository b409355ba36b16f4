package audio

import "sync"

// Buffer queues PCM for a playback device callback. Reads that find less
// audio than requested are padded with silence.
type Buffer struct {
	mu      sync.Mutex
	pending []byte
	silence byte
}

func NewBuffer(info EncodingInfo) *Buffer {
	return &Buffer{silence: info.SilenceValue()}
}

func (b *Buffer) Write(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, audio...)
}

// Fill copies queued audio into out and returns how many bytes were real
// audio. The rest of out is set to silence.
func (b *Buffer) Fill(out []byte) int {
	b.mu.Lock()
	n := copy(out, b.pending)
	b.pending = b.pending[n:]
	if len(b.pending) == 0 {
		b.pending = nil
	}
	b.mu.Unlock()

	for i := n; i < len(out); i++ {
		out[i] = b.silence
	}
	return n
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-live/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-live/core/audio/portaudio")

// Client captures from the default input device and plays through the default
// output device. Capture and playback run at different rates so each has its
// own stream.
type Client struct {
	input  *portaudio.Stream
	output *portaudio.Stream
	in     []int16
	out    []int16

	playback  *audio.Buffer
	outBytes  []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient opens both streams with bufferSize frames per buffer and starts
// playback.
func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	c := &Client{
		in:       make([]int16, bufferSize),
		out:      make([]int16, bufferSize),
		outBytes: make([]byte, bufferSize*2),
		playback: audio.NewBuffer(audio.OutputEncodingInfo()),
		done:     make(chan struct{}),
	}

	var err error
	if c.input, err = portaudio.OpenDefaultStream(1, 0, float64(audio.InputSampleRate), bufferSize, c.in); err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if c.output, err = portaudio.OpenDefaultStream(0, 1, float64(audio.OutputSampleRate), bufferSize, c.out); err != nil {
		c.input.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}
	if err := c.output.Start(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}

	c.wg.Add(1)
	go c.play()
	return c, nil
}

// Stream reads microphone audio into onAudio until ctx is done.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.input.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	defer c.input.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		default:
		}

		if err := c.input.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				logger.Debug("Input overflowed")
				continue
			}
			return fmt.Errorf("failed to read input stream: %w", err)
		}

		buf := bytes.Buffer{}
		if err := binary.Write(&buf, binary.LittleEndian, c.in); err != nil {
			return fmt.Errorf("failed to encode input audio: %w", err)
		}
		onAudio(buf.Bytes())
	}
}

func (c *Client) SendAudio(audio []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("client closed")
	default:
	}
	c.playback.Write(audio)
	return nil
}

func (c *Client) ClearBuffer() {
	c.playback.Clear()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.InputEncodingInfo()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		if err := c.output.Close(); err != nil {
			logger.Warn("Failed to close output stream", slog.String("error", err.Error()))
		}
		if err := c.input.Close(); err != nil {
			logger.Warn("Failed to close input stream", slog.String("error", err.Error()))
		}
		portaudio.Terminate()
	})
}

// play keeps the output stream fed, writing silence while nothing is queued.
// Write blocks for one buffer, which paces the loop.
func (c *Client) play() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.playback.Fill(c.outBytes)
		if err := binary.Read(bytes.NewReader(c.outBytes), binary.LittleEndian, c.out); err != nil {
			logger.Warn("Failed to decode playback audio", slog.String("error", err.Error()))
			continue
		}
		if err := c.output.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			logger.Warn("Failed to write output stream", slog.String("error", err.Error()))
		}
	}
}

package live

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// flowController decides whether outbound audio may be written. Audio is only
// admitted while the session is ready; anything else is dropped, never queued.
type flowController struct {
	logger  *slog.Logger
	dropped atomic.Uint64
}

func newFlowController(logger *slog.Logger) *flowController {
	return &flowController{logger: logger}
}

func (f *flowController) admit(state State, size int) bool {
	if state == StateReady {
		return true
	}

	f.dropped.Add(1)
	f.logger.Debug("Audio dropped, session not ready",
		slog.String("state", state.String()),
		slog.Int("bytes", size))
	audioDroppedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("session.state", state.String())))
	return false
}

func (f *flowController) droppedChunks() uint64 {
	return f.dropped.Load()
}

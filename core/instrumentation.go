package live

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "github.com/koscakluka/ema-live/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	audioSentCounter      = int64Counter("live.audio.sent", "Audio frames written to the transport", "{frame}")
	audioDroppedCounter   = int64Counter("live.audio.dropped", "Audio chunks dropped because the session was not ready", "{chunk}")
	decodeErrorCounter    = int64Counter("live.frames.decode_errors", "Inbound frames that could not be fully decoded", "{frame}")
	handshakeDurationHist = float64Histogram("live.handshake.duration", "Time from transport open to setup acknowledgement", "s")
)

func int64Counter(name, description, unit string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		otel.Handle(err)
		return noop.Int64Counter{}
	}
	return counter
}

func float64Histogram(name, description, unit string) metric.Float64Histogram {
	histogram, err := meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		otel.Handle(err)
		return noop.Float64Histogram{}
	}
	return histogram
}

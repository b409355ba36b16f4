package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Timestamp() time.Time
	// AttemptID identifies the connection attempt the event belongs to. It is
	// empty for events raised outside of any attempt.
	AttemptID() string
}

type Base struct {
	kind      Kind
	timestamp time.Time
	attemptID string
}

func NewBase(kind Kind, attemptID string) Base {
	return Base{kind: kind, timestamp: time.Now(), attemptID: attemptID}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

func (b Base) AttemptID() string {
	return b.attemptID
}

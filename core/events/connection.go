package events

import "time"

const (
	// KindStateChanged identifies session state transitions.
	KindStateChanged Kind = "connection.state_changed"
	// KindConnectionOpened identifies an opened transport.
	KindConnectionOpened Kind = "connection.opened"
	// KindHandshakeReady identifies an acknowledged setup.
	KindHandshakeReady Kind = "connection.handshake_ready"
	// KindResumptionUpdated identifies resumption handle changes.
	KindResumptionUpdated Kind = "connection.resumption_updated"
	// KindGoAway identifies a server notice of imminent disconnect.
	KindGoAway Kind = "connection.go_away"
	// KindClosed identifies a closed connection.
	KindClosed Kind = "connection.closed"
	// KindError identifies a failed connection.
	KindError Kind = "connection.error"
)

// StateChanged reports a session state transition.
type StateChanged struct {
	Base
	From string
	To   string
}

// NewStateChanged creates a state transition event.
func NewStateChanged(attemptID, from, to string) StateChanged {
	return StateChanged{Base: NewBase(KindStateChanged, attemptID), From: from, To: to}
}

type ConnectionOpened struct{ Base }

func NewConnectionOpened(attemptID string) ConnectionOpened {
	return ConnectionOpened{Base: NewBase(KindConnectionOpened, attemptID)}
}

type HandshakeReady struct{ Base }

func NewHandshakeReady(attemptID string) HandshakeReady {
	return HandshakeReady{Base: NewBase(KindHandshakeReady, attemptID)}
}

// ResumptionUpdated carries the handle the next connection will resume
// with. Handle is empty when the session is no longer resumable.
type ResumptionUpdated struct {
	Base
	Handle    string
	Resumable bool
}

func NewResumptionUpdated(attemptID, handle string, resumable bool) ResumptionUpdated {
	return ResumptionUpdated{Base: NewBase(KindResumptionUpdated, attemptID), Handle: handle, Resumable: resumable}
}

type GoAway struct {
	Base
	TimeLeft time.Duration
}

func NewGoAway(attemptID string, timeLeft time.Duration) GoAway {
	return GoAway{Base: NewBase(KindGoAway, attemptID), TimeLeft: timeLeft}
}

// Closed reports a closed connection. Code is zero when no close frame was
// exchanged.
type Closed struct {
	Base
	Code   int
	Reason string
}

func NewClosed(attemptID string, code int, reason string) Closed {
	return Closed{Base: NewBase(KindClosed, attemptID), Code: code, Reason: reason}
}

// Error reports a connection that could not be opened or that failed.
type Error struct {
	Base
	Message string
	Err     error
}

func NewError(attemptID string, err error) Error {
	message := "unknown connection error"
	if err != nil {
		message = err.Error()
	}
	return Error{Base: NewBase(KindError, attemptID), Message: message, Err: err}
}

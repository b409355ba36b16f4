package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	live "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transcript"
)

type stateMsg struct {
	from, to string
}

type transcriptMsg struct {
	utterances []transcript.Utterance
}

type statusMsg struct {
	text    string
	isError bool
}

// EventHandler forwards session events to the program through send, which is
// usually (*tea.Program).Send.
func EventHandler(send func(tea.Msg)) live.EventHandler {
	return live.EventHandlerFunc(func(event events.Event) {
		if msg := eventMsg(event); msg != nil {
			send(msg)
		}
	})
}

func eventMsg(event events.Event) tea.Msg {
	switch typedEvent := event.(type) {
	case events.StateChanged:
		return stateMsg{from: typedEvent.From, to: typedEvent.To}
	case events.TranscriptUpdated:
		return transcriptMsg{utterances: typedEvent.Utterances}
	case events.HandshakeReady:
		return statusMsg{text: "Ready, start talking"}
	case events.GoAway:
		return statusMsg{text: fmt.Sprintf("Server closing in %s", typedEvent.TimeLeft)}
	case events.Closed:
		return statusMsg{text: fmt.Sprintf("Closed (%d) %s", typedEvent.Code, typedEvent.Reason)}
	case events.Error:
		return statusMsg{text: typedEvent.Message, isError: true}
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transcript"
)

// transcriptPrinter writes the conversation to out one turn at a time, for
// use when no terminal UI is running.
type transcriptPrinter struct {
	out io.Writer

	mu         sync.Mutex
	latest     []transcript.Utterance
	printedLen int
}

func (p *transcriptPrinter) HandleEvent(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch typedEvent := event.(type) {
	case events.StateChanged:
		fmt.Fprintf(p.out, "* %s\n", typedEvent.To)
	case events.TranscriptUpdated:
		p.latest = typedEvent.Utterances
	case events.TurnCompleted:
		p.flush()
	case events.GoAway:
		fmt.Fprintf(p.out, "* server closing in %s\n", typedEvent.TimeLeft)
	case events.Closed:
		p.flush()
		fmt.Fprintf(p.out, "* closed (%d) %s\n", typedEvent.Code, typedEvent.Reason)
	case events.Error:
		fmt.Fprintf(p.out, "* error: %s\n", typedEvent.Message)
	}
}

// flush prints the utterances added since the last flush, oldest first. The
// head is printed again if it grew without a new utterance being added.
func (p *transcriptPrinter) flush() {
	if len(p.latest) == 0 {
		return
	}

	fresh := len(p.latest) - p.printedLen
	if fresh <= 0 {
		fresh = 1
	}
	for i := fresh - 1; i >= 0; i-- {
		utterance := p.latest[i]
		fmt.Fprintf(p.out, "%s: %s\n", speakerName(utterance.Speaker), utterance.Text)
	}
	p.printedLen = len(p.latest)
}

func speakerName(speaker transcript.Speaker) string {
	if speaker == transcript.SpeakerUser {
		return "you"
	}
	return "gemini"
}

package transcript

import (
	"strings"
	"sync"
)

type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerRemote Speaker = "remote"
)

// Fragment is a piece of transcribed speech for one speaker turn. Fragments
// are cumulative: a later fragment from the same speaker supersedes the
// earlier one instead of extending it.
type Fragment struct {
	Speaker Speaker
	Text    string
	IsFinal bool
}

type Utterance struct {
	Text    string
	Speaker Speaker
}

// Aggregator keeps the display transcript, most recent utterance first. No
// two adjacent utterances ever share a speaker.
type Aggregator struct {
	mu         sync.RWMutex
	utterances []Utterance
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add merges fragment into the transcript and reports whether the transcript
// changed. Blank fragments are ignored.
func (a *Aggregator) Add(fragment Fragment) bool {
	if strings.TrimSpace(fragment.Text) == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.utterances) > 0 && a.utterances[0].Speaker == fragment.Speaker {
		if a.utterances[0].Text == fragment.Text {
			return false
		}
		a.utterances[0].Text = fragment.Text
		return true
	}

	a.utterances = append(a.utterances, Utterance{})
	copy(a.utterances[1:], a.utterances)
	a.utterances[0] = Utterance{Text: fragment.Text, Speaker: fragment.Speaker}
	return true
}

// Utterances returns a copy of the transcript, most recent first.
func (a *Aggregator) Utterances() []Utterance {
	a.mu.RLock()
	defer a.mu.RUnlock()

	utterances := make([]Utterance, len(a.utterances))
	copy(utterances, a.utterances)
	return utterances
}

func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.utterances)
}

func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.utterances = nil
}

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const (
	statusBarHeight = 2
	bodyIndent      = 2
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	remoteStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	faintStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusBarStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true)
)

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "ready":
		return activeStyle.Bold(true)
	case "failed":
		return errorStyle.Bold(true)
	default:
		return lipgloss.NewStyle().Bold(true)
	}
}

// renderTranscript lays the utterances out oldest first, wrapping each one
// to width under its speaker label.
func renderTranscript(utterances []transcript.Utterance, width int) string {
	if len(utterances) == 0 {
		return faintStyle.Render("No conversation yet.")
	}

	wrapWidth := max(width-bodyIndent, 10)
	blocks := make([]string, 0, len(utterances))
	for i := len(utterances) - 1; i >= 0; i-- {
		utterance := utterances[i]
		body := indent.String(wordwrap.String(utterance.Text, wrapWidth), bodyIndent)
		blocks = append(blocks, speakerLabel(utterance.Speaker)+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

func speakerLabel(speaker transcript.Speaker) string {
	if speaker == transcript.SpeakerUser {
		return userStyle.Render("You")
	}
	return remoteStyle.Render("Gemini")
}

package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-live/core/transcript"
)

const activityInterval = 250 * time.Millisecond

// Session is the part of the live session the UI drives.
type Session interface {
	Connect() error
	Reconnect() error
	Disconnect()
	ClearTranscript()
	ToggleMute() bool
	IsSending() bool
	IsReceiving() bool
}

type activityTickMsg struct{}

type Model struct {
	session Session

	width, height int
	state         string
	sending       bool
	receiving     bool
	muted         bool
	status        string
	statusIsError bool
	utterances    []transcript.Utterance

	spinner  spinner.Model
	viewport viewport.Model
}

func NewModel(session Session) Model {
	return Model{
		session:  session,
		state:    "idle",
		status:   "c connect  d disconnect  r reconnect  m mute  x clear  q quit",
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		viewport: viewport.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, activityTick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-statusBarHeight, 1)
		m.refreshTranscript()
		return m, nil

	case stateMsg:
		m.state = msg.to
		return m, nil

	case transcriptMsg:
		m.utterances = msg.utterances
		m.refreshTranscript()
		return m, nil

	case statusMsg:
		m.status, m.statusIsError = msg.text, msg.isError
		return m, nil

	case activityTickMsg:
		if m.session != nil {
			m.sending, m.receiving = m.session.IsSending(), m.session.IsReceiving()
		}
		return m, activityTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.session == nil {
			return m, tea.Quit
		}
		return m, tea.Sequence(m.disconnect(), tea.Quit)
	case "c":
		return m, m.run(m.session.Connect)
	case "r":
		return m, m.run(m.session.Reconnect)
	case "d":
		return m, m.disconnect()
	case "m":
		m.muted = m.session.ToggleMute()
		return m, nil
	case "x":
		m.session.ClearTranscript()
		m.utterances = nil
		m.refreshTranscript()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// run calls action off the update loop and reports a failure in the status
// bar.
func (m Model) run(action func() error) tea.Cmd {
	return func() tea.Msg {
		if err := action(); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return nil
	}
}

// disconnect closes the session off the update loop. Disconnect emits events
// synchronously and those are delivered back through the program.
func (m Model) disconnect() tea.Cmd {
	return func() tea.Msg {
		m.session.Disconnect()
		return nil
	}
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(renderTranscript(m.utterances, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.statusBar())
}

func (m Model) statusBar() string {
	var parts []string

	state := stateStyle(m.state).Render(strings.ToUpper(m.state))
	if m.state == "connecting" || m.state == "awaiting_handshake" || m.state == "closing" {
		state = m.spinner.View() + " " + state
	}
	parts = append(parts, state)

	if m.muted {
		parts = append(parts, errorStyle.Render("mic muted"))
	} else if m.sending {
		parts = append(parts, activeStyle.Render("mic"))
	} else {
		parts = append(parts, faintStyle.Render("mic"))
	}
	if m.receiving {
		parts = append(parts, activeStyle.Render("speaker"))
	} else {
		parts = append(parts, faintStyle.Render("speaker"))
	}

	status := faintStyle.Render(m.status)
	if m.statusIsError {
		status = errorStyle.Render(m.status)
	}
	parts = append(parts, status)

	line := strings.Join(parts, "  ")
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	return statusBarStyle.Render(line)
}

func activityTick() tea.Cmd {
	return tea.Tick(activityInterval, func(time.Time) tea.Msg { return activityTickMsg{} })
}

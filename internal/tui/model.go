package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"finrag/internal/answer"
)

// AnswerPort is the TUI-facing subset of the answerer.
type AnswerPort interface {
	Ask(ctx context.Context, question string) (<-chan answer.Update, error)
}

// Model is the Bubble Tea model for the question/answer form: one free-text
// input, one growing streamed answer.
type Model struct {
	service  AnswerPort
	input    textinput.Model
	viewport viewport.Model
	answer   string
	status   string
	ready    bool
	updates  <-chan answer.Update
	cancel   context.CancelFunc
}

type startedMsg struct{ updates <-chan answer.Update }
type askFailedMsg struct{ err error }

// updateMsg and streamClosedMsg carry the channel they were read from so that
// events of a canceled or superseded turn can be told apart from the live one.
type updateMsg struct {
	updates <-chan answer.Update
	update  answer.Update
}
type streamClosedMsg struct{ updates <-chan answer.Update }

// New creates a new TUI model instance.
func New(service AnswerPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the NASDAQ filings and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and question boxes
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := questionBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header + status + question frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ah)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case startedMsg:
		m.updates = msg.updates
		m.status = "Generating..."
		return m, waitForUpdate(m.updates)
	case askFailedMsg:
		m.stopStream()
		m.status = "Error: " + msg.err.Error()
		return m, nil
	case updateMsg:
		if msg.updates != m.updates {
			// Leftover event from a canceled stream.
			return m, nil
		}
		u := msg.update
		m.answer = u.Text
		switch {
		case u.Err != nil:
			m.stopStream()
			m.status = "Error: " + u.Err.Error()
		case u.Done:
			m.stopStream()
			m.status = "Done."
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoBottom()
		return m, waitForUpdate(m.updates)
	case streamClosedMsg:
		if msg.updates == m.updates {
			m.updates = nil
		}
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.stopStream()
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && m.updates == nil {
				return m.startAsk(q)
			}
		case "esc":
			if m.cancel != nil {
				m.stopStream()
				m.updates = nil
				m.status = "Canceled."
				return m, nil
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startAsk launches one question turn. The context lives until the stream
// terminates or the user cancels; canceling aborts the upstream generation.
func (m Model) startAsk(question string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.answer = ""
	m.status = "Searching the knowledge base..."
	m.viewport.SetContent(m.renderAnswer())
	service := m.service
	return m, func() tea.Msg {
		updates, err := service.Ask(ctx, question)
		if err != nil {
			return askFailedMsg{err}
		}
		return startedMsg{updates}
	}
}

// waitForUpdate pumps one stream event into the Bubble Tea loop.
func waitForUpdate(updates <-chan answer.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return streamClosedMsg{updates: updates}
		}
		return updateMsg{updates: updates, update: u}
	}
}

func (m *Model) stopStream() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// View renders the form layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Financial Knowledge Base")
	answerBox := answerBoxStyle.Render(m.viewport.View())
	question := questionBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + answerBox + "\n" + question + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer == "" {
		return "No answer yet."
	}
	return lipgloss.NewStyle().Width(max(20, m.viewport.Width-2)).Render(m.answer)
}

var (
	answerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

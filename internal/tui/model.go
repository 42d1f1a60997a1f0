// Package tui renders the chat widget in a terminal.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/comigor/astro-go/internal/widget"
)

var (
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	typingStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// replyMsg carries a settled bot message back into the update loop.
type replyMsg widget.Message

// Model is the bubbletea model: a scrolling chat box, a typing line and an input field.
type Model struct {
	ctx      context.Context
	w        *widget.Widget
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	width    int
}

// NewModel creates the model around w.
func NewModel(ctx context.Context, w *widget.Widget) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about a space mission and press Enter"
	ti.Prompt = "› "
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{ctx: ctx, w: w, input: ti, spinner: sp, viewport: viewport.New(80, 20), width: 80}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := max(msg.Height-3, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case replyMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.w.Typing.Visible() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the field to the widget; the user message shows at once and
// the reply arrives later as a replyMsg.
func (m Model) submit() (tea.Model, tea.Cmd) {
	wasTyping := m.w.Typing.Visible()
	m.w.Input.Set(m.input.Value())
	done := m.w.Submit(m.ctx)
	if done == nil {
		return m, nil
	}
	m.input.SetValue(m.w.Input.Value())
	m.refresh()

	cmds := []tea.Cmd{waitForReply(done)}
	if !wasTyping {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func waitForReply(done <-chan widget.Message) tea.Cmd {
	return func() tea.Msg {
		return replyMsg(<-done)
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.w.Transcript.Messages(), m.width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.w.Typing.Visible() {
		b.WriteString(typingStyle.Render(m.spinner.View() + " ASTRO is typing…"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send · pgup/pgdn scroll · esc quit"))
	return b.String()
}

func renderTranscript(msgs []widget.Message, width int) string {
	wrap := lipgloss.NewStyle().Width(max(width, 20))
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, wrap.Render(renderMessage(msg)))
	}
	return strings.Join(lines, "\n")
}

func renderMessage(msg widget.Message) string {
	label := botLabelStyle.Render(msg.Sender + ":")
	if msg.Sender == widget.SenderUser {
		label = userLabelStyle.Render(msg.Sender + ":")
	}
	text := msg.Text
	if strings.HasPrefix(text, widget.ErrorPrefix) {
		text = errorStyle.Render(text)
	}
	return label + " " + text
}

// Run starts the full-screen UI and blocks until the user quits.
// Requests still in flight on exit are cancelled.
func Run(ctx context.Context, w *widget.Widget) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(ctx, w), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	cancel()
	w.Wait()
	return err
}

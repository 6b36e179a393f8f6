package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"persistent-chat/internal/chat"
	"persistent-chat/internal/transcript"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	promptStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false)
)

type replyMsg struct{ content string }
type sendErrMsg struct{ err error }

// Model is the bubbletea state for the full-screen chat front-end. One
// completion can be in flight at a time; the input is disabled while
// waiting.
type Model struct {
	svc     *chat.Service
	timeout time.Duration

	viewport viewport.Model
	input    textinput.Model
	keys     KeyMap

	waiting bool
	errText string
	ready   bool
	width   int
	height  int
}

func New(svc *chat.Service, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Placeholder = "Say something"
	ti.Prompt = "You: "
	ti.Focus()

	return Model{
		svc:     svc,
		timeout: timeout,
		input:   ti,
		keys:    NewKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 4
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - len(m.input.Prompt) - 2
		m.refreshTranscript()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			if !m.waiting {
				if err := m.svc.Reset(); err != nil {
					m.errText = err.Error()
				} else {
					m.errText = ""
				}
				m.refreshTranscript()
			}
			return m, nil
		case key.Matches(msg, m.keys.Send):
			if m.waiting {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.errText = ""
			return m, m.sendCmd(text)
		}

	case replyMsg:
		m.waiting = false
		m.refreshTranscript()

	case sendErrMsg:
		m.waiting = false
		m.errText = msg.err.Error()
		m.refreshTranscript()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	status := ""
	switch {
	case m.waiting:
		status = statusStyle.Render("waiting for assistant...")
	case m.errText != "":
		status = errorStyle.Render("Error: " + m.errText)
	default:
		status = statusStyle.Render("enter: send  ctrl+l: clear  ctrl+c: quit")
	}
	prompt := promptStyle.Width(m.width).Render(m.input.View())
	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), prompt, status)
}

func (m *Model) sendCmd(text string) tea.Cmd {
	svc, timeout := m.svc, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reply, err := svc.Send(ctx, text)
		if err != nil {
			return sendErrMsg{err: err}
		}
		return replyMsg{content: reply}
	}
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, t := range m.svc.History() {
		label := string(t.Role)
		switch t.Role {
		case transcript.RoleUser:
			label = userStyle.Render("You")
		case transcript.RoleAssistant:
			label = assistantStyle.Render("Assistant")
		case transcript.RoleSystem:
			continue
		}
		fmt.Fprintf(&b, "%s  %s\n%s\n\n",
			label,
			statusStyle.Render(t.Timestamp.Format("15:04:05")),
			t.Content)
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

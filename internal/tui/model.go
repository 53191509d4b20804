// Package tui is the terminal chat front-end: a scrolling conversation, an
// input line and a side panel drawing the latest graph.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/sensor-assistant/internal/graph"
	"github.com/i474232898/sensor-assistant/internal/query"
	"github.com/i474232898/sensor-assistant/internal/sensor"
)

const (
	headerHeight = 2
	inputHeight  = 3
	footerHeight = 1
	// Below this width the graph panel is hidden.
	minSplitWidth = 90
)

// Session is the conversation the screen drives.
type Session interface {
	Ask(ctx context.Context, q string) query.Response
	Reload(ctx context.Context) error
	Notices() []string
	Greeting() string
	Name() string
}

// GraphPanel reports the graph currently on disk and the data behind it.
type GraphPanel interface {
	Latest() (string, bool)
	Summaries() []graph.Summary
	Series() []sensor.Series
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleNotice
)

type entry struct {
	role role
	text string
}

type answerMsg struct {
	resp query.Response
}

// ReloadMsg asks the screen to reload the session data, typically because
// the store changed on disk.
type ReloadMsg struct{}

type reloadedMsg struct{}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx     context.Context
	session Session
	panel   GraphPanel

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	styles   Styles

	history []entry
	busy    bool
	width   int
	height  int
	ready   bool
}

// New builds the chat screen. Pending notices are shown before the greeting.
// panel may be nil.
func New(ctx context.Context, session Session, panel GraphPanel) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask about climate, crops, air, light, or request a graph (Enter to send, Esc to quit)"
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Width = 80
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Assistant

	m := Model{
		ctx:      ctx,
		session:  session,
		panel:    panel,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		renderer: newRenderer(76),
		styles:   styles,
	}
	m.addNotices()
	m.history = append(m.history, entry{role: roleAssistant, text: session.Greeting()})
	m.refresh()
	return m
}

func newRenderer(wrap int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(wrap, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

// Busy reports whether a query is being answered.
func (m Model) Busy() bool { return m.busy }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			return m.submit()
		}
		if m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case answerMsg:
		m.busy = false
		if msg.resp.Text != "" {
			m.history = append(m.history, entry{role: roleAssistant, text: msg.resp.Text})
		}
		m.addNotices()
		m.refresh()

	case ReloadMsg:
		ctx, session := m.ctx, m.session
		return m, func() tea.Msg {
			// Failures surface as session notices.
			_ = session.Reload(ctx)
			return reloadedMsg{}
		}

	case reloadedMsg:
		m.addNotices()
		m.refresh()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if q == "" {
		return m, nil
	}

	m.history = append(m.history, entry{role: roleUser, text: q})
	m.busy = true
	m.refresh()

	ctx, session := m.ctx, m.session
	ask := func() tea.Msg {
		return answerMsg{resp: session.Ask(ctx, q)}
	}
	return m, tea.Batch(ask, m.spinner.Tick)
}

func (m *Model) addNotices() {
	for _, n := range m.session.Notices() {
		m.history = append(m.history, entry{role: roleNotice, text: n})
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = max(width, 0), max(height, 0)

	chatWidth := m.chatWidth()
	vpHeight := max(m.height-headerHeight-inputHeight-footerHeight, 1)
	if !m.ready {
		m.viewport = viewport.New(chatWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = vpHeight
	}
	m.input.Width = max(m.width-6, 10)
	m.renderer = newRenderer(chatWidth - 4)
	m.refresh()
}

func (m Model) showPanel() bool {
	return m.panel != nil && m.width >= minSplitWidth
}

func (m Model) chatWidth() int {
	if m.showPanel() {
		return m.width - m.panelWidth() - 2
	}
	return max(m.width, 20)
}

func (m Model) panelWidth() int {
	return m.width / 3
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	name := m.session.Name()
	for _, e := range m.history {
		switch e.role {
		case roleUser:
			sb.WriteString(m.styles.User.Render("You") + "\n")
			sb.WriteString(e.text + "\n\n")
		case roleNotice:
			sb.WriteString(m.styles.Notice.Render(e.text) + "\n\n")
		default:
			sb.WriteString(m.styles.Assistant.Render(name) + "\n")
			sb.WriteString(m.renderMarkdown(e.text) + "\n")
		}
	}
	return sb.String()
}

func (m Model) renderMarkdown(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text + "\n"
		}
	}()
	if m.renderer == nil {
		return text + "\n"
	}
	rendered, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return strings.TrimLeft(rendered, "\n")
}

func (m Model) renderPanel() string {
	var sb strings.Builder
	sb.WriteString(m.styles.PanelHead.Render("Graph") + "\n\n")

	path, ok := m.panel.Latest()
	if !ok {
		sb.WriteString(m.styles.Muted.Render("No graph yet. Try \"graph temperature\"."))
		return sb.String()
	}

	sums := m.panel.Summaries()
	// Room left after the heading, the path and three lines per summary.
	chartHeight := m.viewport.Height - 2 - 4 - 3*len(sums)
	if chart := graph.Chart(m.panel.Series(), m.panelWidth()-4, chartHeight); chart != "" {
		sb.WriteString(chart + "\n\n")
	}
	for _, s := range sums {
		sb.WriteString(m.styles.Assistant.Render(s.Label) + "\n")
		if s.Points == 0 {
			sb.WriteString(m.styles.Muted.Render("no readings") + "\n\n")
			continue
		}
		fmt.Fprintf(&sb, "%d points, last %.1f\nmin %.1f  max %.1f\n", s.Points, s.Last, s.Min, s.Max)
	}
	sb.WriteString(m.styles.Muted.Render(path))
	return sb.String()
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.Header.Render(m.session.Name()+" · farm sensor assistant") + "\n"

	body := m.viewport.View()
	if m.showPanel() {
		panel := m.styles.Panel.
			Width(m.panelWidth() - 2).
			Height(m.viewport.Height - 2).
			Render(m.renderPanel())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", panel)
	}

	input := m.styles.Input.Render(m.input.View())

	footer := "Enter: send · Esc/Ctrl+C: quit"
	if m.busy {
		footer = m.spinner.View() + " Thinking..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		input,
		m.styles.Footer.Render(footer),
	)
}

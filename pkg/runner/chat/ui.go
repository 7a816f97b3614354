// Package chat runs the interactive conversation: a Bubble Tea screen when
// attached to a terminal, a line prompt otherwise.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/textinput"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"

	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/gateway"
	"tableflip.dev/procure/pkg/message"
	"tableflip.dev/procure/pkg/printers"
	"tableflip.dev/procure/pkg/runner/export"
)

// Conversation is the controller surface the screen drives.
type Conversation interface {
	Init(ctx context.Context) error
	Send(ctx context.Context, text string) (*gateway.Reply, error)
	Load(ctx context.Context, id string) (controller.LoadResult, error)
	StartNew() error
	CloseSpecification()
	Snapshot() controller.View
	Changed() <-chan struct{}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	roleStyles  = map[message.Role]lipgloss.Style{
		message.RoleUser:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45")),
		message.RoleAssistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		message.RoleSystem:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("220")),
	}
	specStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
)

// Model is the Bubble Tea model for a conversation.
type Model struct {
	ctx       context.Context
	conv      Conversation
	exportDir string
	markdown  bool

	view     controller.View
	viewport viewport.Model
	input    textinput.Model
	status   string

	termWidth  int
	termHeight int
}

const idleStatus = "enter to send, /help for commands, esc to quit"

type changedMsg struct{}

type resultMsg struct {
	status string
	err    error
}

// New builds a screen over conv. Assistant replies are rendered as markdown
// unless plain is set.
func New(ctx context.Context, conv Conversation, exportDir string, plain bool) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe what you want to buy"
	ti.CharLimit = 2000
	ti.Prompt = "> "
	ti.Focus()
	ti.Styles.Cursor.Color = lipgloss.Color("218")
	ti.Styles.Cursor.Shape = tea.CursorUnderline

	return Model{
		ctx:       ctx,
		conv:      conv,
		exportDir: exportDir,
		markdown:  !plain,
		view:      conv.Snapshot(),
		viewport:  viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)),
		input:     ti,
		status:    idleStatus,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.initCmd(), waitForChange(m.conv), textinput.Blink)
}

func (m Model) initCmd() tea.Cmd {
	return func() tea.Msg {
		return resultMsg{err: m.conv.Init(m.ctx)}
	}
}

func waitForChange(conv Conversation) tea.Cmd {
	return func() tea.Msg {
		<-conv.Changed()
		return changedMsg{}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.conv.Send(m.ctx, text)
		return resultMsg{err: err}
	}
}

func (m Model) loadCmd(id string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.conv.Load(m.ctx, id)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{status: fmt.Sprintf("conversation %s: %s", id, res)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.termHeight = msg.Height
		m.applySizes()
		m.render()
	case changedMsg:
		m.view = m.conv.Snapshot()
		m.render()
		cmds = append(cmds, waitForChange(m.conv))
	case resultMsg:
		switch {
		case errors.Is(msg.err, controller.ErrSuperseded):
			m.status = "an earlier reply arrived after the conversation changed and was dropped"
		case msg.err != nil:
			m.status = "ERR: " + msg.err.Error()
		case msg.status != "":
			m.status = msg.status
		default:
			m.status = idleStatus
		}
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			if c, ok := ParseCommand(line); ok {
				return m, m.runCommand(c)
			}
			if m.view.Busy() {
				m.status = "still waiting for the previous reply"
				return m, nil
			}
			m.status = "sending…"
			return m, m.sendCmd(line)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) runCommand(c Command) tea.Cmd {
	switch c.Name {
	case cmdQuit:
		return tea.Quit
	case cmdNew:
		if err := m.conv.StartNew(); err != nil {
			m.status = "ERR: " + err.Error()
		} else {
			m.status = "started a new conversation"
		}
	case cmdLoad:
		if c.Arg == "" {
			m.status = "usage: /load <conversation id>"
			return nil
		}
		m.status = "loading " + c.Arg + "…"
		return m.loadCmd(c.Arg)
	case cmdExport:
		dir := c.Arg
		if dir == "" {
			dir = m.exportDir
		}
		e := export.Export{Dir: dir}
		path, err := e.Do(m.view.Specification)
		if err != nil {
			m.status = "ERR: " + err.Error()
		} else {
			m.status = "specification saved to " + path
		}
	case cmdClose:
		m.conv.CloseSpecification()
		m.status = "specification closed"
	case cmdHelp:
		m.status = helpText
	default:
		m.status = fmt.Sprintf("unknown command /%s, try /help", c.Name)
	}
	return nil
}

func (m Model) View() string {
	title := "New conversation"
	if m.view.ConversationID != "" {
		title = "Conversation " + m.view.ConversationID
	}
	header := titleStyle.Render("Procurement Assistant") + faintStyle.Render("  "+title)
	if m.view.Busy() {
		header += faintStyle.Render("  (" + m.view.Phase.String() + "…)")
	}

	lines := []string{header}
	if m.view.Degraded {
		lines = append(lines, noticeStyle.Render(controller.DegradedNotice))
	}
	lines = append(lines,
		m.viewport.View(),
		m.input.View(),
		faintStyle.Render(m.status),
	)
	return strings.Join(lines, "\n")
}

// applySizes recalculates the transcript pane from the terminal size.
func (m *Model) applySizes() {
	if m.termWidth == 0 || m.termHeight == 0 {
		return
	}
	// header, notice, input and status lines
	height := m.termHeight - 4
	if height < 3 {
		height = 3
	}
	m.viewport.SetWidth(m.termWidth)
	m.viewport.SetHeight(height)
	m.input.SetWidth(m.termWidth - 4)
}

func (m *Model) contentWidth() int {
	if m.termWidth <= 0 {
		return 80
	}
	return m.termWidth
}

func (m *Model) render() {
	width := m.contentWidth()
	var b strings.Builder
	for _, msg := range m.view.Messages {
		style, ok := roleStyles[msg.Role]
		if !ok {
			style = titleStyle
		}
		b.WriteString(style.Render(printers.RoleLabel(msg.Role)))
		b.WriteString("\n")
		if m.markdown && msg.Role == message.RoleAssistant {
			b.WriteString(printers.RenderMarkdown(msg.Content, width-2))
		} else {
			b.WriteString(wordwrap.String(msg.Content, width-2))
		}
		b.WriteString("\n\n")
	}
	if spec := m.view.Specification; spec != nil {
		b.WriteString(specStyle.Render(specLines(spec, m.view.SpecificationFinalized)))
		b.WriteString("\n")
	}
	if len(m.view.ShoppingOptions) > 0 {
		b.WriteString(titleStyle.Render("Shopping options"))
		b.WriteString("\n")
		for i, o := range m.view.ShoppingOptions {
			fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, o.Title, faintStyle.Render(o.Link))
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func specLines(spec *message.ProductSpecification, finalized bool) string {
	title := "Product specification"
	if finalized {
		title += " (final, /export to save, /close to hide)"
	}
	lines := []string{
		titleStyle.Render(title),
		"Name: " + spec.Name,
	}
	if spec.Category != "" {
		lines = append(lines, "Category: "+spec.Category)
	}
	if spec.EstimatedPrice != "" {
		lines = append(lines, "Estimated price: "+spec.EstimatedPrice)
	}
	if spec.Description != "" {
		lines = append(lines, spec.Description)
	}
	for _, f := range spec.Features {
		lines = append(lines, "- "+f)
	}
	return strings.Join(lines, "\n")
}

// Run starts the screen and blocks until the user quits.
func Run(ctx context.Context, conv Conversation, exportDir string, plain bool) error {
	p := tea.NewProgram(New(ctx, conv, exportDir, plain), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/message"
)

// PrettyPrint writes transcripts and specifications for a terminal.
type PrettyPrint struct {
	Out io.Writer
	// Markdown renders assistant replies with glamour.
	Markdown bool
	Width    int
}

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) width() int {
	if pp.Width <= 0 {
		return 80
	}
	return pp.Width
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.out(), title)
}

// View prints everything a renderer would show for v.
func (pp *PrettyPrint) View(v controller.View) {
	title := "New conversation"
	if v.ConversationID != "" {
		title = "Conversation " + v.ConversationID
	}
	pp.Title(title)
	if v.Degraded {
		pp.Notice(controller.DegradedNotice)
	}
	pp.Transcript(v.Messages)
	if v.Specification != nil {
		pp.Specification(v.Specification, v.SpecificationFinalized)
	}
	pp.ShoppingOptions(v.ShoppingOptions)
}

func (pp *PrettyPrint) Transcript(msgs []message.Message) {
	if len(msgs) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprint(pp.out(), " no messages\n\n")
		return
	}
	for _, m := range msgs {
		pp.Message(m)
	}
}

var roleColors = map[message.Role]*color.Color{
	message.RoleUser:      color.New(color.FgCyan, color.Bold),
	message.RoleAssistant: color.New(color.FgGreen, color.Bold),
	message.RoleSystem:    color.New(color.FgYellow, color.Italic),
}

func (pp *PrettyPrint) Message(m message.Message) {
	rc, ok := roleColors[m.Role]
	if !ok {
		rc = color.New(color.Bold)
	}
	ts := color.New(color.Faint)

	_, _ = rc.Fprintf(pp.out(), "%s", RoleLabel(m.Role))
	_, _ = ts.Fprintf(pp.out(), "  %s\n", m.Timestamp)

	content := m.Content
	if pp.Markdown && m.Role == message.RoleAssistant {
		content = RenderMarkdown(content, pp.width())
	}
	_, _ = fmt.Fprintln(pp.out(), strings.TrimRight(content, "\n"))
	pp.NewLine()
}

func (pp *PrettyPrint) Notice(text string) {
	n := color.New(color.FgHiYellow, color.Faint)
	_, _ = n.Fprintf(pp.out(), "! %s\n\n", text)
}

func (pp *PrettyPrint) Specification(spec *message.ProductSpecification, finalized bool) {
	bold := color.New(color.Bold)
	title := "Product specification"
	if finalized {
		title += " (final)"
	}
	pp.Title(title)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.Wrap = true
	tbl.MaxColWidth = uint(pp.width() - 16)
	tbl.AddRow(bold.Sprint("Name"), spec.Name)
	tbl.AddRow(bold.Sprint("Category"), spec.Category)
	tbl.AddRow(bold.Sprint("Price"), spec.EstimatedPrice)
	tbl.AddRow(bold.Sprint("Description"), spec.Description)
	for i, f := range spec.Features {
		label := ""
		if i == 0 {
			label = bold.Sprint("Features")
		}
		tbl.AddRow(label, "- "+f)
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

func (pp *PrettyPrint) ShoppingOptions(opts []message.ShoppingOption) {
	if len(opts) == 0 {
		return
	}
	bold := color.New(color.Bold)
	pp.Title("Shopping options")

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.Wrap = true
	tbl.MaxColWidth = uint(pp.width() / 2)
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("Title"), bold.Sprint("Link"))
	for i, o := range opts {
		tbl.AddRow(i+1, o.Title, o.Link)
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

// History prints the cached transcript as a compact table.
func (pp *PrettyPrint) History(id string, msgs []message.Message) {
	if id == "" {
		id = "(none)"
	}
	faint := color.New(color.Faint)
	bold := color.New(color.Bold)
	pp.Title("Cached conversation")
	_, _ = faint.Fprintf(pp.out(), "id: %s, %d messages\n\n", id, len(msgs))
	if len(msgs) == 0 {
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = uint(pp.width() / 2)
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("Role"), bold.Sprint("Timestamp"), bold.Sprint("Content"))
	for i, m := range msgs {
		tbl.AddRow(i, string(m.Role), m.Timestamp, firstLine(m.Content))
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

// RoleLabel is the heading shown above a message.
func RoleLabel(r message.Role) string {
	switch r {
	case message.RoleUser:
		return "You"
	case message.RoleAssistant:
		return "Assistant"
	case message.RoleSystem:
		return "System"
	}
	return string(r)
}

// RenderMarkdown renders content for a terminal of the given width. It
// returns content unchanged when rendering fails.
func RenderMarkdown(content string, width int) string {
	if width < 10 {
		width = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

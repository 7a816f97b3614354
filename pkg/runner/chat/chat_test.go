package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/fatih/color"
	"github.com/muesli/reflow/ansi"

	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/gateway"
	"tableflip.dev/procure/pkg/message"
)

func init() {
	color.NoColor = true
}

// fakeConv answers every send with a canned assistant reply.
type fakeConv struct {
	view    controller.View
	sent    []string
	loaded  []string
	started int
	changed chan struct{}
	onSend  func()
}

func newFakeConv() *fakeConv {
	return &fakeConv{
		view:    controller.View{Messages: []message.Message{message.Welcome()}},
		changed: make(chan struct{}, 1),
	}
}

func (f *fakeConv) Init(ctx context.Context) error { return nil }

func (f *fakeConv) Send(ctx context.Context, text string) (*gateway.Reply, error) {
	f.sent = append(f.sent, text)
	f.view.ConversationID = "abc"
	f.view.Messages = append(f.view.Messages,
		message.New(message.RoleUser, text),
		message.New(message.RoleAssistant, "reply to "+text))
	if f.onSend != nil {
		f.onSend()
	}
	return &gateway.Reply{}, nil
}

func (f *fakeConv) Load(ctx context.Context, id string) (controller.LoadResult, error) {
	f.loaded = append(f.loaded, id)
	return controller.LoadStartedFresh, nil
}

func (f *fakeConv) StartNew() error {
	f.started++
	f.view = controller.View{Messages: []message.Message{message.Welcome()}}
	return nil
}

func (f *fakeConv) CloseSpecification()       { f.view.Specification = nil }
func (f *fakeConv) Snapshot() controller.View { return f.view }
func (f *fakeConv) Changed() <-chan struct{}  { return f.changed }

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		want Command
	}{
		{line: "hello", ok: false},
		{line: "/new", ok: true, want: Command{Name: cmdNew}},
		{line: "  /load abc ", ok: true, want: Command{Name: cmdLoad, Arg: "abc"}},
		{line: "/export /tmp/specs", ok: true, want: Command{Name: cmdExport, Arg: "/tmp/specs"}},
		{line: "/q", ok: true, want: Command{Name: cmdQuit}},
		{line: "/", ok: true, want: Command{Name: cmdHelp}},
		{line: "/CLOSE", ok: true, want: Command{Name: cmdClose}},
	}
	for _, tc := range tests {
		got, ok := ParseCommand(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseCommand(%q) = %+v, %v; want %+v, %v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

func TestReplyReturnsMessagesAfterLastUser(t *testing.T) {
	msgs := []message.Message{
		message.Welcome(),
		message.New(message.RoleUser, "a"),
		message.New(message.RoleAssistant, "b"),
		message.New(message.RoleSystem, "c"),
	}
	got := Reply(msgs)
	if len(got) != 2 || got[0].Content != "b" || got[1].Content != "c" {
		t.Fatalf("unexpected reply %v", got)
	}
	if len(Reply(msgs[:1])) != 1 {
		t.Fatalf("expected whole transcript without a user message")
	}
}

func TestREPLSendsAndRunsCommands(t *testing.T) {
	conv := newFakeConv()
	out := &bytes.Buffer{}
	r := REPL{
		Conv: conv,
		In:   strings.NewReader("I need a chair\n\n/load xyz\n/new\n/bogus\n/quit\nnever sent\n"),
		Out:  out,
	}
	if err := r.Do(context.Background()); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if len(conv.sent) != 1 || conv.sent[0] != "I need a chair" {
		t.Fatalf("unexpected sends %v", conv.sent)
	}
	if len(conv.loaded) != 1 || conv.loaded[0] != "xyz" || conv.started != 1 {
		t.Fatalf("expected load and new to run, got %v / %d", conv.loaded, conv.started)
	}
	text := out.String()
	for _, want := range []string{"reply to I need a chair", "xyz is not available", "unknown command /bogus"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestREPLPrintsNoticesOnce(t *testing.T) {
	conv := newFakeConv()
	out := &bytes.Buffer{}
	r := &REPL{
		Conv: conv,
		In:   strings.NewReader("hello\nagain\n"),
		Out:  out,
	}
	conv.onSend = func() {
		if !conv.view.Degraded {
			conv.view.Degraded = true
			r.Notify(controller.DegradedNotice)
		}
	}
	if err := r.Do(context.Background()); err != nil {
		t.Fatalf("repl: %v", err)
	}
	text := out.String()
	if n := strings.Count(text, controller.DegradedNotice); n != 1 {
		t.Fatalf("expected the notice once, got %d:\n%s", n, text)
	}
	if strings.Index(text, controller.DegradedNotice) > strings.Index(text, "reply to hello") {
		t.Fatalf("expected the notice before the reply:\n%s", text)
	}
}

func TestModelRendersTranscriptAndSends(t *testing.T) {
	conv := newFakeConv()
	m := New(context.Background(), conv, t.TempDir(), true)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	next, _ = m.Update(changedMsg{})
	m = next.(Model)
	if view := stripANSI(m.View()); !strings.Contains(view, message.WelcomeText[:20]) {
		t.Fatalf("expected welcome in view:\n%s", view)
	}

	m.input.SetValue("a standing desk")
	next, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("expected a send command")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)
	next, _ = m.Update(changedMsg{})
	m = next.(Model)

	if len(conv.sent) != 1 || conv.sent[0] != "a standing desk" {
		t.Fatalf("unexpected sends %v", conv.sent)
	}
	if view := stripANSI(m.View()); !strings.Contains(view, "reply to a standing desk") || !strings.Contains(view, "Conversation abc") {
		t.Fatalf("expected reply in view:\n%s", view)
	}
}

func TestModelExportWithoutSpecification(t *testing.T) {
	conv := newFakeConv()
	m := New(context.Background(), conv, t.TempDir(), true)
	m.input.SetValue("/export")
	next, _ := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	m = next.(Model)
	if !strings.Contains(m.status, "no product specification") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelShowsDegradedNotice(t *testing.T) {
	conv := newFakeConv()
	conv.view.Degraded = true
	m := New(context.Background(), conv, "", true)
	if !strings.Contains(stripANSI(m.View()), controller.DegradedNotice) {
		t.Fatalf("expected degraded notice in view")
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	ansiSeq := false
	for _, r := range s {
		if r == ansi.Marker {
			ansiSeq = true
			continue
		}
		if ansiSeq {
			if ansi.IsTerminator(r) {
				ansiSeq = false
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

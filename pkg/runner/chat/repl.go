package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/message"
	"tableflip.dev/procure/pkg/printers"
	"tableflip.dev/procure/pkg/runner/export"
)

// REPL is the line oriented conversation used when stdin is not a terminal.
// Pass Notify to the controller so transient notices reach the output.
type REPL struct {
	Conv      Conversation
	In        io.Reader
	Out       io.Writer
	ExportDir string
	Markdown  bool

	mu      sync.Mutex
	notices []string
}

// Notify queues text to be printed before the next output.
func (r *REPL) Notify(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, text)
}

func (r *REPL) flush(pp *printers.PrettyPrint) {
	r.mu.Lock()
	pending := r.notices
	r.notices = nil
	r.mu.Unlock()
	for _, n := range pending {
		pp.Notice(n)
	}
}

// show prints v. The degraded notice arrives through Notify instead.
func (r *REPL) show(pp *printers.PrettyPrint, v controller.View) {
	r.flush(pp)
	v.Degraded = false
	pp.View(v)
}

// Do reads one message or slash command per line until EOF or /quit.
func (r *REPL) Do(ctx context.Context) error {
	pp := &printers.PrettyPrint{Out: r.Out, Markdown: r.Markdown}
	if err := r.Conv.Init(ctx); err != nil {
		return err
	}
	r.show(pp, r.Conv.Snapshot())

	scanner := bufio.NewScanner(r.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		_, _ = fmt.Fprint(r.Out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(r.Out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if c, ok := ParseCommand(line); ok {
			quit, err := r.command(ctx, pp, c)
			r.flush(pp)
			if err != nil {
				pp.Notice(err.Error())
			}
			if quit {
				return nil
			}
			continue
		}

		_, err := r.Conv.Send(ctx, line)
		r.flush(pp)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			pp.Notice(err.Error())
			continue
		}
		v := r.Conv.Snapshot()
		pp.Transcript(Reply(v.Messages))
		if v.Specification != nil {
			pp.Specification(v.Specification, v.SpecificationFinalized)
		}
		pp.ShoppingOptions(v.ShoppingOptions)
	}
}

func (r *REPL) command(ctx context.Context, pp *printers.PrettyPrint, c Command) (bool, error) {
	switch c.Name {
	case cmdQuit:
		return true, nil
	case cmdNew:
		if err := r.Conv.StartNew(); err != nil {
			return false, err
		}
		r.show(pp, r.Conv.Snapshot())
	case cmdLoad:
		if c.Arg == "" {
			return false, errors.New("usage: /load <conversation id>")
		}
		res, err := r.Conv.Load(ctx, c.Arg)
		if err != nil {
			return false, err
		}
		if res == controller.LoadStartedFresh {
			pp.Notice(fmt.Sprintf("conversation %s is not available, started a new one", c.Arg))
		}
		r.show(pp, r.Conv.Snapshot())
	case cmdExport:
		dir := c.Arg
		if dir == "" {
			dir = r.ExportDir
		}
		e := export.Export{Dir: dir}
		path, err := e.Do(r.Conv.Snapshot().Specification)
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(r.Out, "specification saved to %s\n", path)
	case cmdClose:
		r.Conv.CloseSpecification()
	case cmdHelp:
		_, _ = fmt.Fprintln(r.Out, helpText)
	default:
		return false, fmt.Errorf("unknown command /%s, try /help", c.Name)
	}
	return false, nil
}

// Reply returns the messages after the last user message, which is what a
// single exchange added. The whole transcript is returned when there is no
// user message.
func Reply(msgs []message.Message) []message.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == message.RoleUser {
			return msgs[i+1:]
		}
	}
	return msgs
}

// Package load switches the current conversation or starts a new one.
package load

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/procure/pkg/auth"
	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/printers"
	"tableflip.dev/procure/pkg/runner/chat"
)

// Load opens conversation ID, or starts a new conversation when New is set.
type Load struct {
	Auth         *auth.Service
	Conversation chat.Conversation
	ID           string
	New          bool
	Markdown     bool

	Output string
	Out    io.Writer
}

// Result is the JSON output of Load.
type Result struct {
	controller.View
	Result string `json:"result"`
}

func (l *Load) Do(ctx context.Context) error {
	if err := l.Auth.Require(); err != nil {
		return err
	}

	res := Result{Result: "new"}
	if l.New {
		if err := l.Conversation.StartNew(); err != nil {
			return err
		}
	} else {
		r, err := l.Conversation.Load(ctx, l.ID)
		if err != nil {
			return err
		}
		res.Result = r.String()
	}
	res.View = l.Conversation.Snapshot()

	out := l.Out
	if out == nil {
		out = color.Output
	}
	if l.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	pp := &printers.PrettyPrint{Out: out, Markdown: l.Markdown}
	if !l.New && res.Result == controller.LoadStartedFresh.String() {
		pp.Notice(fmt.Sprintf("conversation %s is not available, started a new one", l.ID))
	}
	pp.View(res.View)
	return nil
}

// Package history prints the locally cached conversation without touching
// the network.
package history

import (
	"context"
	"encoding/json"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/procure/pkg/message"
	"tableflip.dev/procure/pkg/printers"
	"tableflip.dev/procure/pkg/session"
)

type History struct {
	Session *session.Manager

	Output string
	Out    io.Writer
}

// Result is the JSON output of History.
type Result struct {
	ConversationID string            `json:"conversation_id,omitempty"`
	Messages       []message.Message `json:"messages"`
}

func (h *History) Do(ctx context.Context) error {
	state := h.Session.State()
	out := h.Out
	if out == nil {
		out = color.Output
	}
	if h.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(Result{ConversationID: state.ConversationID, Messages: state.Messages})
	}
	pp := &printers.PrettyPrint{Out: out}
	pp.History(state.ConversationID, state.Messages)
	return nil
}

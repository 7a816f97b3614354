// Package send posts a single message and prints the reply.
package send

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/printers"
	"tableflip.dev/procure/pkg/runner/chat"
	"tableflip.dev/procure/pkg/runner/export"
)

// Starter restores the conversation before the send.
type Starter interface {
	Start(ctx context.Context) error
}

type Send struct {
	App          Starter
	Conversation chat.Conversation
	Message      string
	ExportDir    string
	Markdown     bool

	Output string
	Out    io.Writer
}

// Result is the JSON output of Send.
type Result struct {
	controller.View
	ExportedTo string `json:"exportedTo,omitempty"`
}

func (s *Send) Do(ctx context.Context) error {
	if err := s.App.Start(ctx); err != nil {
		return err
	}
	if _, err := s.Conversation.Send(ctx, s.Message); err != nil {
		return err
	}
	v := s.Conversation.Snapshot()

	res := Result{View: v}
	if s.ExportDir != "" && v.Specification != nil {
		e := export.Export{Dir: s.ExportDir}
		path, err := e.Do(v.Specification)
		if err != nil {
			return err
		}
		res.ExportedTo = path
	}

	out := s.Out
	if out == nil {
		out = color.Output
	}
	if s.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	pp := &printers.PrettyPrint{Out: out, Markdown: s.Markdown}
	if v.Degraded {
		pp.Notice(controller.DegradedNotice)
	}
	pp.Transcript(chat.Reply(v.Messages))
	if v.Specification != nil {
		pp.Specification(v.Specification, v.SpecificationFinalized)
	}
	pp.ShoppingOptions(v.ShoppingOptions)
	if v.ConversationID != "" {
		_, _ = fmt.Fprintf(out, "conversation: %s\n", v.ConversationID)
	}
	if res.ExportedTo != "" {
		_, _ = fmt.Fprintf(out, "specification saved to %s\n", res.ExportedTo)
	}
	return nil
}

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"tableflip.dev/procure/pkg/message"
	"tableflip.dev/procure/pkg/session"
	"tableflip.dev/procure/pkg/store"
)

func init() {
	color.NoColor = true
}

func seeded(t *testing.T) *session.Manager {
	t.Helper()
	s := session.New(store.NewMemory())
	err := s.Save(session.State{
		ConversationID: "c-7",
		Messages: []message.Message{
			{Role: message.RoleUser, Content: "toner for an HP M404", Timestamp: "2025-04-01T10:00:00Z"},
			{Role: message.RoleAssistant, Content: "How many cartridges?\nAnd which colour?", Timestamp: "2025-04-01T10:00:02Z"},
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestHistoryPretty(t *testing.T) {
	out := &bytes.Buffer{}
	h := History{Session: seeded(t), Out: out}
	if err := h.Do(context.Background()); err != nil {
		t.Fatalf("history: %v", err)
	}
	text := out.String()
	for _, want := range []string{"id: c-7, 2 messages", "toner for an HP M404", "How many cartridges?"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
	if strings.Contains(text, "which colour") {
		t.Fatalf("expected only the first line of each message:\n%s", text)
	}
}

func TestHistoryJSON(t *testing.T) {
	out := &bytes.Buffer{}
	h := History{Session: seeded(t), Output: "json", Out: out}
	if err := h.Do(context.Background()); err != nil {
		t.Fatalf("history: %v", err)
	}
	var res Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if res.ConversationID != "c-7" || len(res.Messages) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHistoryEmptyCache(t *testing.T) {
	out := &bytes.Buffer{}
	h := History{Session: session.New(store.NewMemory()), Out: out}
	if err := h.Do(context.Background()); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out.String(), "id: (none), 0 messages") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"tableflip.dev/procure/pkg/auth"
	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/gateway"
	"tableflip.dev/procure/pkg/message"
	"tableflip.dev/procure/pkg/store"
)

// chatServer keeps one conversation in memory and can be switched off.
type chatServer struct {
	mu       sync.Mutex
	down     bool
	messages []message.Message
	tokens   []string
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, r.Header.Get("Authorization"))
	if s.down {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/chat":
		var req gateway.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.messages = append(s.messages,
			message.New(message.RoleUser, req.Message),
			message.New(message.RoleAssistant, "echo: "+req.Message))
		_ = json.NewEncoder(w).Encode(gateway.ChatResponse{
			ConversationID: "conv-1",
			Response:       "echo: " + req.Message,
			Messages:       s.messages,
		})
	case r.Method == http.MethodGet && r.URL.Path == "/api/conversations/conv-1":
		_ = json.NewEncoder(w).Encode(message.Conversation{ID: "conv-1", Messages: s.messages})
	default:
		http.NotFound(w, r)
	}
}

func (s *chatServer) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func newApp(t *testing.T, base, url string, notify controller.Notifier) *App {
	t.Helper()
	a, err := New(&store.FileConfig{Path: base, API: url}, Options{
		LogOutput: &bytes.Buffer{},
		Notifier:  notify,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestStartRequiresLogin(t *testing.T) {
	a := newApp(t, t.TempDir(), "http://127.0.0.1:0", nil)
	if err := a.Start(context.Background()); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestConversationSurvivesRestartAndOutage(t *testing.T) {
	srv := &chatServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()
	base := t.TempDir()
	ctx := context.Background()

	first := newApp(t, base, ts.URL, nil)
	if _, err := first.Auth.Login("buyer@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := first.Controller.Send(ctx, "a standing desk"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if id := first.Session.CurrentID(); id != "conv-1" {
		t.Fatalf("expected conv-1 to be cached, got %q", id)
	}

	// Restart with the server up: the conversation is fetched.
	second := newApp(t, base, ts.URL, nil)
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	v := second.Controller.Snapshot()
	if v.Degraded || v.ConversationID != "conv-1" || len(v.Messages) != 2 {
		t.Fatalf("unexpected view after restart %+v", v)
	}

	// Restart with the server down: the cache is shown in degraded mode.
	srv.setDown(true)
	var notices []string
	third := newApp(t, base, ts.URL, func(text string) { notices = append(notices, text) })
	if err := third.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	v = third.Controller.Snapshot()
	if !v.Degraded || len(v.Messages) != 2 || len(notices) != 1 {
		t.Fatalf("expected degraded cached view, got %+v (notices %v)", v, notices)
	}

	// A send during the outage appends an apology and keeps the id.
	if _, err := third.Controller.Send(ctx, "still there?"); err != nil {
		t.Fatalf("send: %v", err)
	}
	v = third.Controller.Snapshot()
	if len(v.Messages) != 4 || v.Messages[3].Content != message.ApologyText || v.ConversationID != "conv-1" {
		t.Fatalf("unexpected degraded send %+v", v)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	for _, tok := range srv.tokens {
		if tok == "" {
			t.Fatalf("expected every request to carry the user token")
		}
	}
}

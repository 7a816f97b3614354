package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/gateway"
	"tableflip.dev/procure/pkg/message"
	"tableflip.dev/procure/pkg/session"
	"tableflip.dev/procure/pkg/store"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *session.Manager) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	l := log.New(&bytes.Buffer{}, "", 0)
	s := session.New(store.NewMemory(), session.WithLogger(l))
	gw := gateway.New(gateway.NewClient(srv.URL), s, l)
	return NewService(controller.New(s, gw, controller.WithLogger(l))), s
}

func chatHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req gateway.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		msgs := append(req.CachedMessages,
			message.Message{Role: message.RoleUser, Content: req.Message, Timestamp: "2025-04-01T10:00:00Z"},
			message.Message{Role: message.RoleAssistant, Content: "Which size?", Timestamp: "2025-04-01T10:00:01Z"},
		)
		_ = json.NewEncoder(w).Encode(gateway.ChatResponse{
			ConversationID: "c-1",
			Response:       "Which size?",
			Messages:       msgs,
		})
	}
}

func TestServiceTranscriptStartsWithWelcome(t *testing.T) {
	svc, _ := newTestService(t, chatHandler(t))
	dto, err := svc.Transcript(context.Background())
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(dto.Messages) != 1 || dto.Messages[0].Content != message.WelcomeText {
		t.Fatalf("expected welcome message, got %v", dto.Messages)
	}
	if dto.ConversationID != "" || dto.Notice != "" {
		t.Fatalf("unexpected transcript %+v", dto)
	}
}

func TestServiceSendMessage(t *testing.T) {
	svc, s := newTestService(t, chatHandler(t))
	dto, err := svc.SendMessage(context.Background(), "a standing desk")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if dto.ConversationID != "c-1" {
		t.Fatalf("expected conversation c-1, got %q", dto.ConversationID)
	}
	if got := dto.Messages[len(dto.Messages)-1].Content; got != "Which size?" {
		t.Fatalf("expected assistant reply last, got %q", got)
	}
	if s.CurrentID() != "c-1" || len(s.Messages()) != len(dto.Messages) {
		t.Fatalf("cache not updated: id=%q msgs=%d", s.CurrentID(), len(s.Messages()))
	}
}

func TestServiceSendMessageRequiresText(t *testing.T) {
	svc, _ := newTestService(t, chatHandler(t))
	if _, err := svc.SendMessage(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestServiceSendMessageOutageIsDegraded(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	dto, err := svc.SendMessage(context.Background(), "a standing desk")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !dto.Degraded || dto.Notice != controller.DegradedNotice {
		t.Fatalf("expected degraded transcript, got %+v", dto)
	}
	if got := dto.Messages[len(dto.Messages)-1].Content; got != message.ApologyText {
		t.Fatalf("expected apology last, got %q", got)
	}
}

func TestServiceLoadConversation(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversations/c-9" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(message.Conversation{
			ID: "c-9",
			Messages: []message.Message{
				{Role: message.RoleUser, Content: "printer paper", Timestamp: "2025-04-01T10:00:00Z"},
			},
		})
	})
	dto, err := svc.LoadConversation(context.Background(), " c-9 ")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dto.ConversationID != "c-9" || dto.Result != controller.LoadFetched.String() {
		t.Fatalf("unexpected transcript %+v", dto)
	}
	if _, err := svc.LoadConversation(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestServiceNewConversation(t *testing.T) {
	svc, s := newTestService(t, chatHandler(t))
	ctx := context.Background()
	if _, err := svc.SendMessage(ctx, "a standing desk"); err != nil {
		t.Fatalf("send: %v", err)
	}
	dto, err := svc.NewConversation(ctx)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if dto.ConversationID != "" || len(dto.Messages) != 1 || dto.Result != "new" {
		t.Fatalf("expected fresh transcript, got %+v", dto)
	}
	if s.CurrentID() != "" || len(s.Messages()) != 0 {
		t.Fatalf("expected cache cleared")
	}
}

func TestServiceRequiresConversation(t *testing.T) {
	svc := &Service{}
	if _, err := svc.Transcript(context.Background()); err == nil {
		t.Fatalf("expected error without conversation")
	}
}

type flakyInit struct {
	Conversation
	calls int
	fail  int
}

func (f *flakyInit) Init(ctx context.Context) error {
	f.calls++
	if f.calls <= f.fail {
		return context.Canceled
	}
	return f.Conversation.Init(ctx)
}

func TestServiceRetriesFailedInit(t *testing.T) {
	inner, _ := newTestService(t, chatHandler(t))
	conv := &flakyInit{Conversation: inner.Conversation, fail: 1}
	svc := NewService(conv)

	if _, err := svc.Transcript(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the first init error, got %v", err)
	}
	dto, err := svc.Transcript(context.Background())
	if err != nil {
		t.Fatalf("transcript after retry: %v", err)
	}
	if len(dto.Messages) != 1 || dto.Messages[0].Content != message.WelcomeText {
		t.Fatalf("expected welcome transcript, got %v", dto.Messages)
	}
	if _, err := svc.Transcript(context.Background()); err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if conv.calls != 2 {
		t.Fatalf("expected init to run until it succeeded, got %d calls", conv.calls)
	}
}

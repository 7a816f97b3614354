// Package mcp exposes the procurement assistant over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tableflip.dev/procure/pkg/controller"
	"tableflip.dev/procure/pkg/gateway"
)

// Conversation is the controller surface the MCP tools drive.
type Conversation interface {
	Init(ctx context.Context) error
	Send(ctx context.Context, text string) (*gateway.Reply, error)
	Load(ctx context.Context, id string) (controller.LoadResult, error)
	StartNew() error
	Snapshot() controller.View
}

// Service adapts a Conversation for MCP handlers. The conversation is
// restored on first use and retried on later calls until that succeeds.
type Service struct {
	Conversation Conversation

	initMu sync.Mutex
	ready  bool
}

// ErrEmptyMessage is returned when send_message gets blank text.
var ErrEmptyMessage = errors.New("message is required")

// TranscriptDTO is what every tool returns.
type TranscriptDTO struct {
	controller.View
	Result string `json:"result,omitempty"`
	Notice string `json:"notice,omitempty"`
}

// NewService wraps conv.
func NewService(conv Conversation) *Service {
	return &Service{Conversation: conv}
}

func (s *Service) ensureInit(ctx context.Context) error {
	if s.Conversation == nil {
		return errors.New("conversation is not configured")
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.Conversation.Init(ctx); err != nil {
		return err
	}
	s.ready = true
	return nil
}

// SendMessage posts text and returns the updated transcript.
func (s *Service) SendMessage(ctx context.Context, text string) (*TranscriptDTO, error) {
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.Conversation.Send(ctx, text); err != nil {
		return nil, err
	}
	return s.snapshot(""), nil
}

// LoadConversation switches to id.
func (s *Service) LoadConversation(ctx context.Context, id string) (*TranscriptDTO, error) {
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("conversation id is required")
	}
	res, err := s.Conversation.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(res.String()), nil
}

// NewConversation clears the current conversation.
func (s *Service) NewConversation(ctx context.Context) (*TranscriptDTO, error) {
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}
	if err := s.Conversation.StartNew(); err != nil {
		return nil, err
	}
	return s.snapshot("new"), nil
}

// Transcript returns the current state without calling the server.
func (s *Service) Transcript(ctx context.Context) (*TranscriptDTO, error) {
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}
	return s.snapshot(""), nil
}

func (s *Service) snapshot(result string) *TranscriptDTO {
	dto := &TranscriptDTO{View: s.Conversation.Snapshot(), Result: result}
	if dto.Degraded {
		dto.Notice = controller.DegradedNotice
	}
	return dto
}

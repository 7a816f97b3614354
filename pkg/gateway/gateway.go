// Package gateway wraps the remote chat backend and turns its failures into
// results the conversation controller can always render.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tableflip.dev/procure/pkg/message"
)

// ErrNoSubstitute is returned by FetchConversation when the remote call failed
// and the local cache holds nothing for the requested conversation.
var ErrNoSubstitute = errors.New("gateway: no cached substitute for conversation")

const synthesizedResponse = "Error connecting to server."

// Remote is the backend surface the gateway needs. *Client implements it.
type Remote interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Conversation(ctx context.Context, id string) (*message.Conversation, error)
}

// Cache is the read side of the conversation cache used for fetch fallback.
type Cache interface {
	CurrentID() string
	Messages() []message.Message
}

// Reply is the outcome of SendMessage. When Synthesized is set the backend
// was not reached: Messages is the prior cache plus the failed user message
// and an apology, and Err holds the transport failure.
type Reply struct {
	ChatResponse
	Synthesized bool
	Err         error
}

// Fetched is the outcome of FetchConversation. FromCache marks a stale but
// consistent substitute served from the local cache.
type Fetched struct {
	message.Conversation
	FromCache bool
	Err       error
}

// Gateway sends messages and fetches conversations with cache fallback.
type Gateway struct {
	Remote Remote
	Cache  Cache
	Logger *log.Logger
}

// New builds a Gateway. A nil logger uses the standard logger.
func New(remote Remote, cache Cache, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{Remote: remote, Cache: cache, Logger: logger}
}

// SendMessage posts text to the backend. Transport and server failures are
// absorbed into a synthesized Reply built on cached; only a cancelled or
// expired ctx is returned as an error.
func (g *Gateway) SendMessage(ctx context.Context, text, conversationID string, cached []message.Message) (*Reply, error) {
	req := ChatRequest{
		Message:        text,
		CachedMessages: message.Clone(cached),
	}
	if conversationID != "" {
		id := conversationID
		req.ConversationID = &id
	}

	resp, err := g.Remote.Chat(ctx, req)
	if err == nil {
		reply := &Reply{ChatResponse: *resp}
		reply.Messages = message.Clone(resp.Messages)
		reply.ShoppingOptions = message.CloneOptions(resp.ShoppingOptions)
		return reply, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("gateway: send abandoned: %w", ctxErr)
	}

	g.Logger.Printf("gateway: error in API call: %v", err)
	ts := message.Now()
	msgs := message.Clone(cached)
	msgs = append(msgs,
		message.Message{Role: message.RoleUser, Content: text, Timestamp: ts},
		message.Message{Role: message.RoleSystem, Content: message.ApologyText, Timestamp: ts},
	)
	return &Reply{
		ChatResponse: ChatResponse{
			ConversationID:           conversationID,
			Response:                 synthesizedResponse,
			IsSpecificationFinalized: false,
			Messages:                 msgs,
			ShoppingOptions:          []message.ShoppingOption{},
		},
		Synthesized: true,
		Err:         err,
	}, nil
}

// FetchConversation loads id from the backend. On failure it substitutes the
// cached transcript when the cache belongs to id and is non-empty; otherwise
// the failure is returned wrapped with ErrNoSubstitute.
func (g *Gateway) FetchConversation(ctx context.Context, id string) (*Fetched, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty conversation id", ErrNoSubstitute)
	}
	conv, err := g.Remote.Conversation(ctx, id)
	if err == nil {
		out := &Fetched{Conversation: *conv}
		if out.ID == "" {
			out.ID = id
		}
		out.Messages = message.Clone(conv.Messages)
		return out, nil
	}

	g.Logger.Printf("gateway: error retrieving conversation %s: %v", id, err)
	if g.Cache != nil && ctx.Err() == nil && g.Cache.CurrentID() == id {
		if cached := g.Cache.Messages(); len(cached) > 0 {
			g.Logger.Printf("gateway: falling back to cached messages for conversation %s", id)
			return &Fetched{
				Conversation: message.Conversation{ID: id, Messages: cached},
				FromCache:    true,
				Err:          err,
			}, nil
		}
	}
	return nil, errors.Join(ErrNoSubstitute, err)
}

// Package controller owns what the user sees of the current conversation and
// reconciles it with the server, the local cache and the user's intents.
package controller

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"tableflip.dev/procure/pkg/gateway"
	"tableflip.dev/procure/pkg/message"
	"tableflip.dev/procure/pkg/session"
)

var (
	// ErrBusy rejects a send or load while another one is in flight.
	ErrBusy = errors.New("controller: a request is already in flight")
	// ErrEmptyMessage rejects sending blank text.
	ErrEmptyMessage = errors.New("controller: message is empty")
	// ErrSuperseded reports a result that was discarded because the
	// conversation was reset or switched while the call was in flight.
	ErrSuperseded = errors.New("controller: result discarded, conversation changed")
)

// Gateway is the remote surface the controller drives. *gateway.Gateway
// implements it.
type Gateway interface {
	SendMessage(ctx context.Context, text, conversationID string, cached []message.Message) (*gateway.Reply, error)
	FetchConversation(ctx context.Context, id string) (*gateway.Fetched, error)
}

// Notifier receives transient, non-blocking notices for the user.
type Notifier func(text string)

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// Controller is safe for concurrent use. Network calls run with the lock
// released; their results are committed only if the conversation they were
// issued for is still current.
type Controller struct {
	session *session.Manager
	gw      Gateway
	log     *log.Logger
	notify  Notifier
	changed chan struct{}

	mu   sync.Mutex
	gen  uint64
	view View
}

type tag struct {
	gen uint64
	id  string
}

// New creates a Controller. Call Init before use.
func New(s *session.Manager, gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		session: s,
		gw:      gw,
		changed: make(chan struct{}, 1),
		view: View{
			Messages:        []message.Message{},
			ShoppingOptions: []message.ShoppingOption{},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.Default()
	}
	if c.notify == nil {
		c.notify = func(string) {}
	}
	return c
}

// Changed fires after every state change. Signals coalesce; call Snapshot to
// read the latest state.
func (c *Controller) Changed() <-chan struct{} {
	return c.changed
}

// Snapshot returns a copy of the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

func (c *Controller) publish(notice bool) {
	if notice {
		c.notify(DegradedNotice)
	}
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Init restores the conversation at start up. With a saved id it loads from
// the server; otherwise a non-empty cache is adopted in degraded mode, and a
// fresh welcome is shown when there is nothing at all.
func (c *Controller) Init(ctx context.Context) error {
	if id := c.session.CurrentID(); id != "" {
		_, err := c.Load(ctx, id)
		return err
	}

	c.mu.Lock()
	cached := c.session.Messages()
	notice := false
	if len(cached) > 0 {
		c.log.Printf("controller: no conversation id, adopting %d cached messages", len(cached))
		c.view.Messages = cached
		c.view.Degraded = true
		c.adoptSpecificationLocked(cached)
		notice = true
	} else {
		c.view.Messages = []message.Message{message.Welcome()}
		c.view.Degraded = false
		c.view.Specification = nil
		c.view.SpecificationFinalized = false
	}
	c.view.ConversationID = ""
	c.view.ShoppingOptions = []message.ShoppingOption{}
	c.view.Phase = PhaseIdle
	c.mu.Unlock()

	c.publish(notice)
	return nil
}

// Send posts text. The user message is shown and shopping options cleared
// before the call resolves. Afterwards the transcript is replaced wholesale
// by the reply. Only a cancelled or expired ctx is returned as an error; the
// transcript then falls back to what the cache holds.
func (c *Controller) Send(ctx context.Context, text string) (*gateway.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.view.Phase != PhaseIdle {
		phase := c.view.Phase
		c.mu.Unlock()
		c.log.Printf("controller: ignoring send while %s", phase)
		return nil, ErrBusy
	}
	issued := tag{gen: c.gen, id: c.session.CurrentID()}
	cached := c.session.Messages()
	c.view.Phase = PhaseSending
	c.view.Messages = append(c.view.Messages, message.New(message.RoleUser, text))
	c.view.ShoppingOptions = []message.ShoppingOption{}
	c.mu.Unlock()
	c.publish(false)

	reply, err := c.gw.SendMessage(ctx, text, issued.id, cached)

	c.mu.Lock()
	if !c.currentLocked(issued) {
		c.mu.Unlock()
		c.log.Printf("controller: discarding reply for superseded conversation %q", issued.id)
		return nil, ErrSuperseded
	}

	notice := false
	switch {
	case err != nil:
		c.log.Printf("controller: send failed: %v", err)
		c.view.Messages = c.session.Messages()
		c.view.Degraded = true
		notice = true
	case reply.Synthesized:
		if serr := c.session.Replace(reply.Messages); serr != nil {
			c.log.Printf("controller: caching degraded transcript: %v", serr)
		}
		c.view.Messages = message.Clone(reply.Messages)
		c.view.Degraded = true
		c.applyReplyLocked(reply)
		notice = true
	default:
		c.absorbLocked(reply.ConversationID, reply.Messages)
		if len(reply.Messages) == 0 {
			c.log.Printf("controller: server returned an empty transcript")
			c.view.Messages = []message.Message{message.New(message.RoleSystem, message.EmptyResponseText)}
		} else {
			c.view.Messages = message.Clone(reply.Messages)
		}
		c.view.Degraded = false
		c.applyReplyLocked(reply)
	}
	c.view.ConversationID = c.session.CurrentID()
	c.view.Phase = PhaseIdle
	c.mu.Unlock()

	c.publish(notice)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Load switches to conversation id. When the server fails and the cache
// holds the same conversation, the cache is shown in degraded mode; when
// there is nothing to show, a new conversation is started instead.
func (c *Controller) Load(ctx context.Context, id string) (LoadResult, error) {
	c.mu.Lock()
	if c.view.Phase != PhaseIdle {
		phase := c.view.Phase
		c.mu.Unlock()
		c.log.Printf("controller: ignoring load of %q while %s", id, phase)
		return 0, ErrBusy
	}
	c.gen++
	issued := tag{gen: c.gen, id: id}
	c.view.Phase = PhaseLoading
	c.mu.Unlock()
	c.publish(false)

	fetched, err := c.gw.FetchConversation(ctx, id)

	c.mu.Lock()
	if c.gen != issued.gen {
		c.mu.Unlock()
		c.log.Printf("controller: discarding fetch of superseded conversation %q", id)
		return 0, ErrSuperseded
	}

	var (
		result LoadResult
		notice bool
	)
	switch {
	case err != nil && ctx.Err() != nil:
		c.view.Phase = PhaseIdle
		c.mu.Unlock()
		c.publish(false)
		return 0, err
	case err != nil:
		c.log.Printf("controller: cannot load %q, starting a new conversation: %v", id, err)
		c.startNewLocked()
		result = LoadStartedFresh
	case fetched.FromCache:
		c.view.Messages = message.Clone(fetched.Messages)
		c.view.Degraded = true
		c.adoptSpecificationLocked(fetched.Messages)
		result = LoadFromCache
		notice = true
	default:
		c.absorbLocked(fetched.ID, fetched.Messages)
		if len(fetched.Messages) == 0 {
			c.view.Messages = []message.Message{message.Welcome()}
		} else {
			c.view.Messages = message.Clone(fetched.Messages)
		}
		c.view.Degraded = false
		c.adoptSpecificationLocked(fetched.Messages)
		result = LoadFetched
	}
	if result != LoadStartedFresh {
		c.view.ShoppingOptions = []message.ShoppingOption{}
	}
	c.view.ConversationID = c.session.CurrentID()
	c.view.Phase = PhaseIdle
	c.mu.Unlock()

	c.publish(notice)
	return result, nil
}

// StartNew drops the current conversation, clears the cache and seeds a
// welcome message. Any call still in flight will have its result discarded.
func (c *Controller) StartNew() error {
	c.mu.Lock()
	c.gen++
	err := c.startNewLocked()
	c.mu.Unlock()
	c.publish(false)
	return err
}

func (c *Controller) startNewLocked() error {
	err := c.session.Reset()
	if err != nil {
		c.log.Printf("controller: clearing cache: %v", err)
	}
	c.view = View{
		Messages:        []message.Message{message.Welcome()},
		ShoppingOptions: []message.ShoppingOption{},
		Phase:           PhaseIdle,
	}
	return err
}

// CloseSpecification hides the current specification. Shopping options stay.
func (c *Controller) CloseSpecification() {
	c.mu.Lock()
	c.view.Specification = nil
	c.view.SpecificationFinalized = false
	c.mu.Unlock()
	c.publish(false)
}

func (c *Controller) currentLocked(t tag) bool {
	return c.gen == t.gen && c.session.CurrentID() == t.id
}

// absorbLocked caches server state. When the server transcript cannot be
// cached, the conversation id is still followed but with an empty transcript,
// so the cache never pairs it with another conversation's messages.
func (c *Controller) absorbLocked(id string, msgs []message.Message) {
	err := c.session.Absorb(id, msgs)
	if err == nil {
		return
	}
	c.log.Printf("controller: caching server transcript: %v", err)
	if id == "" || id == c.session.CurrentID() {
		return
	}
	if err := c.session.Save(session.State{ConversationID: id}); err != nil {
		c.log.Printf("controller: caching conversation id: %v", err)
	}
}

func (c *Controller) applyReplyLocked(r *gateway.Reply) {
	c.view.Specification = r.ProductSpecification.Clone()
	c.view.SpecificationFinalized = r.IsSpecificationFinalized
	c.view.ShoppingOptions = message.CloneOptions(r.ShoppingOptions)
}

func (c *Controller) adoptSpecificationLocked(msgs []message.Message) {
	spec := message.LatestSpecification(msgs)
	c.view.Specification = spec
	c.view.SpecificationFinalized = spec != nil
}

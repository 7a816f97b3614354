// Package session keeps the current conversation (id plus transcript) in
// memory and mirrors it into the persistent store.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"tableflip.dev/procure/pkg/message"
	"tableflip.dev/procure/pkg/store"
)

// State is the persisted shape of the current conversation. An empty
// ConversationID means no conversation has been assigned yet.
type State struct {
	ConversationID string
	Messages       []message.Message
}

// ValidationError rejects a Save because a message is missing a field.
type ValidationError struct {
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("session: message %d invalid: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DeserializationError describes persisted messages that could not be
// restored. Load recovers from it locally; it is only ever logged.
type DeserializationError struct {
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("session: cached messages unreadable: %v", e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// Manager is the single source of truth for the current conversation
// between server calls. Every read returns a copy.
type Manager struct {
	mu    sync.Mutex
	store store.Persistence
	log   *log.Logger

	id       string
	messages []message.Message
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger routes warnings to l instead of the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New creates a Manager over p. Call Load to restore persisted state.
func New(p store.Persistence, opts ...Option) *Manager {
	m := &Manager{store: p, messages: []message.Message{}}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = log.Default()
	}
	return m
}

// Load restores the persisted id and messages. It never fails: unreadable or
// invalid messages reset the transcript to empty and are logged.
func (m *Manager) Load() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.id = ""
	m.messages = []message.Message{}

	if raw, err := m.store.Read(store.KeyConversationID); err == nil {
		m.id = string(raw)
	} else if !errors.Is(err, store.ErrNotFound) {
		m.log.Printf("session: reading conversation id: %v", err)
	}

	raw, err := m.store.Read(store.KeyMessages)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		m.log.Printf("%v", &DeserializationError{Err: err})
		return
	}
	var msgs []message.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		m.log.Printf("%v", &DeserializationError{Err: err})
		return
	}
	if idx, err := message.ValidateAll(msgs); err != nil {
		m.log.Printf("%v", &DeserializationError{Err: &ValidationError{Index: idx, Err: err}})
		return
	}
	m.messages = message.Clone(msgs)
}

// Save replaces the current state and persists it. If any message is
// invalid nothing changes, neither in memory nor on disk, and a
// *ValidationError is returned.
func (m *Manager) Save(state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(state.ConversationID, state.Messages)
}

func (m *Manager) saveLocked(id string, msgs []message.Message) error {
	if idx, err := message.ValidateAll(msgs); err != nil {
		verr := &ValidationError{Index: idx, Err: err}
		m.log.Printf("session: attempted to save invalid message structure, skipping: %v", verr)
		return verr
	}

	var data []byte
	if len(msgs) > 0 {
		var err error
		if data, err = json.Marshal(msgs); err != nil {
			return fmt.Errorf("session: encode messages: %w", err)
		}
	}

	// Messages first; a failed id write puts the previous ones back.
	prev, err := m.store.Read(store.KeyMessages)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := m.put(store.KeyMessages, data); err != nil {
		return err
	}
	var raw []byte
	if id != "" {
		raw = []byte(id)
	}
	if err := m.put(store.KeyConversationID, raw); err != nil {
		if rerr := m.put(store.KeyMessages, prev); rerr != nil {
			m.log.Printf("session: restoring cached messages: %v", rerr)
		}
		return err
	}

	m.id = id
	m.messages = message.Clone(msgs)
	return nil
}

// put writes val under key, or erases key when val is nil.
func (m *Manager) put(key string, val []byte) error {
	if val == nil {
		return m.store.Erase(key)
	}
	return m.store.Write(key, val)
}

// CurrentID returns the current conversation id, or "" when there is none.
func (m *Manager) CurrentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Messages returns a copy of the cached transcript.
func (m *Manager) Messages() []message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return message.Clone(m.messages)
}

// State returns a copy of the whole cached state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{ConversationID: m.id, Messages: message.Clone(m.messages)}
}

// SetCurrentID switches the conversation id and persists it. It is a no-op
// when id is already current.
func (m *Manager) SetCurrentID(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.id {
		return nil
	}
	return m.saveLocked(id, m.messages)
}

// Reset clears the id and messages and persists the empty state.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked("", nil)
}

// Absorb adopts authoritative server state. An empty id keeps the current one.
func (m *Manager) Absorb(id string, msgs []message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = m.id
	}
	return m.saveLocked(id, msgs)
}

// Replace swaps the transcript and keeps the current id.
func (m *Manager) Replace(msgs []message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(m.id, msgs)
}

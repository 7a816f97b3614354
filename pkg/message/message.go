// Package message holds the transcript types shared by the cache, the remote
// gateway, and the renderers.
package message

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single transcript line. Timestamp is kept as the ISO-8601
// string it arrived with so that a persisted transcript reloads byte for byte.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Conversation is a server-assigned identifier plus its ordered transcript.
type Conversation struct {
	ID       string    `json:"conversation_id"`
	Messages []Message `json:"messages"`
}

// Fixed texts the client injects into transcripts.
const (
	WelcomeText       = "Hello! I am your AI Procurement Assistant. How can I help you today?"
	ApologyText       = "Sorry, I encountered an error connecting to the server. Please try again later."
	EmptyResponseText = "Received an empty response from the server."
)

// Now formats the current time the way locally created messages carry it.
func Now() string {
	return FormatTime(time.Now())
}

func FormatTime(v time.Time) string {
	return v.UTC().Format(time.RFC3339Nano)
}

// New builds a message stamped with the current time.
func New(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: Now()}
}

// Welcome is the greeting seeded into a fresh conversation.
func Welcome() Message {
	return New(RoleSystem, WelcomeText)
}

// FieldError names the first missing field of an invalid message.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("message: %s is required", e.Field)
}

// Validate reports whether m carries a non-empty role, content, and timestamp.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(string(m.Role)) == "":
		return &FieldError{Field: "role"}
	case m.Content == "":
		return &FieldError{Field: "content"}
	case strings.TrimSpace(m.Timestamp) == "":
		return &FieldError{Field: "timestamp"}
	}
	return nil
}

// ValidateAll returns the index and error of the first invalid message, or
// -1 and nil when every message is complete.
func ValidateAll(msgs []Message) (int, error) {
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return i, err
		}
	}
	return -1, nil
}

// Clone returns an independent copy of msgs. A nil input yields an empty,
// non-nil slice so callers can always range and encode it as [].
func Clone(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Equal reports whether a and b hold the same messages in the same order.
func Equal(a, b []Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp, m.Role, m.Content)
}

package controller

import (
	"tableflip.dev/procure/pkg/message"
)

// Phase is the exclusive activity of the controller. Degraded is tracked
// separately on View because it outlives any single phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSending
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSending:
		return "sending"
	}
	return "unknown"
}

// LoadResult says how Load settled.
type LoadResult int

const (
	// LoadFetched means the server returned the conversation.
	LoadFetched LoadResult = iota
	// LoadFromCache means the server failed and the matching cache was shown.
	LoadFromCache
	// LoadStartedFresh means nothing could be shown and a new conversation began.
	LoadStartedFresh
)

func (r LoadResult) String() string {
	switch r {
	case LoadFetched:
		return "fetched"
	case LoadFromCache:
		return "from cache"
	case LoadStartedFresh:
		return "started fresh"
	}
	return "unknown"
}

// DegradedNotice is shown whenever the transcript comes from local data.
const DegradedNotice = "Using locally cached conversation data. Connection might be unstable."

// View is what a renderer draws. Values returned by Snapshot are copies.
type View struct {
	ConversationID         string                        `json:"conversation_id,omitempty"`
	Messages               []message.Message             `json:"messages"`
	Specification          *message.ProductSpecification `json:"productSpecification,omitempty"`
	SpecificationFinalized bool                          `json:"isSpecificationFinalized"`
	ShoppingOptions        []message.ShoppingOption      `json:"shoppingOptions"`
	Phase                  Phase                         `json:"-"`
	Degraded               bool                          `json:"degraded"`
}

// Busy reports whether a send or load is in flight.
func (v View) Busy() bool {
	return v.Phase != PhaseIdle
}

func (v View) clone() View {
	out := v
	out.Messages = message.Clone(v.Messages)
	out.Specification = v.Specification.Clone()
	out.ShoppingOptions = message.CloneOptions(v.ShoppingOptions)
	return out
}

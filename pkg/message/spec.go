package message

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ProductSpecification is the structured product the assistant extracts
// from a conversation.
type ProductSpecification struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Features       []string `json:"features"`
	EstimatedPrice string   `json:"estimatedPrice"`
	Category       string   `json:"category"`
}

// ShoppingOption is a purchase link suggested for a finalized specification.
type ShoppingOption struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Clone returns a deep copy of s, or nil.
func (s *ProductSpecification) Clone() *ProductSpecification {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Features = append([]string(nil), s.Features...)
	return &cp
}

// CloneOptions copies opts into a non-nil slice.
func CloneOptions(opts []ShoppingOption) []ShoppingOption {
	out := make([]ShoppingOption, len(opts))
	copy(out, opts)
	return out
}

var fencedJSON = regexp.MustCompile("```json\\s*\\n([\\s\\S]*?)\\n\\s*```")

// ExtractSpecification parses the first ```json fenced block in content.
// It returns nil when there is no block or the block is not a specification.
func ExtractSpecification(content string) *ProductSpecification {
	match := fencedJSON.FindStringSubmatch(content)
	if len(match) < 2 {
		return nil
	}
	spec := &ProductSpecification{}
	if err := json.Unmarshal([]byte(match[1]), spec); err != nil {
		return nil
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil
	}
	return spec
}

// LatestSpecification scans msgs from newest to oldest and returns the first
// specification found in an assistant message.
func LatestSpecification(msgs []Message) *ProductSpecification {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != RoleAssistant {
			continue
		}
		if spec := ExtractSpecification(msgs[i].Content); spec != nil {
			return spec
		}
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]`)

// SafeName lowercases the spec name and replaces anything outside [a-z0-9]
// with an underscore, for use in file names.
func (s *ProductSpecification) SafeName() string {
	name := "product"
	if s != nil && s.Name != "" {
		name = s.Name
	}
	return unsafeName.ReplaceAllString(strings.ToLower(name), "_")
}

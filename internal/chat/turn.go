// Package chat implements the streaming turn orchestrator.
//
// A turn is one round trip: the caller's messages go in, the model's reply
// streams out, and both ends of the exchange are durably recorded. The
// orchestrator owns the tool-call loop; the model provider only proposes
// tool invocations.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Part types understood on the wire. Unknown types are carried but ignored
// by Content.Text(), so future client part kinds degrade gracefully.
const PartText = "text"

// Part is one element of a turn's content.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Content is a turn's payload. On the wire it is either a bare JSON string
// or an array of typed parts; both decode into the same representation so
// the rest of the code never branches on the union.
type Content []Part

// UnmarshalJSON accepts both wire shapes.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = nil
		return nil
	}

	// Bare string form
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding content string: %w", err)
		}
		*c = Content{{Type: PartText, Text: s}}
		return nil
	}

	var parts []Part
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decoding content parts: %w", err)
	}
	*c = parts
	return nil
}

// Text concatenates all text parts in order. This is the single
// normalization point: persistence and generation both go through it.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Turn roles on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in the client wire format.
type Turn struct {
	ID    string  `json:"id,omitempty"`
	Role  string  `json:"role"`
	Parts Content `json:"parts"`
}

// NewTextTurn builds a turn with a single text part.
func NewTextTurn(role, text string) Turn {
	return Turn{
		Role:  role,
		Parts: Content{{Type: PartText, Text: text}},
	}
}

// Text returns the turn's normalized text.
func (t Turn) Text() string {
	return t.Parts.Text()
}

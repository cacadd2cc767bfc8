package chat

import "context"

// EventType identifies a stream event.
type EventType string

// Stream event types, in emission order within a turn.
const (
	// EventConversation announces the conversation id before any content.
	EventConversation EventType = "conversation"
	// EventChunk carries one increment of assistant text.
	EventChunk EventType = "chunk"
	// EventTool announces a tool invocation.
	EventTool EventType = "tool"
	// EventDone closes a successful turn.
	EventDone EventType = "done"
	// EventError closes a failed turn.
	EventError EventType = "error"
)

// Event is one item in a turn's output stream. Data is the JSON-marshalable
// payload for the event type.
type Event struct {
	Type EventType
	Data any
}

// ConversationData is the payload of EventConversation.
type ConversationData struct {
	ConversationID string `json:"conversationId"`
}

// ChunkData is the payload of EventChunk.
type ChunkData struct {
	Text string `json:"text"`
}

// ToolData is the payload of EventTool.
type ToolData struct {
	Name string `json:"name"`
}

// DoneData is the payload of EventDone.
type DoneData struct {
	ConversationID string `json:"conversationId"`
	Response       string `json:"response"`
}

// ErrorData is the payload of EventError.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Emitter receives stream events in order. Returning an error aborts the
// turn; the orchestrator treats it as a caller disconnect.
type Emitter func(ctx context.Context, ev Event) error

package tools

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations, checked with errors.Is().
var (
	// ErrUnknownTool indicates the model requested a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateTool indicates a tool name was registered twice.
	ErrDuplicateTool = errors.New("duplicate tool name")
)

// ValidationError reports arguments that failed schema validation.
//
// It is deliberately a distinct type: the orchestrator feeds validation
// failures back to the model as a tool response so it can correct itself,
// while other errors abort the tool call.
type ValidationError struct {
	Tool   string `json:"tool"`
	Detail string `json:"detail"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %q: invalid arguments: %s", e.Tool, e.Detail)
}

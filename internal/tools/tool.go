// Package tools provides the declarative tool registry for the chat service.
//
// # Architecture
//
// Tools are declared once and consumed twice:
//   - The model provider receives name, description and input schema so the
//     LLM knows what it may call.
//   - The orchestrator resolves tool calls by name, validates the raw
//     arguments against the same schema, and executes the handler.
//
// # Design Principles
//
//   - Dependency Injection: tools capture their dependencies via closures
//   - No Package-Level State: registries are instances, not globals
//   - Validation First: arguments are schema-checked before the handler runs
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/jsonschema-go/jsonschema"
)

// Tool couples a declaration (name, description, input schema) with its
// execution handler. Instances are immutable after construction.
type Tool struct {
	name        string
	description string
	schema      *jsonschema.Schema
	resolved    *jsonschema.Resolved

	// handler is the type-erased execution function. Raw JSON arguments
	// are validated against the schema before it runs.
	handler func(context.Context, json.RawMessage) (any, error)

	// define registers the tool with Genkit, preserving the concrete
	// input/output types so the provider sees the same schema we
	// validate against.
	define func(g *genkit.Genkit) ai.Tool
}

// Name returns the tool's unique identifier.
func (t *Tool) Name() string { return t.name }

// Description returns the tool's functionality description.
// The LLM uses this to decide when to call the tool.
func (t *Tool) Description() string { return t.description }

// Schema returns the JSON schema of the tool's input.
func (t *Tool) Schema() *jsonschema.Schema { return t.schema }

// Call validates args against the tool's input schema and runs the handler.
//
// A schema violation returns *ValidationError; the orchestrator feeds it
// back to the model instead of aborting the turn. Handler errors are
// returned as-is.
func (t *Tool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return nil, &ValidationError{Tool: t.name, Detail: fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}
	if err := t.resolved.Validate(instance); err != nil {
		return nil, &ValidationError{Tool: t.name, Detail: err.Error()}
	}

	return t.handler(ctx, args)
}

// Define registers the tool with Genkit and returns the framework handle.
// The Genkit handler delegates to the same function Call uses, so behavior
// is identical regardless of which path executes the tool.
func (t *Tool) Define(g *genkit.Genkit) ai.Tool {
	return t.define(g)
}

// New creates a tool with type-safe input and output handling.
//
// The input schema is derived from In via reflection and resolved once at
// construction, so schema errors surface at startup rather than on the
// first call.
//
// Example:
//
//	weather, err := tools.New(
//	    "weather",
//	    "Get the current weather for a location.",
//	    func(ctx context.Context, in WeatherInput) (WeatherReport, error) { ... },
//	)
func New[In, Out any](name, description string, handler func(context.Context, In) (Out, error)) (*Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("tool %q: handler is required", name)
	}

	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("tool %q: deriving input schema: %w", name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("tool %q: resolving input schema: %w", name, err)
	}

	erased := func(ctx context.Context, args json.RawMessage) (any, error) {
		var in In
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, &ValidationError{Tool: name, Detail: fmt.Sprintf("decoding arguments: %v", err)}
		}
		return handler(ctx, in)
	}

	return &Tool{
		name:        name,
		description: description,
		schema:      schema,
		resolved:    resolved,
		handler:     erased,
		define: func(g *genkit.Genkit) ai.Tool {
			return genkit.DefineTool(g, name, description,
				func(tc *ai.ToolContext, in In) (Out, error) {
					return handler(tc, in)
				})
		},
	}, nil
}

// MustNew is New that panics on error. Intended for statically known tools
// registered at startup, where a schema failure is a programming bug.
func MustNew[In, Out any](name, description string, handler func(context.Context, In) (Out, error)) *Tool {
	t, err := New(name, description, handler)
	if err != nil {
		panic(fmt.Sprintf("BUG: defining tool %q: %v", name, err))
	}
	return t
}

// Package testutil provides shared testing utilities for the floatchat project.
//
// This package contains reusable test infrastructure that can be used across
// multiple packages, following the pattern of Go standard library packages
// like net/http/httptest and testing/iotest.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM provides deterministic LLM responses for testing.
// It matches user message content against registered patterns
// and returns the corresponding response.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu        sync.Mutex
	responses []mockRule
	fallback  string
	calls     []MockCall
	failErr   error
	failTimes int
}

type mockRule struct {
	pattern  string            // substring match in user message
	response string            // text response
	tools    []*ai.ToolRequest // tool calls to request (nil = text only)
}

// MockCall records a single call to the mock model.
type MockCall struct {
	UserMessage string // last user message text
	Response    string // response text returned
	ToolPhase   bool   // request arrived with tool results attached
}

// NewMockLLM creates a mock LLM with the given fallback response.
// The fallback is returned when no pattern matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse registers a pattern-response pair.
// When a user message contains the pattern (case-insensitive), the response is returned.
// Patterns are checked in registration order; first match wins.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// AddToolResponse registers a pattern that triggers tool calls.
//
// The first generation for a matching message returns only the tool
// requests. Once the request carries tool results (last message has the
// tool role), the text response is returned instead, so a caller-driven
// tool loop terminates.
func (m *MockLLM) AddToolResponse(pattern string, tools []*ai.ToolRequest, textResponse string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockRule{
		pattern:  strings.ToLower(pattern),
		response: textResponse,
		tools:    tools,
	})
}

// FailWith makes the next `times` generate calls return err.
// Used to exercise retry and circuit breaker behavior.
func (m *MockLLM) FailWith(err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
	m.failTimes = times
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears all recorded calls (keeps registered responses).
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.failErr = nil
	m.failTimes = 0
}

// ModelName is the provider-qualified name the mock registers under.
const ModelName = "mock/test-model"

// RegisterModel registers the mock as a Genkit model and returns a reference.
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, ModelName, &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
			Media:      false,
		},
	}, m.generate)
}

// generate is the Genkit model function.
func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	// Extract last user message
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	// A trailing tool message means the caller resolved our tool requests
	// and is asking for the final answer.
	toolPhase := len(req.Messages) > 0 && req.Messages[len(req.Messages)-1].Role == ai.RoleTool

	m.mu.Lock()
	if m.failTimes > 0 {
		m.failTimes--
		err := m.failErr
		m.mu.Unlock()
		return nil, err
	}

	var matched *mockRule
	lower := strings.ToLower(userText)
	for i := range m.responses {
		if strings.Contains(lower, m.responses[i].pattern) {
			matched = &m.responses[i]
			break
		}
	}

	responseText := m.fallback
	if matched != nil {
		responseText = matched.response
	}
	wantTools := matched != nil && len(matched.tools) > 0 && !toolPhase

	m.calls = append(m.calls, MockCall{
		UserMessage: userText,
		Response:    responseText,
		ToolPhase:   toolPhase,
	})
	var toolParts []*ai.Part
	if wantTools {
		for _, tr := range matched.tools {
			toolParts = append(toolParts, &ai.Part{
				Kind:        ai.PartToolRequest,
				ToolRequest: tr,
			})
		}
	}
	m.mu.Unlock()

	if wantTools {
		return &ai.ModelResponse{
			Request: req,
			Message: &ai.Message{
				Role:    ai.RoleModel,
				Content: toolParts,
			},
		}, nil
	}

	// Stream the text in pieces so chunk-ordering behavior is observable.
	if cb != nil {
		for _, piece := range splitChunks(responseText) {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(piece)},
			}); err != nil {
				return nil, err
			}
		}
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(responseText)},
		},
	}, nil
}

// splitChunks breaks text roughly in half at a word boundary so streams
// have at least two chunks when the text is long enough.
func splitChunks(text string) []string {
	if len(text) < 8 {
		return []string{text}
	}
	mid := strings.Index(text[len(text)/2:], " ")
	if mid < 0 {
		return []string{text}
	}
	cut := len(text)/2 + mid + 1
	return []string{text[:cut], text[cut:]}
}

package tools

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Registry holds the tools available to the orchestrator.
//
// Thread Safety: safe for concurrent use. Registration normally happens at
// startup, but the lock keeps later additions safe too.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry.
// Returns ErrDuplicateTool if the name is already taken.
func (r *Registry) Register(t *Tool) error {
	if t == nil {
		return fmt.Errorf("tool is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t

	r.logger.Debug("registered tool", "name", t.Name())
	return nil
}

// Resolve looks up a tool by name.
// Returns ErrUnknownTool if no tool with that name is registered.
func (r *Registry) Resolve(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t, nil
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Define registers every tool with Genkit and returns the references to
// pass to generate calls. The provider sees the same declarations the
// registry validates against.
func (r *Registry) Define(g *genkit.Genkit) []ai.ToolRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]ai.ToolRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, r.tools[name].Define(g))
	}
	return refs
}

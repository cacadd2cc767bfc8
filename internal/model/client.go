// Package model wraps the LLM provider behind a small generation interface.
//
// The orchestrator depends on Generator, not on Genkit directly, so tests
// can substitute a scripted model.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/floatchat/floatchat/internal/config"
)

// Generator defines the interface for AI response generation.
// Implemented by Client in production and scripted mocks in tests.
type Generator interface {
	Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

// Client is the production Generator backed by a Genkit instance.
type Client struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// New initializes Genkit with the configured AI provider and wraps it in a
// Client. Supports gemini (default) and openai providers.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return &Client{
		g:         g,
		modelName: cfg.FullModelName(),
		logger:    logger,
	}, nil
}

// NewFromGenkit wraps an existing Genkit instance. Used by tests that
// register a scripted model.
func NewFromGenkit(g *genkit.Genkit, modelName string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{g: g, modelName: modelName, logger: logger}
}

// Genkit exposes the underlying instance for tool registration.
func (c *Client) Genkit() *genkit.Genkit { return c.g }

// ModelName returns the provider-qualified model name.
func (c *Client) ModelName() string { return c.modelName }

// Generate produces a model response. The client's model name is applied
// first so callers may override it with their own ai.WithModelName option.
func (c *Client) Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
	all := make([]ai.GenerateOption, 0, len(opts)+1)
	all = append(all, ai.WithModelName(c.modelName))
	all = append(all, opts...)

	resp, err := genkit.Generate(ctx, c.g, all...)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}
	return resp, nil
}

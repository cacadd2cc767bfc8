package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/floatchat/floatchat/internal/conversation"
	"github.com/floatchat/floatchat/internal/i18n"
	"github.com/floatchat/floatchat/internal/model"
	"github.com/floatchat/floatchat/internal/tools"
)

// Store is the persistence surface the orchestrator needs.
// Following Go best practices: interfaces are defined by the consumer, not the provider.
type Store interface {
	Ensure(ctx context.Context, id, title string) (*conversation.Conversation, error)
	Create(ctx context.Context, title string) (*conversation.Conversation, error)
	Append(ctx context.Context, conversationID string, messages ...*conversation.Message) error
}

// Sentinel errors for turn handling, checked with errors.Is().
var (
	// ErrNoTurns indicates the request carried no messages.
	ErrNoTurns = errors.New("no turns in request")

	// ErrToolRoundsExceeded indicates the model kept requesting tools past
	// the configured bound.
	ErrToolRoundsExceeded = errors.New("tool round limit exceeded")
)

// derivedTitleIDLen is how much of a caller-supplied id appears in the
// derived conversation title.
const derivedTitleIDLen = 6

// Config configures the orchestrator.
type Config struct {
	// MaxToolRounds bounds the tool-call loop within a single turn.
	MaxToolRounds int
	// SessionTimeout bounds the wall-clock duration of a single turn.
	SessionTimeout time.Duration
	// Retry configures backoff for transient provider errors.
	Retry RetryConfig
	// Breaker configures the circuit breaker in front of the provider.
	Breaker CircuitBreakerConfig
}

// DefaultConfig returns sensible orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MaxToolRounds:  8,
		SessionTimeout: 2 * time.Minute,
		Retry:          DefaultRetryConfig(),
		Breaker:        DefaultCircuitBreakerConfig(),
	}
}

// TurnRequest is one chat round trip from a client.
type TurnRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Turns          []Turn `json:"messages"`
}

// Orchestrator drives a chat turn end to end: conversation materialization,
// user persistence, streamed generation, the tool-call loop, and assistant
// persistence.
//
// Orchestrator is safe for concurrent use; each HandleTurn call is
// independent. Racing turns on the same conversation are ordered only by
// the datastore's created_at stamps.
type Orchestrator struct {
	store     Store
	registry  *tools.Registry
	generator model.Generator
	toolRefs  []ai.ToolRef
	breaker   *CircuitBreaker

	retry          RetryConfig
	maxToolRounds  int
	sessionTimeout time.Duration
	logger         *slog.Logger
}

// NewOrchestrator creates an orchestrator.
//
// toolRefs are the provider-facing declarations for the same tools held by
// registry; generation requests return tool calls rather than executing
// them, so execution always goes through the registry.
func NewOrchestrator(store Store, registry *tools.Registry, generator model.Generator, toolRefs []ai.ToolRef, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultConfig().MaxToolRounds
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultConfig().SessionTimeout
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if err := cfg.Retry.validate(); err != nil {
		return nil, fmt.Errorf("retry config: %w", err)
	}

	return &Orchestrator{
		store:          store,
		registry:       registry,
		generator:      generator,
		toolRefs:       toolRefs,
		breaker:        NewCircuitBreaker(cfg.Breaker),
		retry:          cfg.Retry,
		maxToolRounds:  cfg.MaxToolRounds,
		sessionTimeout: cfg.SessionTimeout,
		logger:         logger,
	}, nil
}

// HandleTurn runs one chat turn, emitting stream events in order.
//
// Errors returned before the first emit call mean nothing was streamed;
// the HTTP layer can still answer with a plain status. Once streaming has
// begun, the HTTP layer translates a returned error into an error event.
//
// The user message is persisted before any event is emitted; a store
// failure there is fatal. Assistant persistence happens after generation
// completes and its store failures are logged and swallowed so a streamed
// reply is never retroactively turned into an error.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest, emit Emitter) error {
	if len(req.Turns) == 0 {
		return ErrNoTurns
	}

	conv, err := o.ensureConversation(ctx, req.ConversationID)
	if err != nil {
		return err
	}

	// Persist the newest user turn. Whitespace-only text is skipped, and
	// non-user roles are never written from the wire.
	last := req.Turns[len(req.Turns)-1]
	if last.Role == RoleUser {
		if text := last.Text(); strings.TrimSpace(text) != "" {
			msg := conversation.NewMessage(conv.ID, conversation.RoleUser, text)
			if err := o.store.Append(ctx, conv.ID, msg); err != nil {
				return fmt.Errorf("persisting user message: %w", err)
			}
		}
	}

	if err := emit(ctx, Event{Type: EventConversation, Data: ConversationData{ConversationID: conv.ID}}); err != nil {
		return fmt.Errorf("emitting conversation event: %w", err)
	}

	gctx, cancel := context.WithTimeout(ctx, o.sessionTimeout)
	defer cancel()

	final, assistantTexts, err := o.generateLoop(gctx, providerMessages(req.Turns), emit)
	if err != nil {
		return err
	}

	// Persist assistant output only after the whole turn succeeded, so an
	// aborted stream leaves no partial reply behind. A store failure at
	// this point is logged and swallowed: the client already has the text.
	for _, text := range assistantTexts {
		msg := conversation.NewMessage(conv.ID, conversation.RoleAssistant, text)
		if err := o.store.Append(ctx, conv.ID, msg); err != nil {
			o.logger.Error("persisting assistant message failed",
				"conversation_id", conv.ID, "error", err)
		}
	}

	if err := emit(ctx, Event{Type: EventDone, Data: DoneData{ConversationID: conv.ID, Response: final}}); err != nil {
		return fmt.Errorf("emitting done event: %w", err)
	}

	return nil
}

// ensureConversation materializes the conversation a turn belongs to.
//
// A caller-supplied id is honored exactly; new conversations created this
// way get a derived title from the id prefix. An empty id mints a fresh
// UUID conversation with the localized default title.
func (o *Orchestrator) ensureConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	if id == "" {
		conv, err := o.store.Create(ctx, i18n.T("conversation.default_title"))
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
		return conv, nil
	}

	short := id
	if len(short) > derivedTitleIDLen {
		short = short[:derivedTitleIDLen]
	}
	conv, err := o.store.Ensure(ctx, id, i18n.Sprintf("conversation.derived_title", short))
	if err != nil {
		return nil, fmt.Errorf("ensuring conversation %s: %w", id, err)
	}
	return conv, nil
}

// generateLoop runs generation rounds until the model stops requesting
// tools. It returns the final reply text and every non-empty assistant
// text produced along the way, in order.
func (o *Orchestrator) generateLoop(ctx context.Context, msgs []*ai.Message, emit Emitter) (string, []string, error) {
	var final string
	var assistantTexts []string

	for round := 0; ; round++ {
		resp, err := o.generateOnce(ctx, msgs, emit)
		if err != nil {
			return "", nil, err
		}

		if text := resp.Text(); strings.TrimSpace(text) != "" {
			final = text
			assistantTexts = append(assistantTexts, text)
		}

		toolReqs := resp.ToolRequests()
		if len(toolReqs) == 0 {
			return final, assistantTexts, nil
		}
		if round+1 > o.maxToolRounds {
			return "", nil, fmt.Errorf("%w (%d)", ErrToolRoundsExceeded, o.maxToolRounds)
		}

		msgs = append(msgs, resp.Message)

		parts := make([]*ai.Part, 0, len(toolReqs))
		for _, tr := range toolReqs {
			if err := emit(ctx, Event{Type: EventTool, Data: ToolData{Name: tr.Name}}); err != nil {
				return "", nil, fmt.Errorf("emitting tool event: %w", err)
			}
			parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   tr.Name,
				Ref:    tr.Ref,
				Output: o.runTool(ctx, tr),
			}))
		}
		msgs = append(msgs, &ai.Message{Role: ai.RoleTool, Content: parts})
	}
}

// runTool resolves and executes one tool request. Failures never abort the
// turn: they become the tool's output so the model can read the problem
// and correct itself.
func (o *Orchestrator) runTool(ctx context.Context, tr *ai.ToolRequest) any {
	tool, err := o.registry.Resolve(tr.Name)
	if err != nil {
		o.logger.Warn("model requested unknown tool", "name", tr.Name)
		return map[string]any{"error": err.Error()}
	}

	args, err := json.Marshal(tr.Input)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("encoding tool arguments: %v", err)}
	}

	out, err := tool.Call(ctx, args)
	if err != nil {
		var verr *tools.ValidationError
		if errors.As(err, &verr) {
			o.logger.Warn("tool arguments failed validation", "name", tr.Name, "detail", verr.Detail)
		} else {
			o.logger.Warn("tool execution failed", "name", tr.Name, "error", err)
		}
		return map[string]any{"error": err.Error()}
	}

	o.logger.Debug("tool executed", "name", tr.Name)
	return out
}

// generateOnce performs a single generation round with streaming, retrying
// transient provider errors with exponential backoff. An attempt is only
// retried when nothing was streamed for it yet; once chunks have reached
// the client a retry would replay text.
func (o *Orchestrator) generateOnce(ctx context.Context, msgs []*ai.Message, emit Emitter) (*ai.ModelResponse, error) {
	var lastErr error
	delay := o.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= o.retry.MaxRetries; attempt++ {
		if err := o.breaker.Allow(); err != nil {
			return nil, err
		}

		streamed := false
		var emitErr error
		onChunk := func(cctx context.Context, chunk *ai.ModelResponseChunk) error {
			text := chunk.Text()
			if text == "" {
				return nil
			}
			streamed = true
			if err := emit(cctx, Event{Type: EventChunk, Data: ChunkData{Text: text}}); err != nil {
				emitErr = err
				return err
			}
			return nil
		}

		opts := []ai.GenerateOption{
			ai.WithMessages(msgs...),
			ai.WithReturnToolRequests(true),
			ai.WithStreaming(onChunk),
		}
		if len(o.toolRefs) > 0 {
			opts = append(opts, ai.WithTools(o.toolRefs...))
		}

		resp, err := o.generator.Generate(ctx, opts...)
		if err == nil {
			o.breaker.Success()
			o.logger.Debug("generation succeeded",
				"attempts", attempt+1, "elapsed", time.Since(start))
			return resp, nil
		}

		// A failed emit means the caller went away; that is not a
		// provider fault and must not trip the breaker.
		if emitErr != nil {
			return nil, fmt.Errorf("stream aborted: %w", emitErr)
		}
		o.breaker.Failure()
		lastErr = err

		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if streamed {
			return nil, fmt.Errorf("generate after partial stream: %w", err)
		}
		if attempt == o.retry.MaxRetries {
			break
		}

		o.logger.Debug("retrying after error",
			"attempt", attempt+1, "delay", delay, "elapsed", time.Since(start), "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, o.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		o.retry.MaxRetries, time.Since(start), lastErr)
}

// providerMessages converts wire turns to provider messages. Turns with no
// text at all are dropped; whitespace is forwarded untouched so the model
// sees exactly what the client sent. Unknown roles default to user.
func providerMessages(turns []Turn) []*ai.Message {
	out := make([]*ai.Message, 0, len(turns))
	for _, t := range turns {
		text := t.Text()
		if text == "" {
			continue
		}
		switch t.Role {
		case RoleAssistant:
			out = append(out, ai.NewModelMessage(ai.NewTextPart(text)))
		case RoleSystem:
			out = append(out, &ai.Message{Role: ai.RoleSystem, Content: []*ai.Part{ai.NewTextPart(text)}})
		default:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(text)))
		}
	}
	return out
}

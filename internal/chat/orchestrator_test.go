package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floatchat/floatchat/internal/chat"
	"github.com/floatchat/floatchat/internal/conversation"
	"github.com/floatchat/floatchat/internal/i18n"
	"github.com/floatchat/floatchat/internal/model"
	"github.com/floatchat/floatchat/internal/testutil"
	"github.com/floatchat/floatchat/internal/tools"
)

// memStore is an in-memory chat.Store for orchestrator tests.
type memStore struct {
	mu            sync.Mutex
	conversations map[string]*conversation.Conversation
	messages      map[string][]*conversation.Message
	appendErr     error
}

func newMemStore() *memStore {
	return &memStore{
		conversations: make(map[string]*conversation.Conversation),
		messages:      make(map[string][]*conversation.Message),
	}
}

func (s *memStore) Ensure(_ context.Context, id, title string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[id]; ok {
		return conv, nil
	}
	conv := &conversation.Conversation{ID: id, Title: &title, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.conversations[id] = conv
	return conv, nil
}

func (s *memStore) Create(ctx context.Context, title string) (*conversation.Conversation, error) {
	return s.Ensure(ctx, uuid.NewString(), title)
}

func (s *memStore) Append(_ context.Context, conversationID string, messages ...*conversation.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	for _, m := range messages {
		m.ID = uuid.New()
		m.CreatedAt = time.Now()
		s.messages[conversationID] = append(s.messages[conversationID], m)
	}
	return nil
}

func (s *memStore) allMessages(conversationID string) []*conversation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*conversation.Message(nil), s.messages[conversationID]...)
}

// eventRecorder collects emitted events and can simulate a client that
// disconnects mid-stream.
type eventRecorder struct {
	mu             sync.Mutex
	events         []chat.Event
	failAfterChunk int // fail when this many chunks have been emitted; <0 disables
	chunks         int
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{failAfterChunk: -1}
}

func (r *eventRecorder) emit(_ context.Context, ev chat.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.Type == chat.EventChunk {
		r.chunks++
		if r.failAfterChunk >= 0 && r.chunks > r.failAfterChunk {
			return errors.New("client went away")
		}
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) all() []chat.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.Event(nil), r.events...)
}

func (r *eventRecorder) ofType(t chat.EventType) []chat.Event {
	var out []chat.Event
	for _, ev := range r.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// fastConfig keeps retry backoff negligible in tests.
func fastConfig() chat.Config {
	return chat.Config{
		MaxToolRounds:  4,
		SessionTimeout: 30 * time.Second,
		Retry: chat.RetryConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}
}

// newTestOrchestrator wires a scripted model, a tool registry with the
// built-in tools, and the given store into an orchestrator.
func newTestOrchestrator(t *testing.T, mock *testutil.MockLLM, store chat.Store, cfg chat.Config) *chat.Orchestrator {
	t.Helper()
	i18n.Init(i18n.LangEN)

	g := genkit.Init(context.Background())
	mock.RegisterModel(g)
	client := model.NewFromGenkit(g, testutil.ModelName, testutil.DiscardLogger())

	registry := tools.NewRegistry(testutil.DiscardLogger())
	require.NoError(t, registry.Register(tools.NewWeather(testutil.DiscardLogger())))
	require.NoError(t, registry.Register(tools.NewCurrentTime(testutil.DiscardLogger())))
	refs := registry.Define(g)

	orch, err := chat.NewOrchestrator(store, registry, client, refs, cfg, testutil.DiscardLogger())
	require.NoError(t, err)
	return orch
}

func userRequest(text string) chat.TurnRequest {
	return chat.TurnRequest{Turns: []chat.Turn{chat.NewTextTurn(chat.RoleUser, text)}}
}

func TestHandleTurn_StreamsAndPersists(t *testing.T) {
	mock := testutil.NewMockLLM("Hello there, how can I help you today?")
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	err := orch.HandleTurn(context.Background(), userRequest("hi"), rec.emit)
	require.NoError(t, err)

	events := rec.all()
	require.NotEmpty(t, events)
	assert.Equal(t, chat.EventConversation, events[0].Type)
	assert.Equal(t, chat.EventDone, events[len(events)-1].Type)

	// Chunks concatenate to exactly the final response.
	var streamed string
	for _, ev := range rec.ofType(chat.EventChunk) {
		streamed += ev.Data.(chat.ChunkData).Text
	}
	done := events[len(events)-1].Data.(chat.DoneData)
	assert.Equal(t, "Hello there, how can I help you today?", done.Response)
	assert.Equal(t, done.Response, streamed)

	convID := events[0].Data.(chat.ConversationData).ConversationID
	assert.Equal(t, convID, done.ConversationID)

	// New conversations get the localized default title.
	conv := store.conversations[convID]
	require.NotNil(t, conv)
	require.NotNil(t, conv.Title)
	assert.Equal(t, "New Conversation", *conv.Title)

	// Both sides of the exchange are durable.
	msgs := store.allMessages(convID)
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, conversation.RoleAssistant, msgs[1].Role)
	assert.Equal(t, done.Response, msgs[1].Content)
}

func TestHandleTurn_CallerSuppliedConversationID(t *testing.T) {
	mock := testutil.NewMockLLM("ok")
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	req := userRequest("hello again")
	req.ConversationID = "abcdef-12345"

	require.NoError(t, orch.HandleTurn(context.Background(), req, rec.emit))

	conv := store.conversations["abcdef-12345"]
	require.NotNil(t, conv)
	require.NotNil(t, conv.Title)
	assert.Equal(t, "Conversation abcdef", *conv.Title)

	events := rec.all()
	assert.Equal(t, "abcdef-12345", events[0].Data.(chat.ConversationData).ConversationID)
}

func TestHandleTurn_ToolLoop(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.AddToolResponse("weather in taipei",
		[]*ai.ToolRequest{{Name: tools.WeatherName, Ref: "call-1", Input: map[string]any{"location": "Taipei"}}},
		"It is warm in Taipei right now.")
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	err := orch.HandleTurn(context.Background(), userRequest("what's the weather in Taipei?"), rec.emit)
	require.NoError(t, err)

	toolEvents := rec.ofType(chat.EventTool)
	require.Len(t, toolEvents, 1)
	assert.Equal(t, tools.WeatherName, toolEvents[0].Data.(chat.ToolData).Name)

	doneEvents := rec.ofType(chat.EventDone)
	require.Len(t, doneEvents, 1)
	assert.Equal(t, "It is warm in Taipei right now.", doneEvents[0].Data.(chat.DoneData).Response)

	// The tool event precedes the final text chunks.
	events := rec.all()
	toolIdx, firstChunkIdx := -1, -1
	for i, ev := range events {
		switch ev.Type {
		case chat.EventTool:
			toolIdx = i
		case chat.EventChunk:
			if firstChunkIdx == -1 {
				firstChunkIdx = i
			}
		}
	}
	require.GreaterOrEqual(t, toolIdx, 0)
	require.GreaterOrEqual(t, firstChunkIdx, 0)
	assert.Less(t, toolIdx, firstChunkIdx)

	// Two generation rounds: the tool request round, then the answer.
	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.False(t, calls[0].ToolPhase)
	assert.True(t, calls[1].ToolPhase)

	// Only the final text is persisted as the assistant message.
	convID := doneEvents[0].Data.(chat.DoneData).ConversationID
	msgs := store.allMessages(convID)
	require.Len(t, msgs, 2)
	assert.Equal(t, "It is warm in Taipei right now.", msgs[1].Content)
}

func TestHandleTurn_UnknownToolFedBackToModel(t *testing.T) {
	mock := testutil.NewMockLLM("fallback")
	mock.AddToolResponse("stock price",
		[]*ai.ToolRequest{{Name: "stockQuote", Ref: "call-1", Input: map[string]any{"symbol": "ACME"}}},
		"I do not have a stock lookup tool.")
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	// The model asking for an unregistered tool must not abort the turn;
	// the failure goes back as the tool output.
	err := orch.HandleTurn(context.Background(), userRequest("what's the stock price of ACME?"), rec.emit)
	require.NoError(t, err)

	doneEvents := rec.ofType(chat.EventDone)
	require.Len(t, doneEvents, 1)
	assert.Equal(t, "I do not have a stock lookup tool.", doneEvents[0].Data.(chat.DoneData).Response)
}

func TestHandleTurn_EmptyRequest(t *testing.T) {
	mock := testutil.NewMockLLM("unused")
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	err := orch.HandleTurn(context.Background(), chat.TurnRequest{}, rec.emit)
	assert.ErrorIs(t, err, chat.ErrNoTurns)
	assert.Empty(t, rec.all())
}

func TestHandleTurn_StoreFailureBeforeStream(t *testing.T) {
	mock := testutil.NewMockLLM("unused")
	store := newMemStore()
	store.appendErr = fmt.Errorf("append: %w", conversation.ErrUnavailable)
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	err := orch.HandleTurn(context.Background(), userRequest("hi"), rec.emit)
	require.Error(t, err)
	assert.ErrorIs(t, err, conversation.ErrUnavailable)

	// Nothing was emitted, so the HTTP layer can still answer with a
	// plain status instead of an SSE error event.
	assert.Empty(t, rec.all())
}

func TestHandleTurn_ClientDisconnectPersistsNothingExtra(t *testing.T) {
	mock := testutil.NewMockLLM("a reasonably long answer that streams in more than one chunk")
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()
	rec.failAfterChunk = 0 // first chunk emit fails

	err := orch.HandleTurn(context.Background(), userRequest("tell me something"), rec.emit)
	require.Error(t, err)

	// The user message was persisted before streaming began; the aborted
	// assistant reply was not.
	events := rec.all()
	require.NotEmpty(t, events)
	convID := events[0].Data.(chat.ConversationData).ConversationID
	msgs := store.allMessages(convID)
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.RoleUser, msgs[0].Role)
}

func TestHandleTurn_RetriesTransientProviderErrors(t *testing.T) {
	mock := testutil.NewMockLLM("recovered just fine")
	mock.FailWith(errors.New("503 service unavailable"), 1)
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	err := orch.HandleTurn(context.Background(), userRequest("hi"), rec.emit)
	require.NoError(t, err)

	doneEvents := rec.ofType(chat.EventDone)
	require.Len(t, doneEvents, 1)
	assert.Equal(t, "recovered just fine", doneEvents[0].Data.(chat.DoneData).Response)
}

func TestHandleTurn_NonRetryableProviderError(t *testing.T) {
	mock := testutil.NewMockLLM("unused")
	mock.FailWith(errors.New("API key not valid"), 3)
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	err := orch.HandleTurn(context.Background(), userRequest("hi"), rec.emit)
	require.Error(t, err)
	assert.Empty(t, rec.ofType(chat.EventDone))
}

func TestHandleTurn_WhitespaceOnlyUserMessageNotPersisted(t *testing.T) {
	mock := testutil.NewMockLLM("still answered")
	store := newMemStore()
	orch := newTestOrchestrator(t, mock, store, fastConfig())
	rec := newEventRecorder()

	err := orch.HandleTurn(context.Background(), userRequest("   \n\t"), rec.emit)
	require.NoError(t, err)

	events := rec.all()
	convID := events[0].Data.(chat.ConversationData).ConversationID
	for _, m := range store.allMessages(convID) {
		assert.NotEqual(t, conversation.RoleUser, m.Role)
	}

	// The model still sees the whitespace text exactly as sent.
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "   \n\t", calls[0].UserMessage)
}

func TestNewOrchestrator_Validation(t *testing.T) {
	g := genkit.Init(context.Background())
	client := model.NewFromGenkit(g, testutil.ModelName, testutil.DiscardLogger())
	registry := tools.NewRegistry(testutil.DiscardLogger())

	t.Run("nil store", func(t *testing.T) {
		_, err := chat.NewOrchestrator(nil, registry, client, nil, chat.Config{}, nil)
		assert.Error(t, err)
	})

	t.Run("nil registry", func(t *testing.T) {
		_, err := chat.NewOrchestrator(newMemStore(), nil, client, nil, chat.Config{}, nil)
		assert.Error(t, err)
	})

	t.Run("nil generator", func(t *testing.T) {
		_, err := chat.NewOrchestrator(newMemStore(), registry, nil, nil, chat.Config{}, nil)
		assert.Error(t, err)
	})

	t.Run("invalid retry config", func(t *testing.T) {
		cfg := chat.Config{Retry: chat.RetryConfig{MaxRetries: -1, InitialInterval: time.Second, MaxInterval: time.Minute}}
		_, err := chat.NewOrchestrator(newMemStore(), registry, client, nil, cfg, nil)
		assert.Error(t, err)
	})

	t.Run("zero config gets defaults", func(t *testing.T) {
		orch, err := chat.NewOrchestrator(newMemStore(), registry, client, nil, chat.Config{}, nil)
		require.NoError(t, err)
		assert.NotNil(t, orch)
	})
}

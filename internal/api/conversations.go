package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/floatchat/floatchat/internal/chat"
	"github.com/floatchat/floatchat/internal/conversation"
	"github.com/floatchat/floatchat/internal/i18n"
)

// listLimit bounds a single conversation listing.
const listLimit = 500

// ConversationStore is the persistence surface the handlers need.
// Following Go best practices: interfaces are defined by the consumer, not the provider.
type ConversationStore interface {
	Create(ctx context.Context, title string) (*conversation.Conversation, error)
	List(ctx context.Context, limit, offset int32) ([]*conversation.Conversation, error)
	Messages(ctx context.Context, conversationID string, limit int32) ([]*conversation.Message, error)
}

// conversationsHandler serves the conversation listing and history endpoints.
type conversationsHandler struct {
	store  ConversationStore
	logger *slog.Logger
}

// list handles GET /conversations.
// Responds with all conversations ordered by updated_at descending.
// The conversations field is always an array, never null.
func (h *conversationsHandler) list(w http.ResponseWriter, r *http.Request) {
	convs, err := h.store.List(r.Context(), listLimit, 0)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if convs == nil {
		convs = []*conversation.Conversation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs}, h.logger)
}

// createRequest is the body of POST /conversations.
type createRequest struct {
	Title string `json:"title"`
}

// create handles POST /conversations.
// An absent or empty title gets the localized default.
func (h *conversationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	// An empty body is allowed and means "all defaults".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", i18n.T("error.invalid_request"), h.logger)
		return
	}

	title := req.Title
	if title == "" {
		title = i18n.T("conversation.default_title")
	}

	conv, err := h.store.Create(r.Context(), title)
	if err != nil {
		h.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversation": conv}, h.logger)
}

// history handles GET /chat?conversationId=.
// An absent or unknown id yields an empty message array, never an error:
// the client may ask for history before the conversation exists.
func (h *conversationsHandler) history(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"messages": []chat.Turn{}}, h.logger)
		return
	}

	msgs, err := h.store.Messages(r.Context(), conversationID, 0)
	if err != nil {
		h.storeError(w, err)
		return
	}

	turns := make([]chat.Turn, 0, len(msgs))
	for _, m := range msgs {
		turn := chat.NewTextTurn(string(m.Role), m.Content)
		turn.ID = m.ID.String()
		turns = append(turns, turn)
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": turns}, h.logger)
}

// storeError maps store failures to HTTP statuses.
func (h *conversationsHandler) storeError(w http.ResponseWriter, err error) {
	h.logger.Error("conversation store error", "error", err)
	if errors.Is(err, conversation.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", i18n.T("error.storage_unavailable"), h.logger)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", i18n.T("error.internal"), h.logger)
}

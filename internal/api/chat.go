package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/floatchat/floatchat/internal/chat"
	"github.com/floatchat/floatchat/internal/conversation"
	"github.com/floatchat/floatchat/internal/i18n"
)

// TurnHandler runs one chat turn. Implemented by *chat.Orchestrator.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req chat.TurnRequest, emit chat.Emitter) error
}

// chatHandler serves POST /chat as an SSE stream.
type chatHandler struct {
	turns  TurnHandler
	logger *slog.Logger
}

// maxChatBody bounds the request body size.
const maxChatBody = 1024 * 1024 // 1MB

// sseStream writes SSE events with lazy header emission: the
// text/event-stream headers go out with the first event, so handlers can
// still answer with a plain HTTP status for failures that happen before
// any content was produced.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

// send writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func (s *sseStream) send(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.Header().Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	s.flusher.Flush()
	return nil
}

// stream handles POST /chat.
//
// The reply streams as SSE events: conversation, chunk, tool, done, error.
// Failures before the first event (bad request, user-message persistence)
// produce a plain HTTP error status instead of a 200 stream.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req chat.TurnRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", i18n.T("error.invalid_request"), h.logger)
		return
	}
	if len(req.Turns) == 0 {
		writeError(w, http.StatusBadRequest, "missing_message", i18n.T("error.missing_message"), h.logger)
		return
	}

	stream := &sseStream{w: w, flusher: flusher}
	emit := func(ctx context.Context, ev chat.Event) error {
		return stream.send(string(ev.Type), ev.Data)
	}

	h.logger.Debug("SSE stream started", "conversation_id", req.ConversationID)

	err := h.turns.HandleTurn(r.Context(), req, emit)
	if err == nil {
		h.logger.Debug("SSE stream completed", "conversation_id", req.ConversationID)
		return
	}

	// Caller went away; nothing left to tell them.
	if r.Context().Err() != nil || errors.Is(err, io.ErrClosedPipe) {
		h.logger.Info("client disconnected", "conversation_id", req.ConversationID)
		return
	}

	if !stream.started {
		h.plainError(w, err)
		return
	}

	code := "stream_error"
	message := i18n.T("error.generation_failed")
	switch {
	case errors.Is(err, conversation.ErrUnavailable):
		code = "storage_unavailable"
		message = i18n.T("error.storage_unavailable")
	case errors.Is(err, chat.ErrCircuitOpen):
		code = "model_unavailable"
	case errors.Is(err, chat.ErrToolRoundsExceeded):
		code = "tool_limit"
	case errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	}

	h.logger.Error("chat turn failed", "conversation_id", req.ConversationID, "code", code, "error", err)
	if sendErr := stream.send(string(chat.EventError), chat.ErrorData{Code: code, Message: message}); sendErr != nil {
		h.logger.Debug("failed to write error event", "error", sendErr)
	}
}

// plainError maps pre-stream failures to HTTP statuses.
func (h *chatHandler) plainError(w http.ResponseWriter, err error) {
	h.logger.Error("chat turn failed before stream", "error", err)

	switch {
	case errors.Is(err, conversation.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", i18n.T("error.storage_unavailable"), h.logger)
	case errors.Is(err, chat.ErrNoTurns):
		writeError(w, http.StatusBadRequest, "missing_message", i18n.T("error.missing_message"), h.logger)
	case errors.Is(err, chat.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "model_unavailable", i18n.T("error.generation_failed"), h.logger)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", i18n.T("error.internal"), h.logger)
	}
}

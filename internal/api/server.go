// Package api provides the JSON/SSE HTTP surface of the chat service.
//
// Endpoints:
//   - GET  /conversations — list conversations, updated_at descending
//   - POST /conversations — create a conversation
//   - GET  /chat          — conversation history as wire turns
//   - POST /chat          — run a turn, reply streamed as SSE
//   - GET  /health, /ready — probes, outside the middleware stack
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Store       ConversationStore // Required
	Turns       TurnHandler       // Required
	Pool        *pgxpool.Pool     // Optional: nil degrades /ready to liveness
	CORSOrigins []string          // Allowed origins for CORS
	TrustProxy  bool              // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateRPS     float64           // Rate limiter refill per IP (0 = default 5/s)
	RateBurst   int               // Rate limiter burst size per IP (0 = default 10)
}

// Server is the HTTP server for the chat service.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("conversation store is required")
	}
	if cfg.Turns == nil {
		return nil, errors.New("turn handler is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	convs := &conversationsHandler{store: cfg.Store, logger: logger}
	ch := &chatHandler{turns: cfg.Turns, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations", convs.list)
	mux.HandleFunc("POST /conversations", convs.create)
	mux.HandleFunc("GET /chat", convs.history)
	mux.HandleFunc("POST /chat", ch.stream)

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 5.0
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	rl := newRateLimiter(rps, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

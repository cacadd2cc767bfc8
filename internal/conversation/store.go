package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the store needs.
// Following Go best practices: interfaces are defined by the consumer, not the provider.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store manages conversation persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     DB
	logger *slog.Logger
}

// New creates a new Store instance.
//
// Example (production):
//
//	store := conversation.New(pool, logger)
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// NewPool creates a pgxpool.Pool from a DSN and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w: %w", ErrUnavailable, err)
	}
	return pool, nil
}

// Ensure returns the conversation with the given id, creating it if it does
// not exist yet. The title is only applied on first creation; an existing
// conversation keeps its title.
//
// This is an upsert so that clients can mint their own conversation ids and
// start chatting without a separate create round-trip.
func (s *Store) Ensure(ctx context.Context, id, title string) (*Conversation, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}

	const q = `
		INSERT INTO conversations (id, title)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, title, created_at, updated_at`

	conv, err := scanConversation(s.db.QueryRow(ctx, q, id, titlePtr))
	if err != nil {
		return nil, s.wrap("ensure conversation", err)
	}

	s.logger.Debug("ensured conversation", "id", conv.ID)
	return conv, nil
}

// Create creates a new conversation with a generated UUID id.
func (s *Store) Create(ctx context.Context, title string) (*Conversation, error) {
	return s.Ensure(ctx, uuid.NewString(), title)
}

// Get retrieves a conversation by id.
// Returns ErrNotFound if the conversation does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	const q = `
		SELECT id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1`

	conv, err := scanConversation(s.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get conversation %s: %w", id, ErrNotFound)
		}
		return nil, s.wrap("get conversation", err)
	}
	return conv, nil
}

// List lists conversations with pagination, ordered by updated_at descending.
func (s *Store) List(ctx context.Context, limit, offset int32) ([]*Conversation, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
		SELECT id, title, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, s.wrap("list conversations", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, s.wrap("list conversations", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list conversations", err)
	}

	s.logger.Debug("listed conversations", "count", len(convs), "limit", limit, "offset", offset)
	return convs, nil
}

// Delete deletes a conversation and all its messages (CASCADE).
// Returns ErrNotFound if the conversation does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return s.wrap("delete conversation", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete conversation %s: %w", id, ErrNotFound)
	}

	s.logger.Debug("deleted conversation", "id", id)
	return nil
}

// Append adds messages to a conversation's log and bumps its updated_at.
//
// All inserts run in a single transaction so the log never ends up with a
// partial batch. Messages are assigned ids and timestamps by the database;
// the slice elements are updated in place.
func (s *Store) Append(ctx context.Context, conversationID string, messages ...*Message) error {
	if conversationID == "" {
		return ErrEmptyID
	}
	if len(messages) == 0 {
		return nil
	}
	for _, m := range messages {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.wrap("begin append", err)
	}
	// Rollback if not committed - log any rollback errors for debugging
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	const insert = `
		INSERT INTO messages (conversation_id, role, content, meta)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	for _, m := range messages {
		m.ConversationID = conversationID
		row := tx.QueryRow(ctx, insert, conversationID, string(m.Role), m.Content, m.Meta)
		if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("append to conversation %s: %w", conversationID, ErrNotFound)
			}
			return s.wrap("append messages", err)
		}
	}

	const touch = `UPDATE conversations SET updated_at = now() WHERE id = $1`
	if _, err := tx.Exec(ctx, touch, conversationID); err != nil {
		return s.wrap("touch conversation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return s.wrap("commit append", err)
	}

	s.logger.Debug("appended messages", "conversation_id", conversationID, "count", len(messages))
	return nil
}

// Messages loads a conversation's log in chronological order.
// limit <= 0 loads the full log.
func (s *Store) Messages(ctx context.Context, conversationID string, limit int32) ([]*Message, error) {
	if conversationID == "" {
		return nil, ErrEmptyID
	}

	q := `
		SELECT id, conversation_id, role, content, meta, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`
	args := []any{conversationID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, s.wrap("load messages", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.Meta, &m.CreatedAt); err != nil {
			return nil, s.wrap("load messages", err)
		}
		m.Role = Role(role)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("load messages", err)
	}

	return msgs, nil
}

// scanConversation scans a conversation row from QueryRow or Rows.
func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// wrap classifies a database error. Server-side errors (constraint
// violations, bad SQL) keep their identity; transport-level failures are
// tagged ErrUnavailable so callers can surface an outage instead of a
// generic failure.
func (s *Store) wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign key
// violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

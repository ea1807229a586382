// ABOUTME: History manager for per-conversation chat turns
// ABOUTME: Append-only write path and bounded chronological read path

package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fromagebot/fromage/internal/store"
)

// DefaultLimit is the number of turns returned when no limit is given.
const DefaultLimit = 10

// ValidationError reports a caller-side precondition violation on append.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("history: invalid %s: %s", e.Field, e.Reason)
}

// TurnStore defines what the manager needs from storage
type TurnStore interface {
	SaveTurn(ctx context.Context, turn *store.ChatTurn) (int64, error)
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]store.ChatTurn, error)
	PurgeTurns(ctx context.Context, conversationID string) (int64, error)
}

// Manager owns the append-only write path and the bounded read path for
// conversation history.
type Manager struct {
	store  TurnStore
	logger *slog.Logger
}

// New creates a history Manager backed by the given store.
func New(ts TurnStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  ts,
		logger: logger.With("component", "history"),
	}
}

// Append validates and persists one turn. Validation failures return a
// *ValidationError synchronously; storage failures surface as the store's
// typed error.
func (m *Manager) Append(ctx context.Context, conversationID, role, content, displayName string) error {
	if conversationID == "" {
		return &ValidationError{Field: "conversation_id", Reason: "must not be empty"}
	}
	if role != store.RoleUser && role != store.RoleAssistant {
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}
	if content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if role == store.RoleAssistant && displayName != "" {
		return &ValidationError{Field: "display_name", Reason: "must be empty for assistant turns"}
	}

	turn := &store.ChatTurn{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		DisplayName:    displayName,
	}
	id, err := m.store.SaveTurn(ctx, turn)
	if err != nil {
		m.logger.Error("append failed", "error", err, "conversation_id", conversationID, "role", role)
		return err
	}

	m.logger.Debug("turn appended", "id", id, "conversation_id", conversationID, "role", role)
	return nil
}

// Recent returns at most `limit` of the newest turns for a conversation in
// chronological order (oldest first). A limit of 0 or less means
// DefaultLimit. An unknown conversation yields an empty slice, not an error.
func (m *Manager) Recent(ctx context.Context, conversationID string, limit int) ([]store.ChatTurn, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	turns, err := m.store.RecentTurns(ctx, conversationID, limit)
	if err != nil {
		m.logger.Error("history read failed", "error", err, "conversation_id", conversationID)
		return nil, err
	}
	return turns, nil
}

// Purge deletes all turns for a conversation and returns the count removed.
// Purging an unknown conversation is a no-op returning 0.
func (m *Manager) Purge(ctx context.Context, conversationID string) (int64, error) {
	deleted, err := m.store.PurgeTurns(ctx, conversationID)
	if err != nil {
		m.logger.Error("purge failed", "error", err, "conversation_id", conversationID)
		return 0, err
	}

	m.logger.Info("history purged", "conversation_id", conversationID, "count", deleted)
	return deleted, nil
}

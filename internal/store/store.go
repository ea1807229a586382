// ABOUTME: Store interface and data types for fromage persistence
// ABOUTME: Defines ChatTurn, PromptOverride and the typed storage error

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Role constants for chat turns
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn represents one persisted message in a conversation.
// Turns are immutable once written and are only removed in bulk via PurgeTurns.
type ChatTurn struct {
	ID             int64
	ConversationID string
	Role           string // "user" or "assistant"
	Content        string
	DisplayName    string // author display name; always empty for assistant turns
	CreatedAt      time.Time
}

// PromptOverride is a conversation-specific system prompt replacing the
// process-wide default. At most one exists per conversation.
type PromptOverride struct {
	ConversationID string
	PromptText     string
}

// StorageError wraps any failure in the storage layer with the name of the
// attempted operation. Raw driver errors never cross the package boundary.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store defines the interface for chat turn and prompt override persistence
type Store interface {
	// Chat turns
	SaveTurn(ctx context.Context, turn *ChatTurn) (int64, error)
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]ChatTurn, error)
	PurgeTurns(ctx context.Context, conversationID string) (int64, error)

	// Prompt overrides
	SetPrompt(ctx context.Context, conversationID, promptText string) error
	GetPrompt(ctx context.Context, conversationID string) (string, error)
	DeletePrompt(ctx context.Context, conversationID string) (bool, error)

	// Close releases any resources held by the store
	Close() error
}

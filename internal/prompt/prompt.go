// ABOUTME: Prompt override manager for per-conversation system prompts
// ABOUTME: Set/get/clear of overrides plus resolution against the default prompt

package prompt

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fromagebot/fromage/internal/store"
)

// PromptStore defines what the manager needs from storage
type PromptStore interface {
	SetPrompt(ctx context.Context, conversationID, promptText string) error
	GetPrompt(ctx context.Context, conversationID string) (string, error)
	DeletePrompt(ctx context.Context, conversationID string) (bool, error)
}

// Manager tracks the per-conversation system prompt override. A conversation
// with no override row is in default-prompt mode; the only transition back
// to default mode is Clear.
type Manager struct {
	store         PromptStore
	defaultPrompt string
	logger        *slog.Logger
}

// New creates a prompt Manager. defaultPrompt is the process-wide prompt
// used for conversations with no override.
func New(ps PromptStore, defaultPrompt string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:         ps,
		defaultPrompt: defaultPrompt,
		logger:        logger.With("component", "prompt"),
	}
}

// Default returns the process-wide default prompt.
func (m *Manager) Default() string {
	return m.defaultPrompt
}

// Set stores an override for the conversation, replacing any existing one.
func (m *Manager) Set(ctx context.Context, conversationID, promptText string) error {
	if err := m.store.SetPrompt(ctx, conversationID, promptText); err != nil {
		m.logger.Error("set override failed", "error", err, "conversation_id", conversationID)
		return err
	}
	m.logger.Info("prompt override set", "conversation_id", conversationID)
	return nil
}

// Get returns the override for the conversation and whether one exists.
// Absence means the conversation uses the default prompt.
func (m *Manager) Get(ctx context.Context, conversationID string) (string, bool, error) {
	promptText, err := m.store.GetPrompt(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		m.logger.Error("get override failed", "error", err, "conversation_id", conversationID)
		return "", false, err
	}
	return promptText, true, nil
}

// Clear removes the override, reporting whether one existed. The bool is
// load-bearing for callers: reset flows purge history only when a custom
// prompt was actually in place.
func (m *Manager) Clear(ctx context.Context, conversationID string) (bool, error) {
	deleted, err := m.store.DeletePrompt(ctx, conversationID)
	if err != nil {
		m.logger.Error("clear override failed", "error", err, "conversation_id", conversationID)
		return false, err
	}
	if deleted {
		m.logger.Info("prompt override cleared", "conversation_id", conversationID)
	}
	return deleted, nil
}

// Effective resolves the prompt governing a conversation: the override when
// present, otherwise the default.
func (m *Manager) Effective(ctx context.Context, conversationID string) (string, error) {
	promptText, ok, err := m.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if !ok {
		return m.defaultPrompt, nil
	}
	return promptText, nil
}

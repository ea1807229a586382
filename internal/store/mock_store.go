// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject storage failures

package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errMockFailure is the cause inside injected StorageErrors.
var errMockFailure = errors.New("injected failure")

// MockStore is an in-memory Store implementation for testing.
// Setting FailOp to an operation name makes that operation return a
// StorageError, which lets callers exercise their degradation paths.
type MockStore struct {
	mu      sync.RWMutex
	nextID  int64
	turns   map[string][]ChatTurn // keyed by conversation ID, insertion order
	prompts map[string]string     // keyed by conversation ID

	FailOp string // operation name ("save turn", "recent turns", ...) that should fail
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		nextID:  0,
		turns:   make(map[string][]ChatTurn),
		prompts: make(map[string]string),
	}
}

func (m *MockStore) failure(op string) error {
	if m.FailOp == op {
		return &StorageError{Op: op, Err: errMockFailure}
	}
	return nil
}

// SaveTurn appends a turn and assigns the next surrogate key.
func (m *MockStore) SaveTurn(ctx context.Context, turn *ChatTurn) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("save turn"); err != nil {
		return 0, err
	}

	m.nextID++
	t := *turn
	t.ID = m.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.turns[t.ConversationID] = append(m.turns[t.ConversationID], t)

	turn.ID = t.ID
	turn.CreatedAt = t.CreatedAt
	return t.ID, nil
}

// RecentTurns returns the most recent `limit` turns in chronological order.
func (m *MockStore) RecentTurns(ctx context.Context, conversationID string, limit int) ([]ChatTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("recent turns"); err != nil {
		return nil, err
	}

	all := m.turns[conversationID]
	start := len(all) - limit
	if start < 0 {
		start = 0
	}

	// Return copies
	result := make([]ChatTurn, len(all)-start)
	copy(result, all[start:])
	return result, nil
}

// PurgeTurns removes all turns for a conversation.
func (m *MockStore) PurgeTurns(ctx context.Context, conversationID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("purge turns"); err != nil {
		return 0, err
	}

	deleted := int64(len(m.turns[conversationID]))
	delete(m.turns, conversationID)
	return deleted, nil
}

// SetPrompt stores or replaces a prompt override.
func (m *MockStore) SetPrompt(ctx context.Context, conversationID, promptText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("set prompt"); err != nil {
		return err
	}

	m.prompts[conversationID] = promptText
	return nil
}

// GetPrompt returns the prompt override or ErrNotFound.
func (m *MockStore) GetPrompt(ctx context.Context, conversationID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("get prompt"); err != nil {
		return "", err
	}

	promptText, ok := m.prompts[conversationID]
	if !ok {
		return "", ErrNotFound
	}
	return promptText, nil
}

// DeletePrompt removes a prompt override, reporting whether one existed.
func (m *MockStore) DeletePrompt(ctx context.Context, conversationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("delete prompt"); err != nil {
		return false, err
	}

	_, ok := m.prompts[conversationID]
	delete(m.prompts, conversationID)
	return ok, nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)

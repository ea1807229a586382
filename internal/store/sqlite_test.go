// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers turn persistence, ordering/limiting, purge, and prompt overrides

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a SQLite store backed by a temp directory.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_ReopenIsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := s.SaveTurn(ctx, &ChatTurn{ConversationID: "c1", Role: RoleUser, Content: "hello", DisplayName: "Al"}); err != nil {
		t.Fatalf("SaveTurn failed: %v", err)
	}
	if err := s.SetPrompt(ctx, "c1", "persona"); err != nil {
		t.Fatalf("SetPrompt failed: %v", err)
	}
	s.Close()

	// Opening again must not fail, duplicate tables, or lose data
	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer s2.Close()

	turns, err := s2.RecentTurns(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "hello" {
		t.Errorf("data lost across reopen: got %+v", turns)
	}

	promptText, err := s2.GetPrompt(ctx, "c1")
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if promptText != "persona" {
		t.Errorf("prompt mismatch: got %q, want %q", promptText, "persona")
	}
}

func TestSaveTurn_AssignsIncreasingIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 3; i++ {
		turn := &ChatTurn{ConversationID: "c1", Role: RoleUser, Content: fmt.Sprintf("msg %d", i)}
		id, err := s.SaveTurn(ctx, turn)
		if err != nil {
			t.Fatalf("SaveTurn failed: %v", err)
		}
		if id <= lastID {
			t.Errorf("id %d not greater than previous %d", id, lastID)
		}
		if turn.ID != id {
			t.Errorf("turn.ID not set: got %d, want %d", turn.ID, id)
		}
		lastID = id
	}
}

func TestRecentTurns_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	turn := &ChatTurn{ConversationID: "c1", Role: RoleUser, Content: "hi there", DisplayName: "Al"}
	if _, err := s.SaveTurn(ctx, turn); err != nil {
		t.Fatalf("SaveTurn failed: %v", err)
	}

	turns, err := s.RecentTurns(ctx, "c1", 1)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}

	got := turns[0]
	if got.ConversationID != "c1" {
		t.Errorf("ConversationID mismatch: got %q", got.ConversationID)
	}
	if got.Role != RoleUser {
		t.Errorf("Role mismatch: got %q", got.Role)
	}
	if got.Content != "hi there" {
		t.Errorf("Content mismatch: got %q", got.Content)
	}
	if got.DisplayName != "Al" {
		t.Errorf("DisplayName mismatch: got %q", got.DisplayName)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt was not assigned")
	}
}

func TestRecentTurns_NullDisplayName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveTurn(ctx, &ChatTurn{ConversationID: "c1", Role: RoleAssistant, Content: "yo"}); err != nil {
		t.Fatalf("SaveTurn failed: %v", err)
	}

	turns, err := s.RecentTurns(ctx, "c1", 1)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if turns[0].DisplayName != "" {
		t.Errorf("expected empty DisplayName, got %q", turns[0].DisplayName)
	}
}

func TestRecentTurns_LimitAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// 15 turns with identical insertion timing; ordering falls to the
	// surrogate key tie-break
	for i := 1; i <= 15; i++ {
		turn := &ChatTurn{ConversationID: "c1", Role: RoleUser, Content: fmt.Sprintf("turn %d", i)}
		if _, err := s.SaveTurn(ctx, turn); err != nil {
			t.Fatalf("SaveTurn %d failed: %v", i, err)
		}
	}

	turns, err := s.RecentTurns(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 10 {
		t.Fatalf("expected 10 turns, got %d", len(turns))
	}

	// Turns 6 through 15, oldest first
	for i, turn := range turns {
		want := fmt.Sprintf("turn %d", i+6)
		if turn.Content != want {
			t.Errorf("turn[%d]: got %q, want %q", i, turn.Content, want)
		}
	}
}

func TestRecentTurns_TimestampTieBrokenByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		turn := &ChatTurn{ConversationID: "c1", Role: RoleUser, Content: fmt.Sprintf("tied %d", i), CreatedAt: at}
		if _, err := s.SaveTurn(ctx, turn); err != nil {
			t.Fatalf("SaveTurn failed: %v", err)
		}
	}

	turns, err := s.RecentTurns(ctx, "c1", 3)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	for i, turn := range turns {
		want := fmt.Sprintf("tied %d", i+1)
		if turn.Content != want {
			t.Errorf("turn[%d]: got %q, want %q", i, turn.Content, want)
		}
	}
}

func TestRecentTurns_UnknownConversation(t *testing.T) {
	s := newTestStore(t)

	turns, err := s.RecentTurns(context.Background(), "nope", 10)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty slice, got %d turns", len(turns))
	}
}

func TestRecentTurns_ConversationIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveTurn(ctx, &ChatTurn{ConversationID: "c1", Role: RoleUser, Content: "in c1"}); err != nil {
		t.Fatalf("SaveTurn failed: %v", err)
	}
	if _, err := s.SaveTurn(ctx, &ChatTurn{ConversationID: "c2", Role: RoleUser, Content: "in c2"}); err != nil {
		t.Fatalf("SaveTurn failed: %v", err)
	}

	turns, err := s.RecentTurns(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "in c1" {
		t.Errorf("c1 history leaked: %+v", turns)
	}
}

func TestPurgeTurns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := s.SaveTurn(ctx, &ChatTurn{ConversationID: "c1", Role: RoleUser, Content: "x"}); err != nil {
			t.Fatalf("SaveTurn failed: %v", err)
		}
	}
	if _, err := s.SaveTurn(ctx, &ChatTurn{ConversationID: "c2", Role: RoleUser, Content: "keep"}); err != nil {
		t.Fatalf("SaveTurn failed: %v", err)
	}

	deleted, err := s.PurgeTurns(ctx, "c1")
	if err != nil {
		t.Fatalf("PurgeTurns failed: %v", err)
	}
	if deleted != 4 {
		t.Errorf("expected 4 deleted, got %d", deleted)
	}

	turns, err := s.RecentTurns(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty history after purge, got %d turns", len(turns))
	}

	// The other conversation is untouched
	turns, err = s.RecentTurns(ctx, "c2", 10)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("c2 history was purged too")
	}
}

func TestPurgeTurns_UnknownConversation(t *testing.T) {
	s := newTestStore(t)

	deleted, err := s.PurgeTurns(context.Background(), "nope")
	if err != nil {
		t.Fatalf("PurgeTurns failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted, got %d", deleted)
	}
}

func TestSetAndGetPrompt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetPrompt(ctx, "c1", "first persona"); err != nil {
		t.Fatalf("SetPrompt failed: %v", err)
	}

	promptText, err := s.GetPrompt(ctx, "c1")
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if promptText != "first persona" {
		t.Errorf("got %q, want %q", promptText, "first persona")
	}

	// Upsert: last write wins
	if err := s.SetPrompt(ctx, "c1", "second persona"); err != nil {
		t.Fatalf("SetPrompt overwrite failed: %v", err)
	}
	promptText, err = s.GetPrompt(ctx, "c1")
	if err != nil {
		t.Fatalf("GetPrompt failed: %v", err)
	}
	if promptText != "second persona" {
		t.Errorf("got %q, want %q", promptText, "second persona")
	}
}

func TestGetPrompt_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPrompt(context.Background(), "nope")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePrompt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Deleting a missing override reports false
	deleted, err := s.DeletePrompt(ctx, "c1")
	if err != nil {
		t.Fatalf("DeletePrompt failed: %v", err)
	}
	if deleted {
		t.Error("expected false for missing override")
	}

	if err := s.SetPrompt(ctx, "c1", "persona"); err != nil {
		t.Fatalf("SetPrompt failed: %v", err)
	}

	deleted, err = s.DeletePrompt(ctx, "c1")
	if err != nil {
		t.Fatalf("DeletePrompt failed: %v", err)
	}
	if !deleted {
		t.Error("expected true when an override existed")
	}

	if _, err := s.GetPrompt(ctx, "c1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStorageError_WrapsCause(t *testing.T) {
	s := newTestStore(t)
	s.Close() // force failures below

	_, err := s.SaveTurn(context.Background(), &ChatTurn{ConversationID: "c1", Role: RoleUser, Content: "x"})
	if err == nil {
		t.Fatal("expected error from closed store")
	}

	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected *StorageError, got %T: %v", err, err)
	}
	if storageErr.Op != "save turn" {
		t.Errorf("Op mismatch: got %q", storageErr.Op)
	}
	if storageErr.Unwrap() == nil {
		t.Error("expected wrapped cause")
	}
}

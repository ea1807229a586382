// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides chat turn/prompt override persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist; calling this
// repeatedly against the same file is safe and leaves existing data intact.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			username TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, timestamp);

		CREATE TABLE IF NOT EXISTS channel_prompts (
			conversation_id TEXT PRIMARY KEY,
			system_prompt TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies versioned schema migrations for databases created
// by earlier revisions. Applied versions are recorded in schema_migrations,
// and each step is itself safe to re-check on every start.
func (s *SQLiteStore) runMigrations() error {
	migrations := []struct {
		version int
		name    string
		apply   func(*sql.Tx) error
	}{
		{
			version: 1,
			name:    "add username column to messages",
			apply: func(tx *sql.Tx) error {
				var exists int
				err := tx.QueryRow(`SELECT 1 FROM pragma_table_info('messages') WHERE name = 'username'`).Scan(&exists)
				if err == nil {
					return nil // column already present
				}
				if err != sql.ErrNoRows {
					return err
				}
				_, err = tx.Exec(`ALTER TABLE messages ADD COLUMN username TEXT`)
				return err
			},
		},
	}

	for _, m := range migrations {
		var applied int
		err := s.db.QueryRow(`SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&applied)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("checking migration %d: %w", m.version, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
		s.logger.Info("applied migration", "version", m.version, "name", m.name)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// SaveTurn inserts a chat turn and returns its assigned surrogate key.
// CreatedAt defaults to the current time when unset.
func (s *SQLiteStore) SaveTurn(ctx context.Context, turn *ChatTurn) (int64, error) {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (conversation_id, role, content, username, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		turn.ConversationID,
		turn.Role,
		turn.Content,
		nullString(turn.DisplayName),
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, &StorageError{Op: "save turn", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, &StorageError{Op: "save turn", Err: err}
	}

	turn.ID = id
	turn.CreatedAt = createdAt

	s.logger.Debug("saved turn", "id", id, "conversation_id", turn.ConversationID, "role", turn.Role)
	return id, nil
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// RecentTurns retrieves the most recent `limit` turns for a conversation,
// returned in chronological order (oldest first). Timestamp ties are broken
// by surrogate key. An unknown conversation yields an empty slice.
func (s *SQLiteStore) RecentTurns(ctx context.Context, conversationID string, limit int) ([]ChatTurn, error) {
	// Take the newest N, then flip back to chronological order
	query := `
		SELECT id, conversation_id, role, content, username, timestamp
		FROM (
			SELECT id, conversation_id, role, content, username, timestamp
			FROM messages
			WHERE conversation_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		)
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, &StorageError{Op: "recent turns", Err: err}
	}
	defer rows.Close()

	var turns []ChatTurn
	for rows.Next() {
		var turn ChatTurn
		var username sql.NullString
		var createdAtStr string

		if err := rows.Scan(&turn.ID, &turn.ConversationID, &turn.Role, &turn.Content, &username, &createdAtStr); err != nil {
			return nil, &StorageError{Op: "recent turns", Err: err}
		}

		turn.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, &StorageError{Op: "recent turns", Err: fmt.Errorf("parsing timestamp: %w", err)}
		}
		if username.Valid {
			turn.DisplayName = username.String
		}

		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "recent turns", Err: err}
	}

	return turns, nil
}

// PurgeTurns deletes all turns for a conversation and returns the number of
// rows removed. Purging an unknown conversation is a no-op returning 0.
func (s *SQLiteStore) PurgeTurns(ctx context.Context, conversationID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return 0, &StorageError{Op: "purge turns", Err: err}
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "purge turns", Err: err}
	}

	s.logger.Debug("purged turns", "conversation_id", conversationID, "count", deleted)
	return deleted, nil
}

// SetPrompt saves or replaces the system prompt override for a conversation.
// Last write wins.
func (s *SQLiteStore) SetPrompt(ctx context.Context, conversationID, promptText string) error {
	query := `
		INSERT OR REPLACE INTO channel_prompts (conversation_id, system_prompt)
		VALUES (?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, conversationID, promptText); err != nil {
		return &StorageError{Op: "set prompt", Err: err}
	}

	s.logger.Debug("set prompt override", "conversation_id", conversationID)
	return nil
}

// GetPrompt retrieves the prompt override for a conversation.
// Returns ErrNotFound when the conversation has no override.
func (s *SQLiteStore) GetPrompt(ctx context.Context, conversationID string) (string, error) {
	var promptText string
	err := s.db.QueryRowContext(ctx,
		`SELECT system_prompt FROM channel_prompts WHERE conversation_id = ?`,
		conversationID,
	).Scan(&promptText)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StorageError{Op: "get prompt", Err: err}
	}

	return promptText, nil
}

// DeletePrompt removes the prompt override for a conversation.
// Returns true only when an override existed and was removed.
func (s *SQLiteStore) DeletePrompt(ctx context.Context, conversationID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_prompts WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return false, &StorageError{Op: "delete prompt", Err: err}
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return false, &StorageError{Op: "delete prompt", Err: err}
	}

	if deleted > 0 {
		s.logger.Debug("deleted prompt override", "conversation_id", conversationID)
	}
	return deleted > 0, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)

// Package store provides persistent storage for conversation state using SQLite.
//
// # Data Models
//
//   - ChatTurn: one persisted message, authored by "user" or "assistant".
//     Turns are append-only and deleted only in bulk per conversation.
//   - PromptOverride: at most one per conversation; its existence puts the
//     conversation in custom-prompt mode.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Schema creation is idempotent and runs on every open. Versioned
// migrations for databases created by earlier revisions are recorded in the
// schema_migrations table and applied once.
//
// # Error Handling
//
// Every storage failure is wrapped in *StorageError carrying the attempted
// operation name; raw driver errors never cross the package boundary.
// ErrNotFound signals an absent prompt override and is a valid outcome, not
// a failure. All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests of the layers above; its FailOp field
// injects per-operation failures. Use NewSQLiteStore with a temp path for
// integration tests with real SQLite.
package store

// Package session provides the facade event handlers call for one inbound
// message.
//
// # Exchange
//
// Respond runs the full sequence for a conversation:
//
//  1. Record the user turn (display name sanitized to the author-tag
//     charset).
//  2. Read the bounded trailing history.
//  3. Assemble the context window under the conversation's effective
//     prompt (override if present, default otherwise).
//  4. Submit to the Completer and, on success, record the reply as an
//     assistant turn.
//
// The whole sequence holds a per-conversation gate, so overlapping
// deliveries for one conversation serialize and each reply's context is
// consistent. Different conversations proceed independently.
//
// # Failure outcomes
//
// Three outcomes are distinct and never conflated:
//
//   - storage failures (a *store.StorageError somewhere in the sequence)
//   - completion failures (the Completer returned an error)
//   - ErrEmptyCompletion (the service answered, with no text)
//
// On completion failure or cancellation no assistant turn is recorded.
//
// # Administration
//
// SetPrompt installs an override and unconditionally purges history (a new
// persona invalidates prior context). ResetPrompt clears the override and
// purges history only when an override actually existed. ClearHistory
// purges without touching prompt mode.
package session

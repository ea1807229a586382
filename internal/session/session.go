// ABOUTME: Session facade sequencing one inbound message into one reply
// ABOUTME: Composes history, prompt overrides, and payload assembly per exchange

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fromagebot/fromage/internal/history"
	"github.com/fromagebot/fromage/internal/payload"
	"github.com/fromagebot/fromage/internal/prompt"
	"github.com/fromagebot/fromage/internal/store"
)

// ErrEmptyCompletion signals that the completion service answered with no
// text. It is a distinct outcome from a completion failure and callers
// surface it to the user differently.
var ErrEmptyCompletion = errors.New("completion service returned an empty response")

// Completer is the external text-completion client. Implementations own
// their timeout and cancellation policy.
type Completer interface {
	Complete(ctx context.Context, entries []payload.Entry) (string, error)
}

// Service is the single entry point event handlers call. It sequences
// append inbound turn, assemble context, call the completion service, and
// append the reply, holding a per-conversation gate across the whole
// exchange so overlapping deliveries for one conversation serialize.
type Service struct {
	history   *history.Manager
	prompts   *prompt.Manager
	completer Completer
	limit     int
	logger    *slog.Logger
	gate      *gate
}

// New creates a session Service. historyLimit bounds the context window;
// 0 or less means history.DefaultLimit.
func New(hist *history.Manager, prompts *prompt.Manager, completer Completer, historyLimit int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if historyLimit <= 0 {
		historyLimit = history.DefaultLimit
	}
	return &Service{
		history:   hist,
		prompts:   prompts,
		completer: completer,
		limit:     historyLimit,
		logger:    logger.With("component", "session"),
		gate:      newGate(),
	}
}

// Respond runs the full exchange for one inbound user message. The user
// turn is recorded first, then the bounded context window is assembled
// under the conversation's effective prompt and submitted to the completer.
// On success the reply is recorded as an assistant turn and returned.
//
// On completion failure or cancellation nothing is appended for the
// assistant, so a retry sees the user turn but no phantom reply.
func (s *Service) Respond(ctx context.Context, conversationID, content, displayName string) (string, error) {
	release := s.gate.lock(conversationID)
	defer release()

	logger := s.logger.With(
		"request_id", uuid.New().String(),
		"conversation_id", conversationID,
	)

	tag := payload.SanitizeAuthorTag(displayName)

	// Record first, then act
	if err := s.history.Append(ctx, conversationID, store.RoleUser, content, tag); err != nil {
		return "", err
	}

	turns, err := s.history.Recent(ctx, conversationID, s.limit)
	if err != nil {
		return "", err
	}

	effectivePrompt, err := s.prompts.Effective(ctx, conversationID)
	if err != nil {
		return "", err
	}

	// The read is under the gate and ends with the turn just appended;
	// split it off so the payload keeps its prompt/history/newest shape.
	var trailing []store.ChatTurn
	newTurn := store.ChatTurn{ConversationID: conversationID, Role: store.RoleUser, Content: content, DisplayName: tag}
	if n := len(turns); n > 0 {
		newTurn = turns[n-1]
		trailing = turns[:n-1]
	}

	entries := payload.Build(effectivePrompt, trailing, newTurn)
	logger.Debug("context assembled", "entries", len(entries))

	reply, err := s.completer.Complete(ctx, entries)
	if err != nil {
		logger.Error("completion failed", "error", err)
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if reply == "" {
		logger.Warn("completion returned no text")
		return "", ErrEmptyCompletion
	}

	// The reply exists regardless of whether recording it works; a failed
	// append is logged and the reply still goes back to the caller.
	if err := s.history.Append(ctx, conversationID, store.RoleAssistant, reply, ""); err != nil {
		logger.Error("recording reply failed", "error", err)
	}

	logger.Debug("exchange complete", "reply_len", len(reply))
	return reply, nil
}

// SetPrompt installs a new prompt override and unconditionally purges the
// conversation's history: changing persona invalidates prior context.
// Returns the number of turns purged.
func (s *Service) SetPrompt(ctx context.Context, conversationID, promptText string) (int64, error) {
	release := s.gate.lock(conversationID)
	defer release()

	if err := s.prompts.Set(ctx, conversationID, promptText); err != nil {
		return 0, err
	}
	return s.history.Purge(ctx, conversationID)
}

// ResetPrompt returns the conversation to the default prompt. History is
// purged only when an override actually existed; resetting an
// already-default conversation leaves history untouched. Returns whether an
// override existed and how many turns were purged.
func (s *Service) ResetPrompt(ctx context.Context, conversationID string) (bool, int64, error) {
	release := s.gate.lock(conversationID)
	defer release()

	hadOverride, err := s.prompts.Clear(ctx, conversationID)
	if err != nil {
		return false, 0, err
	}
	if !hadOverride {
		return false, 0, nil
	}

	purged, err := s.history.Purge(ctx, conversationID)
	if err != nil {
		return true, 0, err
	}
	return true, purged, nil
}

// ClearHistory purges the conversation's turns without touching its prompt
// mode. Returns the number of turns removed.
func (s *Service) ClearHistory(ctx context.Context, conversationID string) (int64, error) {
	release := s.gate.lock(conversationID)
	defer release()

	return s.history.Purge(ctx, conversationID)
}

// History returns the newest turns for a conversation in chronological
// order, at most limit (0 or less means the service's configured bound).
func (s *Service) History(ctx context.Context, conversationID string, limit int) ([]store.ChatTurn, error) {
	if limit <= 0 {
		limit = s.limit
	}
	return s.history.Recent(ctx, conversationID, limit)
}

// CurrentPrompt returns the prompt governing a conversation and whether it
// is a custom override rather than the default.
func (s *Service) CurrentPrompt(ctx context.Context, conversationID string) (string, bool, error) {
	promptText, custom, err := s.prompts.Get(ctx, conversationID)
	if err != nil {
		return "", false, err
	}
	if !custom {
		return s.prompts.Default(), false, nil
	}
	return promptText, true, nil
}

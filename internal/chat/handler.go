// ABOUTME: Inbound-event policy for the mention-triggered assistant
// ABOUTME: Drops self/empty events and maps failures to distinct user replies

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fromagebot/fromage/internal/session"
	"github.com/fromagebot/fromage/internal/store"
)

// ErrForbidden is matched (via errors.Is) against Sink.Send failures that
// mean the assistant may not post in the conversation. It is logged and
// swallowed, never treated as a handler failure.
var ErrForbidden = errors.New("no permission to post")

// User-facing replies, one per failure case. External-call failures are
// never conflated with storage failures.
const (
	replyCompletionFailed = "Forgive me, a fleeting disturbance in the æther has scrambled my thoughts. Could you try again?"
	replyEmptyCompletion  = "I pondered your words but couldn't quite form a response."
	replyStorageFailed    = "My apologies, my memory is failing me just now. Give me a moment and try again."
)

// Event is one inbound chat message as delivered by the platform.
type Event struct {
	ConversationID string
	Text           string
	DisplayName    string
	IsSelf         bool // true when the assistant authored the message
}

// Sink posts replies back to the platform.
type Sink interface {
	Send(ctx context.Context, conversationID, text string) error
}

// Responder runs one full exchange; satisfied by *session.Service.
type Responder interface {
	Respond(ctx context.Context, conversationID, content, displayName string) (string, error)
}

// Handler applies the inbound-message policy on top of the session facade.
type Handler struct {
	session  Responder
	sink     Sink
	mentions []string
	logger   *slog.Logger
}

// NewHandler creates a Handler. mentions are the literal tokens (e.g. the
// platform's encoding of an @-mention of the assistant) stripped from
// inbound text before processing.
func NewHandler(responder Responder, sink Sink, mentions []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session:  responder,
		sink:     sink,
		mentions: mentions,
		logger:   logger.With("component", "chat"),
	}
}

// HandleEvent processes one inbound message end to end. Self-authored
// events and events that are empty after mention stripping are dropped
// silently. Every failure past that point produces a distinct reply.
func (h *Handler) HandleEvent(ctx context.Context, ev Event) {
	if ev.IsSelf {
		return
	}

	content := StripMentions(ev.Text, h.mentions)
	if content == "" {
		return
	}

	logger := h.logger.With("conversation_id", ev.ConversationID)
	logger.Info("processing message", "display_name", ev.DisplayName, "len", len(content))

	reply, err := h.session.Respond(ctx, ev.ConversationID, content, ev.DisplayName)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrEmptyCompletion):
		reply = replyEmptyCompletion
	case isStorageFailure(err):
		logger.Error("exchange failed on storage", "error", err)
		reply = replyStorageFailed
	default:
		logger.Error("exchange failed on completion", "error", err)
		reply = replyCompletionFailed
	}

	if err := h.sink.Send(ctx, ev.ConversationID, reply); err != nil {
		if errors.Is(err, ErrForbidden) {
			logger.Warn("no permission to post reply")
			return
		}
		logger.Error("sending reply failed", "error", err)
	}
}

func isStorageFailure(err error) bool {
	var storageErr *store.StorageError
	return errors.As(err, &storageErr)
}

// StripMentions removes every occurrence of the given mention tokens from
// text and trims surrounding whitespace.
func StripMentions(text string, mentions []string) string {
	for _, m := range mentions {
		if m == "" {
			continue
		}
		text = strings.ReplaceAll(text, m, "")
	}
	return strings.TrimSpace(text)
}

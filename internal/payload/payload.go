// ABOUTME: Pure context-window assembly for completion requests
// ABOUTME: Orders system prompt, trailing history, and the newest inbound turn

package payload

import (
	"strings"

	"github.com/fromagebot/fromage/internal/store"
)

// RoleSystem is the role of the leading prompt entry. History entries keep
// the turn roles from the store.
const RoleSystem = "system"

// MaxAuthorTagLen is the completion service's limit on the per-message
// author identifier.
const MaxAuthorTagLen = 64

// Entry is one element of the ordered request payload submitted to the
// completion service.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"` // author tag; user entries only
}

// Build assembles the ordered context window: one system entry holding the
// effective prompt, one entry per history turn, and a final entry for the
// newest inbound turn. Author tags are attached only to user entries whose
// display name survives sanitization.
func Build(systemPrompt string, history []store.ChatTurn, newTurn store.ChatTurn) []Entry {
	entries := make([]Entry, 0, len(history)+2)
	entries = append(entries, Entry{Role: RoleSystem, Content: systemPrompt})

	for _, turn := range history {
		entries = append(entries, entryFor(turn))
	}
	entries = append(entries, entryFor(newTurn))

	return entries
}

func entryFor(turn store.ChatTurn) Entry {
	e := Entry{Role: turn.Role, Content: turn.Content}
	if turn.Role == store.RoleUser {
		e.Name = SanitizeAuthorTag(turn.DisplayName)
	}
	return e
}

// SanitizeAuthorTag converts a display name into a tag the completion
// service accepts: characters outside [A-Za-z0-9_-] become underscores and
// the result is truncated to MaxAuthorTagLen. A name with no legal
// characters at all yields the empty string, meaning the tag is omitted.
func SanitizeAuthorTag(name string) string {
	if !strings.ContainsFunc(name, isTagRune) {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isTagRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	tag := b.String()
	if len(tag) > MaxAuthorTagLen {
		tag = tag[:MaxAuthorTagLen]
	}
	return tag
}

func isTagRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') ||
		(r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') ||
		r == '_' || r == '-'
}

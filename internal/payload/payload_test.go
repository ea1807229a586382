// ABOUTME: Tests for payload assembly and author tag sanitization
// ABOUTME: Covers ordering, tag attachment rules, and the sanitization charset

package payload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fromagebot/fromage/internal/store"
)

func TestBuild_OrderAndTags(t *testing.T) {
	history := []store.ChatTurn{
		{Role: store.RoleUser, Content: "hi", DisplayName: "Al"},
		{Role: store.RoleAssistant, Content: "yo"},
	}
	newTurn := store.ChatTurn{Role: store.RoleUser, Content: "bye", DisplayName: "Al"}

	entries := Build("SYS", history, newTurn)
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{Role: RoleSystem, Content: "SYS"}, entries[0])
	assert.Equal(t, Entry{Role: store.RoleUser, Content: "hi", Name: "Al"}, entries[1])
	assert.Equal(t, Entry{Role: store.RoleAssistant, Content: "yo"}, entries[2])
	assert.Equal(t, Entry{Role: store.RoleUser, Content: "bye", Name: "Al"}, entries[3])
}

func TestBuild_EmptyHistory(t *testing.T) {
	newTurn := store.ChatTurn{Role: store.RoleUser, Content: "first words", DisplayName: "Al"}

	entries := Build("SYS", nil, newTurn)
	require.Len(t, entries, 2)
	assert.Equal(t, RoleSystem, entries[0].Role)
	assert.Equal(t, "first words", entries[1].Content)
}

func TestBuild_AssistantTurnsNeverCarryTags(t *testing.T) {
	// DisplayName on an assistant turn is a caller-contract violation
	// upstream, but assembly must still not attach a tag
	history := []store.ChatTurn{
		{Role: store.RoleAssistant, Content: "yo", DisplayName: "ghost"},
	}
	newTurn := store.ChatTurn{Role: store.RoleUser, Content: "hi", DisplayName: "Al"}

	entries := Build("SYS", history, newTurn)
	assert.Empty(t, entries[1].Name)
}

func TestBuild_UnsanitizableNameOmitsTag(t *testing.T) {
	history := []store.ChatTurn{
		{Role: store.RoleUser, Content: "hi", DisplayName: "!!!"},
	}
	newTurn := store.ChatTurn{Role: store.RoleUser, Content: "bye", DisplayName: ""}

	entries := Build("SYS", history, newTurn)
	assert.Empty(t, entries[1].Name)
	assert.Empty(t, entries[2].Name)
}

func TestSanitizeAuthorTag(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice", "Alice"},
		{"space and punctuation", "Al Ice!", "Al_Ice_"},
		{"legal charset untouched", "user-name_9", "user-name_9"},
		{"only punctuation omitted", "!!!", ""},
		{"empty omitted", "", ""},
		{"unicode replaced", "Söze", "S_ze"},
		{"emoji only omitted", "🧀🧀", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeAuthorTag(tt.in))
		})
	}
}

func TestSanitizeAuthorTag_Truncates(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := SanitizeAuthorTag(long)
	assert.Len(t, got, MaxAuthorTagLen)
	assert.Equal(t, strings.Repeat("a", MaxAuthorTagLen), got)
}

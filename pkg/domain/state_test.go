package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationState_MergeKeepsKnownSlots(t *testing.T) {
	s := ConversationState{Dates: "12 de mayo", Profile: "pareja"}

	merged := s.Merge(ConversationState{Guests: "2 personas"})

	assert.Equal(t, "12 de mayo", merged.Dates, "empty update must not clear")
	assert.Equal(t, "2 personas", merged.Guests)
	assert.Equal(t, "pareja", merged.Profile)
	assert.Equal(t, "", s.Guests, "receiver is a value, not mutated")
}

func TestConversationState_ClearIsExplicit(t *testing.T) {
	s := ConversationState{Dates: "julio", Guests: "3 personas"}

	cleared := s.Clear(SlotDates)

	assert.Empty(t, cleared.Dates)
	assert.Equal(t, "3 personas", cleared.Guests)
	assert.Equal(t, []Slot{SlotDates}, cleared.MissingBooking())
}

func TestSession_ApplyBoundsHistory(t *testing.T) {
	s := NewSession("abc")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Apply("hola", &TurnResponse{Reply: "¿En qué te ayudo?", ActiveItemID: "X", LastShownItemID: "X"}, 4, now)
	}

	assert.Len(t, s.History, 4)
	assert.Equal(t, RoleUser, s.History[0].Role)
	assert.Equal(t, "X", s.LastShownItemID)
	assert.Equal(t, now, s.UpdatedAt)

	req := s.Request("si", SourceUser)
	assert.Equal(t, "X", req.ActiveItemID)
	assert.Len(t, req.History, 4)
}

func TestHistoryHelpers(t *testing.T) {
	h := []Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}
	assert.Equal(t, "b", LastAssistant(h))
	assert.Equal(t, "c", LastUser(h))
	assert.Len(t, Recent(h, 2), 2)
	assert.Len(t, Recent(h, 0), 3)
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	focus := "HAB_DELUXE_KING"
	empty := ""

	tests := []struct {
		name     string
		old      *Session
		new      *Session
		wantDiff *SessionDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &Session{
				ID:           "sess-1",
				State:        ConversationState{Dates: "12/05"},
				ActiveItemID: focus,
				History:      []Message{{Role: RoleUser, Content: "hola"}},
			},
			wantDiff: &SessionDiff{
				SessionID:    "sess-1",
				Slots:        map[Slot]string{SlotDates: "12/05"},
				ActiveItemID: &focus,
				Appended:     []Message{{Role: RoleUser, Content: "hola"}},
			},
		},
		{
			name:     "No Changes",
			old:      &Session{ID: "sess-1", State: ConversationState{Guests: "2 personas"}},
			new:      &Session{ID: "sess-1", State: ConversationState{Guests: "2 personas"}},
			wantDiff: nil,
		},
		{
			name: "Focus Dropped And Slot Added",
			old:  &Session{ID: "sess-1", ActiveItemID: focus},
			new:  &Session{ID: "sess-1", State: ConversationState{Profile: "pareja"}},
			wantDiff: &SessionDiff{
				SessionID:    "sess-1",
				Slots:        map[Slot]string{SlotProfile: "pareja"},
				ActiveItemID: &empty,
			},
		},
		{
			name: "History Append",
			old: &Session{ID: "sess-1", History: []Message{
				{Role: RoleUser, Content: "Habitaciones"},
				{Role: RoleAssistant, Content: "Tengo estas opciones."},
			}},
			new: &Session{ID: "sess-1", History: []Message{
				{Role: RoleUser, Content: "Habitaciones"},
				{Role: RoleAssistant, Content: "Tengo estas opciones."},
				{Role: RoleUser, Content: "si"},
				{Role: RoleAssistant, Content: "Perfecto."},
			}},
			wantDiff: &SessionDiff{
				SessionID: "sess-1",
				Appended: []Message{
					{Role: RoleUser, Content: "si"},
					{Role: RoleAssistant, Content: "Perfecto."},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			assert.Equal(t, tt.wantDiff, got)
		})
	}
}

func TestDiff_JSONOmitsEmptyFields(t *testing.T) {
	d := Diff(&Session{ID: "s"}, &Session{ID: "s", State: ConversationState{Intent: "trabajo"}})
	require.NotNil(t, d)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s","slots":{"intent":"trabajo"}}`, string(data))
}

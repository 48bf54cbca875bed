package domain

// Slot names a piece of trip context accumulated across turns.
type Slot string

const (
	SlotDates   Slot = "dates"
	SlotGuests  Slot = "guests"
	SlotProfile Slot = "profile"
	SlotIntent  Slot = "intent"
)

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	switch s {
	case SlotDates, SlotGuests, SlotProfile, SlotIntent:
		return true
	}
	return false
}

// ConversationState holds the slots of one session. An empty string means "unknown".
// The engine receives it by value and returns an updated copy; it never stores it.
type ConversationState struct {
	Dates   string `json:"dates,omitempty"`
	Guests  string `json:"guests,omitempty"`
	Profile string `json:"profile,omitempty"`
	Intent  string `json:"intent,omitempty"`
}

// Merge returns a copy of s where every non-empty slot of update wins.
// Empty values in update never clear a slot; use Clear for that.
func (s ConversationState) Merge(update ConversationState) ConversationState {
	if update.Dates != "" {
		s.Dates = update.Dates
	}
	if update.Guests != "" {
		s.Guests = update.Guests
	}
	if update.Profile != "" {
		s.Profile = update.Profile
	}
	if update.Intent != "" {
		s.Intent = update.Intent
	}
	return s
}

// Clear returns a copy of s with the given slots emptied.
func (s ConversationState) Clear(slots ...Slot) ConversationState {
	for _, slot := range slots {
		switch slot {
		case SlotDates:
			s.Dates = ""
		case SlotGuests:
			s.Guests = ""
		case SlotProfile:
			s.Profile = ""
		case SlotIntent:
			s.Intent = ""
		}
	}
	return s
}

// Get returns the value of a slot.
func (s ConversationState) Get(slot Slot) string {
	switch slot {
	case SlotDates:
		return s.Dates
	case SlotGuests:
		return s.Guests
	case SlotProfile:
		return s.Profile
	case SlotIntent:
		return s.Intent
	}
	return ""
}

// MissingBooking lists which of dates/guests are still unknown.
func (s ConversationState) MissingBooking() []Slot {
	missing := make([]Slot, 0, 2)
	if s.Dates == "" {
		missing = append(missing, SlotDates)
	}
	if s.Guests == "" {
		missing = append(missing, SlotGuests)
	}
	return missing
}

// IsZero reports whether no slot is known.
func (s ConversationState) IsZero() bool {
	return s == ConversationState{}
}

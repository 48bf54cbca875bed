package domain

// SessionDiff represents the changes a turn made to a session.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Slots contains only changed, added or cleared slots.
	// Cleared slots are present with an empty value.
	Slots map[Slot]string `json:"slots,omitempty"`

	// ActiveItemID is set when the focus changed (empty string = focus dropped).
	ActiveItemID *string `json:"active_item_id,omitempty"`

	// Appended contains the messages added to the history.
	Appended []Message `json:"appended,omitempty"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession (initial load).
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: newSession.ID}

	if oldSession == nil || oldSession.ActiveItemID != newSession.ActiveItemID {
		if oldSession != nil || newSession.ActiveItemID != "" {
			focus := newSession.ActiveItemID
			diff.ActiveItemID = &focus
		}
	}

	diff.Slots = diffSlots(oldSession, newSession)
	diff.Appended = diffHistory(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffSlots(old, new *Session) map[Slot]string {
	delta := make(map[Slot]string)
	var before ConversationState
	if old != nil {
		before = old.State
	}
	for _, slot := range []Slot{SlotDates, SlotGuests, SlotProfile, SlotIntent} {
		if before.Get(slot) != new.State.Get(slot) {
			delta[slot] = new.State.Get(slot)
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes append-only history; a trimmed window still reports the new tail.
func diffHistory(old, new *Session) []Message {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil || len(old.History) == 0 {
		return new.History
	}

	// Find where the old tail ends inside the new history.
	last := old.History[len(old.History)-1]
	for i := len(new.History) - 1; i >= 0; i-- {
		if new.History[i] == last && i < len(new.History)-1 {
			return new.History[i+1:]
		}
		if new.History[i] == last {
			return nil
		}
	}
	return new.History
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.ActiveItemID == nil && len(d.Slots) == 0 && len(d.Appended) == 0
}

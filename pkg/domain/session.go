package domain

import "time"

// Session is the caller-side envelope kept between turns by the outer adapters
// (HTTP session endpoint, chat REPL). The engine itself never sees it.
type Session struct {
	ID              string            `json:"id"`
	State           ConversationState `json:"state"`
	History         []Message         `json:"history"`
	ActiveItemID    string            `json:"active_item_id,omitempty"`
	LastShownItemID string            `json:"last_shown_item_id,omitempty"`
	Category        Category          `json:"category,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
	// Sealed holds the encrypted session when a store wraps it in an envelope.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	return &Session{
		ID:      id,
		History: []Message{},
	}
}

// Request builds the next TurnRequest from the session envelope.
func (s *Session) Request(message string, source Source) TurnRequest {
	return TurnRequest{
		Message:         message,
		History:         append([]Message(nil), s.History...),
		ActiveItemID:    s.ActiveItemID,
		LastShownItemID: s.LastShownItemID,
		Source:          source,
		State:           s.State,
	}
}

// Apply records a finished turn, keeping at most limit history messages (0 = unbounded).
func (s *Session) Apply(message string, resp *TurnResponse, limit int, now time.Time) {
	s.History = append(s.History,
		Message{Role: RoleUser, Content: message},
		Message{Role: RoleAssistant, Content: resp.Reply},
	)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]Message(nil), s.History[len(s.History)-limit:]...)
	}
	s.State = resp.State
	s.ActiveItemID = resp.ActiveItemID
	if resp.LastShownItemID != "" {
		s.LastShownItemID = resp.LastShownItemID
	}
	if resp.Category != "" {
		s.Category = resp.Category
	}
	s.UpdatedAt = now
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() *Session {
	cp := *s
	cp.History = append([]Message(nil), s.History...)
	return &cp
}

package domain

// Role identifies who authored a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Source tells whether the turn came from a menu click or free text.
type Source string

const (
	SourceUser Source = "user"
	SourceMenu Source = "menu"
)

// MenuEntry is a selectable choice shown under a reply.
type MenuEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DecisionMode is the classified outcome of a turn.
type DecisionMode string

const (
	ModeInform              DecisionMode = "inform"
	ModeClarify             DecisionMode = "clarify"
	ModeRedirectReservation DecisionMode = "redirect_reservation"
	ModeEscalateHuman       DecisionMode = "escalate_human"
	ModeShowMenu            DecisionMode = "show_menu"
)

// Decision carries the outcome mode, a machine-readable reason and the booking slots still missing.
type Decision struct {
	Mode    DecisionMode `json:"mode"`
	Reason  string       `json:"reason"`
	Missing []Slot       `json:"missing"`
}

// TurnRequest is the input of a single dispatch.
// History holds previous turns only; a trailing copy of Message is tolerated and ignored.
type TurnRequest struct {
	Message         string            `json:"message"`
	History         []Message         `json:"history,omitempty"`
	ActiveItemID    string            `json:"active_item_id,omitempty"`
	ActiveItemLabel string            `json:"active_item_label,omitempty"`
	LastShownItemID string            `json:"last_shown_item_id,omitempty"`
	Source          Source            `json:"source,omitempty"`
	State           ConversationState `json:"state"`
	Debug           bool              `json:"debug,omitempty"`
}

// TurnResponse is the output contract of a dispatch.
type TurnResponse struct {
	Reply           string            `json:"reply"`
	Items           []CatalogItem     `json:"items"`
	Menu            []MenuEntry       `json:"menu"`
	CTAs            []string          `json:"suggestions"`
	Category        Category          `json:"tipo,omitempty"`
	ActiveItemID    string            `json:"active_item_id,omitempty"`
	LastShownItemID string            `json:"last_shown_item_id,omitempty"`
	Intent          string            `json:"intent,omitempty"`
	Profile         string            `json:"profile,omitempty"`
	State           ConversationState `json:"state"`
	Decision        Decision          `json:"decision"`
	Trace           []string          `json:"trace,omitempty"`
}

// FollowUpRequest asks for a single clarifying question about a missing slot.
type FollowUpRequest struct {
	Slot         Slot              `json:"missing_field"`
	ActiveItemID string            `json:"active_item_id,omitempty"`
	Category     Category          `json:"context_topic,omitempty"`
	History      []Message         `json:"history,omitempty"`
	State        ConversationState `json:"state"`
}

// FollowUpResponse carries the clarifying question.
type FollowUpResponse struct {
	Question     string   `json:"reply"`
	Category     Category `json:"tipo,omitempty"`
	ActiveItemID string   `json:"active_item_id,omitempty"`
}

// LastAssistant returns the content of the most recent assistant message.
func LastAssistant(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}

// LastUser returns the content of the most recent user message.
func LastUser(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}

// Recent returns at most n trailing messages.
func Recent(history []Message, n int) []Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

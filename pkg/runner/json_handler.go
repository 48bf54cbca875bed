package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/conserje/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Each input line is either a JSON object {"message": "...", "active_item_id": "..."},
// a JSON string, or raw text. Each reply is one TurnResponse per line.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

type jsonInput struct {
	Message      string        `json:"message"`
	Source       domain.Source `json:"source,omitempty"`
	ActiveItemID string        `json:"active_item_id,omitempty"`
}

type jsonEvent struct {
	Type    string               `json:"type"`
	Message string               `json:"message,omitempty"`
	Turn    *domain.TurnResponse `json:"turn,omitempty"`
}

func (h *JSONHandler) Output(ctx context.Context, resp *domain.TurnResponse) error {
	return h.Encoder.Encode(jsonEvent{Type: "turn", Turn: resp})
}

func (h *JSONHandler) Input(ctx context.Context) (Input, error) {
	for {
		text, err := h.Reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text == "" {
			if err != nil {
				return Input{}, err
			}
			continue
		}

		in := parseJSONInput(text)
		clean, serr := SanitizeInput(in.Message)
		if serr != nil {
			if werr := h.SystemOutput(ctx, serr.Error()); werr != nil {
				return Input{}, werr
			}
			if err != nil {
				return Input{}, err
			}
			continue
		}
		in.Message = clean
		return in, nil
	}
}

func parseJSONInput(text string) Input {
	var obj jsonInput
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		if obj.Source == "" {
			obj.Source = domain.SourceUser
		}
		if obj.ActiveItemID != "" {
			obj.Source = domain.SourceMenu
		}
		return Input{Message: obj.Message, Source: obj.Source, ItemID: obj.ActiveItemID}
	}
	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return Input{Message: val, Source: domain.SourceUser}
	}
	// Fallback: raw text
	return Input{Message: text, Source: domain.SourceUser}
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(jsonEvent{Type: "system", Message: msg})
}

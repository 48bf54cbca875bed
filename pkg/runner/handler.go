package runner

import (
	"context"

	"github.com/aretw0/conserje/pkg/domain"
)

// Input is one guest message read by an IOHandler.
type Input struct {
	Message string
	Source  domain.Source
	// ItemID is the menu entry id when the guest picked an entry.
	ItemID string
}

// IOHandler defines the strategy for interacting with the guest.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the reply of a turn.
	Output(ctx context.Context, resp *domain.TurnResponse) error

	// Input reads the next guest message.
	// It returns io.EOF when the conversation is over.
	Input(ctx context.Context) (Input, error)

	// SystemOutput presents a meta-message (status, errors) distinct from replies.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

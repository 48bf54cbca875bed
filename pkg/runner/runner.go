package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/conserje/pkg/adapters/memory"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/session"
)

// Engine is the turn API the Runner drives.
type Engine interface {
	Turn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error)
}

// Runner handles the conversation loop of the concierge engine using provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	Handler    IOHandler
	Sessions   *session.Manager
	SessionID  string
	Logger     *slog.Logger
	Middleware []TurnMiddleware
	// Greeting, when set, is selected as a menu turn before reading input.
	Greeting *domain.MenuEntry
}

// NewRunner creates a Runner reading Stdin and writing Stdout, with an
// in-memory session store and a fresh session id.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.Sessions == nil {
		r.Sessions = session.NewManager(memory.NewStore(), session.WithLogger(r.Logger))
	}
	if r.SessionID == "" {
		r.SessionID = session.NewID()
	}
	return r
}

// Run executes the conversation loop until the input ends, the guest types
// "salir"/"exit", or ctx is cancelled. It returns the final session.
func (r *Runner) Run(ctx context.Context, engine Engine) (*domain.Session, error) {
	signals := NewSignalManager()
	defer signals.Stop()

	turn := Chain(engine.Turn, r.Middleware...)
	r.Logger.Debug("conversation started", "session_id", r.SessionID)

	if r.Greeting != nil {
		greeting := Input{Message: r.Greeting.Label, Source: domain.SourceMenu, ItemID: r.Greeting.ID}
		if err := r.step(ctx, turn, greeting); err != nil {
			return nil, err
		}
	}

	for {
		inputCtx, cancel := mergeContexts(ctx, signals.Context())
		in, err := r.Handler.Input(inputCtx)
		cancel()
		if err != nil {
			signals.CheckRace()
			switch {
			case errors.Is(err, io.EOF):
				return r.finish(ctx)
			case ctx.Err() != nil:
				return r.finish(context.Background())
			case signals.Context().Err() != nil:
				r.Logger.Debug("conversation interrupted", "session_id", r.SessionID)
				return r.finish(context.Background())
			}
			return nil, fmt.Errorf("input error: %w", err)
		}

		if isExit(in.Message) {
			return r.finish(ctx)
		}

		if err := r.step(ctx, turn, in); err != nil {
			return nil, err
		}
	}
}

func (r *Runner) step(ctx context.Context, turn session.TurnFunc, in Input) error {
	var (
		resp *domain.TurnResponse
		err  error
	)
	if in.ItemID != "" {
		resp, _, err = r.Sessions.Select(ctx, r.SessionID, domain.MenuEntry{ID: in.ItemID, Label: in.Message}, turn)
	} else {
		resp, _, err = r.Sessions.Turn(ctx, r.SessionID, in.Message, in.Source, turn)
	}
	if err != nil {
		if errors.Is(err, domain.ErrEmptyMessage) || errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8) {
			return r.Handler.SystemOutput(ctx, err.Error())
		}
		return fmt.Errorf("turn error: %w", err)
	}
	if err := r.Handler.Output(ctx, resp); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

func (r *Runner) finish(ctx context.Context) (*domain.Session, error) {
	s, err := r.Sessions.Load(ctx, r.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSession(r.SessionID), nil
	}
	return s, err
}

func isExit(message string) bool {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "salir", "exit", "quit":
		return true
	}
	return false
}

// mergeContexts returns a context cancelled when either parent is done.
func mergeContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

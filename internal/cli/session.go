package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/conserje"
	"github.com/aretw0/conserje/internal/presentation/tui"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/runner"
)

// ChatOptions configures an interactive conversation.
type ChatOptions struct {
	SessionID string
	// Fresh discards a stored session with the same ID before starting.
	Fresh bool
	// JSON switches to NDJSON input and output.
	JSON bool
	// Category opens the conversation on that category's menu.
	Category domain.Category
	// Watch reloads the catalog while chatting.
	Watch bool

	In  io.Reader
	Out io.Writer
}

// RunChat runs one conversation against the stack until the guest leaves.
func RunChat(ctx context.Context, stack *Stack, opts ChatOptions) (*domain.Session, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if opts.Fresh && opts.SessionID != "" {
		if err := stack.Sessions.Delete(ctx, opts.SessionID); err != nil {
			return nil, fmt.Errorf("failed to reset session: %w", err)
		}
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		var textOpts []runner.TextHandlerOption
		if f, ok := opts.Out.(*os.File); ok && tui.IsTerminal(f) {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, textOpts...)
		tui.PrintBanner(opts.Out, conserje.Version)
	}

	runnerOpts := []runner.Option{
		runner.WithInputHandler(handler),
		runner.WithSessions(stack.Sessions),
		runner.WithLogger(stack.Logger),
		runner.WithMiddleware(runner.LoggingMiddleware(stack.Logger)),
	}
	if opts.SessionID != "" {
		runnerOpts = append(runnerOpts, runner.WithSessionID(opts.SessionID))
		if s, err := stack.Sessions.Load(ctx, opts.SessionID); err == nil && len(s.History) > 0 && !opts.JSON {
			printSystemMessage(opts.Out, "Retomando la sesión '%s' (%d mensajes).", opts.SessionID, len(s.History))
		}
	}
	if opts.Category != "" {
		runnerOpts = append(runnerOpts, runner.WithGreeting(domain.MenuEntry{
			ID:    opts.Category.MenuID(),
			Label: opts.Category.Label(),
		}))
	} else if !opts.JSON {
		printSystemMessage(opts.Out, "Escribe tu consulta o elige: %s. Escribe 'salir' para terminar.", categoryList())
	}

	if opts.Watch {
		WatchCatalog(ctx, stack.Engine, stack.Logger, func(version string) {
			_ = handler.SystemOutput(ctx, "Catálogo actualizado ("+version+").")
		})
	}

	r := runner.NewRunner(runnerOpts...)
	s, err := r.Run(ctx, stack.Engine)
	if err != nil {
		return nil, handleExecutionError(err)
	}
	stack.Logger.Info("conversation finished", "session_id", r.SessionID, "messages", len(s.History))
	return s, nil
}

func categoryList() string {
	labels := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		labels[i] = c.Label()
	}
	return strings.Join(labels, ", ")
}

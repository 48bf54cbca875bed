package runner

import (
	"log/slog"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/session"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithSessions configures the session manager that keeps the conversation.
func WithSessions(m *session.Manager) Option {
	return func(r *Runner) {
		r.Sessions = m
	}
}

// WithSessionID resumes (or starts) the given session instead of a fresh one.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithMiddleware appends turn middlewares, outermost first.
func WithMiddleware(mw ...TurnMiddleware) Option {
	return func(r *Runner) {
		r.Middleware = append(r.Middleware, mw...)
	}
}

// WithGreeting opens the conversation by selecting entry before reading any input.
func WithGreeting(entry domain.MenuEntry) Option {
	return func(r *Runner) {
		r.Greeting = &entry
	}
}

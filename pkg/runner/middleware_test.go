package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/session"
)

func echo(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.ErrEmptyMessage
	}
	return &domain.TurnResponse{Reply: req.Message, Decision: domain.Decision{Mode: domain.ModeInform, Reason: "echo"}}, nil
}

func tag(name string, calls *[]string) TurnMiddleware {
	return func(next session.TurnFunc) session.TurnFunc {
		return func(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
			*calls = append(*calls, name)
			return next(ctx, req)
		}
	}
}

func TestChain_Order(t *testing.T) {
	var calls []string
	fn := Chain(echo, tag("outer", &calls), tag("inner", &calls))

	_, err := fn(context.Background(), domain.TurnRequest{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestSanitizeMiddleware(t *testing.T) {
	fn := Chain(echo, SanitizeMiddleware())

	resp, err := fn(context.Background(), domain.TurnRequest{Message: "\x1bspa"})
	require.NoError(t, err)
	assert.Equal(t, "spa", resp.Reply)

	t.Setenv(EnvMaxInputSize, "4")
	_, err = fn(context.Background(), domain.TurnRequest{Message: "habitaciones"})
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestLoggingMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	failing := func(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
		return nil, errors.New("boom")
	}

	_, err := Chain(echo, LoggingMiddleware(logger))(context.Background(), domain.TurnRequest{Message: "hola"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "turn completed")
	assert.Contains(t, buf.String(), "reason=echo")

	_, err = Chain(failing, LoggingMiddleware(logger))(context.Background(), domain.TurnRequest{Message: "hola"})
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "level=ERROR")

	_, err = Chain(echo, LoggingMiddleware(logger))(context.Background(), domain.TurnRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Contains(t, buf.String(), "turn rejected")
}

package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/session"
)

// TurnMiddleware wraps a turn function with cross-cutting behavior.
type TurnMiddleware func(next session.TurnFunc) session.TurnFunc

// Chain applies the middlewares so that the first one is the outermost.
func Chain(fn session.TurnFunc, middlewares ...TurnMiddleware) session.TurnFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		fn = middlewares[i](fn)
	}
	return fn
}

// SanitizeMiddleware runs SanitizeInput on the message before the turn.
func SanitizeMiddleware() TurnMiddleware {
	return func(next session.TurnFunc) session.TurnFunc {
		return func(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
			clean, err := SanitizeInput(req.Message)
			if err != nil {
				return nil, err
			}
			req.Message = clean
			return next(ctx, req)
		}
	}
}

// LoggingMiddleware logs the outcome and latency of every turn at debug level.
// Failures other than an empty message are logged at error level.
func LoggingMiddleware(logger *slog.Logger) TurnMiddleware {
	return func(next session.TurnFunc) session.TurnFunc {
		return func(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)
			switch {
			case errors.Is(err, domain.ErrEmptyMessage):
				logger.Debug("turn rejected", "err", err)
			case err != nil:
				logger.Error("turn failed", "err", err, "elapsed", elapsed)
			default:
				logger.Debug("turn completed",
					"mode", resp.Decision.Mode,
					"reason", resp.Decision.Reason,
					"active_item_id", resp.ActiveItemID,
					"elapsed", elapsed,
				)
			}
			return resp, err
		}
	}
}

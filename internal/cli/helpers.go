package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/aretw0/conserje/internal/config"
	"github.com/aretw0/conserje/internal/logging"
)

// Shutdown is a context cancelled on SIGINT or SIGTERM that remembers which
// signal arrived, so servers can log why they stopped.
type Shutdown struct {
	context.Context
	cancel context.CancelFunc
	ch     chan os.Signal
	got    atomic.Value
}

// WatchShutdown starts listening for termination signals.
func WatchShutdown(parent context.Context) *Shutdown {
	ctx, cancel := context.WithCancel(parent)
	s := &Shutdown{Context: ctx, cancel: cancel, ch: make(chan os.Signal, 1)}
	signal.Notify(s.ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(s.ch)
		select {
		case sig := <-s.ch:
			s.got.Store(sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return s
}

// Stop releases the listener and cancels the context.
func (s *Shutdown) Stop() { s.cancel() }

// Signal returns the signal that cancelled the context, or nil.
func (s *Shutdown) Signal() os.Signal {
	sig, _ := s.got.Load().(os.Signal)
	return sig
}

// NewLogger builds the application logger from the log section.
// Debug forces the debug level. Records go to Stderr so they never mix with
// the conversation on Stdout or the JSON-RPC stream of the MCP server.
func NewLogger(cfg config.LogConfig, debug bool) *slog.Logger {
	return newLogger(cfg, debug, os.Stderr)
}

func newLogger(cfg config.LogConfig, debug bool, w io.Writer) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithFormat(level, cfg.Format, w)
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

// handleExecutionError turns user interruptions into a clean exit.
func handleExecutionError(err error) error {
	if isInterrupted(err) {
		return nil
	}
	return err
}

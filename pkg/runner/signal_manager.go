package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// raceWindow is how long CheckRace waits for a signal to follow an input error.
const raceWindow = 100 * time.Millisecond

// SignalManager turns OS interrupts into context cancellation for the
// conversation loop, so a blocked read returns when the guest presses Ctrl+C.
type SignalManager struct {
	signals []os.Signal
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSignalManager starts listening for the given signals (SIGINT and SIGTERM by default).
func NewSignalManager(sigs ...os.Signal) *SignalManager {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sm := &SignalManager{signals: sigs}
	sm.Reset()
	return sm
}

// Context returns the current signal context.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Interrupted reports whether a signal arrived since the last Reset.
func (sm *SignalManager) Interrupted() bool {
	return sm.ctx.Err() != nil
}

// Reset re-arms the listener after a signal was handled.
func (sm *SignalManager) Reset() {
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.ctx, sm.cancel = signal.NotifyContext(context.Background(), sm.signals...)
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	if sm.cancel != nil {
		sm.cancel()
	}
}

// CheckRace waits briefly for a cancellation that may follow an input error.
// Some terminals deliver EOF on stdin slightly before the interrupt itself.
func (sm *SignalManager) CheckRace() {
	if sm.ctx.Err() != nil {
		return
	}
	select {
	case <-sm.ctx.Done():
	case <-time.After(raceWindow):
	}
}

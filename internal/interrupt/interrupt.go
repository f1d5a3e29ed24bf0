package interrupt

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitCode is the process exit code after an interrupt (128 + SIGINT).
const ExitCode = 130

// Error reports that an operation was stopped by a signal.
type Error struct {
	// Signal is the received signal.
	Signal os.Signal
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("interrupted by %v", e.Signal)
}

// ExitCode returns the exit code for the interrupt.
func (e *Error) ExitCode() int {
	return ExitCode
}

// Unwrap returns context.Canceled: the interrupt canceled the operation.
func (e *Error) Unwrap() error {
	return context.Canceled
}

// Guarder captures signals while an operation runs.
type Guarder struct {
	cancel context.CancelFunc
	sigCh  chan os.Signal
	done   chan struct{}

	mu       sync.Mutex
	received os.Signal
	stopOnce sync.Once
}

// Guard returns a context that is canceled on SIGINT or SIGTERM, or when
// parent is done. Stop must be called to release the signal handler.
func Guard(parent context.Context) (context.Context, *Guarder) {
	return guard(parent, os.Interrupt, syscall.SIGTERM)
}

func guard(parent context.Context, signals ...os.Signal) (context.Context, *Guarder) {
	ctx, cancel := context.WithCancel(parent)
	g := &Guarder{
		cancel: cancel,
		sigCh:  make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}
	signal.Notify(g.sigCh, signals...)

	go g.wait(ctx)
	return ctx, g
}

func (g *Guarder) wait(ctx context.Context) {
	select {
	case sig := <-g.sigCh:
		g.trigger(sig)
	case <-ctx.Done():
	case <-g.done:
	}
}

// trigger records sig and cancels the guarded context.
func (g *Guarder) trigger(sig os.Signal) {
	g.mu.Lock()
	if g.received == nil {
		g.received = sig
	}
	g.mu.Unlock()
	g.cancel()
}

// Interrupted reports whether a signal was received.
func (g *Guarder) Interrupted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.received != nil
}

// Err returns an *Error when a signal was received, nil otherwise.
func (g *Guarder) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.received == nil {
		return nil
	}
	return &Error{Signal: g.received}
}

// Stop releases the signal handler and cancels the guarded context.
// It is safe to call more than once.
func (g *Guarder) Stop() {
	g.stopOnce.Do(func() {
		signal.Stop(g.sigCh)
		close(g.done)
		g.cancel()
	})
}

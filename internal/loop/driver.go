package loop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CZERTAINLY/harness/internal/future"
)

// MainFunc is the asynchronous entry point run by a Driver. The returned
// future decides the exit status of the process.
type MainFunc func(ctx context.Context, r *Reactor) *future.Future

// Driver runs a MainFunc under a Reactor and terminates the process.
//
// Sequence:
//  1. derive a context cancelled by SIGINT or SIGTERM (Notify)
//  2. call main, a panic becomes a failed future
//  3. wait for the main future, the signal or Reactor.Stop
//  4. fire the reactor shutdown and wait for all triggers
//  5. Exit(0) if main succeeded or was interrupted and every trigger
//     succeeded, Exit(1) otherwise
//
// Signals received after the first one are swallowed until the process
// exits, so a second Ctrl+C does not interrupt a running shutdown.
type Driver struct {
	Exit   func(code int)
	Notify func(ctx context.Context) (context.Context, context.CancelFunc)
}

// React is Driver{}.React: the production driver.
func React(r *Reactor, main MainFunc) {
	Driver{}.React(r, main)
}

// React runs main under r, a new Reactor when nil, and exits the process. It
// does not return unless Exit does.
func (d Driver) React(r *Reactor, main MainFunc) {
	exit := d.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(d.Run(r, main))
}

// Run is React without the exit: it returns the exit code.
func (d Driver) Run(r *Reactor, main MainFunc) int {
	notify := d.Notify
	if notify == nil {
		notify = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		}
	}
	ctx, cancel := notify(context.Background())
	defer cancel()

	if r == nil {
		r = NewReactor()
	}
	result := call(ctx, r, main)

	select {
	case <-result.Done():
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutdown signal received")
	case <-r.Stopping():
		slog.DebugContext(ctx, "reactor stop requested")
	}

	code := 0
	failed := result.IsResolved() && result.Err() != nil
	if failed {
		slog.ErrorContext(ctx, "main function failed", "error", result.Err())
		code = 1
	}

	shutdownCtx := context.WithoutCancel(ctx)
	if err := r.FireShutdown(shutdownCtx).Wait(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "shutdown failed", "error", err)
		code = 1
	}
	// main may be linked to the shutdown and only resolve during it
	if !failed && result.IsResolved() && result.Err() != nil {
		slog.ErrorContext(shutdownCtx, "main function failed", "error", result.Err())
		code = 1
	}
	return code
}

func call(ctx context.Context, r *Reactor, main MainFunc) (f *future.Future) {
	defer func() {
		if p := recover(); p != nil {
			f = future.Resolved(fmt.Errorf("main panicked: %v", p))
		}
	}()
	f = main(ctx, r)
	if f == nil {
		f = future.Resolved(nil)
	}
	return f
}

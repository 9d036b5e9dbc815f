package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/CZERTAINLY/harness/internal/future"
	"github.com/CZERTAINLY/harness/internal/log"
	"github.com/CZERTAINLY/harness/internal/loop"
)

// Script is the asynchronous entry point of a command. The returned future
// decides the exit status.
type Script interface {
	Main(ctx context.Context, r *loop.Reactor, o Options) *future.Future
}

type ScriptFunc func(ctx context.Context, r *loop.Reactor, o Options) *future.Future

func (f ScriptFunc) Main(ctx context.Context, r *loop.Reactor, o Options) *future.Future {
	return f(ctx, r, o)
}

// Runner parses the command line, starts the logging service of Policy and
// hands the Script over to the loop driver.
type Runner struct {
	Script Script
	// Options returns a fresh, unparsed options value.
	Options func() Options
	Policy  LoggingPolicy
	Sys     *System
	// Driver runs the script. Its Exit is not used: the Runner exits with
	// the code returned by Driver.Run.
	Driver loop.Driver
}

func (r *Runner) sys() *System {
	if r.Sys == nil {
		r.Sys = OSSystem()
	}
	return r.Sys
}

func (r *Runner) policy() LoggingPolicy {
	if r.Policy == nil {
		return CLILoggingPolicy{}
	}
	return r.Policy
}

// ParseOptions parses args into new options decorated by the logging policy.
// A usage error prints the help text and the message to stderr and exits
// with status 1. Other errors are returned. ErrExit is returned when the
// process was asked to exit and System.Exit returned.
func (r *Runner) ParseOptions(args []string) (Options, error) {
	sys := r.sys()
	o := r.policy().OptionsWrapper(r.Options())
	err := Parse(o, args)
	if err == nil {
		return o, nil
	}
	var uerr *UsageError
	if errors.As(err, &uerr) {
		fmt.Fprint(sys.Stderr, HelpText(o))
		fmt.Fprintf(sys.Stderr, "ERROR: %s\n", uerr.Message)
		sys.Exit(1)
		return nil, ErrExit
	}
	return nil, err
}

// Main runs the command and ends the process with exactly one call to
// System.Exit. It returns only when System.Exit does, which happens in tests.
func (r *Runner) Main() {
	sys := r.sys()
	o, err := r.ParseOptions(sys.Args[1:])
	if err != nil {
		if !errors.Is(err, ErrExit) {
			fmt.Fprintf(sys.Stderr, "ERROR: %s\n", err)
			sys.Exit(1)
		}
		return
	}

	run := slog.Group("harness",
		slog.String("run_id", uuid.NewString()),
		slog.Int("pid", os.Getpid()),
	)
	ctx := log.ContextAttrs(context.Background(), run)

	reactor := loop.NewReactor()
	logging := r.policy().Service(reactor, o)
	if err := logging.Start(ctx); err != nil {
		fmt.Fprintf(sys.Stderr, "ERROR: starting logging: %s\n", err)
		sys.Exit(1)
		return
	}
	err = reactor.AddShutdownTrigger(loop.PhaseAfter, "logging", func(ctx context.Context) *future.Future {
		return future.Resolved(logging.Stop(ctx))
	})
	if err != nil {
		panic(err) // the reactor is not running yet
	}

	code := r.Driver.Run(reactor, func(ctx context.Context, reactor *loop.Reactor) *future.Future {
		ctx = log.ContextAttrs(ctx, run)
		slog.DebugContext(ctx, "script started", "args", sys.Args[1:])
		return r.Script.Main(ctx, reactor, o)
	})
	sys.Exit(code)
}

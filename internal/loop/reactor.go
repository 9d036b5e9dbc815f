package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CZERTAINLY/harness/internal/future"
)

var ErrShuttingDown = errors.New("reactor is shutting down")

// Phase orders shutdown triggers. All triggers of a phase run concurrently
// and the next phase starts once every future of the previous one resolved.
type Phase int

const (
	PhaseBefore Phase = iota
	PhaseDuring
	PhaseAfter
)

var phases = [...]Phase{PhaseBefore, PhaseDuring, PhaseAfter}

func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseDuring:
		return "during"
	case PhaseAfter:
		return "after"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Trigger is called once when the reactor shuts down. The returned future
// tells the reactor when the trigger is done; nil means done already.
type Trigger func(ctx context.Context) *future.Future

type trigger struct {
	phase Phase
	name  string
	fn    Trigger
}

// Reactor is the event loop of a harness process. It does not schedule work
// itself: the Driver runs the main function and waits, while the Reactor
// owns the shutdown event and the triggers registered for it.
type Reactor struct {
	mx       sync.Mutex
	triggers []trigger
	shutdown *future.Future
	stop     chan struct{}
	stopOnce sync.Once
}

func NewReactor() *Reactor {
	return &Reactor{
		stop: make(chan struct{}),
	}
}

// AddShutdownTrigger registers fn to run during phase of the shutdown. It
// returns ErrShuttingDown once the shutdown has been fired.
func (r *Reactor) AddShutdownTrigger(phase Phase, name string, fn Trigger) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.shutdown != nil {
		return ErrShuttingDown
	}
	r.triggers = append(r.triggers, trigger{phase: phase, name: name, fn: fn})
	return nil
}

// Stop asks the driver to shut the reactor down. Extra calls are ignored.
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// Stopping is closed once Stop has been called.
func (r *Reactor) Stopping() <-chan struct{} {
	return r.stop
}

// FireShutdown runs the registered triggers phase by phase and returns a
// future resolved once all of them are done. Only the first call fires the
// triggers, later calls return the same future.
func (r *Reactor) FireShutdown(ctx context.Context) *future.Future {
	r.mx.Lock()
	if r.shutdown != nil {
		r.mx.Unlock()
		slog.DebugContext(ctx, "shutdown already fired: ignoring")
		return r.shutdown
	}
	r.shutdown = future.New()
	triggers := r.triggers
	r.triggers = nil
	ret := r.shutdown
	r.mx.Unlock()

	go func() {
		var errs []error
		for _, phase := range phases {
			errs = append(errs, runPhase(ctx, phase, triggers)...)
		}
		ret.Resolve(errors.Join(errs...))
	}()
	return ret
}

func runPhase(ctx context.Context, phase Phase, triggers []trigger) []error {
	var g errgroup.Group
	var mx sync.Mutex
	var errs []error
	for _, t := range triggers {
		if t.phase != phase {
			continue
		}
		g.Go(func() error {
			err := runTrigger(ctx, t)
			if err != nil {
				slog.ErrorContext(ctx, "shutdown trigger failed", "phase", phase.String(), "trigger", t.name, "error", err)
				mx.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
				mx.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // errors are collected above
	return errs
}

func runTrigger(ctx context.Context, t trigger) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	slog.DebugContext(ctx, "running shutdown trigger", "phase", t.phase.String(), "trigger", t.name)
	f := t.fn(ctx)
	if f == nil {
		return nil
	}
	<-f.Done()
	return f.Err()
}

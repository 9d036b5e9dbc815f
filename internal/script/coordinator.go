package script

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/CZERTAINLY/harness/internal/future"
	"github.com/CZERTAINLY/harness/internal/loop"
)

// LinkState is the lifecycle of a service linked to a reactor shutdown.
type LinkState int32

const (
	LinkCreated LinkState = iota
	LinkRunning
	LinkStopRequested
	LinkStopped
)

func (s LinkState) String() string {
	switch s {
	case LinkCreated:
		return "created"
	case LinkRunning:
		return "running"
	case LinkStopRequested:
		return "stop requested"
	case LinkStopped:
		return "stopped"
	default:
		return fmt.Sprintf("LinkState(%d)", int32(s))
	}
}

// ServiceLink is the future returned by MainForService together with the
// state of the linked service.
type ServiceLink struct {
	*future.Future
	state atomic.Int32
}

func (l *ServiceLink) State() LinkState {
	return LinkState(l.state.Load())
}

func (l *ServiceLink) set(s LinkState) {
	l.state.Store(int32(s))
}

// MainForService runs svc for the lifetime of the reactor. The service is
// started before MainForService returns; a Start failure is returned as an
// already failed future. On shutdown the service is stopped and the returned
// future resolves with nil once Stop has returned. A Stop error is reported
// to the reactor, not through the returned future.
func MainForService(ctx context.Context, r *loop.Reactor, svc loop.Service) *ServiceLink {
	link := &ServiceLink{Future: future.New()}

	if err := svc.Start(ctx); err != nil {
		link.Resolve(fmt.Errorf("starting service: %w", err))
		link.set(LinkStopped)
		return link
	}
	link.set(LinkRunning)

	err := r.AddShutdownTrigger(loop.PhaseBefore, fmt.Sprintf("stop %T", svc), func(ctx context.Context) *future.Future {
		link.set(LinkStopRequested)
		slog.DebugContext(ctx, "stopping service", "service", fmt.Sprintf("%T", svc))
		return future.Go(func() error {
			return svc.Stop(ctx)
		}).Then(func(stopErr error) *future.Future {
			link.set(LinkStopped)
			link.Resolve(nil)
			return future.Resolved(stopErr)
		})
	})
	if err != nil {
		stopErr := svc.Stop(ctx)
		link.set(LinkStopped)
		link.Resolve(fmt.Errorf("linking service to shutdown: %w", joinErr(err, stopErr)))
	}
	return link
}

func joinErr(err, other error) error {
	if other == nil {
		return err
	}
	return fmt.Errorf("%w (stop: %w)", err, other)
}

package loop_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CZERTAINLY/harness/internal/future"
	"github.com/CZERTAINLY/harness/internal/loop"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("os/signal.signal_recv"))
}

func TestBaseService(t *testing.T) {
	t.Parallel()
	var s loop.BaseService
	require.False(t, s.Running())
	require.NoError(t, s.Start(t.Context()))
	require.True(t, s.Running())
	require.NoError(t, s.Stop(t.Context()))
	require.False(t, s.Running())
}

func TestReactorShutdownPhases(t *testing.T) {
	t.Parallel()
	r := loop.NewReactor()

	var mx sync.Mutex
	var order []string
	record := func(name string) loop.Trigger {
		return func(context.Context) *future.Future {
			mx.Lock()
			defer mx.Unlock()
			order = append(order, name)
			return nil
		}
	}

	gate := future.New()
	require.NoError(t, r.AddShutdownTrigger(loop.PhaseAfter, "after", record("after")))
	require.NoError(t, r.AddShutdownTrigger(loop.PhaseBefore, "before", func(ctx context.Context) *future.Future {
		return gate.Then(func(error) *future.Future {
			return record("before")(ctx)
		})
	}))
	require.NoError(t, r.AddShutdownTrigger(loop.PhaseDuring, "during", record("during")))

	shutdown := r.FireShutdown(t.Context())
	select {
	case <-shutdown.Done():
		t.Fatal("shutdown finished before the before-phase trigger")
	case <-time.After(20 * time.Millisecond):
	}
	mx.Lock()
	require.Empty(t, order)
	mx.Unlock()

	gate.Resolve(nil)
	require.NoError(t, shutdown.Wait(t.Context()))
	require.Equal(t, []string{"before", "during", "after"}, order)
}

func TestReactorShutdownOnce(t *testing.T) {
	t.Parallel()
	r := loop.NewReactor()
	var calls atomic.Int32
	require.NoError(t, r.AddShutdownTrigger(loop.PhaseBefore, "count", func(context.Context) *future.Future {
		calls.Add(1)
		return nil
	}))

	first := r.FireShutdown(t.Context())
	second := r.FireShutdown(t.Context())
	require.Same(t, first, second)
	require.NoError(t, first.Wait(t.Context()))
	require.EqualValues(t, 1, calls.Load())

	err := r.AddShutdownTrigger(loop.PhaseBefore, "late", func(context.Context) *future.Future { return nil })
	require.ErrorIs(t, err, loop.ErrShuttingDown)
}

func TestReactorShutdownErrors(t *testing.T) {
	t.Parallel()
	r := loop.NewReactor()
	boom := errors.New("boom")
	require.NoError(t, r.AddShutdownTrigger(loop.PhaseBefore, "fails", func(context.Context) *future.Future {
		return future.Resolved(boom)
	}))
	require.NoError(t, r.AddShutdownTrigger(loop.PhaseBefore, "panics", func(context.Context) *future.Future {
		panic("ono")
	}))
	var ran atomic.Bool
	require.NoError(t, r.AddShutdownTrigger(loop.PhaseAfter, "still runs", func(context.Context) *future.Future {
		ran.Store(true)
		return nil
	}))

	err := r.FireShutdown(t.Context()).Wait(t.Context())
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "panics: panic: ono")
	require.True(t, ran.Load())
}

func TestReactorStop(t *testing.T) {
	t.Parallel()
	r := loop.NewReactor()
	select {
	case <-r.Stopping():
		t.Fatal("stopping before Stop")
	default:
	}
	r.Stop()
	r.Stop()
	<-r.Stopping()
}

// fakeSignal returns a Notify func and a function delivering the signal.
func fakeSignal() (func(context.Context) (context.Context, context.CancelFunc), func()) {
	var cancelSignal context.CancelFunc
	ready := make(chan struct{})
	notify := func(ctx context.Context) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(ctx)
		cancelSignal = cancel
		close(ready)
		return ctx, cancel
	}
	send := func() {
		<-ready
		cancelSignal()
	}
	return notify, send
}

func TestDriver(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		var stopped atomic.Bool
		code := loop.Driver{}.Run(nil, func(_ context.Context, r *loop.Reactor) *future.Future {
			require.NoError(t, r.AddShutdownTrigger(loop.PhaseBefore, "flag", func(context.Context) *future.Future {
				stopped.Store(true)
				return nil
			}))
			return future.Resolved(nil)
		})
		require.Equal(t, 0, code)
		require.True(t, stopped.Load(), "shutdown triggers run after main completes")
	})

	t.Run("nil future", func(t *testing.T) {
		code := loop.Driver{}.Run(nil, func(context.Context, *loop.Reactor) *future.Future { return nil })
		require.Equal(t, 0, code)
	})

	t.Run("failure", func(t *testing.T) {
		code := loop.Driver{}.Run(nil, func(context.Context, *loop.Reactor) *future.Future {
			return future.Resolved(errors.New("main failed"))
		})
		require.Equal(t, 1, code)
	})

	t.Run("panic", func(t *testing.T) {
		code := loop.Driver{}.Run(nil, func(context.Context, *loop.Reactor) *future.Future {
			panic("ono")
		})
		require.Equal(t, 1, code)
	})

	t.Run("shutdown failure", func(t *testing.T) {
		code := loop.Driver{}.Run(nil, func(_ context.Context, r *loop.Reactor) *future.Future {
			require.NoError(t, r.AddShutdownTrigger(loop.PhaseBefore, "fails", func(context.Context) *future.Future {
				return future.Resolved(errors.New("stop failed"))
			}))
			return future.Resolved(nil)
		})
		require.Equal(t, 1, code)
	})

	t.Run("reactor stop", func(t *testing.T) {
		code := loop.Driver{}.Run(nil, func(_ context.Context, r *loop.Reactor) *future.Future {
			r.Stop()
			return future.New()
		})
		require.Equal(t, 0, code)
	})

	t.Run("signal", func(t *testing.T) {
		notify, send := fakeSignal()
		linked := future.New()
		var mainCtx context.Context
		go send()
		code := loop.Driver{Notify: notify}.Run(nil, func(ctx context.Context, r *loop.Reactor) *future.Future {
			mainCtx = ctx
			require.NoError(t, r.AddShutdownTrigger(loop.PhaseBefore, "link", func(context.Context) *future.Future {
				linked.Resolve(nil)
				return linked
			}))
			return linked
		})
		require.Equal(t, 0, code)
		require.ErrorIs(t, mainCtx.Err(), context.Canceled)
		require.True(t, linked.IsResolved())
	})

	t.Run("linked failure", func(t *testing.T) {
		notify, send := fakeSignal()
		linked := future.New()
		go send()
		code := loop.Driver{Notify: notify}.Run(nil, func(_ context.Context, r *loop.Reactor) *future.Future {
			require.NoError(t, r.AddShutdownTrigger(loop.PhaseBefore, "link", func(context.Context) *future.Future {
				linked.Resolve(errors.New("late failure"))
				return nil
			}))
			return linked
		})
		require.Equal(t, 1, code)
	})

	t.Run("existing reactor", func(t *testing.T) {
		r := loop.NewReactor()
		var stopped atomic.Bool
		require.NoError(t, r.AddShutdownTrigger(loop.PhaseAfter, "registered before run", func(context.Context) *future.Future {
			stopped.Store(true)
			return nil
		}))
		code := loop.Driver{}.Run(r, func(_ context.Context, got *loop.Reactor) *future.Future {
			require.Same(t, r, got)
			return nil
		})
		require.Equal(t, 0, code)
		require.True(t, stopped.Load())
	})

	t.Run("react exits", func(t *testing.T) {
		var got atomic.Int32
		got.Store(-1)
		loop.Driver{Exit: func(code int) { got.Store(int32(code)) }}.React(nil, func(context.Context, *loop.Reactor) *future.Future {
			return future.Resolved(errors.New("bye"))
		})
		require.EqualValues(t, 1, got.Load())
	})
}

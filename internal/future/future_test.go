package future_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CZERTAINLY/harness/internal/future"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFuture(t *testing.T) {
	t.Parallel()

	t.Run("unresolved", func(t *testing.T) {
		f := future.New()
		require.False(t, f.IsResolved())
		require.ErrorIs(t, f.Err(), future.ErrNotResolved)
	})

	t.Run("resolve once", func(t *testing.T) {
		f := future.New()
		boom := errors.New("boom")
		require.True(t, f.Resolve(boom))
		require.False(t, f.Resolve(nil))
		require.True(t, f.IsResolved())
		require.ErrorIs(t, f.Err(), boom)
	})

	t.Run("resolved", func(t *testing.T) {
		f := future.Resolved(nil)
		require.True(t, f.IsResolved())
		require.NoError(t, f.Err())
	})

	t.Run("many waiters", func(t *testing.T) {
		f := future.New()
		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				require.NoError(t, f.Wait(t.Context()))
			})
		}
		f.Resolve(nil)
		wg.Wait()
	})

	t.Run("wait canceled", func(t *testing.T) {
		f := future.New()
		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		t.Cleanup(cancel)
		require.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)
	})
}

func TestThen(t *testing.T) {
	t.Parallel()

	first := future.New()
	inner := future.New()
	var got error
	chained := first.Then(func(err error) *future.Future {
		got = err
		return inner
	})

	boom := errors.New("boom")
	first.Resolve(boom)
	select {
	case <-chained.Done():
		t.Fatal("chained future resolved before the inner future")
	case <-time.After(20 * time.Millisecond):
	}

	inner.Resolve(nil)
	require.NoError(t, chained.Wait(t.Context()))
	require.ErrorIs(t, got, boom)

	nilNext := future.Resolved(nil).Then(func(error) *future.Future { return nil })
	require.NoError(t, nilNext.Wait(t.Context()))
}

func TestGo(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	f := future.Go(func() error { return boom })
	require.ErrorIs(t, f.Wait(t.Context()), boom)
}

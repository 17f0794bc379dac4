package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Clamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(0))
	assert.Equal(t, 1, Clamp(-5))
	assert.Equal(t, 1, Clamp(1))
	assert.Equal(t, 7, Clamp(7))
	assert.Equal(t, 10, Clamp(10))
	assert.Equal(t, 10, Clamp(50))
}

func TestGate_CapacityBound(t *testing.T) {
	const capacity = 3
	const tasks = 20

	g := New(capacity)
	require.Equal(t, capacity, g.Capacity())

	var inFlight, maxInFlight int64
	var wg sync.WaitGroup

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, g.Acquire(context.Background()))
			defer g.Release()

			cur := atomic.AddInt64(&inFlight, 1)
			for {
				max := atomic.LoadInt64(&maxInFlight)
				if cur <= max || atomic.CompareAndSwapInt64(&maxInFlight, max, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt64(&maxInFlight), int64(capacity))
	assert.Greater(t, atomic.LoadInt64(&maxInFlight), int64(0))
}

func TestGate_AcquireCancelledWhileWaiting(t *testing.T) {
	g := New(1)
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Acquire(ctx)
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("acquire did not return after cancellation")
	}

	g.Release()

	// The permit is still usable after a cancelled wait.
	require.NoError(t, g.Acquire(context.Background()))
	g.Release()
}

func TestGate_ReleaseHandsPermitToWaiter(t *testing.T) {
	g := New(1)
	require.NoError(t, g.Acquire(context.Background()))

	admitted := make(chan struct{})
	go func() {
		if err := g.Acquire(context.Background()); err == nil {
			close(admitted)
		}
	}()

	select {
	case <-admitted:
		t.Fatal("waiter admitted before release")
	case <-time.After(20 * time.Millisecond):
	}

	g.Release()

	select {
	case <-admitted:
	case <-time.After(time.Second):
		t.Fatal("waiter not admitted after release")
	}
	g.Release()
}

package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/cove/pkg/observability"
)

func TestSafeGo_Success(t *testing.T) {
	executed := atomic.Bool{}

	SafeGo(context.Background(), observability.NewNopLogger(), time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	waitFor(t, &executed)
}

func TestSafeGo_ErrorDoesNotCrash(t *testing.T) {
	executed := atomic.Bool{}

	SafeGo(context.Background(), observability.NewNopLogger(), time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		return errors.New("test error")
	})

	waitFor(t, &executed)
}

func TestSafeGo_PanicRecovered(t *testing.T) {
	executed := atomic.Bool{}

	SafeGo(context.Background(), observability.NewNopLogger(), time.Second, "test task", func(ctx context.Context) error {
		executed.Store(true)
		panic("boom")
	})

	waitFor(t, &executed)
}

func TestSafeGo_Timeout(t *testing.T) {
	timedOut := atomic.Bool{}

	SafeGo(context.Background(), observability.NewNopLogger(), 20*time.Millisecond, "test task", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			timedOut.Store(true)
			return ctx.Err()
		}
	})

	waitFor(t, &timedOut)
}

func TestSafeGo_SurvivesParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executed := atomic.Bool{}
	SafeGo(ctx, observability.NewNopLogger(), time.Second, "test task", func(ctx context.Context) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		executed.Store(true)
		return nil
	})

	waitFor(t, &executed)
}

func TestSafeGoNoError(t *testing.T) {
	executed := atomic.Bool{}

	SafeGoNoError(context.Background(), observability.NewNopLogger(), time.Second, "test task", func(ctx context.Context) {
		executed.Store(true)
	})

	waitFor(t, &executed)
}

func waitFor(t *testing.T, flag *atomic.Bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if flag.Load() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("background task did not run")
}

package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/anzen/pkg/utils/async"
)

func TestDispatch(t *testing.T) {
	t.Run("runs handler even if caller context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan error, 1)
		async.Dispatch(ctx, func(ctx context.Context) error {
			done <- ctx.Err()
			return nil
		})

		select {
		case err := <-done:
			gt.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("handler was not called")
		}
	})

	t.Run("recovers from panic", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			defer close(done)
			panic("boom")
		})

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler was not called")
		}
	})

	t.Run("logs returned error", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			defer close(done)
			return errors.New("failed")
		})
		<-done
	})
}

func TestWait(t *testing.T) {
	t.Run("returns after handlers finish", func(t *testing.T) {
		finished := make(chan struct{})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			time.Sleep(20 * time.Millisecond)
			close(finished)
			return nil
		})

		gt.NoError(t, async.Wait(context.Background()))
		select {
		case <-finished:
		default:
			t.Fatal("Wait returned before handler finished")
		}
	})

	t.Run("gives up when context expires", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		gt.Error(t, async.Wait(ctx)).Is(context.DeadlineExceeded)
	})
}

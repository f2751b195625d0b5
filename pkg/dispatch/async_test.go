package dispatch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-notify/pkg/dispatch"
	"github.com/tinywideclouds/go-notify/pkg/notify"
)

// echoCapability succeeds with a message ID derived from the recipient, so
// tests can correlate results back to their requests.
type echoCapability struct {
	channel notify.Channel
	delay   time.Duration
}

func (e *echoCapability) ChannelType() notify.Channel { return e.channel }

func (e *echoCapability) Validate(context.Context, *notify.Request) error { return nil }

func (e *echoCapability) Send(_ context.Context, req *notify.Request) (notify.Result, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	return notify.Success(req.Channel(), "echo:"+req.Recipient()), nil
}

// blockingCapability never completes until released.
type blockingCapability struct {
	channel notify.Channel
	release chan struct{}
}

func (b *blockingCapability) ChannelType() notify.Channel { return b.channel }

func (b *blockingCapability) Validate(context.Context, *notify.Request) error { return nil }

func (b *blockingCapability) Send(_ context.Context, req *notify.Request) (notify.Result, error) {
	<-b.release
	return notify.Success(req.Channel(), "late"), nil
}

func newAsync(t *testing.T, caps ...dispatch.Capability) *dispatch.AsyncDispatcher {
	t.Helper()
	d := dispatch.NewDispatcher(newTestLogger())
	for _, c := range caps {
		require.NoError(t, d.RegisterChannel(c))
	}
	return dispatch.NewAsyncDispatcher(d, newTestLogger())
}

func batchOf(t *testing.T, n int) []*notify.Request {
	t.Helper()
	reqs := make([]*notify.Request, 0, n)
	for i := 0; i < n; i++ {
		req, err := notify.NewRequest(notify.ChannelEmail, fmt.Sprintf("user-%d@b.com", i), "M")
		require.NoError(t, err)
		reqs = append(reqs, req)
	}
	return reqs
}

func TestAsyncDispatcher_SendAsync(t *testing.T) {
	ctx := context.Background()

	t.Run("Future resolves with the send result", func(t *testing.T) {
		a := newAsync(t, &echoCapability{channel: notify.ChannelEmail})
		defer func() { _ = a.Shutdown(ctx) }()

		fut := a.SendAsync(ctx, emailRequest(t))

		res, err := fut.Get(ctx)
		require.NoError(t, err)
		assert.True(t, res.Succeeded())
		assert.Equal(t, "echo:a@b.com", res.MessageID())
	})

	t.Run("Get honors context cancellation", func(t *testing.T) {
		blocker := &blockingCapability{channel: notify.ChannelEmail, release: make(chan struct{})}
		defer close(blocker.release)
		a := newAsync(t, blocker)

		fut := a.SendAsync(ctx, emailRequest(t))

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := fut.Get(waitCtx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Nil request resolves to a failure result, not a panic", func(t *testing.T) {
		a := newAsync(t, &echoCapability{channel: notify.ChannelEmail})
		defer func() { _ = a.Shutdown(ctx) }()

		res, err := a.SendAsync(ctx, nil).Get(ctx)

		require.NoError(t, err)
		assert.False(t, res.Succeeded())
		var vErr *notify.ValidationError
		assert.ErrorAs(t, res.Cause(), &vErr)
	})
}

func TestAsyncDispatcher_SendBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Preserves input order for N in {0, 1, 1000}", func(t *testing.T) {
		for _, n := range []int{0, 1, 1000} {
			t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
				a := newAsync(t, &echoCapability{channel: notify.ChannelEmail})
				defer func() { _ = a.Shutdown(ctx) }()

				results := a.SendBatch(ctx, batchOf(t, n))

				require.Len(t, results, n)
				for i, res := range results {
					require.True(t, res.Succeeded())
					require.Equal(t, fmt.Sprintf("echo:user-%d@b.com", i), res.MessageID())
				}
			})
		}
	})

	t.Run("Order is input order even when completion order differs", func(t *testing.T) {
		// A small random-ish delay per send makes completion order scramble.
		a := newAsync(t, &echoCapability{channel: notify.ChannelEmail, delay: time.Millisecond})
		defer func() { _ = a.Shutdown(ctx) }()

		results := a.SendBatch(ctx, batchOf(t, 50))

		for i, res := range results {
			require.Equal(t, fmt.Sprintf("echo:user-%d@b.com", i), res.MessageID())
		}
	})
}

func TestAsyncDispatcher_SendWithTimeout(t *testing.T) {
	ctx := context.Background()

	t.Run("Completed send wins the race", func(t *testing.T) {
		a := newAsync(t, &echoCapability{channel: notify.ChannelEmail})
		defer func() { _ = a.Shutdown(ctx) }()

		res := a.SendWithTimeout(ctx, emailRequest(t), time.Second)

		assert.True(t, res.Succeeded())
	})

	t.Run("Expiry yields a failure result, never an error", func(t *testing.T) {
		blocker := &blockingCapability{channel: notify.ChannelEmail, release: make(chan struct{})}
		defer close(blocker.release)
		a := newAsync(t, blocker)

		start := time.Now()
		res := a.SendWithTimeout(ctx, emailRequest(t), 30*time.Millisecond)

		assert.False(t, res.Succeeded())
		assert.ErrorIs(t, res.Cause(), dispatch.ErrSendTimeout)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.Equal(t, notify.ChannelEmail, res.Channel())
	})
}

func TestAsyncDispatcher_Compositions(t *testing.T) {
	ctx := context.Background()

	// failEveryOther fails for even-numbered recipients.
	failEveryOther := &selectiveCapability{channel: notify.ChannelEmail}

	t.Run("Partitioned splits successes and failures", func(t *testing.T) {
		a := newAsync(t, failEveryOther)
		defer func() { _ = a.Shutdown(ctx) }()

		successes, failures := a.SendBatchPartitioned(ctx, batchOf(t, 10))

		assert.Len(t, successes, 5)
		assert.Len(t, failures, 5)
	})

	t.Run("SuccessfulOnly filters failures out", func(t *testing.T) {
		a := newAsync(t, failEveryOther)
		defer func() { _ = a.Shutdown(ctx) }()

		successes := a.SendBatchSuccessfulOnly(ctx, batchOf(t, 10))

		require.Len(t, successes, 5)
		for _, res := range successes {
			assert.True(t, res.Succeeded())
		}
	})

	t.Run("Progress fires once per completion and results keep input order", func(t *testing.T) {
		a := newAsync(t, &echoCapability{channel: notify.ChannelEmail, delay: time.Millisecond})
		defer func() { _ = a.Shutdown(ctx) }()

		var mu sync.Mutex
		var completedSeq []int
		results := a.SendBatchWithProgress(ctx, batchOf(t, 20), func(completed, total int, _ notify.Result) {
			mu.Lock()
			completedSeq = append(completedSeq, completed)
			mu.Unlock()
			assert.Equal(t, 20, total)
		})

		require.Len(t, results, 20)
		for i, res := range results {
			require.Equal(t, fmt.Sprintf("echo:user-%d@b.com", i), res.MessageID())
		}
		// The completed counter is monotonically increasing even though the
		// underlying sends finish in arbitrary order.
		require.Len(t, completedSeq, 20)
		for i, c := range completedSeq {
			assert.Equal(t, i+1, c)
		}
	})
}

func TestAsyncDispatcher_Shutdown(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects new work after shutdown", func(t *testing.T) {
		a := newAsync(t, &echoCapability{channel: notify.ChannelEmail})
		require.NoError(t, a.Shutdown(ctx))

		res, err := a.SendAsync(ctx, emailRequest(t)).Get(ctx)

		require.NoError(t, err)
		assert.False(t, res.Succeeded())
		assert.ErrorIs(t, res.Cause(), dispatch.ErrAsyncClosed)
	})

	t.Run("Waits for in-flight sends", func(t *testing.T) {
		a := newAsync(t, &echoCapability{channel: notify.ChannelEmail, delay: 20 * time.Millisecond})
		fut := a.SendAsync(ctx, emailRequest(t))

		require.NoError(t, a.Shutdown(ctx))

		// The future must already be resolved once Shutdown returns.
		select {
		case <-fut.Done():
		default:
			t.Fatal("shutdown returned before in-flight send completed")
		}
	})

	t.Run("Does not block forever on abandoned sends", func(t *testing.T) {
		blocker := &blockingCapability{channel: notify.ChannelEmail, release: make(chan struct{})}
		defer close(blocker.release)
		a := newAsync(t, blocker)

		_ = a.SendWithTimeout(ctx, emailRequest(t), 10*time.Millisecond)

		shutdownCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		err := a.Shutdown(shutdownCtx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Idempotent", func(t *testing.T) {
		a := newAsync(t, &echoCapability{channel: notify.ChannelEmail})
		require.NoError(t, a.Shutdown(ctx))
		require.NoError(t, a.Shutdown(ctx))
	})
}

// selectiveCapability fails for recipients with an even index suffix
// (user-0, user-2, ...).
type selectiveCapability struct {
	channel notify.Channel
}

func (s *selectiveCapability) ChannelType() notify.Channel { return s.channel }

func (s *selectiveCapability) Validate(context.Context, *notify.Request) error { return nil }

func (s *selectiveCapability) Send(_ context.Context, req *notify.Request) (notify.Result, error) {
	var idx int
	if _, err := fmt.Sscanf(req.Recipient(), "user-%d@b.com", &idx); err == nil && idx%2 == 0 {
		return notify.Result{}, fmt.Errorf("provider rejected %s", req.Recipient())
	}
	return notify.Success(req.Channel(), "ok:"+req.Recipient()), nil
}

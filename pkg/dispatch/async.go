package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinywideclouds/go-notify/pkg/notify"
)

var (
	// ErrSendTimeout is the cause carried by the failure Result that
	// SendWithTimeout produces when the deadline expires.
	ErrSendTimeout = errors.New("dispatch: send timed out")
	// ErrAsyncClosed is the cause carried by failure Results for work
	// submitted after Shutdown.
	ErrAsyncClosed = errors.New("dispatch: async dispatcher closed")
)

// Future is the handle returned by SendAsync. It resolves exactly once with
// the Result of the underlying send.
type Future struct {
	done   chan struct{}
	result notify.Result
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(r notify.Result) {
	f.result = r
	close(f.done)
}

// Get blocks until the send completes or ctx is done. A ctx error is the only
// error Get returns; the send itself always resolves to a Result.
func (f *Future) Get(ctx context.Context) (notify.Result, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return notify.Result{}, ctx.Err()
	}
}

// Done returns a channel closed when the future has resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// AsyncDispatcher fans requests out over the wrapped Dispatcher, one
// goroutine per outstanding request. There is no pooling and no backpressure:
// an unbounded batch creates an unbounded number of goroutines, so callers
// must bound batch size themselves.
//
// The dispatcher is a scoped resource: release it with Shutdown on every exit
// path. Nothing in this layer raises: every failure, including timeouts and
// post-shutdown submissions, surfaces as a failure Result.
type AsyncDispatcher struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	inflight   sync.WaitGroup
	closed     atomic.Bool
}

// NewAsyncDispatcher wraps an existing Dispatcher. The AsyncDispatcher never
// copies or mutates the dispatcher's registry; it only calls Send.
func NewAsyncDispatcher(d *Dispatcher, logger *slog.Logger) *AsyncDispatcher {
	return &AsyncDispatcher{
		dispatcher: d,
		logger:     logger.With("component", "AsyncDispatcher"),
	}
}

// send adapts Dispatcher.Send to the async layer's no-raise policy.
func (a *AsyncDispatcher) send(ctx context.Context, req *notify.Request) notify.Result {
	res, err := a.dispatcher.Send(ctx, req)
	if err != nil {
		channel := notify.Channel("")
		if req != nil {
			channel = req.Channel()
		}
		return notify.Failure(channel, err.Error(), err)
	}
	return res
}

// SendAsync submits one send on its own goroutine and returns a Future
// immediately. After Shutdown the future resolves at once with a failure
// Result carrying ErrAsyncClosed.
func (a *AsyncDispatcher) SendAsync(ctx context.Context, req *notify.Request) *Future {
	fut := newFuture()

	if a.closed.Load() {
		channel := notify.Channel("")
		if req != nil {
			channel = req.Channel()
		}
		fut.resolve(notify.Failure(channel, ErrAsyncClosed.Error(), ErrAsyncClosed))
		return fut
	}

	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		fut.resolve(a.send(ctx, req))
	}()
	return fut
}

// SendBatch sends every request concurrently, one goroutine per request, and
// waits for all of them. The returned slice matches the input order exactly,
// regardless of which send finished first.
func (a *AsyncDispatcher) SendBatch(ctx context.Context, reqs []*notify.Request) []notify.Result {
	results := make([]notify.Result, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		fut := a.SendAsync(ctx, req)
		wg.Add(1)
		go func(i int, fut *Future) {
			defer wg.Done()
			<-fut.Done()
			results[i] = fut.result
		}(i, fut)
	}
	wg.Wait()

	return results
}

// SendWithTimeout races the async send against the given duration. On expiry
// it returns a failure Result carrying ErrSendTimeout; it never raises. The
// underlying send is not cancelled and may keep running in the background
// after the caller has its Result.
func (a *AsyncDispatcher) SendWithTimeout(ctx context.Context, req *notify.Request, timeout time.Duration) notify.Result {
	fut := a.SendAsync(ctx, req)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-fut.Done():
		return fut.result
	case <-timer.C:
		channel := notify.Channel("")
		if req != nil {
			channel = req.Channel()
		}
		a.logger.Warn("Send timed out; abandoning in-flight attempt",
			"channel", channel.String(), "timeout", timeout)
		return notify.Failure(channel,
			fmt.Sprintf("send timed out after %s", timeout), ErrSendTimeout)
	}
}

// SendBatchPartitioned runs SendBatch and splits the results into successes
// and failures, each preserving input order.
func (a *AsyncDispatcher) SendBatchPartitioned(ctx context.Context, reqs []*notify.Request) (successes, failures []notify.Result) {
	for _, res := range a.SendBatch(ctx, reqs) {
		if res.Succeeded() {
			successes = append(successes, res)
		} else {
			failures = append(failures, res)
		}
	}
	return successes, failures
}

// SendBatchSuccessfulOnly runs SendBatch and keeps only the successes, in
// input order.
func (a *AsyncDispatcher) SendBatchSuccessfulOnly(ctx context.Context, reqs []*notify.Request) []notify.Result {
	successes, _ := a.SendBatchPartitioned(ctx, reqs)
	return successes
}

// SendBatchWithProgress behaves like SendBatch but additionally invokes
// onProgress from the calling goroutine as each send finishes. Progress
// callbacks fire in completion order, not submission order; the returned
// slice is still in input order.
func (a *AsyncDispatcher) SendBatchWithProgress(
	ctx context.Context,
	reqs []*notify.Request,
	onProgress func(completed, total int, r notify.Result),
) []notify.Result {
	total := len(reqs)
	results := make([]notify.Result, total)

	type indexed struct {
		idx int
		res notify.Result
	}
	completions := make(chan indexed, total)

	for i, req := range reqs {
		fut := a.SendAsync(ctx, req)
		go func(i int, fut *Future) {
			<-fut.Done()
			completions <- indexed{idx: i, res: fut.result}
		}(i, fut)
	}

	for done := 1; done <= total; done++ {
		c := <-completions
		results[c.idx] = c.res
		if onProgress != nil {
			onProgress(done, total, c.res)
		}
	}
	return results
}

// Shutdown releases the async layer: new submissions resolve immediately
// with ErrAsyncClosed, and Shutdown waits for in-flight sends until ctx is
// done. Sends already abandoned by SendWithTimeout still count as in-flight,
// so pass a deadline when those may be running.
func (a *AsyncDispatcher) Shutdown(ctx context.Context) error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.logger.Info("Async dispatcher shutting down; waiting for in-flight sends")

	drained := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		a.logger.Info("Async dispatcher shutdown complete")
		return nil
	case <-ctx.Done():
		a.logger.Warn("Async dispatcher shutdown abandoned in-flight sends", "err", ctx.Err())
		return fmt.Errorf("async shutdown interrupted: %w", ctx.Err())
	}
}

package dispatch

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tinywideclouds/go-notify/pkg/notify"
)

// BatchProcessor provides aggregate sending and reporting over the wrapped
// Dispatcher. Everything here runs sequentially on the calling goroutine
// with no fan-out, which keeps it cheap for small batches where
// the async layer's per-request goroutines would be overhead.
type BatchProcessor struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewBatchProcessor wraps an existing Dispatcher.
func NewBatchProcessor(d *Dispatcher, logger *slog.Logger) *BatchProcessor {
	return &BatchProcessor{
		dispatcher: d,
		logger:     logger.With("component", "BatchProcessor"),
	}
}

// send mirrors the async layer's no-raise policy: aggregate paths report
// dispatcher errors as failure Results instead of aborting the batch.
func (p *BatchProcessor) send(ctx context.Context, req *notify.Request) notify.Result {
	res, err := p.dispatcher.Send(ctx, req)
	if err != nil {
		channel := notify.Channel("")
		if req != nil {
			channel = req.Channel()
		}
		return notify.Failure(channel, err.Error(), err)
	}
	return res
}

// SendAll sends every request in order and collects all results.
func (p *BatchProcessor) SendAll(ctx context.Context, reqs []*notify.Request) BatchResult {
	results := make([]notify.Result, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, p.send(ctx, req))
	}
	return NewBatchResult(results)
}

// SendFiltered sends only the requests the predicate accepts.
func (p *BatchProcessor) SendFiltered(ctx context.Context, reqs []*notify.Request, pred func(*notify.Request) bool) BatchResult {
	var results []notify.Result
	for _, req := range reqs {
		if pred == nil || pred(req) {
			results = append(results, p.send(ctx, req))
		}
	}
	return NewBatchResult(results)
}

// SendGroupedByChannel partitions the requests by channel, sends each group,
// and returns one aggregate BatchResult per channel that appeared in the
// input.
func (p *BatchProcessor) SendGroupedByChannel(ctx context.Context, reqs []*notify.Request) map[notify.Channel]BatchResult {
	grouped := make(map[notify.Channel][]notify.Result)
	for _, req := range reqs {
		channel := notify.Channel("")
		if req != nil {
			channel = req.Channel()
		}
		grouped[channel] = append(grouped[channel], p.send(ctx, req))
	}

	out := make(map[notify.Channel]BatchResult, len(grouped))
	for channel, results := range grouped {
		out[channel] = NewBatchResult(results)
	}
	return out
}

// SendPartitioned sends every request and splits the results into successes
// and failures, each preserving input order.
func (p *BatchProcessor) SendPartitioned(ctx context.Context, reqs []*notify.Request) (successes, failures []notify.Result) {
	return p.SendAll(ctx, reqs).Partition()
}

// GetStatistics sends every request and computes aggregate statistics over
// the outcome. The view is derived fresh on every call; nothing is cached.
func (p *BatchProcessor) GetStatistics(ctx context.Context, reqs []*notify.Request) Statistics {
	stats := Statistics{
		PerChannel: make(map[notify.Channel]ChannelStats),
	}

	recipients := make(map[string]struct{})
	for _, req := range reqs {
		res := p.send(ctx, req)

		cs := stats.PerChannel[res.Channel()]
		cs.Sent++
		if res.Succeeded() {
			cs.Succeeded++
		} else {
			cs.Failed++
		}
		stats.PerChannel[res.Channel()] = cs
		stats.Total++

		if req != nil {
			recipients[req.Recipient()] = struct{}{}
		}
	}
	stats.DistinctRecipients = len(recipients)

	// Most-used channel, with a deterministic tie break on the smaller name.
	for channel, cs := range stats.PerChannel {
		best := stats.PerChannel[stats.MostUsedChannel]
		if stats.MostUsedChannel == "" || cs.Sent > best.Sent ||
			(cs.Sent == best.Sent && channel < stats.MostUsedChannel) {
			stats.MostUsedChannel = channel
		}
	}
	return stats
}

// BatchResult is a derived, immutable view over a list of results.
type BatchResult struct {
	results []notify.Result
}

// NewBatchResult copies the given results into a fresh view.
func NewBatchResult(results []notify.Result) BatchResult {
	return BatchResult{results: slices.Clone(results)}
}

// Results returns a copy of the underlying results.
func (b BatchResult) Results() []notify.Result {
	return slices.Clone(b.results)
}

// Total returns the number of results in the batch.
func (b BatchResult) Total() int {
	return len(b.results)
}

// SuccessCount returns the number of successful results.
func (b BatchResult) SuccessCount() int {
	n := 0
	for _, r := range b.results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failed results.
func (b BatchResult) FailureCount() int {
	return len(b.results) - b.SuccessCount()
}

// SuccessRate returns the success percentage as an integer
// (successCount*100/total). An empty batch reports 0, not a division error.
func (b BatchResult) SuccessRate() int {
	if len(b.results) == 0 {
		return 0
	}
	return b.SuccessCount() * 100 / len(b.results)
}

// Successes returns the successful results in order.
func (b BatchResult) Successes() []notify.Result {
	successes, _ := b.Partition()
	return successes
}

// Failures returns the failed results in order.
func (b BatchResult) Failures() []notify.Result {
	_, failures := b.Partition()
	return failures
}

// Partition splits the results into successes and failures, each preserving
// the batch order.
func (b BatchResult) Partition() (successes, failures []notify.Result) {
	for _, r := range b.results {
		if r.Succeeded() {
			successes = append(successes, r)
		} else {
			failures = append(failures, r)
		}
	}
	return successes, failures
}

// ChannelStats counts delivery outcomes for one channel.
type ChannelStats struct {
	Sent      int
	Succeeded int
	Failed    int
}

// Statistics is an aggregate report over one batch run.
type Statistics struct {
	PerChannel         map[notify.Channel]ChannelStats
	DistinctRecipients int
	MostUsedChannel    notify.Channel
	Total              int
}

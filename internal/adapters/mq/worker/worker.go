// Package worker runs the recompute loop of one dashboard session.
//
// A worker takes filter-change requests off a latest-wins queue, computes
// the dashboard for each and publishes the result unless a newer request was
// accepted while it was computing.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/castle/internal/adapters/mq/queue"
	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/filter"
	"github.com/okian/castle/pkg/logger"
	"github.com/okian/castle/pkg/metrics"
)

// Request abstracts what workers read off the queue.
type Request = queue.Request

// Queue defines how workers receive requests and learn about newer ones.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
	Latest() uint64
}

// Computer computes the dashboard for one filter state.
type Computer interface {
	Dashboard(ctx context.Context, state filter.State) (aggregate.Dashboard, error)
}

// Result is the outcome of one request.
type Result struct {
	Seq       uint64
	State     filter.State
	Dashboard aggregate.Dashboard
	Err       error
	Elapsed   time.Duration
}

// Publisher delivers results to the session.
type Publisher interface {
	Publish(ctx context.Context, r Result) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, r Result) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, r Result) error { return f(ctx, r) }

// Worker processes requests until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the current request.
	Shutdown(ctx context.Context) error
}

// Recomputer implements Worker for one session.
type Recomputer struct {
	queue     Queue
	computer  Computer
	publisher Publisher
	name      string

	// Highest sequence number published so far.
	published uint64

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewRecomputer creates a worker with configuration options.
func NewRecomputer(q Queue, c Computer, p Publisher, opts ...Option) *Recomputer {
	w := &Recomputer{
		queue:     q,
		computer:  c,
		publisher: p,
		name:      "recompute",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("recompute"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run starts the worker loop.
func (w *Recomputer) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				// Queue closed, worker should stop
				return
			}
			if err := w.process(ctx, req); err != nil {
				w.logger.Error(ctx, "error publishing result",
					logger.String("worker", w.name),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed once Run has returned.
func (w *Recomputer) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker.
func (w *Recomputer) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process handles a single request.
func (w *Recomputer) process(ctx context.Context, req Request) error { //nolint:gocritic // hugeParam: Request is passed by value for channel semantics
	if w.stale(req.Seq) {
		metrics.RecordRecomputeSuperseded()
		return nil
	}

	start := time.Now()
	d, err := w.computer.Dashboard(ctx, req.State)
	res := Result{Seq: req.Seq, State: req.State, Dashboard: d, Err: err, Elapsed: time.Since(start)}

	// A newer request arrived while computing; its result replaces this one.
	if w.stale(req.Seq) {
		metrics.RecordRecomputeSuperseded()
		w.logger.Debug(ctx, "discarding stale result",
			logger.String("worker", w.name),
			logger.Int("seq", int(req.Seq)),
		)
		return nil
	}

	if err != nil {
		w.logger.Warn(ctx, "recompute failed",
			logger.String("worker", w.name),
			logger.Int("seq", int(req.Seq)),
			logger.Error(err),
		)
	}

	w.published = req.Seq
	if err := w.publisher.Publish(ctx, res); err != nil {
		return fmt.Errorf("publish seq %d: %w", req.Seq, err)
	}
	return nil
}

func (w *Recomputer) stale(seq uint64) bool {
	return seq <= w.published || seq < w.queue.Latest()
}

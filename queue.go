package pistonpress

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Concurrency sizing constants.
const (
	// MinConcurrency ensures at least one job can run.
	MinConcurrency = 1

	// MaxConcurrency caps automatic sizing; each page costs tens of MB in Chrome.
	MaxConcurrency = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// QueueStats is a snapshot of queue admission state.
type QueueStats struct {
	Waiting int // accepted, not yet dispatched
	Active  int // dispatched to the printer, not yet settled
	Limit   int // concurrency bound
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueLogger sets the queue's logger. Defaults to a no-op logger.
func WithQueueLogger(l *zap.Logger) QueueOption {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithQueueMetrics records queue activity into m.
func WithQueueMetrics(m *Metrics) QueueOption {
	return func(q *Queue) {
		q.metrics = m
	}
}

// Queue bounds how many print jobs share one browser.
// Jobs are dispatched in submission order; up to the limit run at once,
// so completion order may differ from submission order.
type Queue struct {
	printer TemplatePrinter
	limit   int
	logger  *zap.Logger
	metrics *Metrics

	mu      sync.Mutex
	idle    *sync.Cond
	waiting []*queuedJob
	active  int
	closing bool

	closeOnce sync.Once
	closeErr  error
}

// queuedJob is one pending Print call.
type queuedJob struct {
	id     string
	ctx    context.Context
	req    Request
	queued time.Time
	done   chan jobResult
}

type jobResult struct {
	pdf []byte
	err error
}

// NewQueue wraps printer with FIFO admission bounded by concurrency.
// Values below MinConcurrency become MinConcurrency.
func NewQueue(printer TemplatePrinter, concurrency int, opts ...QueueOption) *Queue {
	if concurrency < MinConcurrency {
		concurrency = MinConcurrency
	}

	q := &Queue{
		printer: printer,
		limit:   concurrency,
		logger:  zap.NewNop(),
	}
	q.idle = sync.NewCond(&q.mu)

	for _, opt := range opts {
		opt(q)
	}
	q.metrics.setLimit(concurrency)
	return q
}

// Print queues the job and blocks until it settles.
// If ctx ends while the job is still waiting, the job is withdrawn and ctx.Err() returned.
func (q *Queue) Print(ctx context.Context, req Request) ([]byte, error) {
	j := &queuedJob{
		id:     uuid.NewString(),
		ctx:    ctx,
		req:    req,
		queued: time.Now(),
		done:   make(chan jobResult, 1),
	}

	q.mu.Lock()
	if q.closing {
		q.mu.Unlock()
		return nil, newError(KindAlreadyClosed, "queue is closed")
	}
	q.waiting = append(q.waiting, j)
	q.logger.Debug("job queued",
		zap.String("job", j.id),
		zap.String("template", req.TemplateName),
		zap.Int("waiting", len(q.waiting)),
		zap.Int("active", q.active))
	q.dispatchLocked()
	q.observeLocked()
	q.mu.Unlock()

	select {
	case res := <-j.done:
		return res.pdf, res.err
	case <-ctx.Done():
	}

	q.mu.Lock()
	withdrawn := q.removeLocked(j)
	q.observeLocked()
	q.mu.Unlock()

	if withdrawn {
		q.logger.Debug("job withdrawn", zap.String("job", j.id), zap.Error(ctx.Err()))
		q.metrics.observeOutcome(ctx.Err(), 0)
		return nil, ctx.Err()
	}

	// Already dispatched: the printer sees the same ctx and settles shortly.
	res := <-j.done
	return res.pdf, res.err
}

// dispatchLocked starts waiting jobs while below the limit. Caller holds q.mu.
func (q *Queue) dispatchLocked() {
	for q.active < q.limit && len(q.waiting) > 0 {
		j := q.waiting[0]
		q.waiting[0] = nil
		q.waiting = q.waiting[1:]
		q.active++
		go q.run(j)
	}
}

// run executes one job on the printer and dispatches the next.
func (q *Queue) run(j *queuedJob) {
	wait := time.Since(j.queued)
	q.logger.Debug("job dispatched", zap.String("job", j.id), zap.Duration("wait", wait))

	start := time.Now()
	pdf, err := q.printJob(j)
	elapsed := time.Since(start)

	if err != nil {
		q.logger.Debug("job failed", zap.String("job", j.id), zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		q.logger.Debug("job done", zap.String("job", j.id), zap.Duration("elapsed", elapsed), zap.Int("bytes", len(pdf)))
	}
	q.metrics.observeOutcome(err, elapsed)

	j.done <- jobResult{pdf: pdf, err: err}

	q.mu.Lock()
	q.active--
	q.dispatchLocked()
	q.observeLocked()
	q.idle.Broadcast()
	q.mu.Unlock()
}

// printJob runs j on the printer. A panicking printer fails only this job;
// the slot is still released by run.
func (q *Queue) printJob(j *queuedJob) (pdf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("printer panicked", zap.String("job", j.id), zap.Any("panic", r))
			pdf, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()
	return q.printer.Print(j.ctx, j.req)
}

// removeLocked drops j from the wait list. Reports whether it was still waiting.
func (q *Queue) removeLocked(j *queuedJob) bool {
	for i, w := range q.waiting {
		if w == j {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			q.idle.Broadcast()
			return true
		}
	}
	return false
}

func (q *Queue) observeLocked() {
	q.metrics.setDepth(len(q.waiting), q.active)
}

// Stats returns a snapshot of the queue.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{Waiting: len(q.waiting), Active: q.active, Limit: q.limit}
}

// Limit returns the concurrency bound.
func (q *Queue) Limit() int {
	return q.limit
}

// Close stops accepting jobs, waits for every queued and running job to settle,
// then closes the printer. Later calls return the first call's result.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closing = true
		pending := len(q.waiting) + q.active
		if pending > 0 {
			q.logger.Debug("draining queue", zap.Int("waiting", len(q.waiting)), zap.Int("active", q.active))
		}
		for len(q.waiting) > 0 || q.active > 0 {
			q.idle.Wait()
		}
		q.mu.Unlock()

		q.closeErr = q.printer.Close()
		q.logger.Debug("queue closed", zap.Error(q.closeErr))
	})
	return q.closeErr
}

// ResolveConcurrency determines how many jobs share the browser.
// Priority: explicit value > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolveConcurrency(n int) int {
	// Explicit value takes priority
	if n > 0 {
		return n
	}

	// Auto-calculate based on GOMAXPROCS (adjusted by automaxprocs for containers)
	available := runtime.GOMAXPROCS(0)
	n = available / cpuDivisor

	if n < MinConcurrency {
		return MinConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}

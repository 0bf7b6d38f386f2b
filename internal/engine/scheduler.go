package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"autometa/internal/model"
	"autometa/internal/observability"
)

// MaxWorkers is the absolute ceiling on window concurrency, regardless of
// credential count or paid mode.
const MaxWorkers = 100

// Options configures a Scheduler run.
type Options struct {
	// Concurrency is the window size and worker bound, clamped to
	// [1, MaxWorkers].
	Concurrency int
	// BaseDelay is the inter-window delay when the previous window was
	// healthy.
	BaseDelay time.Duration
	// AutoRetry re-queues retryable failures for additional full passes
	// over the file set.
	AutoRetry bool
}

// Summary reports the terminal disposition of every job in a run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Canceled  int
	Windows   int
	Passes    int
}

// Scheduler partitions the pending job set into bounded-concurrency windows,
// drives each job to a terminal outcome through the retry controller, paces
// windows through the adaptive cooldown policy, and repeats whole passes
// over retryable failures until nothing makes forward progress.
type Scheduler struct {
	retry   *RetryController
	gate    *Gate
	sink    ProgressSink
	log     *slog.Logger
	metrics *observability.EngineMetrics
	opts    Options
}

// NewScheduler wires a scheduler. A nil sink discards events; a nil metrics
// handle records nothing.
func NewScheduler(retry *RetryController, gate *Gate, sink ProgressSink, log *slog.Logger, metrics *observability.EngineMetrics, opts Options) *Scheduler {
	if sink == nil {
		sink = NopSink{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Concurrency > MaxWorkers {
		opts.Concurrency = MaxWorkers
	}
	return &Scheduler{
		retry:   retry,
		gate:    gate,
		sink:    sink,
		log:     log,
		metrics: metrics,
		opts:    opts,
	}
}

// Run processes the job set to exhaustion. Every job ends Succeeded or
// Failed-Terminal unless the run is cancelled, in which case unfinished jobs
// are reported as canceled. The returned summary accounts for every input
// job exactly once.
func (s *Scheduler) Run(ctx context.Context, jobs []*model.Job) Summary {
	summary := Summary{Total: len(jobs)}

	maxPasses := 1
	if s.opts.AutoRetry {
		maxPasses = RetryPassBudget
	}

	windowIdx := 0
	for pass := 1; pass <= maxPasses; pass++ {
		pending := pendingJobs(jobs)
		if len(pending) == 0 || s.stopped(ctx) {
			break
		}
		summary.Passes = pass
		s.log.Info("starting pass", "pass", pass, "pending", len(pending), "concurrency", s.opts.Concurrency)

		terminalBefore := countTerminal(jobs)

		for start := 0; start < len(pending); start += s.opts.Concurrency {
			if s.stopped(ctx) {
				break
			}
			end := start + s.opts.Concurrency
			if end > len(pending) {
				end = len(pending)
			}

			ws := s.runWindow(ctx, windowIdx, pending[start:end])
			windowIdx++
			summary.Windows++
			s.sink.WindowClosed(ws)
			s.metrics.WindowClosed(ctx)

			if end < len(pending) && !s.stopped(ctx) {
				delay := NextDelay(ws, s.opts.BaseDelay)
				if delay > 0 {
					s.sink.CooldownApplied(delay)
					s.metrics.CooldownApplied(ctx)
					s.sleep(ctx, delay)
				}
			}
		}

		// A pass with zero new terminal outcomes means the remaining jobs
		// fail systematically; looping again would not terminate.
		if countTerminal(jobs) == terminalBefore {
			break
		}

		if pass < maxPasses {
			for _, job := range jobs {
				if job.Status == model.StatusFailedRetryable {
					job.Requeue()
				}
			}
		}
	}

	s.finalize(ctx, jobs, &summary)
	return summary
}

// runWindow spawns one worker per window job and waits for every started
// job to reach a terminal-for-this-pass state. The window slice is the
// concurrency bound: Run never hands this more than Concurrency jobs, and
// the next window opens only after this one fully settles.
func (s *Scheduler) runWindow(ctx context.Context, idx int, window []*model.Job) WindowSummary {
	ws := WindowSummary{Index: idx, Size: len(window)}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, job := range window {
		// No new job starts once the stop signal is observed.
		if s.stopped(ctx) {
			break
		}

		wg.Add(1)
		go func(job *model.Job) {
			defer wg.Done()

			s.sink.JobStarted(job)
			status := s.retry.Run(ctx, job)

			mu.Lock()
			if status == model.StatusSucceeded {
				ws.Succeeded++
			} else {
				ws.Failed++
			}
			mu.Unlock()

			switch status {
			case model.StatusSucceeded:
				s.sink.JobSucceeded(job)
				s.metrics.JobSucceeded(ctx)
			case model.StatusFailedTerminal:
				s.sink.JobFailed(job, job.LastError)
				s.metrics.JobFailed(ctx)
			}
		}(job)
	}

	wg.Wait()
	return ws
}

// finalize settles every job into the summary. After a completed run,
// leftover retryable failures are out of budget and become terminal; after a
// cancelled run they stay untouched and count as canceled alongside jobs
// that never started.
func (s *Scheduler) finalize(ctx context.Context, jobs []*model.Job, summary *Summary) {
	cancelled := s.stopped(ctx)
	for _, job := range jobs {
		switch job.Status {
		case model.StatusSucceeded:
			summary.Succeeded++
		case model.StatusFailedTerminal:
			summary.Failed++
		case model.StatusFailedRetryable:
			if cancelled {
				summary.Canceled++
				continue
			}
			job.Status = model.StatusFailedTerminal
			if job.LastError == "" {
				job.LastError = "retry budget exhausted"
			}
			s.sink.JobFailed(job, job.LastError)
			s.metrics.JobFailed(ctx)
			summary.Failed++
		default:
			summary.Canceled++
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.gate.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) stopped(ctx context.Context) bool {
	return s.gate.Tripped() || ctx.Err() != nil
}

func pendingJobs(jobs []*model.Job) []*model.Job {
	var pending []*model.Job
	for _, job := range jobs {
		if job.Status == model.StatusPending {
			pending = append(pending, job)
		}
	}
	return pending
}

func countTerminal(jobs []*model.Job) int {
	n := 0
	for _, job := range jobs {
		if job.Terminal() {
			n++
		}
	}
	return n
}

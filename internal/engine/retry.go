package engine

import (
	"context"
	"log/slog"

	"autometa/internal/model"
	"autometa/internal/pool"
	"autometa/internal/provider"
)

const (
	// MaxInferenceAttempts is the per-pass ceiling for inference failures
	// (rate limits, transient server errors, malformed responses).
	MaxInferenceAttempts = 5
	// MaxFileOpAttempts is the per-pass ceiling for file and environment
	// operation failures.
	MaxFileOpAttempts = 3
	// RetryPassBudget is how many full scheduling passes a job may consume
	// its class ceiling in before failing terminally.
	RetryPassBudget = 2
)

// ClassCeiling returns the per-pass attempt ceiling for a failure class.
func ClassCeiling(class model.FailureClass) int {
	if class == model.FailureFileOp {
		return MaxFileOpAttempts
	}
	return MaxInferenceAttempts
}

// RetryController drives one job to a terminal outcome: bounded
// class-specific retries, then a single fallback-model escalation, then
// Failed-Retryable or Failed-Terminal depending on remaining overall budget.
// It owns the job exclusively while running and touches no global state
// except through the pool.
type RetryController struct {
	Pool    *pool.Pool
	Invoker provider.Invoker
	Gate    *Gate
	Log     *slog.Logger
}

// Run executes the retry policy for one job and returns its terminal status.
// A gate trip between attempts leaves the job Failed-Retryable so a later
// run can pick it up; the attempt already in flight completes first.
func (rc *RetryController) Run(ctx context.Context, job *model.Job) model.Status {
	job.Status = model.StatusInFlight

	var lastModel string
	var class model.FailureClass

	for {
		if rc.stopped(ctx) {
			job.Status = model.StatusFailedRetryable
			job.LastError = "stopped"
			return job.Status
		}

		lease, err := rc.Pool.Acquire()
		if err != nil {
			// Zero credentials is a configuration error, not retryable.
			job.Status = model.StatusFailedTerminal
			job.LastError = err.Error()
			return job.Status
		}
		lastModel = lease.Model.Name

		out := rc.attempt(ctx, job, lease)
		switch {
		case out.Kind == provider.OutcomeSuccess:
			job.Status = model.StatusSucceeded
			job.Result = out.Payload
			return job.Status

		case !out.Kind.Retryable():
			// Fatal outcomes consume no retry budget.
			job.Status = model.StatusFailedTerminal
			job.LastError = out.Err.Error()
			return job.Status
		}

		class = out.Kind.FailureClass()
		job.RecordAttempt(class)
		job.LastError = out.Err.Error()
		rc.Log.Debug("attempt failed",
			"file", job.Filename(),
			"outcome", string(out.Kind),
			"model", lastModel,
			"attempt", job.PassAttempts(class),
		)

		if job.PassAttempts(class) >= ClassCeiling(class) {
			break
		}
	}

	// One escalation on a distinct fallback model, inference failures only.
	if class == model.FailureInference && !job.Escalated() && !rc.stopped(ctx) {
		job.MarkEscalated()
		if lease, err := rc.Pool.AcquireFallback(lastModel); err == nil {
			rc.Log.Debug("escalating to fallback model", "file", job.Filename(), "model", lease.Model.Name)
			out := rc.attempt(ctx, job, lease)
			if out.Kind == provider.OutcomeSuccess {
				job.Status = model.StatusSucceeded
				job.Result = out.Payload
				return job.Status
			}
			if out.Err != nil {
				job.LastError = out.Err.Error()
			}
		}
	}

	if job.TotalAttempts(class) < RetryPassBudget*ClassCeiling(class) {
		job.Status = model.StatusFailedRetryable
	} else {
		job.Status = model.StatusFailedTerminal
	}
	return job.Status
}

// attempt paces the credential, performs the single call, and releases the
// lease. The pacing wait is interruptible; an interrupted wait surfaces as a
// transient outcome and the gate check on the next loop ends the job.
func (rc *RetryController) attempt(ctx context.Context, job *model.Job, lease *pool.Lease) provider.Outcome {
	defer lease.Release()
	if err := lease.Wait(ctx); err != nil {
		return provider.Outcome{Kind: provider.OutcomeTransientServerError, Err: err}
	}
	return rc.Invoker.Attempt(ctx, job, lease.Credential, lease.Model)
}

func (rc *RetryController) stopped(ctx context.Context) bool {
	return rc.Gate.Tripped() || ctx.Err() != nil
}

package engine

import (
	"log/slog"
	"time"

	"autometa/internal/model"
)

// ProgressSink receives lifecycle events as they occur. This is the only
// place the engine touches the outside world for status. Implementations
// must be safe for concurrent use; JobStarted/JobSucceeded/JobFailed are
// called from worker goroutines.
type ProgressSink interface {
	JobStarted(job *model.Job)
	JobSucceeded(job *model.Job)
	JobFailed(job *model.Job, reason string)
	WindowClosed(summary WindowSummary)
	CooldownApplied(delay time.Duration)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) JobStarted(*model.Job)         {}
func (NopSink) JobSucceeded(*model.Job)       {}
func (NopSink) JobFailed(*model.Job, string)  {}
func (NopSink) WindowClosed(WindowSummary)    {}
func (NopSink) CooldownApplied(time.Duration) {}

// LogSink reports progress through a structured logger.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) JobStarted(job *model.Job) {
	s.Log.Info("job started", "file", job.Filename(), "category", job.Category)
}

func (s LogSink) JobSucceeded(job *model.Job) {
	s.Log.Info("job succeeded", "file", job.Filename())
}

func (s LogSink) JobFailed(job *model.Job, reason string) {
	s.Log.Warn("job failed", "file", job.Filename(), "status", job.Status, "reason", reason)
}

func (s LogSink) WindowClosed(summary WindowSummary) {
	s.Log.Info("window closed",
		"window", summary.Index,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"failure_ratio", summary.FailureRatio(),
	)
}

func (s LogSink) CooldownApplied(delay time.Duration) {
	s.Log.Info("cooldown applied", "delay", delay.String())
}

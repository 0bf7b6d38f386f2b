// Package model contains the domain types shared across the engine.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileCategory classifies an input file by how it must be prepared
// before it can be sent for inference.
type FileCategory string

const (
	CategoryImage  FileCategory = "image"
	CategoryVector FileCategory = "vector"
	CategoryVideo  FileCategory = "video"
)

// Status represents the lifecycle state of a job.
// Transitions are monotonic: Pending -> InFlight -> terminal, except that
// FailedRetryable re-enters Pending for a later pass while budget remains.
type Status string

const (
	StatusPending         Status = "pending"
	StatusInFlight        Status = "in_flight"
	StatusSucceeded       Status = "succeeded"
	StatusFailedRetryable Status = "failed_retryable"
	StatusFailedTerminal  Status = "failed_terminal"
)

// FailureClass groups failures that share a retry budget.
type FailureClass string

const (
	// FailureInference covers provider-side failures: rate limits,
	// transient server errors, malformed responses.
	FailureInference FailureClass = "inference"
	// FailureFileOp covers local file and environment failures.
	FailureFileOp FailureClass = "file_op"
)

// Metadata is the descriptive payload produced by a successful inference.
type Metadata struct {
	Title       string
	Description string
	Keywords    []string
}

// Job is one file's end-to-end inference-and-retry unit of work.
// A job is mutated only by the worker currently holding it.
type Job struct {
	ID       uuid.UUID
	Path     string
	Category FileCategory
	Status   Status

	// Result holds the payload once the job succeeds.
	Result *Metadata
	// LastError is the most recent failure reason, for reporting.
	LastError string

	CreatedAt time.Time

	// passAttempts counts attempts within the current scheduling pass and is
	// reset when the job re-enters Pending. totalAttempts spans all passes.
	passAttempts  map[FailureClass]int
	totalAttempts map[FailureClass]int
	// escalated marks that the one fallback-model escalation for the current
	// pass has been spent.
	escalated bool
}

// NewJob creates a pending job for the given file.
func NewJob(path string, category FileCategory) *Job {
	return &Job{
		ID:            uuid.New(),
		Path:          path,
		Category:      category,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
		passAttempts:  make(map[FailureClass]int),
		totalAttempts: make(map[FailureClass]int),
	}
}

// RecordAttempt increments the attempt counters for a failure class.
func (j *Job) RecordAttempt(class FailureClass) {
	j.passAttempts[class]++
	j.totalAttempts[class]++
}

// PassAttempts returns the attempt count for a class within the current pass.
func (j *Job) PassAttempts(class FailureClass) int {
	return j.passAttempts[class]
}

// TotalAttempts returns the attempt count for a class across all passes.
func (j *Job) TotalAttempts(class FailureClass) int {
	return j.totalAttempts[class]
}

// MarkEscalated records that the fallback-model escalation has been used
// in the current pass.
func (j *Job) MarkEscalated() { j.escalated = true }

// Escalated reports whether the current pass already escalated.
func (j *Job) Escalated() bool { return j.escalated }

// Requeue returns a retryable-failed job to Pending for the next pass.
// Pass-scoped counters and the escalation mark are reset; total counters
// are kept so the overall budget keeps shrinking.
func (j *Job) Requeue() {
	j.Status = StatusPending
	j.passAttempts = make(map[FailureClass]int)
	j.escalated = false
}

// Terminal reports whether the job reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailedTerminal
}

// Filename returns the base name of the job's input path.
func (j *Job) Filename() string {
	if i := strings.LastIndexByte(j.Path, '/'); i >= 0 {
		return j.Path[i+1:]
	}
	return j.Path
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJobStartsPending(t *testing.T) {
	job := NewJob("/in/sunset.jpg", CategoryImage)

	assert.Equal(t, StatusPending, job.Status)
	assert.NotEqual(t, "", job.ID.String())
	assert.False(t, job.Terminal())
	assert.Zero(t, job.PassAttempts(FailureInference))
	assert.Zero(t, job.TotalAttempts(FailureInference))
}

func TestRecordAttemptTracksClassesIndependently(t *testing.T) {
	job := NewJob("/in/clip.mp4", CategoryVideo)

	job.RecordAttempt(FailureInference)
	job.RecordAttempt(FailureInference)
	job.RecordAttempt(FailureFileOp)

	assert.Equal(t, 2, job.PassAttempts(FailureInference))
	assert.Equal(t, 1, job.PassAttempts(FailureFileOp))
	assert.Equal(t, 2, job.TotalAttempts(FailureInference))
}

func TestRequeueResetsPassStateKeepsTotals(t *testing.T) {
	job := NewJob("/in/logo.eps", CategoryVector)
	job.Status = StatusFailedRetryable
	job.RecordAttempt(FailureInference)
	job.RecordAttempt(FailureInference)
	job.MarkEscalated()

	job.Requeue()

	assert.Equal(t, StatusPending, job.Status)
	assert.Zero(t, job.PassAttempts(FailureInference))
	assert.Equal(t, 2, job.TotalAttempts(FailureInference))
	assert.False(t, job.Escalated())
}

func TestTerminal(t *testing.T) {
	job := NewJob("/in/a.jpg", CategoryImage)

	for status, want := range map[Status]bool{
		StatusPending:         false,
		StatusInFlight:        false,
		StatusFailedRetryable: false,
		StatusSucceeded:       true,
		StatusFailedTerminal:  true,
	} {
		job.Status = status
		assert.Equal(t, want, job.Terminal(), "status %s", status)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "sunset.jpg", NewJob("/in/photos/sunset.jpg", CategoryImage).Filename())
	assert.Equal(t, "bare.png", NewJob("bare.png", CategoryImage).Filename())
}

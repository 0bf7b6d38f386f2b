package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"autometa/internal/model"
	"autometa/internal/pool"
	"autometa/internal/provider"
)

// fakeInvoker implements provider.Invoker for testing. AttemptFunc
// customizes behavior per test; every call is recorded.
type fakeInvoker struct {
	mu          sync.Mutex
	AttemptFunc func(job *model.Job, cred pool.Credential, m pool.Model) provider.Outcome
	calls       []attemptCall
}

type attemptCall struct {
	Path  string
	Key   string
	Model string
}

func (f *fakeInvoker) Attempt(_ context.Context, job *model.Job, cred pool.Credential, m pool.Model) provider.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, attemptCall{Path: job.Path, Key: cred.Key, Model: m.Name})
	f.mu.Unlock()
	if f.AttemptFunc != nil {
		return f.AttemptFunc(job, cred, m)
	}
	return success()
}

func (f *fakeInvoker) Calls() []attemptCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]attemptCall(nil), f.calls...)
}

func (f *fakeInvoker) CallsFor(path string) []attemptCall {
	var out []attemptCall
	for _, c := range f.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func success() provider.Outcome {
	return provider.Outcome{
		Kind:    provider.OutcomeSuccess,
		Payload: &model.Metadata{Title: "t", Keywords: []string{"k"}},
	}
}

func failure(kind provider.OutcomeKind) provider.Outcome {
	return provider.Outcome{Kind: kind, Err: errFake}
}

var errFake = fakeError("provider says no")

type fakeError string

func (e fakeError) Error() string { return string(e) }

// recordingSink captures every lifecycle event for assertions.
type recordingSink struct {
	mu        sync.Mutex
	started   []string
	succeeded []string
	failed    map[string]string
	windows   []WindowSummary
	cooldowns []time.Duration
}

func newRecordingSink() *recordingSink {
	return &recordingSink{failed: make(map[string]string)}
}

func (s *recordingSink) JobStarted(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, job.Path)
}

func (s *recordingSink) JobSucceeded(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded = append(s.succeeded, job.Path)
}

func (s *recordingSink) JobFailed(job *model.Job, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[job.Path] = reason
}

func (s *recordingSink) WindowClosed(summary WindowSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, summary)
}

func (s *recordingSink) CooldownApplied(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns = append(s.cooldowns, delay)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPool(keys []string, models []pool.Model, fixed string) *pool.Pool {
	creds := make([]pool.Credential, 0, len(keys))
	for _, k := range keys {
		creds = append(creds, pool.Credential{Key: k})
	}
	p, err := pool.New(pool.Options{
		Credentials:        creds,
		Models:             models,
		FixedModel:         fixed,
		CredentialInterval: -1,
	})
	if err != nil {
		panic(err)
	}
	return p
}

func twoModels() []pool.Model {
	return []pool.Model{{Name: "primary"}, {Name: "fallback"}}
}

// Package pool owns the shared credential and model state and exposes it
// through a single atomic acquire operation. All least-recently-used
// bookkeeping happens inside one short critical section; nothing here is
// ever held across a network call.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrPoolExhausted is returned when no credentials are configured.
	// Callers must treat this as a fatal configuration error.
	ErrPoolExhausted = errors.New("credential pool is empty")
	// ErrNoFallbackModel is returned when every roster model is excluded.
	ErrNoFallbackModel = errors.New("no fallback model available")
)

// DefaultCredentialInterval is the minimum spacing between two attempts on
// the same credential. The provider enforces its own quotas; this only keeps
// a single key from being hammered back-to-back.
const DefaultCredentialInterval = 3 * time.Second

// Credential is one inference-provider API key.
type Credential struct {
	Key string
	// Paid marks an unrestricted key not subject to free-tier quotas.
	Paid bool
}

// Model is one selectable inference model with its static capability profile.
type Model struct {
	Name string
	// Thinking reports whether the model supports a thinking phase.
	Thinking bool
	// RateClass is the provider's relative rate-limit tier for this model.
	RateClass string
}

// credentialState tracks pool-internal bookkeeping for one credential.
type credentialState struct {
	cred     Credential
	lastUsed time.Time
	inFlight int
	limiter  *rate.Limiter
}

type modelState struct {
	model    Model
	lastUsed time.Time
}

// Options configures a Pool.
type Options struct {
	Credentials []Credential
	Models      []Model
	// FixedModel pins every selection to the named model. Empty means
	// auto-rotation: pick the least-recently-used roster model.
	FixedModel string
	// CredentialInterval overrides DefaultCredentialInterval. Zero keeps the
	// default; negative disables pacing (used by tests).
	CredentialInterval time.Duration
}

// Pool hands out (credential, model) pairs for inference attempts.
// Selection is least-recently-used with last-used stamped at selection time,
// so two concurrent callers never receive the same pair while alternatives
// exist. There is deliberately no per-credential blacklist or cooldown state:
// the provider's quota enforcement is the source of truth.
type Pool struct {
	mu     sync.Mutex
	creds  []*credentialState
	models []*modelState
	fixed  string
	now    func() time.Time
}

// New creates a pool from the configured credentials and models.
func New(opts Options) (*Pool, error) {
	if len(opts.Credentials) == 0 {
		return nil, ErrPoolExhausted
	}
	if len(opts.Models) == 0 {
		return nil, errors.New("model roster is empty")
	}

	interval := opts.CredentialInterval
	if interval == 0 {
		interval = DefaultCredentialInterval
	}

	p := &Pool{fixed: opts.FixedModel, now: time.Now}
	for _, c := range opts.Credentials {
		limiter := rate.NewLimiter(rate.Inf, 1)
		if interval > 0 {
			limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
		p.creds = append(p.creds, &credentialState{cred: c, limiter: limiter})
	}
	for _, m := range opts.Models {
		p.models = append(p.models, &modelState{model: m})
	}
	return p, nil
}

// Lease is one acquired (credential, model) pair. Release must be called
// when the attempt completes, success or not.
type Lease struct {
	Credential Credential
	Model      Model

	pool  *Pool
	state *credentialState
	once  sync.Once
}

// Acquire selects the least-recently-used credential that is not currently
// in flight (falling back to the overall least-recently-used one when every
// credential is busy) together with a model per the configured mode. Both
// timestamps are stamped before returning.
func (p *Pool) Acquire() (*Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.selectCredentialLocked()
	if cs == nil {
		return nil, ErrPoolExhausted
	}
	m, err := p.selectModelLocked("")
	if err != nil {
		return nil, err
	}

	now := p.now()
	cs.lastUsed = now
	cs.inFlight++
	return &Lease{Credential: cs.cred, Model: m, pool: p, state: cs}, nil
}

// AcquireFallback selects a pair for the single escalation attempt, always
// rotating models and excluding the model that just failed.
func (p *Pool) AcquireFallback(exclude string) (*Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.selectCredentialLocked()
	if cs == nil {
		return nil, ErrPoolExhausted
	}
	m, err := p.rotateModelLocked(exclude)
	if err != nil {
		return nil, err
	}

	now := p.now()
	cs.lastUsed = now
	cs.inFlight++
	return &Lease{Credential: cs.cred, Model: m, pool: p, state: cs}, nil
}

// Wait blocks until the lease's credential pacing interval has elapsed.
// It runs outside the pool lock and is interruptible via ctx.
func (l *Lease) Wait(ctx context.Context) error {
	return l.state.limiter.Wait(ctx)
}

// Release marks the credential as no longer in flight. Safe to call once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.pool.mu.Lock()
		l.state.inFlight--
		l.pool.mu.Unlock()
	})
}

// selectCredentialLocked picks the LRU credential among those not in flight;
// when all are in flight it picks the overall LRU. Ties break by pool order.
func (p *Pool) selectCredentialLocked() *credentialState {
	var best *credentialState
	for _, cs := range p.creds {
		if cs.inFlight > 0 {
			continue
		}
		if best == nil || cs.lastUsed.Before(best.lastUsed) {
			best = cs
		}
	}
	if best != nil {
		return best
	}
	for _, cs := range p.creds {
		if best == nil || cs.lastUsed.Before(best.lastUsed) {
			best = cs
		}
	}
	return best
}

// selectModelLocked returns the fixed model when one is configured,
// otherwise rotates. The fallback roster ignores the fixed mode so an
// escalation can always reach a distinct model.
func (p *Pool) selectModelLocked(exclude string) (Model, error) {
	if p.fixed != "" {
		for _, ms := range p.models {
			if ms.model.Name == p.fixed {
				ms.lastUsed = p.now()
				return ms.model, nil
			}
		}
		return Model{}, errors.New("configured model not in roster: " + p.fixed)
	}
	return p.rotateModelLocked(exclude)
}

func (p *Pool) rotateModelLocked(exclude string) (Model, error) {
	var best *modelState
	for _, ms := range p.models {
		if ms.model.Name == exclude {
			continue
		}
		if best == nil || ms.lastUsed.Before(best.lastUsed) {
			best = ms
		}
	}
	if best == nil {
		return Model{}, ErrNoFallbackModel
	}
	best.lastUsed = p.now()
	return best.model, nil
}

// Size returns the number of configured credentials.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

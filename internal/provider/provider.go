// Package provider defines the inference invoker contract and owns the only
// provider-specific logic in the engine: turning provider/HTTP failures into
// the outcome taxonomy. It performs exactly one call per attempt and never
// retries or touches shared state.
package provider

import (
	"context"

	"autometa/internal/model"
	"autometa/internal/pool"
)

// OutcomeKind classifies the result of a single inference attempt.
type OutcomeKind string

const (
	OutcomeSuccess              OutcomeKind = "success"
	OutcomeRateLimited          OutcomeKind = "rate_limited"
	OutcomeTransientServerError OutcomeKind = "transient_server_error"
	OutcomeMalformedResponse    OutcomeKind = "malformed_response"
	OutcomeFatalClientError     OutcomeKind = "fatal_client_error"
	OutcomeFileOperationError   OutcomeKind = "file_operation_error"
)

// Retryable reports whether the retry controller may spend budget on this
// outcome. Fatal client errors bypass retry entirely.
func (k OutcomeKind) Retryable() bool {
	switch k {
	case OutcomeRateLimited, OutcomeTransientServerError, OutcomeMalformedResponse, OutcomeFileOperationError:
		return true
	}
	return false
}

// FailureClass maps the outcome to the retry budget it consumes.
func (k OutcomeKind) FailureClass() model.FailureClass {
	if k == OutcomeFileOperationError {
		return model.FailureFileOp
	}
	return model.FailureInference
}

// Outcome is the classified result of one attempt.
type Outcome struct {
	Kind OutcomeKind
	// Payload is set only on success.
	Payload *model.Metadata
	// Err carries the underlying cause for reporting; nil on success.
	Err error
}

// Invoker performs one inference attempt with the supplied pair.
type Invoker interface {
	Attempt(ctx context.Context, job *model.Job, cred pool.Credential, m pool.Model) Outcome
}

package provider

import "net/http"

// ClassifyStatus maps a provider HTTP status code onto the outcome taxonomy.
// This table is the boundary between the provider's wire protocol and the
// provider-agnostic retry policy.
func ClassifyStatus(status int) OutcomeKind {
	switch {
	case status == http.StatusOK:
		return OutcomeSuccess
	case status == http.StatusTooManyRequests:
		return OutcomeRateLimited
	case status >= 500:
		return OutcomeTransientServerError
	case status >= 400:
		// Bad request, invalid key, forbidden, unsupported input: retrying
		// with the same file cannot help.
		return OutcomeFatalClientError
	default:
		return OutcomeMalformedResponse
	}
}

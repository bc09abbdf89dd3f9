// Stable machine-readable error codes carried in every ErrorResponse.
// Generic codes mirror HTTP status semantics; the domain-specific ones cover
// outcomes a status code alone cannot express, like a compute job that is
// still running when the client deadline fires.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidSnapshot = "invalid_snapshot"
	ErrCodeInvalidSettings = "invalid_settings"
	ErrCodeNotEnoughPoints = "not_enough_points"
	ErrCodeSubmitTimeout   = "submit_timeout"
	ErrCodeServerBusy      = "server_busy"
	ErrCodeNotSignedIn     = "not_signed_in"
)

// Package gateway wraps the outbound HTTP calls this service makes: the
// remote work-record store, the digital library's IIIF metadata API, the
// tile-status endpoint, and the georeferencing compute API.
//
// This file centralizes the failure taxonomy. Callers branch on these
// sentinels rather than on status codes:
//
//   - ErrUnauthorized: the credential was rejected (401). For anonymous
//     sessions the sync layer refreshes once and retries.
//   - ErrRemoteUnavailable: transient network or server-side failure. The
//     sync layer treats local state as authoritative and does not surface it.
//   - ErrSubmitTimeout: the bounded georeferencing submission ran out of
//     time. Surfaced to the user with a remediation hint.
package gateway

import "errors"

var (
	// ErrUnauthorized indicates the remote service rejected the credential.
	ErrUnauthorized = errors.New("gateway: unauthorized")

	// ErrRemoteUnavailable indicates a network failure or a non-2xx reply
	// from a best-effort remote call.
	ErrRemoteUnavailable = errors.New("gateway: remote unavailable")

	// ErrSubmitTimeout indicates the georeferencing submission exceeded its
	// client-side deadline.
	ErrSubmitTimeout = errors.New("gateway: submission timed out")

	// ErrNotFound indicates the remote resource does not exist (404).
	ErrNotFound = errors.New("gateway: not found")
)

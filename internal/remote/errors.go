// Package remote implements the command dispatch and confirmation
// protocol: wire encoding, validation, rate limiting and the
// transport-specific dispatchers.
package remote

import "errors"

// Dispatch error taxonomy. Every failure is surfaced to the user and
// requires explicit re-initiation; nothing here is auto-retried.
var (
	// ErrInvalidConfiguration means required setup is missing. Not
	// retryable until the user fixes settings.
	ErrInvalidConfiguration = errors.New("remote commands are not configured")

	// ErrInvalidPhoneNumber means the SMS recipient number is unusable
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	// ErrInvalidOTP means the scanned seed URL could not be parsed.
	// This is a configuration error, not a transient one.
	ErrInvalidOTP = errors.New("one-time code setup URL is invalid")

	// ErrNetwork is a transport-level delivery failure
	ErrNetwork = errors.New("network error")

	// ErrInvalidResponse means the transport answered with something
	// the dispatcher could not interpret
	ErrInvalidResponse = errors.New("invalid response from remote endpoint")

	// ErrUnauthorized means the receiving device rejected our credentials
	ErrUnauthorized = errors.New("remote device rejected credentials")

	// ErrRateLimited means the upstream refused due to too many requests
	ErrRateLimited = errors.New("rate limited by remote endpoint")

	// ErrBolusTooSoon is the local cooldown violation. It is checked
	// before any network or message activity and never bypassed.
	ErrBolusTooSoon = errors.New("bolus requested too soon after the previous one")
)

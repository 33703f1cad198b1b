// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Verification-stage sentinels. These terminate the current scan attempt.
var (
	// ErrMalformedPayload indicates the scanned payload does not have the expected shape.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrSignatureInvalid indicates an HMAC mismatch; treated as a tampering signal.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrOutOfRange indicates the device is outside the code's geofence.
	ErrOutOfRange = errors.New("out of range")

	// ErrLocationUnavailable indicates device coordinates could not be obtained.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// Receipt-stage sentinels. Recoverable by resubmission.
var (
	// ErrUnreadableReceipt indicates the OCR engine could not produce text for the image.
	ErrUnreadableReceipt = errors.New("unreadable receipt")

	// ErrReceiptRejected indicates the parsed receipt violates the campaign rules.
	ErrReceiptRejected = errors.New("receipt rejected")
)

// Ledger sentinels.
var (
	// ErrInvalidTransition indicates an out-of-order level award attempt.
	// Unreachable via a well-behaved client; surfaced as a protocol bug.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates a temporary lock after repeated failed verifications.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence indicates the ledger could not be reached; the operation
	// has not taken effect and a retry is safe.
	ErrPersistence = errors.New("persistence failure")
)

// Package limiter throttles repeated failed scan verifications, a basic brake
// on signature brute-forcing and receipt replay probing.
package limiter

import (
	"context"
	"time"
)

// Limiter controls verification attempts and temporary lockouts per
// (subject, ip). The subject is the authenticated user id when known,
// otherwise an anonymous marker.
type Limiter interface {
	// Allow reports whether attempts are currently allowed and optional retry-after.
	Allow(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful verification.
	Success(ctx context.Context, subject string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error)
}

// Package diag provides a best-effort diagnostics sink for pipeline failures.
// Sink writes must never affect the primary flow: implementations swallow
// their own errors.
package diag

import (
	"context"

	"github.com/and161185/scanwin/internal/model"
)

// Sink records error events for later fraud/noise analysis.
type Sink interface {
	// Log records one event. Implementations do not return errors.
	Log(ctx context.Context, e model.ErrorLog)
}

// Nop discards all events.
type Nop struct{}

// Log implements Sink.
func (Nop) Log(context.Context, model.ErrorLog) {}

// Package repository declares persistence ports implemented by backing stores.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/scanwin/internal/model"
)

// ClaimResult reports what one atomic receipt claim changed.
// NewTotal and CurrentLevel always reflect the committed aggregate, whichever
// branch was taken.
type ClaimResult struct {
	ScanInserted bool
	LevelAwarded bool
	NewTotal     int
	CurrentLevel int
}

// ProgressRepository is the durable, idempotent progress ledger.
// Insert operations are atomic insert-if-absent primitives: losing a race
// reports inserted=false and must be treated as success by callers.
type ProgressRepository interface {
	// ClaimScanIfAbsent records the scan event keyed by (user, token) and, on
	// first insertion, awards the level for (user, scope) in the same
	// transaction. Either everything lands or nothing does: a failure leaves
	// no scan row behind, so a retried claim can still complete the award.
	// The persisted scan row carries the points actually credited (zero when
	// the level was already held).
	ClaimScanIfAbsent(ctx context.Context, rec model.ScanRecord, tokenScope string, level, points int) (ClaimResult, error)

	// HasScan reports whether a scan record exists for (user, token).
	HasScan(ctx context.Context, userID uuid.UUID, tokenID string) (bool, error)

	// AwardLevelIfAbsent inserts the (user, scope, level) award row and, on
	// first insertion, adds points and advances the current level as one
	// atomic unit. newTotal always reflects the committed points balance.
	AwardLevelIfAbsent(ctx context.Context, userID uuid.UUID, tokenScope string, level, points int) (inserted bool, newTotal int, err error)

	// GetProgress returns the ladder aggregate; a user with no awards gets a
	// zero-value aggregate (Locked), not an error.
	GetProgress(ctx context.Context, userID uuid.UUID, tokenScope string) (*model.UserProgress, error)
}

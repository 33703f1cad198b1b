package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/scanwin/internal/model"
)

// EngagementRepository stores share events and referral codes.
type EngagementRepository interface {
	// RecordShare appends one social share event.
	RecordShare(ctx context.Context, share model.SocialShare) error

	// EnsureReferralCode stores the proposed code unless the user already has
	// one, and returns the canonical code either way.
	EnsureReferralCode(ctx context.Context, userID uuid.UUID, code string) (string, error)
}

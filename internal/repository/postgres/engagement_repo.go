package postgres

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/scanwin/internal/model"
)

// EngagementRepo implements EngagementRepository using PostgreSQL.
type EngagementRepo struct{ db *DB }

// NewEngagementRepo constructs an engagement repository.
func NewEngagementRepo(db *DB) *EngagementRepo { return &EngagementRepo{db: db} }

// RecordShare appends one social share event.
func (r *EngagementRepo) RecordShare(ctx context.Context, share model.SocialShare) error {
	const q = `
INSERT INTO social_shares (user_id, platform, content, points_earned)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, share.UserID, share.Platform, share.Content, share.PointsEarned)
	return err
}

// EnsureReferralCode stores the proposed code for a user who has none, then
// returns the canonical code. The code column itself is unique; a cross-user
// collision on the proposed code surfaces as an error the caller may retry
// with a fresh code.
func (r *EngagementRepo) EnsureReferralCode(ctx context.Context, userID uuid.UUID, code string) (string, error) {
	const ins = `
INSERT INTO referral_codes (user_id, code)
VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.Pool.Exec(ctx, ins, userID, code); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("referral code collision: %w", err)
		}
		return "", err
	}

	const sel = `SELECT code FROM referral_codes WHERE user_id=$1`
	var canonical string
	if err := r.db.Pool.QueryRow(ctx, sel, userID).Scan(&canonical); err != nil {
		return "", err
	}
	return canonical, nil
}

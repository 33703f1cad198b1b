package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/scanwin/internal/errs"
	"github.com/and161185/scanwin/internal/ladder"
	"github.com/and161185/scanwin/internal/model"
	"github.com/and161185/scanwin/internal/repository"
)

// referralPrefix brands generated invite codes.
const referralPrefix = "GREEN-"

// ShareEvent carries the social-share details recorded with a level-3 award.
type ShareEvent struct {
	Platform string
	Content  string
}

// ProgressService advances the reward ladder on engagement signals and serves
// progress queries.
type ProgressService interface {
	// ContentViewed awards level 2 after the unlocked content was opened.
	ContentViewed(ctx context.Context, userID uuid.UUID, tokenScope string) (*AwardResult, error)
	// ShareRecorded stores the share event and awards level 3.
	ShareRecorded(ctx context.Context, userID uuid.UUID, tokenScope string, share ShareEvent) (*AwardResult, error)
	// ReferralGenerated issues the user's invite code and awards level 4.
	ReferralGenerated(ctx context.Context, userID uuid.UUID, tokenScope string) (*AwardResult, error)
	// Progress returns the ladder aggregate for (user, scope).
	Progress(ctx context.Context, userID uuid.UUID, tokenScope string) (*model.UserProgress, error)
}

type ProgressServiceImpl struct {
	progress   repository.ProgressRepository
	engagement repository.EngagementRepository
	log        *zap.Logger
}

// NewProgressService constructs ProgressService.
func NewProgressService(progress repository.ProgressRepository, engagement repository.EngagementRepository, log *zap.Logger) *ProgressServiceImpl {
	return &ProgressServiceImpl{progress: progress, engagement: engagement, log: log}
}

// ContentViewed advances the ladder to level 2.
func (s *ProgressServiceImpl) ContentViewed(ctx context.Context, userID uuid.UUID, tokenScope string) (*AwardResult, error) {
	return s.award(ctx, userID, tokenScope, ladder.TriggerContentViewed, nil)
}

// ShareRecorded records the share, then advances the ladder to level 3.
// The share row is written before the award so an award-side failure never
// loses the event; replays may record extra share rows, the award itself
// stays exactly-once.
func (s *ProgressServiceImpl) ShareRecorded(ctx context.Context, userID uuid.UUID, tokenScope string, share ShareEvent) (*AwardResult, error) {
	if share.Platform == "" {
		return nil, errors.New("validation: empty platform")
	}
	pre := func(reward model.RewardLevel) error {
		return s.engagement.RecordShare(ctx, model.SocialShare{
			UserID:       userID,
			Platform:     share.Platform,
			Content:      share.Content,
			PointsEarned: reward.Points,
		})
	}
	return s.award(ctx, userID, tokenScope, ladder.TriggerShareRecorded, pre)
}

// ReferralGenerated issues (or re-reads) the invite code, then advances the
// ladder to level 4. The duplicate path still returns the canonical code so a
// retried request sees the same response as the first.
func (s *ProgressServiceImpl) ReferralGenerated(ctx context.Context, userID uuid.UUID, tokenScope string) (*AwardResult, error) {
	var code string
	pre := func(model.RewardLevel) error {
		proposed, err := newReferralCode()
		if err != nil {
			return err
		}
		code, err = s.engagement.EnsureReferralCode(ctx, userID, proposed)
		return err
	}
	res, err := s.award(ctx, userID, tokenScope, ladder.TriggerReferralGenerated, pre)
	if err != nil {
		return nil, err
	}
	if res.Duplicate && code == "" {
		// pre never ran on the duplicate path; surface the stored code.
		proposed, cerr := newReferralCode()
		if cerr != nil {
			return nil, cerr
		}
		canonical, cerr := s.engagement.EnsureReferralCode(ctx, userID, proposed)
		if cerr != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, cerr)
		}
		code = canonical
	}
	res.ReferralCode = code
	return res, nil
}

// award resolves the trigger against the persisted state and applies the
// insert-if-absent award. pre, when set, runs only on the first-award path,
// after the transition gate has passed.
func (s *ProgressServiceImpl) award(ctx context.Context, userID uuid.UUID, tokenScope string, tr ladder.Trigger, pre func(model.RewardLevel) error) (*AwardResult, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	if tokenScope == "" {
		return nil, errors.New("validation: empty token scope")
	}

	prog, err := s.progress.GetProgress(ctx, userID, tokenScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	level, duplicate, err := ladder.Decide(ladder.StateFor(prog.CurrentLevel), tr)
	if err != nil {
		return nil, err
	}
	reward, err := ladder.Level(level)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return &AwardResult{Reward: reward, Duplicate: true, TotalPoints: prog.Points, CurrentLevel: prog.CurrentLevel}, nil
	}

	if pre != nil {
		if err := pre(reward); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
	}

	inserted, total, err := s.progress.AwardLevelIfAbsent(ctx, userID, tokenScope, level, reward.Points)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	current := level
	if !inserted && prog.CurrentLevel > current {
		current = prog.CurrentLevel
	}
	s.log.Info("ladder award",
		zap.String("userID", userID.String()),
		zap.String("scope", tokenScope),
		zap.String("trigger", string(tr)),
		zap.Int("level", level),
		zap.Bool("duplicate", !inserted),
	)
	return &AwardResult{Reward: reward, Duplicate: !inserted, TotalPoints: total, CurrentLevel: current}, nil
}

// Progress returns the ladder aggregate; unknown users get the Locked zero state.
func (s *ProgressServiceImpl) Progress(ctx context.Context, userID uuid.UUID, tokenScope string) (*model.UserProgress, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	if tokenScope == "" {
		return nil, errors.New("validation: empty token scope")
	}
	prog, err := s.progress.GetProgress(ctx, userID, tokenScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return prog, nil
}

// newReferralCode generates a branded 6-character invite code.
func newReferralCode() (string, error) {
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return referralPrefix + string(b), nil
}

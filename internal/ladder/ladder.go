// Package ladder defines the reward catalog and the ordered level state
// machine. It is pure: persistence and transport live elsewhere.
package ladder

import (
	"fmt"

	"github.com/and161185/scanwin/internal/errs"
	"github.com/and161185/scanwin/internal/model"
)

// MaxLevel is the terminal rung of the ladder.
const MaxLevel = 4

// State is the per-(user, scope) position on the ladder.
type State int

const (
	Locked State = iota
	Level1Awarded
	Level2Awarded
	Level3Awarded
	Level4Awarded
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Level1Awarded, Level2Awarded, Level3Awarded, Level4Awarded:
		return fmt.Sprintf("level%d_awarded", int(s))
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateFor maps a persisted current level to a ladder state.
func StateFor(currentLevel int) State {
	if currentLevel < 0 {
		return Locked
	}
	if currentLevel > MaxLevel {
		return Level4Awarded
	}
	return State(currentLevel)
}

// Trigger identifies the external event driving a transition.
type Trigger string

const (
	TriggerReceiptValidated  Trigger = "receipt_validated"
	TriggerContentViewed     Trigger = "content_viewed"
	TriggerShareRecorded     Trigger = "social_share_recorded"
	TriggerReferralGenerated Trigger = "referral_generated"
)

// transitions is the full table: each trigger awards one level and is gated on
// the preceding level already being held.
var transitions = map[Trigger]struct {
	From   State
	Awards int
}{
	TriggerReceiptValidated:  {From: Locked, Awards: 1},
	TriggerContentViewed:     {From: Level1Awarded, Awards: 2},
	TriggerShareRecorded:     {From: Level2Awarded, Awards: 3},
	TriggerReferralGenerated: {From: Level3Awarded, Awards: 4},
}

// Decide resolves a trigger against the current state.
// Returns the level to award, or duplicate=true when the trigger's level is
// already held (retried request, idempotent success), or ErrInvalidTransition
// when the gate level is missing.
func Decide(current State, tr Trigger) (level int, duplicate bool, err error) {
	t, ok := transitions[tr]
	if !ok {
		return 0, false, fmt.Errorf("%w: unknown trigger %q", errs.ErrInvalidTransition, tr)
	}
	switch {
	case current == t.From:
		return t.Awards, false, nil
	case int(current) >= t.Awards:
		return t.Awards, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s requires state %s, have %s", errs.ErrInvalidTransition, tr, t.From, current)
	}
}

// catalog is the static, ordered reward ladder.
var catalog = [MaxLevel]model.RewardLevel{
	{Level: 1, Type: "coupon", Value: "10OFF", Points: 50, Description: "10% discount on next purchase"},
	{Level: 2, Type: "content", Value: "Exclusive Content", Points: 100, Description: "Premium content unlocked"},
	{Level: 3, Type: "social", Value: "AR Filter", Points: 150, Description: "Special AR filter for social media"},
	{Level: 4, Type: "referral", Value: "25% Rebate", Points: 250, Description: "25% cashback for referrals"},
}

// Level returns the catalog entry for a level in [1, MaxLevel].
func Level(n int) (model.RewardLevel, error) {
	if n < 1 || n > MaxLevel {
		return model.RewardLevel{}, fmt.Errorf("%w: no reward level %d", errs.ErrInvalidTransition, n)
	}
	return catalog[n-1], nil
}

// Levels returns a copy of the full catalog in ascending order.
func Levels() []model.RewardLevel {
	out := make([]model.RewardLevel, MaxLevel)
	copy(out, catalog[:])
	return out
}

// TotalPoints is the points sum for all levels up to and including n.
func TotalPoints(n int) int {
	sum := 0
	for i := 1; i <= n && i <= MaxLevel; i++ {
		sum += catalog[i-1].Points
	}
	return sum
}

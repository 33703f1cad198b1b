// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ScanToken is the parsed, verified content of a scanned code.
// Immutable once parsed; never persisted beyond the request.
type ScanToken struct {
	StoreID  int
	BannerID int // doubles as the campaign key for progress scoping
	ItemID   int
	Lat      float64
	Lng      float64
	TokenID  string
}

// Scope returns the ladder scope this token's awards are recorded under.
func (t ScanToken) Scope() string { return fmt.Sprintf("campaign:%d", t.BannerID) }

// GeoPoint is a device- or token-registered coordinate pair.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// ReceiptItem is a single parsed line item.
type ReceiptItem struct {
	Name  string
	Price float64
}

// ReceiptData holds fields extracted from OCR text. Extraction is best-effort:
// absent patterns fall back to documented defaults rather than failing.
type ReceiptData struct {
	Date  time.Time
	Time  string
	Total float64
	Items []ReceiptItem
}

// CampaignRule is the campaign collaborator's purchase policy, read-only input
// to receipt validation.
type CampaignRule struct {
	CampaignID           int
	Name                 string
	MinScans             int
	MinPurchaseTotal     float64
	RequiredItemKeywords []string
	WindowStart          time.Time
	WindowEnd            time.Time
	// LocationRadiusM overrides the deployment geofence radius when > 0.
	LocationRadiusM float64
}

// RewardLevel is one rung of the static reward catalog.
type RewardLevel struct {
	Level       int
	Type        string
	Value       string
	Points      int
	Description string
}

// UserProgress is the durable ladder aggregate, mutated only via level awards.
type UserProgress struct {
	UserID        uuid.UUID
	TokenScope    string
	AwardedLevels []int // always a prefix of {1,2,3,4}
	Points        int
	CurrentLevel  int
}

// ScanRecord is one immutable row per successful verification; its
// (UserID, TokenID) pair is the idempotency key for duplicate-scan checks.
type ScanRecord struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	TokenID          string
	ValidationStatus string
	PointsAwarded    int
	CreatedAt        time.Time
}

// ScanRecord validation statuses.
const (
	ScanStatusVerified = "verified"
)

// SocialShare records one share event ahead of the level-3 award.
type SocialShare struct {
	UserID       uuid.UUID
	Platform     string
	Content      string
	PointsEarned int
}

// ReferralCode is a user's unique invite code, generated with the level-4 award.
type ReferralCode struct {
	UserID uuid.UUID
	Code   string
}

// ErrorLog is a best-effort diagnostics entry; failures to record one must
// never affect the primary flow.
type ErrorLog struct {
	ErrorType string
	Message   string
	TokenID   string
	UserID    uuid.UUID // uuid.Nil when the user is unknown
}

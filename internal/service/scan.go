// Package service contains application services for the scan pipeline and the
// reward ladder.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/scanwin/internal/campaign"
	"github.com/and161185/scanwin/internal/diag"
	"github.com/and161185/scanwin/internal/errs"
	"github.com/and161185/scanwin/internal/geo"
	"github.com/and161185/scanwin/internal/ladder"
	"github.com/and161185/scanwin/internal/limiter"
	"github.com/and161185/scanwin/internal/model"
	"github.com/and161185/scanwin/internal/ocr"
	"github.com/and161185/scanwin/internal/receipt"
	"github.com/and161185/scanwin/internal/repository"
	"github.com/and161185/scanwin/internal/token"
)

// AnonSubject keys limiter entries for requests made before authentication.
const AnonSubject = "anon"

// AwardResult is the outcome of a successful (or idempotently repeated) award.
type AwardResult struct {
	Reward       model.RewardLevel
	Duplicate    bool
	TotalPoints  int
	CurrentLevel int
	// ReferralCode is set only for the level-4 award.
	ReferralCode string
}

// ScanService defines the verify-and-claim pipeline.
type ScanService interface {
	// VerifyScan authenticates a raw payload and checks the device position
	// against the token's geofence. Rate-limited per (subject, ip).
	VerifyScan(ctx context.Context, raw string, device *model.GeoPoint, subject, ip string) (model.ScanToken, error)
	// SubmitReceipt runs the full pipeline for an authenticated user: verify,
	// geofence, OCR, rule validation, ledger insert, level-1 award.
	SubmitReceipt(ctx context.Context, userID uuid.UUID, raw string, device *model.GeoPoint, image []byte, ip string) (*AwardResult, error)
}

type ScanServiceImpl struct {
	codec    *token.Codec
	rules    *campaign.Catalog
	engine   ocr.Engine
	progress repository.ProgressRepository
	lim      limiter.Limiter
	sink     diag.Sink
	log      *zap.Logger

	// radiusM is the deployment geofence radius; campaign rules may override it.
	radiusM float64

	now func() time.Time
}

// NewScanService constructs ScanService with required dependencies.
func NewScanService(
	codec *token.Codec,
	rules *campaign.Catalog,
	engine ocr.Engine,
	progress repository.ProgressRepository,
	lim limiter.Limiter,
	sink diag.Sink,
	radiusM float64,
	log *zap.Logger,
) *ScanServiceImpl {
	return &ScanServiceImpl{
		codec:    codec,
		rules:    rules,
		engine:   engine,
		progress: progress,
		lim:      lim,
		sink:     sink,
		log:      log,
		radiusM:  radiusM,
		now:      time.Now,
	}
}

// VerifyScan authenticates the payload with rate limiting by (subject, ip).
func (s *ScanServiceImpl) VerifyScan(ctx context.Context, raw string, device *model.GeoPoint, subject, ip string) (model.ScanToken, error) {
	if subject == "" {
		subject = AnonSubject
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, subject, ipHash)
	if err != nil {
		return model.ScanToken{}, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if !allowed {
		return model.ScanToken{}, errs.ErrRateLimited
	}

	tok, err := s.verifyAndLocate(ctx, raw, device)
	if err != nil {
		// Only tampering signals count toward the lockout; a user standing in
		// the wrong place is not an attacker.
		if errors.Is(err, errs.ErrMalformedPayload) || errors.Is(err, errs.ErrSignatureInvalid) {
			if blocked, _, ferr := s.lim.Failure(ctx, subject, ipHash); ferr == nil && blocked {
				return model.ScanToken{}, errs.ErrRateLimited
			}
		}
		return model.ScanToken{}, err
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, subject, ipHash)
	return tok, nil
}

// verifyAndLocate is the shared signature-plus-geofence stage.
func (s *ScanServiceImpl) verifyAndLocate(ctx context.Context, raw string, device *model.GeoPoint) (model.ScanToken, error) {
	tok, err := s.codec.Verify(raw)
	if err != nil {
		s.sink.Log(ctx, model.ErrorLog{ErrorType: "scan_verification", Message: err.Error()})
		return model.ScanToken{}, err
	}
	if device == nil {
		return model.ScanToken{}, errs.ErrLocationUnavailable
	}

	radius := s.radiusM
	if rule, rerr := s.rules.Rule(tok.BannerID); rerr == nil && rule.LocationRadiusM > 0 {
		radius = rule.LocationRadiusM
	}
	if err := geo.Validate(model.GeoPoint{Lat: tok.Lat, Lng: tok.Lng}, *device, radius); err != nil {
		s.sink.Log(ctx, model.ErrorLog{ErrorType: "geofence", Message: err.Error(), TokenID: tok.TokenID})
		return model.ScanToken{}, err
	}
	return tok, nil
}

// SubmitReceipt runs the full claim pipeline. Stage order is fixed: cheap pure
// checks run before external OCR, and the ledger is touched last.
func (s *ScanServiceImpl) SubmitReceipt(ctx context.Context, userID uuid.UUID, raw string, device *model.GeoPoint, image []byte, ip string) (*AwardResult, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}

	tok, err := s.VerifyScan(ctx, raw, device, userID.String(), ip)
	if err != nil {
		return nil, err
	}

	rule, err := s.rules.Rule(tok.BannerID)
	if err != nil {
		return nil, err
	}

	// Duplicate tokens short-circuit before the OCR call: a claim that already
	// landed is idempotent success no matter what the new photo says.
	claimed, err := s.progress.HasScan(ctx, userID, tok.TokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if claimed {
		return s.duplicateResult(ctx, userID, tok.Scope(), 1)
	}

	if err := ocr.CheckImage(image); err != nil {
		return nil, err
	}
	text, err := s.engine.ExtractText(ctx, image)
	if err != nil {
		s.sink.Log(ctx, model.ErrorLog{ErrorType: "receipt_processing", Message: err.Error(), TokenID: tok.TokenID, UserID: userID})
		return nil, err
	}

	data := receipt.Parse(text, s.now())
	if err := receipt.Validate(data, rule); err != nil {
		s.sink.Log(ctx, model.ErrorLog{ErrorType: "receipt_validation", Message: err.Error(), TokenID: tok.TokenID, UserID: userID})
		return nil, err
	}

	reward, err := ladder.Level(1)
	if err != nil {
		return nil, err
	}

	recID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	// Scan record and level-1 award land in one repository transaction: a
	// failure leaves nothing behind, so a retry re-drives the whole claim.
	claim, err := s.progress.ClaimScanIfAbsent(ctx, model.ScanRecord{
		ID:               recID,
		UserID:           userID,
		TokenID:          tok.TokenID,
		ValidationStatus: model.ScanStatusVerified,
		PointsAwarded:    reward.Points,
	}, tok.Scope(), reward.Level, reward.Points)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	s.log.Info("receipt claim",
		zap.String("userID", userID.String()),
		zap.String("tokenID", tok.TokenID),
		zap.Int("level", reward.Level),
		zap.Bool("duplicate", !claim.LevelAwarded),
	)
	return &AwardResult{
		Reward:       reward,
		Duplicate:    !claim.LevelAwarded,
		TotalPoints:  claim.NewTotal,
		CurrentLevel: claim.CurrentLevel,
	}, nil
}

// duplicateResult reports idempotent success for a retried claim: same shape as
// the first response, current totals, duplicate flag set.
func (s *ScanServiceImpl) duplicateResult(ctx context.Context, userID uuid.UUID, scope string, level int) (*AwardResult, error) {
	reward, err := ladder.Level(level)
	if err != nil {
		return nil, err
	}
	prog, err := s.progress.GetProgress(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &AwardResult{Reward: reward, Duplicate: true, TotalPoints: prog.Points, CurrentLevel: prog.CurrentLevel}, nil
}

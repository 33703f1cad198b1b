package httpapi

import (
	"github.com/and161185/scanwin/internal/model"
	"github.com/and161185/scanwin/internal/service"
)

type geoPointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type verifyRequest struct {
	Payload string       `json:"payload"`
	Device  *geoPointDTO `json:"device"`
}

type verifyResponse struct {
	Valid      bool   `json:"valid"`
	StoreID    int    `json:"storeId"`
	BannerID   int    `json:"bannerId"`
	ItemID     int    `json:"itemId"`
	TokenID    string `json:"tokenId"`
	TokenScope string `json:"tokenScope"`
}

type scopeRequest struct {
	TokenScope string `json:"tokenScope"`
}

type shareRequest struct {
	TokenScope string `json:"tokenScope"`
	Platform   string `json:"platform"`
	Content    string `json:"content"`
}

type rewardDTO struct {
	Level       int    `json:"level"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

type awardResponse struct {
	Reward       rewardDTO `json:"reward"`
	Duplicate    bool      `json:"duplicate"`
	TotalPoints  int       `json:"totalPoints"`
	CurrentLevel int       `json:"currentLevel"`
	ReferralCode string    `json:"referralCode,omitempty"`
}

type progressResponse struct {
	TokenScope    string `json:"tokenScope"`
	AwardedLevels []int  `json:"awardedLevels"`
	Points        int    `json:"points"`
	CurrentLevel  int    `json:"currentLevel"`
}

func toVerifyResponse(t model.ScanToken) verifyResponse {
	return verifyResponse{
		Valid:      true,
		StoreID:    t.StoreID,
		BannerID:   t.BannerID,
		ItemID:     t.ItemID,
		TokenID:    t.TokenID,
		TokenScope: t.Scope(),
	}
}

func toAwardResponse(res *service.AwardResult) awardResponse {
	return awardResponse{
		Reward: rewardDTO{
			Level:       res.Reward.Level,
			Type:        res.Reward.Type,
			Value:       res.Reward.Value,
			Points:      res.Reward.Points,
			Description: res.Reward.Description,
		},
		Duplicate:    res.Duplicate,
		TotalPoints:  res.TotalPoints,
		CurrentLevel: res.CurrentLevel,
		ReferralCode: res.ReferralCode,
	}
}

func toProgressResponse(p *model.UserProgress) progressResponse {
	levels := p.AwardedLevels
	if levels == nil {
		levels = []int{}
	}
	return progressResponse{
		TokenScope:    p.TokenScope,
		AwardedLevels: levels,
		Points:        p.Points,
		CurrentLevel:  p.CurrentLevel,
	}
}

func toGeoPoint(d *geoPointDTO) *model.GeoPoint {
	if d == nil {
		return nil
	}
	return &model.GeoPoint{Lat: d.Lat, Lng: d.Lng}
}

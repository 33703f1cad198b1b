// Package campaign loads the read-only campaign rule catalog owned by the
// campaign collaborator.
package campaign

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/and161185/scanwin/internal/errs"
	"github.com/and161185/scanwin/internal/model"
)

type ruleFile struct {
	Campaigns []ruleEntry `yaml:"campaigns"`
}

type ruleEntry struct {
	ID                   int      `yaml:"id"`
	Name                 string   `yaml:"name"`
	MinScans             int      `yaml:"min_scans"`
	MinPurchaseTotal     float64  `yaml:"min_purchase_total"`
	RequiredItemKeywords []string `yaml:"required_item_keywords"`
	WindowStart          string   `yaml:"window_start"`
	WindowEnd            string   `yaml:"window_end"`
	LocationRadiusM      float64  `yaml:"location_radius_m"`
}

// Catalog is an immutable in-memory rule set keyed by campaign id.
type Catalog struct {
	rules map[int]model.CampaignRule
}

// Load reads and parses the YAML rule file. A missing or invalid file is a
// configuration error: the service must not start without its rule set.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("campaign rules %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a catalog from YAML bytes.
func Parse(raw []byte) (*Catalog, error) {
	var f ruleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("campaign rules: %w", err)
	}
	if len(f.Campaigns) == 0 {
		return nil, fmt.Errorf("campaign rules: no campaigns defined")
	}

	rules := make(map[int]model.CampaignRule, len(f.Campaigns))
	for _, e := range f.Campaigns {
		if e.ID <= 0 {
			return nil, fmt.Errorf("campaign rules: invalid id %d", e.ID)
		}
		if _, dup := rules[e.ID]; dup {
			return nil, fmt.Errorf("campaign rules: duplicate id %d", e.ID)
		}
		start, err := parseDay(e.WindowStart)
		if err != nil {
			return nil, fmt.Errorf("campaign %d: window_start: %w", e.ID, err)
		}
		end, err := parseDay(e.WindowEnd)
		if err != nil {
			return nil, fmt.Errorf("campaign %d: window_end: %w", e.ID, err)
		}
		if !end.IsZero() && !start.IsZero() && end.Before(start) {
			return nil, fmt.Errorf("campaign %d: window ends before it starts", e.ID)
		}
		rules[e.ID] = model.CampaignRule{
			CampaignID:           e.ID,
			Name:                 e.Name,
			MinScans:             e.MinScans,
			MinPurchaseTotal:     e.MinPurchaseTotal,
			RequiredItemKeywords: e.RequiredItemKeywords,
			WindowStart:          start,
			WindowEnd:            end,
			LocationRadiusM:      e.LocationRadiusM,
		}
	}
	return &Catalog{rules: rules}, nil
}

// Rule returns the rule for a campaign id.
func (c *Catalog) Rule(campaignID int) (model.CampaignRule, error) {
	r, ok := c.rules[campaignID]
	if !ok {
		return model.CampaignRule{}, fmt.Errorf("campaign %d: %w", campaignID, errs.ErrNotFound)
	}
	return r, nil
}

// Len reports the number of loaded campaigns.
func (c *Catalog) Len() int { return len(c.rules) }

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

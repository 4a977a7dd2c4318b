// Package campaign defines the campaign entity and the shared CPM budget tracker.
package campaign

import (
	"time"

	"github.com/shopspring/decimal"
)

// CPMRange is the campaign-wide target floor/ceiling CPM, set once at creation.
type CPMRange struct {
	TargetMin decimal.Decimal `json:"target_min"`
	TargetMax decimal.Decimal `json:"target_max"`
}

// Campaign is one outreach campaign covering many negotiations.
type Campaign struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand"`
	CPMRange        CPMRange  `json:"cpm_range"`
	InfluencerCount int       `json:"influencer_count"`
	BrandReference  string    `json:"brand_reference,omitempty"` // reusable prompt context for composition
	CreatedAt       time.Time `json:"created_at"`
}

package campaign

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// PremiumTier labels how much above the campaign ceiling a negotiation may bid.
type PremiumTier string

const (
	TierHigh     PremiumTier = "high"     // engagement >= 5%
	TierModerate PremiumTier = "moderate" // engagement >= 3%
	TierStandard PremiumTier = "standard" // no premium
)

var (
	highEngagement     = decimal.NewFromInt(5)
	moderateEngagement = decimal.NewFromInt(3)

	highPremium     = decimal.NewFromFloat(1.15)
	moderatePremium = decimal.NewFromFloat(1.08)

	// hardCapFactor bounds flexibility at 120% of the campaign target-max CPM.
	// The cap is absolute and never bypassed.
	hardCapFactor = decimal.NewFromFloat(1.20)
)

// Flexibility is the per-influencer bidding headroom derived from engagement quality.
type Flexibility struct {
	TargetCPM decimal.Decimal `json:"target_cpm"`
	Tier      PremiumTier     `json:"tier"`
}

// CPMTracker keeps a campaign's realized average CPM within its target range
// while letting individual negotiations bid above the ceiling when engagement
// justifies it. One instance per campaign, shared by reference across all of
// that campaign's negotiations. All methods are safe for concurrent use.
type CPMTracker struct {
	mu sync.Mutex

	campaignID      string
	cpmRange        CPMRange
	influencerCount int

	agreedCount  int
	totalAgreed  decimal.Decimal // sum of agreed CPMs
	totalSavings decimal.Decimal // ceiling minus agreed rate, summed; negative = overspend
}

// NewCPMTracker creates the tracker for a campaign. influencerCount is the
// total number of negotiations the campaign will run.
func NewCPMTracker(campaignID string, r CPMRange, influencerCount int) (*CPMTracker, error) {
	if r.TargetMin.GreaterThan(r.TargetMax) {
		return nil, fmt.Errorf("campaign %s: target min %s exceeds max %s", campaignID, r.TargetMin, r.TargetMax)
	}
	if influencerCount <= 0 {
		return nil, fmt.Errorf("campaign %s: influencer count must be positive, got %d", campaignID, influencerCount)
	}
	return &CPMTracker{
		campaignID:      campaignID,
		cpmRange:        r,
		influencerCount: influencerCount,
	}, nil
}

// Restore rebuilds a tracker from persisted agreed deals after a restart.
// The tracker is never reconstructed by replaying negotiation events.
func Restore(campaignID string, r CPMRange, influencerCount int, agreedRates []decimal.Decimal) (*CPMTracker, error) {
	t, err := NewCPMTracker(campaignID, r, influencerCount)
	if err != nil {
		return nil, err
	}
	for _, rate := range agreedRates {
		t.RecordAgreement(rate)
	}
	return t, nil
}

// CampaignID returns the campaign this tracker belongs to.
func (t *CPMTracker) CampaignID() string { return t.campaignID }

// Range returns the campaign's target CPM range.
func (t *CPMTracker) Range() CPMRange { return t.cpmRange }

// Flexibility returns the target CPM an individual negotiation may bid up to,
// based on engagement quality plus any savings redistributed from deals that
// closed below the ceiling. The result is hard-capped at 120% of the
// campaign's target-max CPM regardless of tier.
func (t *CPMTracker) Flexibility(engagementRate decimal.Decimal) Flexibility {
	t.mu.Lock()
	defer t.mu.Unlock()

	tier := TierStandard
	target := t.cpmRange.TargetMax

	switch {
	case engagementRate.GreaterThanOrEqual(highEngagement):
		tier = TierHigh
		target = target.Mul(highPremium)
	case engagementRate.GreaterThanOrEqual(moderateEngagement):
		tier = TierModerate
		target = target.Mul(moderatePremium)
	}

	// Savings from early cheap deals buy headroom for the remaining ones.
	remaining := t.influencerCount - t.agreedCount
	if remaining > 0 && t.totalSavings.IsPositive() {
		extra := t.totalSavings.Div(decimal.NewFromInt(int64(remaining)))
		target = target.Add(extra)
	}

	hardCap := t.cpmRange.TargetMax.Mul(hardCapFactor)
	if target.GreaterThan(hardCap) {
		target = hardCap
	}

	return Flexibility{TargetCPM: target.Round(2), Tier: tier}
}

// RecordAgreement updates the running average and redistributes surplus
// budget when a negotiation reaches agreed. Calls from concurrent
// negotiations within the same campaign are serialized.
func (t *CPMTracker) RecordAgreement(agreedRate decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.agreedCount++
	t.totalAgreed = t.totalAgreed.Add(agreedRate)
	t.totalSavings = t.totalSavings.Add(t.cpmRange.TargetMax.Sub(agreedRate))
}

// AgreedCount returns how many negotiations have closed as agreed.
func (t *CPMTracker) AgreedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.agreedCount
}

// AverageCPM returns the running average CPM across agreed deals, zero when
// none have closed yet.
func (t *CPMTracker) AverageCPM() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.agreedCount == 0 {
		return decimal.Zero
	}
	return t.totalAgreed.Div(decimal.NewFromInt(int64(t.agreedCount))).Round(2)
}

// Savings returns the budget saved (positive) or overspent (negative) so far
// relative to the target ceiling.
func (t *CPMTracker) Savings() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalSavings
}

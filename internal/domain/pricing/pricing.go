// Package pricing turns audience metrics and negotiation context into
// monetary decisions. All arithmetic uses exact decimals; negotiated rates
// are real money and must round the same way every time.
package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// PayRange bounds the acceptable rate for one negotiation.
type PayRange struct {
	Floor   decimal.Decimal `json:"floor"`
	Ceiling decimal.Decimal `json:"ceiling"`
}

// NewPayRange validates floor <= ceiling.
func NewPayRange(floor, ceiling decimal.Decimal) (PayRange, error) {
	if floor.GreaterThan(ceiling) {
		return PayRange{}, &InputError{Reason: fmt.Sprintf("floor %s exceeds ceiling %s", floor, ceiling)}
	}
	return PayRange{Floor: floor, Ceiling: ceiling}, nil
}

// Verdict classifies a proposed rate against a PayRange. A rate outside the
// range is a normal outcome, not an error.
type Verdict string

const (
	VerdictWithinRange    Verdict = "within_range"
	VerdictExceedsCeiling Verdict = "exceeds_ceiling"
	VerdictBelowFloor     Verdict = "below_floor"
)

// InputError reports malformed numeric input (non-positive audience metric,
// inverted range). It is fatal to the current call.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "pricing: " + e.Reason
}

// RateTier maps a minimum audience size to a CPM rate.
type RateTier struct {
	MinAudience int64           `yaml:"min_audience" json:"min_audience"`
	CPM         decimal.Decimal `yaml:"cpm" json:"cpm"`
}

// RateCard is the audience-size -> initial CPM table. Tiers are matched by the
// largest MinAudience not exceeding the metric.
type RateCard struct {
	tiers []RateTier // sorted ascending by MinAudience
}

// NewRateCard builds a card from tiers. At least one tier with MinAudience 0
// or 1 must exist so every positive audience matches.
func NewRateCard(tiers []RateTier) (*RateCard, error) {
	if len(tiers) == 0 {
		return nil, &InputError{Reason: "rate card has no tiers"}
	}
	sorted := make([]RateTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinAudience < sorted[j].MinAudience })
	if sorted[0].MinAudience > 1 {
		return nil, &InputError{Reason: fmt.Sprintf("rate card lowest tier starts at %d, leaving small audiences unpriced", sorted[0].MinAudience)}
	}
	return &RateCard{tiers: sorted}, nil
}

// DefaultRateCard returns the standard influencer CPM table.
func DefaultRateCard() *RateCard {
	card, _ := NewRateCard([]RateTier{
		{MinAudience: 1, CPM: decimal.NewFromInt(20)},
		{MinAudience: 10_000, CPM: decimal.NewFromInt(25)},
		{MinAudience: 50_000, CPM: decimal.NewFromInt(30)},
		{MinAudience: 250_000, CPM: decimal.NewFromInt(35)},
		{MinAudience: 1_000_000, CPM: decimal.NewFromInt(45)},
	})
	return card
}

// InitialOffer returns the deterministic opening CPM for an audience size.
// Same input always yields the same output.
func (c *RateCard) InitialOffer(audienceSize int64) (decimal.Decimal, error) {
	if audienceSize <= 0 {
		return decimal.Zero, &InputError{Reason: fmt.Sprintf("audience size must be positive, got %d", audienceSize)}
	}
	rate := c.tiers[0].CPM
	for _, tier := range c.tiers {
		if audienceSize < tier.MinAudience {
			break
		}
		rate = tier.CPM
	}
	return rate, nil
}

// Evaluate classifies a proposed rate against the range. Pure, no mutation.
func Evaluate(proposed decimal.Decimal, r PayRange) Verdict {
	switch {
	case proposed.GreaterThan(r.Ceiling):
		return VerdictExceedsCeiling
	case proposed.LessThan(r.Floor):
		return VerdictBelowFloor
	default:
		return VerdictWithinRange
	}
}

// concession schedule: earlier rounds concede less of the remaining headroom.
var roundConcession = map[int]decimal.Decimal{
	1: decimal.NewFromFloat(0.25),
	2: decimal.NewFromFloat(0.50),
	3: decimal.NewFromFloat(0.75),
}

var fullConcession = decimal.NewFromInt(1)

// CounterRate proposes the next offer for the given round. The result stays
// within [Floor, Ceiling] and never exceeds flexCap, the campaign tracker's
// per-influencer flexibility ceiling.
func CounterRate(currentOffer decimal.Decimal, round int, r PayRange, flexCap decimal.Decimal) (decimal.Decimal, error) {
	if round <= 0 {
		return decimal.Zero, &InputError{Reason: fmt.Sprintf("round must be positive, got %d", round)}
	}

	ceiling := decimal.Min(r.Ceiling, flexCap)
	if ceiling.LessThan(r.Floor) {
		ceiling = r.Floor
	}

	concession, ok := roundConcession[round]
	if !ok {
		concession = fullConcession
	}

	headroom := ceiling.Sub(currentOffer)
	if headroom.IsNegative() {
		return ceiling, nil
	}

	next := currentOffer.Add(headroom.Mul(concession)).Round(2)
	if next.LessThan(r.Floor) {
		next = r.Floor
	}
	if next.GreaterThan(ceiling) {
		next = ceiling
	}
	return next, nil
}

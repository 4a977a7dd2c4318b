// Package decision defines the orchestrator's outcome types: one action per
// processed reply, each variant carrying exactly the fields its handler needs.
package decision

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActionKind discriminates the outcome variants.
type ActionKind string

const (
	KindSend     ActionKind = "send"
	KindAccept   ActionKind = "accept"
	KindReject   ActionKind = "reject"
	KindEscalate ActionKind = "escalate"
)

// Reason is a machine-checkable escalation trigger code. There are exactly
// seven: the three orchestrator short-circuits plus the four error-severity
// validation checks.
type Reason string

const (
	ReasonMaxRounds          Reason = "max_rounds_reached"
	ReasonAmbiguousIntent    Reason = "ambiguous_intent"
	ReasonCPMCeilingExceeded Reason = "cpm_ceiling_exceeded"
	ReasonMonetaryMismatch   Reason = "monetary_mismatch"
	ReasonHallucination      Reason = "hallucinated_commitment"
	ReasonForbiddenPhrase    Reason = "forbidden_phrase"
	ReasonBodyTooShort       Reason = "body_too_short"
)

// Send means the composed counter-offer passed validation and may be
// transmitted. The caller increments the round counter only after confirmed
// transmission.
type Send struct {
	NegotiationID string          `json:"negotiation_id"`
	ThreadID      string          `json:"thread_id"`
	Body          string          `json:"body"`
	OfferCPM      decimal.Decimal `json:"offer_cpm"`
}

// Accept means the influencer agreed to the current offer.
type Accept struct {
	NegotiationID string          `json:"negotiation_id"`
	AgreedCPM     decimal.Decimal `json:"agreed_cpm"`
}

// Reject means the influencer declined and the negotiation is closed.
type Reject struct {
	NegotiationID string `json:"negotiation_id"`
	Quote         string `json:"quote"` // the reply text that ended the negotiation
}

// Escalation is the evidence bundle handed to a human decision-maker. Every
// escalation carries a human-readable reason and literal quoted evidence,
// never a bare code.
type Escalation struct {
	ID            string          `json:"id"`
	NegotiationID string          `json:"negotiation_id"`
	CampaignID    string          `json:"campaign_id"`
	Reason        Reason          `json:"reason"`
	Summary       string          `json:"summary"`
	Evidence      string          `json:"evidence"`
	ProposedCPM   decimal.Decimal `json:"proposed_cpm,omitempty"`
	TargetCPM     decimal.Decimal `json:"target_cpm,omitempty"`
	SuggestedNext string          `json:"suggested_next"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Action is the tagged union returned by the orchestrator: exactly one of the
// variant pointers is non-nil, matching Kind.
type Action struct {
	Kind     ActionKind  `json:"kind"`
	Send     *Send       `json:"send,omitempty"`
	Accept   *Accept     `json:"accept,omitempty"`
	Reject   *Reject     `json:"reject,omitempty"`
	Escalate *Escalation `json:"escalate,omitempty"`
}

// NewSend wraps a Send variant.
func NewSend(s Send) Action { return Action{Kind: KindSend, Send: &s} }

// NewAccept wraps an Accept variant.
func NewAccept(a Accept) Action { return Action{Kind: KindAccept, Accept: &a} }

// NewReject wraps a Reject variant.
func NewReject(r Reject) Action { return Action{Kind: KindReject, Reject: &r} }

// NewEscalate wraps an Escalation variant.
func NewEscalate(e Escalation) Action { return Action{Kind: KindEscalate, Escalate: &e} }

// Package negotiation defines the negotiation lifecycle entity and its state machine.
package negotiation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies where the influencer publishes.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformTikTok, PlatformYouTube:
		return true
	}
	return false
}

// Round is one prior exchange in the thread, kept as free text for prompt context.
type Round struct {
	Direction string    `json:"direction"` // "inbound" | "outbound"
	Body      string    `json:"body"`
	At        time.Time `json:"at"`
}

// Context holds the immutable-per-round facts the orchestrator works from.
// It is owned by the orchestrator for the duration of one reply and persisted
// by the store between replies.
type Context struct {
	ID              string          `json:"id"`
	CampaignID      string          `json:"campaign_id"`
	ThreadID        string          `json:"thread_id"`
	InfluencerName  string          `json:"influencer_name"`
	InfluencerEmail string          `json:"influencer_email"`
	Platform        Platform        `json:"platform"`
	AudienceSize    int64           `json:"audience_size"`
	EngagementRate  decimal.Decimal `json:"engagement_rate"` // percent, e.g. 4.2
	Deliverables    []string        `json:"deliverables"`
	NextCPM         decimal.Decimal `json:"next_cpm"` // current proposed rate
	Round           int             `json:"round"`
	MaxRounds       int             `json:"max_rounds"`
	History         []Round         `json:"history"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// RoundsExhausted reports whether the negotiation has used its full round budget.
func (c *Context) RoundsExhausted() bool {
	return c.Round >= c.MaxRounds
}

// Snapshot is the persisted form of a negotiation: context plus machine state.
// Rehydration goes through FromSnapshot, never event replay.
type Snapshot struct {
	Context Context      `json:"context"`
	State   State        `json:"state"`
	History []Transition `json:"history"`
}

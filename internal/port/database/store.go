// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/DealForge/internal/domain/campaign"
	"github.com/Strob0t/DealForge/internal/domain/negotiation"
)

// Store is the port interface for database operations. It is the
// authoritative source for crash recovery: rehydration reads snapshots and
// goes through negotiation.FromSnapshot, never event replay.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, c *campaign.Campaign) error
	GetCampaign(ctx context.Context, id string) (*campaign.Campaign, error)
	ListCampaigns(ctx context.Context) ([]campaign.Campaign, error)

	// Negotiations
	SaveNegotiation(ctx context.Context, snap *negotiation.Snapshot) error
	GetNegotiation(ctx context.Context, id string) (*negotiation.Snapshot, error)
	GetNegotiationByThread(ctx context.Context, threadID string) (*negotiation.Snapshot, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]negotiation.Snapshot, error)

	// LoadActive returns every negotiation not yet in a terminal state,
	// across all campaigns.
	LoadActive(ctx context.Context) ([]negotiation.Snapshot, error)

	// AgreedRates returns the CPMs of all agreed deals for a campaign,
	// used to rebuild the campaign's CPM tracker on restart.
	AgreedRates(ctx context.Context, campaignID string) ([]decimal.Decimal, error)
}

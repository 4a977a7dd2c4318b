package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/DealForge/internal/domain"
	"github.com/Strob0t/DealForge/internal/domain/campaign"
	"github.com/Strob0t/DealForge/internal/port/database"
)

// CampaignService owns campaign lifecycle and the per-campaign CPM trackers.
// Trackers are in-memory aggregates: exactly one per campaign per process,
// rebuilt from agreed rates on restart.
type CampaignService struct {
	store database.Store

	mu       sync.Mutex
	trackers map[string]*campaign.CPMTracker
}

// NewCampaignService creates a CampaignService.
func NewCampaignService(store database.Store) *CampaignService {
	return &CampaignService{
		store:    store,
		trackers: make(map[string]*campaign.CPMTracker),
	}
}

// CreateParams carries the caller-supplied fields for a new campaign.
type CreateParams struct {
	Name            string
	Brand           string
	CPMRange        campaign.CPMRange
	InfluencerCount int
	BrandReference  string
}

// Create persists a new campaign and registers its tracker.
func (s *CampaignService) Create(ctx context.Context, p CreateParams) (*campaign.Campaign, error) {
	c := &campaign.Campaign{
		ID:              uuid.NewString(),
		Name:            p.Name,
		Brand:           p.Brand,
		CPMRange:        p.CPMRange,
		InfluencerCount: p.InfluencerCount,
		BrandReference:  p.BrandReference,
		CreatedAt:       time.Now().UTC(),
	}

	tracker, err := campaign.NewCPMTracker(c.ID, c.CPMRange, c.InfluencerCount)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateCampaign(ctx, c); err != nil {
		return nil, domain.External("create campaign", err)
	}

	s.mu.Lock()
	s.trackers[c.ID] = tracker
	s.mu.Unlock()

	return c, nil
}

// Get returns one campaign by ID.
func (s *CampaignService) Get(ctx context.Context, id string) (*campaign.Campaign, error) {
	return s.store.GetCampaign(ctx, id)
}

// List returns all campaigns.
func (s *CampaignService) List(ctx context.Context) ([]campaign.Campaign, error) {
	return s.store.ListCampaigns(ctx)
}

// Tracker returns the CPM tracker for a campaign, restoring it from
// persisted agreed rates on first access after a restart.
func (s *CampaignService) Tracker(ctx context.Context, campaignID string) (*campaign.CPMTracker, error) {
	s.mu.Lock()
	if t, ok := s.trackers[campaignID]; ok {
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, domain.External("load campaign", err)
	}
	rates, err := s.store.AgreedRates(ctx, campaignID)
	if err != nil {
		return nil, domain.External("load agreed rates", err)
	}
	t, err := campaign.Restore(campaignID, c.CPMRange, c.InfluencerCount, rates)
	if err != nil {
		return nil, fmt.Errorf("restore tracker for campaign %s: %w", campaignID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have restored it while we were reading.
	if existing, ok := s.trackers[campaignID]; ok {
		return existing, nil
	}
	s.trackers[campaignID] = t
	return t, nil
}

// Recover warms the tracker map from every campaign with active
// negotiations. Called once on startup; active negotiations themselves need
// no replay because snapshots rehydrate directly.
func (s *CampaignService) Recover(ctx context.Context) error {
	active, err := s.store.LoadActive(ctx)
	if err != nil {
		return domain.External("load active negotiations", err)
	}

	seen := make(map[string]struct{})
	for _, snap := range active {
		seen[snap.Context.CampaignID] = struct{}{}
	}
	for campaignID := range seen {
		if _, err := s.Tracker(ctx, campaignID); err != nil {
			return err
		}
	}

	slog.Info("recovery complete",
		"active_negotiations", len(active), "campaigns", len(seen))
	return nil
}

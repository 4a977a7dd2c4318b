package http

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/DealForge/internal/domain/campaign"
	"github.com/Strob0t/DealForge/internal/domain/negotiation"
	"github.com/Strob0t/DealForge/internal/service"
)

// campaignAPI is the slice of the campaign service the handlers need.
type campaignAPI interface {
	Create(ctx context.Context, p service.CreateParams) (*campaign.Campaign, error)
	Get(ctx context.Context, id string) (*campaign.Campaign, error)
	List(ctx context.Context) ([]campaign.Campaign, error)
	Tracker(ctx context.Context, campaignID string) (*campaign.CPMTracker, error)
}

// outreachAPI starts new negotiations.
type outreachAPI interface {
	StartOutreach(ctx context.Context, p service.OutreachParams) (*negotiation.Snapshot, error)
}

// negotiationDirectory is the read-only negotiation lookup surface,
// satisfied by the database store.
type negotiationDirectory interface {
	GetNegotiation(ctx context.Context, id string) (*negotiation.Snapshot, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]negotiation.Snapshot, error)
}

// connChecker reports queue connectivity for health checks.
type connChecker interface {
	IsConnected() bool
}

// Handlers bundles all HTTP handlers and their dependencies.
type Handlers struct {
	campaigns    campaignAPI
	outreach     outreachAPI
	negotiations negotiationDirectory
	queue        connChecker
}

// NewHandlers creates the Handlers adapter.
func NewHandlers(campaigns campaignAPI, outreach outreachAPI, negotiations negotiationDirectory, queue connChecker) *Handlers {
	return &Handlers{
		campaigns:    campaigns,
		outreach:     outreach,
		negotiations: negotiations,
		queue:        queue,
	}
}

// Health reports process liveness and queue connectivity.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	queueOK := h.queue == nil || h.queue.IsConnected()
	status, label := http.StatusOK, "ok"
	if !queueOK {
		status, label = http.StatusServiceUnavailable, "degraded"
	}
	writeJSON(w, status, map[string]any{"status": label, "queue": queueOK})
}

type createCampaignRequest struct {
	Name            string `json:"name"`
	Brand           string `json:"brand"`
	TargetMinCPM    string `json:"target_min_cpm"` // exact decimal as string
	TargetMaxCPM    string `json:"target_max_cpm"`
	InfluencerCount int    `json:"influencer_count"`
	BrandReference  string `json:"brand_reference"`
}

// CreateCampaign handles POST /api/v1/campaigns.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createCampaignRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Name, "name") || !requireField(w, req.Brand, "brand") {
		return
	}

	minCPM, err := decimal.NewFromString(req.TargetMinCPM)
	if err != nil {
		writeError(w, http.StatusBadRequest, "target_min_cpm must be a decimal string")
		return
	}
	maxCPM, err := decimal.NewFromString(req.TargetMaxCPM)
	if err != nil {
		writeError(w, http.StatusBadRequest, "target_max_cpm must be a decimal string")
		return
	}

	c, err := h.campaigns.Create(r.Context(), service.CreateParams{
		Name:            req.Name,
		Brand:           req.Brand,
		CPMRange:        campaign.CPMRange{TargetMin: minCPM, TargetMax: maxCPM},
		InfluencerCount: req.InfluencerCount,
		BrandReference:  req.BrandReference,
	})
	if err != nil {
		writeDomainError(w, err, "campaign not created")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetCampaign handles GET /api/v1/campaigns/{id}.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ListCampaigns handles GET /api/v1/campaigns.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "campaigns not listed")
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

type campaignStatsResponse struct {
	CampaignID  string `json:"campaign_id"`
	AgreedCount int    `json:"agreed_count"`
	AverageCPM  string `json:"average_cpm"`
	Savings     string `json:"savings"`
}

// CampaignStats handles GET /api/v1/campaigns/{id}/stats. Figures come from
// the live in-memory tracker, so they include deals agreed since startup
// plus the restored history.
func (h *Handlers) CampaignStats(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	tracker, err := h.campaigns.Tracker(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, campaignStatsResponse{
		CampaignID:  id,
		AgreedCount: tracker.AgreedCount(),
		AverageCPM:  tracker.AverageCPM().StringFixed(2),
		Savings:     tracker.Savings().StringFixed(2),
	})
}

// ListNegotiations handles GET /api/v1/campaigns/{id}/negotiations.
func (h *Handlers) ListNegotiations(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.negotiations.ListByCampaign(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "negotiations not listed")
		return
	}
	if snaps == nil {
		snaps = []negotiation.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

type startOutreachRequest struct {
	InfluencerName  string   `json:"influencer_name"`
	InfluencerEmail string   `json:"influencer_email"`
	Platform        string   `json:"platform"`
	AudienceSize    int64    `json:"audience_size"`
	EngagementRate  string   `json:"engagement_rate"` // percent as decimal string
	Deliverables    []string `json:"deliverables"`
}

// StartOutreach handles POST /api/v1/campaigns/{id}/negotiations.
func (h *Handlers) StartOutreach(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[startOutreachRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.InfluencerName, "influencer_name") ||
		!requireField(w, req.InfluencerEmail, "influencer_email") {
		return
	}
	platform := negotiation.Platform(req.Platform)
	if !platform.Valid() {
		writeError(w, http.StatusBadRequest, "platform must be instagram, tiktok or youtube")
		return
	}

	snap, err := h.outreach.StartOutreach(r.Context(), service.OutreachParams{
		CampaignID:      urlParam(r, "id"),
		InfluencerName:  req.InfluencerName,
		InfluencerEmail: req.InfluencerEmail,
		Platform:        platform,
		AudienceSize:    req.AudienceSize,
		EngagementRate:  req.EngagementRate,
		Deliverables:    req.Deliverables,
	})
	if err != nil {
		writeDomainError(w, err, "campaign not found")
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GetNegotiation handles GET /api/v1/negotiations/{id}.
func (h *Handlers) GetNegotiation(w http.ResponseWriter, r *http.Request) {
	snap, err := h.negotiations.GetNegotiation(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "negotiation not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

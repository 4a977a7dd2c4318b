package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/DealForge/internal/domain"
	"github.com/Strob0t/DealForge/internal/domain/campaign"
	"github.com/Strob0t/DealForge/internal/domain/negotiation"
	"github.com/Strob0t/DealForge/internal/service"
)

type fakeCampaignAPI struct {
	created  *service.CreateParams
	campaign *campaign.Campaign
	tracker  *campaign.CPMTracker
	err      error
}

func (f *fakeCampaignAPI) Create(_ context.Context, p service.CreateParams) (*campaign.Campaign, error) {
	f.created = &p
	return f.campaign, f.err
}

func (f *fakeCampaignAPI) Get(context.Context, string) (*campaign.Campaign, error) {
	if f.campaign == nil {
		return nil, domain.ErrNotFound
	}
	return f.campaign, f.err
}

func (f *fakeCampaignAPI) List(context.Context) ([]campaign.Campaign, error) {
	if f.campaign == nil {
		return nil, f.err
	}
	return []campaign.Campaign{*f.campaign}, f.err
}

func (f *fakeCampaignAPI) Tracker(context.Context, string) (*campaign.CPMTracker, error) {
	if f.tracker == nil {
		return nil, domain.ErrNotFound
	}
	return f.tracker, nil
}

type fakeOutreachAPI struct {
	params *service.OutreachParams
	snap   *negotiation.Snapshot
	err    error
}

func (f *fakeOutreachAPI) StartOutreach(_ context.Context, p service.OutreachParams) (*negotiation.Snapshot, error) {
	f.params = &p
	return f.snap, f.err
}

type fakeDirectory struct {
	snaps map[string]*negotiation.Snapshot
}

func (f *fakeDirectory) GetNegotiation(_ context.Context, id string) (*negotiation.Snapshot, error) {
	snap, ok := f.snaps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return snap, nil
}

func (f *fakeDirectory) ListByCampaign(context.Context, string) ([]negotiation.Snapshot, error) {
	var out []negotiation.Snapshot
	for _, snap := range f.snaps {
		out = append(out, *snap)
	}
	return out, nil
}

type fakeConn struct{ connected bool }

func (f *fakeConn) IsConnected() bool { return f.connected }

func newTestRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	MountRoutes(r, h)
	return r
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestHealth(t *testing.T) {
	router := newTestRouter(NewHandlers(&fakeCampaignAPI{}, &fakeOutreachAPI{}, &fakeDirectory{}, &fakeConn{connected: true}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	router = newTestRouter(NewHandlers(&fakeCampaignAPI{}, &fakeOutreachAPI{}, &fakeDirectory{}, &fakeConn{}))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status with queue down = %d, want 503", rec.Code)
	}
}

func TestCreateCampaign(t *testing.T) {
	api := &fakeCampaignAPI{campaign: &campaign.Campaign{ID: "camp-1", Name: "Q3"}}
	router := newTestRouter(NewHandlers(api, &fakeOutreachAPI{}, &fakeDirectory{}, nil))

	body := `{"name":"Q3","brand":"Glimmer","target_min_cpm":"20","target_max_cpm":"80","influencer_count":5}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if api.created == nil {
		t.Fatal("service never called")
	}
	if !api.created.CPMRange.TargetMax.Equal(dec("80")) {
		t.Errorf("target max = %s, want 80", api.created.CPMRange.TargetMax)
	}
}

func TestCreateCampaignBadDecimal(t *testing.T) {
	router := newTestRouter(NewHandlers(&fakeCampaignAPI{}, &fakeOutreachAPI{}, &fakeDirectory{}, nil))

	body := `{"name":"Q3","brand":"Glimmer","target_min_cpm":"twenty","target_max_cpm":"80"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateCampaignMissingName(t *testing.T) {
	router := newTestRouter(NewHandlers(&fakeCampaignAPI{}, &fakeOutreachAPI{}, &fakeDirectory{}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns",
		strings.NewReader(`{"brand":"Glimmer","target_min_cpm":"20","target_max_cpm":"80"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCampaignStats(t *testing.T) {
	tracker, err := campaign.NewCPMTracker("camp-1",
		campaign.CPMRange{TargetMin: dec("20"), TargetMax: dec("80")}, 3)
	if err != nil {
		t.Fatal(err)
	}
	tracker.RecordAgreement(dec("60"))

	router := newTestRouter(NewHandlers(&fakeCampaignAPI{tracker: tracker}, &fakeOutreachAPI{}, &fakeDirectory{}, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/camp-1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp campaignStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AgreedCount != 1 || resp.AverageCPM != "60.00" || resp.Savings != "20.00" {
		t.Errorf("stats = %+v", resp)
	}
}

func TestStartOutreach(t *testing.T) {
	out := &fakeOutreachAPI{snap: &negotiation.Snapshot{
		Context: negotiation.Context{ID: "neg-1", CampaignID: "camp-1"},
		State:   negotiation.StateAwaitingReply,
	}}
	router := newTestRouter(NewHandlers(&fakeCampaignAPI{}, out, &fakeDirectory{}, nil))

	body := `{"influencer_name":"Sam","influencer_email":"sam@example.com","platform":"tiktok","audience_size":120000,"engagement_rate":"3.4","deliverables":["two story posts"]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/camp-1/negotiations", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if out.params == nil || out.params.CampaignID != "camp-1" {
		t.Fatalf("params = %+v", out.params)
	}
	if out.params.Platform != negotiation.PlatformTikTok {
		t.Errorf("platform = %s", out.params.Platform)
	}
}

func TestStartOutreachUnknownPlatform(t *testing.T) {
	router := newTestRouter(NewHandlers(&fakeCampaignAPI{}, &fakeOutreachAPI{}, &fakeDirectory{}, nil))

	body := `{"influencer_name":"Sam","influencer_email":"sam@example.com","platform":"myspace"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/camp-1/negotiations", strings.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetNegotiationNotFound(t *testing.T) {
	router := newTestRouter(NewHandlers(&fakeCampaignAPI{}, &fakeOutreachAPI{}, &fakeDirectory{snaps: map[string]*negotiation.Snapshot{}}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/negotiations/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListNegotiationsEmptyIsArray(t *testing.T) {
	router := newTestRouter(NewHandlers(&fakeCampaignAPI{}, &fakeOutreachAPI{}, &fakeDirectory{}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/camp-1/negotiations", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

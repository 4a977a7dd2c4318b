package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/DealForge/internal/adapter/postgres"
	"github.com/Strob0t/DealForge/internal/domain"
	"github.com/Strob0t/DealForge/internal/domain/campaign"
	"github.com/Strob0t/DealForge/internal/domain/negotiation"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

func createTestCampaign(t *testing.T, store *postgres.Store) *campaign.Campaign {
	t.Helper()
	c := &campaign.Campaign{
		ID:    uuid.NewString(),
		Name:  "Spring Launch",
		Brand: "Acme",
		CPMRange: campaign.CPMRange{
			TargetMin: decimal.NewFromInt(40),
			TargetMax: decimal.NewFromInt(80),
		},
		InfluencerCount: 10,
		BrandReference:  "Acme voice: friendly, concise.",
	}
	if err := store.CreateCampaign(context.Background(), c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

func TestCampaignRoundTrip(t *testing.T) {
	store := setupStore(t)
	c := createTestCampaign(t, store)

	got, err := store.GetCampaign(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.Name != c.Name || got.Brand != c.Brand {
		t.Errorf("got %+v, want %+v", got, c)
	}
	if !got.CPMRange.TargetMax.Equal(c.CPMRange.TargetMax) {
		t.Errorf("target max = %s, want %s", got.CPMRange.TargetMax, c.CPMRange.TargetMax)
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetCampaign(context.Background(), uuid.NewString())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNegotiationSnapshotRoundTrip(t *testing.T) {
	store := setupStore(t)
	c := createTestCampaign(t, store)
	ctx := context.Background()

	snap := &negotiation.Snapshot{
		Context: negotiation.Context{
			ID:              uuid.NewString(),
			CampaignID:      c.ID,
			ThreadID:        uuid.NewString(),
			InfluencerName:  "Jordan",
			InfluencerEmail: "jordan@example.com",
			Platform:        negotiation.PlatformYouTube,
			AudienceSize:    120_000,
			EngagementRate:  decimal.NewFromFloat(4.2),
			Deliverables:    []string{"1 video"},
			NextCPM:         decimal.NewFromInt(45),
			Round:           1,
			MaxRounds:       5,
		},
		State: negotiation.StateAwaitingReply,
	}

	if err := store.SaveNegotiation(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetNegotiation(ctx, snap.Context.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != negotiation.StateAwaitingReply {
		t.Errorf("state = %q, want awaiting_reply", got.State)
	}
	if !got.Context.NextCPM.Equal(decimal.NewFromInt(45)) {
		t.Errorf("next cpm = %s, want 45", got.Context.NextCPM)
	}

	byThread, err := store.GetNegotiationByThread(ctx, snap.Context.ThreadID)
	if err != nil {
		t.Fatalf("get by thread: %v", err)
	}
	if byThread.Context.ID != snap.Context.ID {
		t.Errorf("thread lookup returned %s, want %s", byThread.Context.ID, snap.Context.ID)
	}
}

func TestLoadActiveExcludesTerminal(t *testing.T) {
	store := setupStore(t)
	c := createTestCampaign(t, store)
	ctx := context.Background()

	active := &negotiation.Snapshot{
		Context: negotiation.Context{
			ID: uuid.NewString(), CampaignID: c.ID, ThreadID: uuid.NewString(),
			NextCPM: decimal.NewFromInt(45), MaxRounds: 5,
		},
		State: negotiation.StateAwaitingReply,
	}
	done := &negotiation.Snapshot{
		Context: negotiation.Context{
			ID: uuid.NewString(), CampaignID: c.ID, ThreadID: uuid.NewString(),
			NextCPM: decimal.NewFromInt(50), MaxRounds: 5,
		},
		State: negotiation.StateAgreed,
	}
	for _, snap := range []*negotiation.Snapshot{active, done} {
		if err := store.SaveNegotiation(ctx, snap); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	snaps, err := store.LoadActive(ctx)
	if err != nil {
		t.Fatalf("load active: %v", err)
	}
	for _, snap := range snaps {
		if snap.Context.ID == done.Context.ID {
			t.Error("terminal negotiation returned by LoadActive")
		}
	}
}

func TestAgreedRatesForTrackerRebuild(t *testing.T) {
	store := setupStore(t)
	c := createTestCampaign(t, store)
	ctx := context.Background()

	snap := &negotiation.Snapshot{
		Context: negotiation.Context{
			ID: uuid.NewString(), CampaignID: c.ID, ThreadID: uuid.NewString(),
			NextCPM: decimal.NewFromFloat(47.50), MaxRounds: 5,
		},
		State: negotiation.StateAgreed,
	}
	if err := store.SaveNegotiation(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	rates, err := store.AgreedRates(ctx, c.ID)
	if err != nil {
		t.Fatalf("agreed rates: %v", err)
	}
	if len(rates) != 1 {
		t.Fatalf("rates = %v, want exactly one", rates)
	}
	if !rates[0].Equal(decimal.NewFromFloat(47.50)) {
		t.Errorf("rate = %s, want 47.50", rates[0])
	}
}

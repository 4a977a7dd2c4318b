package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/DealForge/internal/domain"
	"github.com/Strob0t/DealForge/internal/domain/campaign"
	"github.com/Strob0t/DealForge/internal/domain/negotiation"
)

// Store implements database.Store using PostgreSQL. Negotiation context and
// transition history are stored as JSONB; rates as exact NUMERIC.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateCampaign inserts a new campaign row.
func (s *Store) CreateCampaign(ctx context.Context, c *campaign.Campaign) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, name, brand, target_min_cpm, target_max_cpm, influencer_count, brand_reference)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Brand, c.CPMRange.TargetMin, c.CPMRange.TargetMax, c.InfluencerCount, c.BrandReference)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

const campaignColumns = `id, name, brand, target_min_cpm, target_max_cpm, influencer_count, brand_reference, created_at`

func scanCampaign(scanner interface{ Scan(dest ...any) error }, c *campaign.Campaign) error {
	return scanner.Scan(
		&c.ID, &c.Name, &c.Brand, &c.CPMRange.TargetMin, &c.CPMRange.TargetMax,
		&c.InfluencerCount, &c.BrandReference, &c.CreatedAt,
	)
}

// GetCampaign returns a campaign by ID.
func (s *Store) GetCampaign(ctx context.Context, id string) (*campaign.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1`, campaignColumns), id)

	var c campaign.Campaign
	if err := scanCampaign(row, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	return &c, nil
}

// ListCampaigns returns all campaigns, newest first.
func (s *Store) ListCampaigns(ctx context.Context) ([]campaign.Campaign, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM campaigns ORDER BY created_at DESC`, campaignColumns))
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []campaign.Campaign
	for rows.Next() {
		var c campaign.Campaign
		if err := scanCampaign(rows, &c); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// SaveNegotiation upserts a negotiation snapshot. When the snapshot is in the
// agreed state the agreed rate is denormalized into agreed_cpm so tracker
// reconstruction never parses JSON.
func (s *Store) SaveNegotiation(ctx context.Context, snap *negotiation.Snapshot) error {
	contextJSON, err := json.Marshal(snap.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	historyJSON, err := json.Marshal(snap.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	var agreedCPM *decimal.Decimal
	if snap.State == negotiation.StateAgreed {
		agreedCPM = &snap.Context.NextCPM
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO negotiations (id, campaign_id, thread_id, state, context, history, agreed_cpm, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (id) DO UPDATE SET
		   state = EXCLUDED.state,
		   context = EXCLUDED.context,
		   history = EXCLUDED.history,
		   agreed_cpm = EXCLUDED.agreed_cpm,
		   updated_at = now()`,
		snap.Context.ID, snap.Context.CampaignID, snap.Context.ThreadID,
		string(snap.State), contextJSON, historyJSON, agreedCPM)
	if err != nil {
		return fmt.Errorf("save negotiation %s: %w", snap.Context.ID, err)
	}
	return nil
}

func scanSnapshot(scanner interface{ Scan(dest ...any) error }) (*negotiation.Snapshot, error) {
	var (
		state       string
		contextJSON []byte
		historyJSON []byte
	)
	if err := scanner.Scan(&state, &contextJSON, &historyJSON); err != nil {
		return nil, err
	}

	var snap negotiation.Snapshot
	snap.State = negotiation.State(state)
	if err := json.Unmarshal(contextJSON, &snap.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &snap.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return &snap, nil
}

const snapshotColumns = `state, context, history`

// GetNegotiation returns a negotiation snapshot by ID.
func (s *Store) GetNegotiation(ctx context.Context, id string) (*negotiation.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM negotiations WHERE id = $1`, snapshotColumns), id)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get negotiation %s: %w", id, err)
	}
	return snap, nil
}

// GetNegotiationByThread returns the snapshot bound to an email thread.
func (s *Store) GetNegotiationByThread(ctx context.Context, threadID string) (*negotiation.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM negotiations WHERE thread_id = $1`, snapshotColumns), threadID)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get negotiation by thread %s: %w", threadID, err)
	}
	return snap, nil
}

// ListByCampaign returns all snapshots for a campaign.
func (s *Store) ListByCampaign(ctx context.Context, campaignID string) ([]negotiation.Snapshot, error) {
	return s.querySnapshots(ctx,
		fmt.Sprintf(`SELECT %s FROM negotiations WHERE campaign_id = $1 ORDER BY created_at`, snapshotColumns),
		campaignID)
}

// LoadActive returns every negotiation not yet in a terminal state.
func (s *Store) LoadActive(ctx context.Context) ([]negotiation.Snapshot, error) {
	return s.querySnapshots(ctx,
		fmt.Sprintf(`SELECT %s FROM negotiations WHERE state NOT IN ('agreed', 'rejected', 'escalated', 'max_rounds_exceeded') ORDER BY created_at`, snapshotColumns))
}

func (s *Store) querySnapshots(ctx context.Context, query string, args ...any) ([]negotiation.Snapshot, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query negotiations: %w", err)
	}
	defer rows.Close()

	var snaps []negotiation.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan negotiation: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// AgreedRates returns the agreed CPMs for a campaign, used to rebuild its CPM
// tracker after a restart.
func (s *Store) AgreedRates(ctx context.Context, campaignID string) ([]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT agreed_cpm FROM negotiations WHERE campaign_id = $1 AND state = 'agreed' AND agreed_cpm IS NOT NULL`,
		campaignID)
	if err != nil {
		return nil, fmt.Errorf("agreed rates for %s: %w", campaignID, err)
	}
	defer rows.Close()

	var rates []decimal.Decimal
	for rows.Next() {
		var rate decimal.Decimal
		if err := rows.Scan(&rate); err != nil {
			return nil, fmt.Errorf("scan agreed rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

// Package warehouse persists the normalized attribution rows. Every writer
// upserts by the row's natural key (ad+date, event+guest, date+funnel), so
// re-ingesting the same export is a no-op rather than a duplicate.
package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

// Store reads and writes attribution rows in Postgres.
type Store struct {
	db     *pgxpool.Pool
	logger logging.Logger
}

// NewStore creates a warehouse store.
func NewStore(db *pgxpool.Pool, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger.With(logging.F("component", "warehouse"))}
}

// UpsertAdRows writes ad rows keyed by (ad_id, date_key).
func (s *Store) UpsertAdRows(ctx context.Context, rows []attribution.AdRow) error {
	query := `
		INSERT INTO ad_rows (date_key, ad_id, adset_name, campaign_name, funnel, spend, impressions, clicks, meta_leads, quality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ad_id, date_key)
		DO UPDATE SET
			adset_name = EXCLUDED.adset_name,
			campaign_name = EXCLUDED.campaign_name,
			funnel = EXCLUDED.funnel,
			spend = EXCLUDED.spend,
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			meta_leads = EXCLUDED.meta_leads,
			quality_score = EXCLUDED.quality_score
	`
	for _, r := range rows {
		_, err := s.db.Exec(ctx, query,
			r.DateKey, r.AdID, r.AdsetName, r.CampaignName, string(r.Funnel),
			r.Spend, r.Impressions, r.Clicks, r.MetaLeads, r.QualityScore)
		if err != nil {
			return fmt.Errorf("upserting ad row %s: %w", r.NaturalKey(), err)
		}
	}
	s.logger.Debug("Ad rows upserted", logging.F("count", len(rows)))
	return nil
}

// UpsertLeads writes leads keyed by (created_date_key, email).
func (s *Store) UpsertLeads(ctx context.Context, leads []attribution.LeadRecord) error {
	query := `
		INSERT INTO leads (created_date_key, email, funnel, revenue, is_registration_proxy)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (created_date_key, email)
		DO UPDATE SET
			funnel = EXCLUDED.funnel,
			revenue = EXCLUDED.revenue,
			is_registration_proxy = EXCLUDED.is_registration_proxy
	`
	for _, l := range leads {
		_, err := s.db.Exec(ctx, query,
			l.CreatedDateKey, l.Email, string(l.Funnel), l.Revenue, l.IsRegistrationProxy)
		if err != nil {
			return fmt.Errorf("upserting lead %s/%s: %w", l.CreatedDateKey, l.Email, err)
		}
	}
	s.logger.Debug("Leads upserted", logging.F("count", len(leads)))
	return nil
}

// UpsertRegistrations writes registrations keyed by (event_date_key, guest_email).
func (s *Store) UpsertRegistrations(ctx context.Context, regs []attribution.RegistrationRow) error {
	query := `
		INSERT INTO registrations (event_date_key, guest_email, guest_name, approval_status, matched_zoom, matched_zoom_net_new, matched_hubspot, funnel)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_date_key, guest_email)
		DO UPDATE SET
			guest_name = EXCLUDED.guest_name,
			approval_status = EXCLUDED.approval_status,
			matched_zoom = EXCLUDED.matched_zoom,
			matched_zoom_net_new = EXCLUDED.matched_zoom_net_new,
			matched_hubspot = EXCLUDED.matched_hubspot,
			funnel = EXCLUDED.funnel
	`
	for _, r := range regs {
		_, err := s.db.Exec(ctx, query,
			r.EventDateKey, r.GuestEmail, r.GuestName, r.ApprovalStatus,
			r.MatchedZoom, r.MatchedZoomNetNew, r.MatchedHubspot, string(r.Funnel))
		if err != nil {
			return fmt.Errorf("upserting registration %s: %w", r.NaturalKey(), err)
		}
	}
	s.logger.Debug("Registrations upserted", logging.F("count", len(regs)))
	return nil
}

// UpsertShowUpDaily writes daily attendance aggregates keyed by (date_key, funnel).
func (s *Store) UpsertShowUpDaily(ctx context.Context, days []attribution.ShowUpDailyRow) error {
	query := `
		INSERT INTO show_up_daily (date_key, funnel, show_ups, new_show_ups, sessions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date_key, funnel)
		DO UPDATE SET
			show_ups = EXCLUDED.show_ups,
			new_show_ups = EXCLUDED.new_show_ups,
			sessions = EXCLUDED.sessions
	`
	for _, d := range days {
		_, err := s.db.Exec(ctx, query, d.DateKey, string(d.Funnel), d.ShowUps, d.NewShowUps, d.Sessions)
		if err != nil {
			return fmt.Errorf("upserting show-up day %s/%s: %w", d.DateKey, d.Funnel, err)
		}
	}
	s.logger.Debug("Show-up days upserted", logging.F("count", len(days)))
	return nil
}

// LoadAdRows reads all ad rows.
func (s *Store) LoadAdRows(ctx context.Context) ([]attribution.AdRow, error) {
	query := `
		SELECT date_key, ad_id, adset_name, campaign_name, funnel, spend, impressions, clicks, meta_leads, quality_score
		FROM ad_rows ORDER BY date_key, ad_id
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading ad rows: %w", err)
	}
	defer rows.Close()

	var ads []attribution.AdRow
	for rows.Next() {
		var a attribution.AdRow
		var funnel string
		if err := rows.Scan(&a.DateKey, &a.AdID, &a.AdsetName, &a.CampaignName, &funnel,
			&a.Spend, &a.Impressions, &a.Clicks, &a.MetaLeads, &a.QualityScore); err != nil {
			return nil, fmt.Errorf("scanning ad row: %w", err)
		}
		a.Funnel = attribution.Funnel(funnel)
		ads = append(ads, a)
	}
	return ads, rows.Err()
}

// LoadLeads reads all leads.
func (s *Store) LoadLeads(ctx context.Context) ([]attribution.LeadRecord, error) {
	query := `
		SELECT created_date_key, email, funnel, revenue, is_registration_proxy
		FROM leads ORDER BY created_date_key, email
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading leads: %w", err)
	}
	defer rows.Close()

	var leads []attribution.LeadRecord
	for rows.Next() {
		var l attribution.LeadRecord
		var funnel string
		if err := rows.Scan(&l.CreatedDateKey, &l.Email, &funnel, &l.Revenue, &l.IsRegistrationProxy); err != nil {
			return nil, fmt.Errorf("scanning lead: %w", err)
		}
		l.Funnel = attribution.Funnel(funnel)
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// LoadRegistrations reads all registrations.
func (s *Store) LoadRegistrations(ctx context.Context) ([]attribution.RegistrationRow, error) {
	query := `
		SELECT event_date_key, guest_email, guest_name, approval_status, matched_zoom, matched_zoom_net_new, matched_hubspot, funnel
		FROM registrations ORDER BY event_date_key, guest_email
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading registrations: %w", err)
	}
	defer rows.Close()

	var regs []attribution.RegistrationRow
	for rows.Next() {
		var r attribution.RegistrationRow
		var funnel string
		if err := rows.Scan(&r.EventDateKey, &r.GuestEmail, &r.GuestName, &r.ApprovalStatus,
			&r.MatchedZoom, &r.MatchedZoomNetNew, &r.MatchedHubspot, &funnel); err != nil {
			return nil, fmt.Errorf("scanning registration: %w", err)
		}
		r.Funnel = attribution.Funnel(funnel)
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// LoadShowUpDaily reads all daily attendance aggregates.
func (s *Store) LoadShowUpDaily(ctx context.Context) ([]attribution.ShowUpDailyRow, error) {
	query := `
		SELECT date_key, funnel, show_ups, new_show_ups, sessions
		FROM show_up_daily ORDER BY date_key, funnel
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading show-up days: %w", err)
	}
	defer rows.Close()

	var days []attribution.ShowUpDailyRow
	for rows.Next() {
		var d attribution.ShowUpDailyRow
		var funnel string
		if err := rows.Scan(&d.DateKey, &funnel, &d.ShowUps, &d.NewShowUps, &d.Sessions); err != nil {
			return nil, fmt.Errorf("scanning show-up day: %w", err)
		}
		d.Funnel = attribution.Funnel(funnel)
		days = append(days, d)
	}
	return days, rows.Err()
}

// FlagCRMAttributionColumns records whether the most recent lead export
// carried CRM attribution columns.
const FlagCRMAttributionColumns = "crm_attribution_columns"

// SetFlag records an ingest-time data availability flag.
func (s *Store) SetFlag(ctx context.Context, flag string, value bool) error {
	query := `
		INSERT INTO ingest_flags (flag, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (flag) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, flag, value); err != nil {
		return fmt.Errorf("setting flag %s: %w", flag, err)
	}
	return nil
}

// GetFlag reads an ingest-time flag. An unset flag reads as false.
func (s *Store) GetFlag(ctx context.Context, flag string) (bool, error) {
	var value bool
	err := s.db.QueryRow(ctx, `SELECT value FROM ingest_flags WHERE flag = $1`, flag).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("reading flag %s: %w", flag, err)
	}
	return value, nil
}

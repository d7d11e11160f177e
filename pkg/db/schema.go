package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the full DDL for the funnel warehouse. Every statement is
// idempotent so EnsureSchema can run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS identities (
	canonical_id      UUID PRIMARY KEY,
	canonical_name    TEXT NOT NULL,
	name_aliases      TEXT[] NOT NULL DEFAULT '{}',
	external_user_ids TEXT[] NOT NULL DEFAULT '{}',
	email             TEXT NOT NULL DEFAULT '',
	total_appearances INT NOT NULL DEFAULT 0,
	first_seen_date   TEXT NOT NULL DEFAULT '',
	is_note_taker     BOOLEAN NOT NULL DEFAULT FALSE,
	merged_from       TEXT[] NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_identities_aliases ON identities USING GIN (name_aliases);

CREATE TABLE IF NOT EXISTS merge_log (
	id                    BIGSERIAL PRIMARY KEY,
	action                TEXT NOT NULL,
	source_name           TEXT NOT NULL DEFAULT '',
	target_canonical_id   UUID NOT NULL,
	target_canonical_name TEXT NOT NULL DEFAULT '',
	confidence            INT NOT NULL DEFAULT 0,
	reason                TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pending_cases (
	case_id     UUID PRIMARY KEY,
	candidate_a UUID NOT NULL,
	candidate_b UUID NOT NULL,
	confidence  INT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS blocklist (
	id               BIGSERIAL PRIMARY KEY,
	name_pattern     TEXT NOT NULL DEFAULT '',
	external_user_id TEXT NOT NULL DEFAULT '',
	added_by         TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance (
	session_id   TEXT NOT NULL,
	date_key     TEXT NOT NULL,
	canonical_id UUID NOT NULL,
	group_label  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (session_id, date_key, canonical_id)
);

CREATE TABLE IF NOT EXISTS ad_rows (
	date_key      TEXT NOT NULL,
	ad_id         TEXT NOT NULL,
	adset_name    TEXT NOT NULL DEFAULT '',
	campaign_name TEXT NOT NULL DEFAULT '',
	funnel        TEXT NOT NULL,
	spend         DOUBLE PRECISION NOT NULL DEFAULT 0,
	impressions   INT NOT NULL DEFAULT 0,
	clicks        INT NOT NULL DEFAULT 0,
	meta_leads    INT NOT NULL DEFAULT 0,
	quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (ad_id, date_key)
);

CREATE TABLE IF NOT EXISTS leads (
	id                    BIGSERIAL PRIMARY KEY,
	created_date_key      TEXT NOT NULL,
	email                 TEXT NOT NULL DEFAULT '',
	funnel                TEXT NOT NULL,
	revenue               DOUBLE PRECISION,
	is_registration_proxy BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_natural ON leads (created_date_key, email);

CREATE TABLE IF NOT EXISTS registrations (
	event_date_key       TEXT NOT NULL,
	guest_email          TEXT NOT NULL,
	guest_name           TEXT NOT NULL DEFAULT '',
	approval_status      TEXT NOT NULL DEFAULT '',
	matched_zoom         BOOLEAN NOT NULL DEFAULT FALSE,
	matched_zoom_net_new BOOLEAN NOT NULL DEFAULT FALSE,
	matched_hubspot      BOOLEAN NOT NULL DEFAULT FALSE,
	funnel               TEXT NOT NULL,
	PRIMARY KEY (event_date_key, guest_email)
);

CREATE TABLE IF NOT EXISTS ingest_flags (
	flag       TEXT PRIMARY KEY,
	value      BOOLEAN NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS show_up_daily (
	date_key     TEXT NOT NULL,
	funnel       TEXT NOT NULL,
	show_ups     INT NOT NULL DEFAULT 0,
	new_show_ups INT NOT NULL DEFAULT 0,
	sessions     INT NOT NULL DEFAULT 0,
	PRIMARY KEY (date_key, funnel)
);
`

// EnsureSchema creates all tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
	"github.com/otherjamesbrown/funnel-cli/pkg/names"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed identity store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const identityColumns = `
	canonical_id, canonical_name, name_aliases, external_user_ids, email,
	total_appearances, first_seen_date, is_note_taker, merged_from,
	created_at, updated_at`

func scanIdentity(row pgx.Row) (*CanonicalIdentity, error) {
	var id CanonicalIdentity
	err := row.Scan(
		&id.CanonicalID,
		&id.CanonicalName,
		&id.NameAliases,
		&id.ExternalUserIDs,
		&id.Email,
		&id.TotalAppearances,
		&id.FirstSeenDate,
		&id.IsNoteTaker,
		&id.MergedFrom,
		&id.CreatedAt,
		&id.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, funnelerrors.ErrNotFound
		}
		return nil, fmt.Errorf("scanning identity: %w", err)
	}
	return &id, nil
}

// GetIdentity retrieves an identity by ID.
func (s *PostgresStore) GetIdentity(ctx context.Context, canonicalID string) (*CanonicalIdentity, error) {
	query := `SELECT` + identityColumns + ` FROM identities WHERE canonical_id = $1`
	return scanIdentity(s.db.QueryRow(ctx, query, canonicalID))
}

// ListIdentities returns all identities sorted by canonical name.
func (s *PostgresStore) ListIdentities(ctx context.Context) ([]*CanonicalIdentity, error) {
	query := `SELECT` + identityColumns + ` FROM identities ORDER BY canonical_name`
	return s.queryIdentities(ctx, query)
}

// ListByAlias returns identities whose canonical name or alias set contains
// the normalized name.
func (s *PostgresStore) ListByAlias(ctx context.Context, alias string) ([]*CanonicalIdentity, error) {
	query := `SELECT` + identityColumns + ` FROM identities WHERE LOWER(canonical_name) = $1 OR $2 = ANY(name_aliases)`
	return s.queryIdentities(ctx, query, names.Normalize(alias), alias)
}

func (s *PostgresStore) queryIdentities(ctx context.Context, query string, args ...any) ([]*CanonicalIdentity, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}
	defer rows.Close()

	var out []*CanonicalIdentity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpsertIdentity inserts or replaces an identity by canonical ID.
func (s *PostgresStore) UpsertIdentity(ctx context.Context, id *CanonicalIdentity) error {
	return s.upsertIdentityTx(ctx, s.db, id)
}

// pgxExecutor is satisfied by both *pgxpool.Pool and pgx.Tx, so the upsert
// and log writers work standalone or inside Apply's transaction.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) upsertIdentityTx(ctx context.Context, tx pgxExecutor, id *CanonicalIdentity) error {
	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (canonical_id)
		DO UPDATE SET
			canonical_name = EXCLUDED.canonical_name,
			name_aliases = EXCLUDED.name_aliases,
			external_user_ids = EXCLUDED.external_user_ids,
			email = EXCLUDED.email,
			total_appearances = EXCLUDED.total_appearances,
			first_seen_date = EXCLUDED.first_seen_date,
			is_note_taker = EXCLUDED.is_note_taker,
			merged_from = EXCLUDED.merged_from,
			updated_at = NOW()
	`
	_, err := tx.Exec(ctx, query,
		id.CanonicalID,
		id.CanonicalName,
		id.NameAliases,
		id.ExternalUserIDs,
		id.Email,
		id.TotalAppearances,
		id.FirstSeenDate,
		id.IsNoteTaker,
		id.MergedFrom,
	)
	if err != nil {
		return fmt.Errorf("upserting identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes an identity.
func (s *PostgresStore) DeleteIdentity(ctx context.Context, canonicalID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM identities WHERE canonical_id = $1`, canonicalID)
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return funnelerrors.ErrNotFound
	}
	return nil
}

// AppendLog appends an audit log entry.
func (s *PostgresStore) AppendLog(ctx context.Context, entry MergeLogEntry) error {
	return s.appendLogTx(ctx, s.db, entry)
}

func (s *PostgresStore) appendLogTx(ctx context.Context, tx pgxExecutor, entry MergeLogEntry) error {
	query := `
		INSERT INTO merge_log (action, source_name, target_canonical_id, target_canonical_name, confidence, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.Exec(ctx, query,
		string(entry.Action),
		entry.SourceName,
		entry.TargetCanonicalID,
		entry.TargetCanonicalName,
		entry.Confidence,
		entry.Reason,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("appending merge log: %w", err)
	}
	return nil
}

// ListLog returns the newest limit log entries, oldest first (all when
// limit <= 0).
func (s *PostgresStore) ListLog(ctx context.Context, limit int) ([]MergeLogEntry, error) {
	query := `
		SELECT action, source_name, target_canonical_id, target_canonical_name, confidence, reason, created_at
		FROM merge_log ORDER BY id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing merge log: %w", err)
	}
	defer rows.Close()

	var entries []MergeLogEntry
	for rows.Next() {
		var e MergeLogEntry
		var action string
		if err := rows.Scan(&action, &e.SourceName, &e.TargetCanonicalID, &e.TargetCanonicalName, &e.Confidence, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning merge log: %w", err)
		}
		e.Action = LogAction(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-last, matching the in-memory store.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// CreateCase stores a new review case.
func (s *PostgresStore) CreateCase(ctx context.Context, c PendingReviewCase) error {
	return s.createCaseTx(ctx, s.db, c)
}

func (s *PostgresStore) createCaseTx(ctx context.Context, tx pgxExecutor, c PendingReviewCase) error {
	query := `
		INSERT INTO pending_cases (case_id, candidate_a, candidate_b, confidence, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (case_id) DO NOTHING
	`
	tag, err := tx.Exec(ctx, query,
		c.CaseID, c.CandidateA, c.CandidateB, c.Confidence, c.Reason, string(c.Status), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating review case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return funnelerrors.ErrAlreadyExists
	}
	return nil
}

// GetCase retrieves a review case by ID.
func (s *PostgresStore) GetCase(ctx context.Context, caseID string) (*PendingReviewCase, error) {
	query := `
		SELECT case_id, candidate_a, candidate_b, confidence, reason, status, created_at, resolved_at
		FROM pending_cases WHERE case_id = $1
	`
	var c PendingReviewCase
	var status string
	err := s.db.QueryRow(ctx, query, caseID).Scan(
		&c.CaseID, &c.CandidateA, &c.CandidateB, &c.Confidence, &c.Reason, &status, &c.CreatedAt, &c.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, funnelerrors.ErrNotFound
		}
		return nil, fmt.Errorf("getting review case: %w", err)
	}
	c.Status = CaseStatus(status)
	return &c, nil
}

// UpdateCase replaces a review case.
func (s *PostgresStore) UpdateCase(ctx context.Context, c PendingReviewCase) error {
	query := `
		UPDATE pending_cases
		SET confidence = $2, reason = $3, status = $4, resolved_at = $5
		WHERE case_id = $1
	`
	tag, err := s.db.Exec(ctx, query, c.CaseID, c.Confidence, c.Reason, string(c.Status), c.ResolvedAt)
	if err != nil {
		return fmt.Errorf("updating review case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return funnelerrors.ErrNotFound
	}
	return nil
}

// ListPendingCases returns non-terminal cases, oldest first.
func (s *PostgresStore) ListPendingCases(ctx context.Context) ([]PendingReviewCase, error) {
	query := `
		SELECT case_id, candidate_a, candidate_b, confidence, reason, status, created_at, resolved_at
		FROM pending_cases WHERE status = 'pending' ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing review cases: %w", err)
	}
	defer rows.Close()

	var cases []PendingReviewCase
	for rows.Next() {
		var c PendingReviewCase
		var status string
		if err := rows.Scan(&c.CaseID, &c.CandidateA, &c.CandidateB, &c.Confidence, &c.Reason, &status, &c.CreatedAt, &c.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scanning review case: %w", err)
		}
		c.Status = CaseStatus(status)
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// ListBlocklist returns all blocklist entries.
func (s *PostgresStore) ListBlocklist(ctx context.Context) ([]BlocklistEntry, error) {
	rows, err := s.db.Query(ctx, `SELECT name_pattern, external_user_id, added_by FROM blocklist ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing blocklist: %w", err)
	}
	defer rows.Close()

	var entries []BlocklistEntry
	for rows.Next() {
		var b BlocklistEntry
		if err := rows.Scan(&b.NamePattern, &b.ExternalUserID, &b.AddedBy); err != nil {
			return nil, fmt.Errorf("scanning blocklist: %w", err)
		}
		entries = append(entries, b)
	}
	return entries, rows.Err()
}

// AddBlocklistEntry records a blocklist entry.
func (s *PostgresStore) AddBlocklistEntry(ctx context.Context, b BlocklistEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO blocklist (name_pattern, external_user_id, added_by) VALUES ($1, $2, $3)`,
		b.NamePattern, b.ExternalUserID, b.AddedBy)
	if err != nil {
		return fmt.Errorf("adding blocklist entry: %w", err)
	}
	return nil
}

// RemapAttendance repoints attendance rows from one identity to another.
func (s *PostgresStore) RemapAttendance(ctx context.Context, fromID, toID string) error {
	return s.remapAttendanceTx(ctx, s.db, fromID, toID)
}

func (s *PostgresStore) remapAttendanceTx(ctx context.Context, tx pgxExecutor, fromID, toID string) error {
	query := `
		UPDATE attendance SET canonical_id = $2
		WHERE canonical_id = $1
		AND NOT EXISTS (
			SELECT 1 FROM attendance b
			WHERE b.session_id = attendance.session_id
			AND b.date_key = attendance.date_key
			AND b.canonical_id = $2
		)
	`
	if _, err := tx.Exec(ctx, query, fromID, toID); err != nil {
		return fmt.Errorf("remapping attendance: %w", err)
	}
	// Rows both identities attended collapse into the target's existing row.
	if _, err := tx.Exec(ctx, `DELETE FROM attendance WHERE canonical_id = $1`, fromID); err != nil {
		return fmt.Errorf("removing absorbed attendance: %w", err)
	}
	return nil
}

// RecordAttendance upserts one attendance row.
func (s *PostgresStore) RecordAttendance(ctx context.Context, sessionID, dateKey, canonicalID, groupLabel string) error {
	query := `
		INSERT INTO attendance (session_id, date_key, canonical_id, group_label)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, date_key, canonical_id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, sessionID, dateKey, canonicalID, groupLabel); err != nil {
		return fmt.Errorf("recording attendance: %w", err)
	}
	return nil
}

// Snapshot materializes the store for the engine.
func (s *PostgresStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	identities, err := s.queryIdentities(ctx, `SELECT`+identityColumns+` FROM identities ORDER BY canonical_id`)
	if err != nil {
		return nil, err
	}
	blocklist, err := s.ListBlocklist(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.ListPendingCases(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Identities: identities, Blocklist: blocklist, Pending: pending}, nil
}

// Apply persists a mutation batch inside one transaction, so a partially
// applied merge can never be observed.
func (s *PostgresStore) Apply(ctx context.Context, muts []Mutation) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint: errcheck

	for _, mut := range muts {
		switch mut.Kind {
		case MutationUpsertIdentity:
			err = s.upsertIdentityTx(ctx, tx, mut.Identity)
		case MutationDeleteIdentity:
			_, err = tx.Exec(ctx, `DELETE FROM identities WHERE canonical_id = $1`, mut.DeleteID)
		case MutationAppendLog:
			err = s.appendLogTx(ctx, tx, *mut.Log)
		case MutationCreateCase:
			err = s.createCaseTx(ctx, tx, *mut.Case)
		case MutationRemapAttendance:
			err = s.remapAttendanceTx(ctx, tx, mut.RemapFromID, mut.RemapToID)
		default:
			err = fmt.Errorf("unknown mutation kind %q: %w", mut.Kind, funnelerrors.ErrValidation)
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing mutations: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)

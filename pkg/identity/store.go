package identity

import (
	"context"
	"sort"
	"strings"
	"sync"

	funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
	"github.com/otherjamesbrown/funnel-cli/pkg/names"
)

// Store is the identity repository the engine's mutations are applied to.
// The Postgres implementation lives in postgres.go; MemoryStore backs tests
// and pure pipeline runs.
type Store interface {
	GetIdentity(ctx context.Context, canonicalID string) (*CanonicalIdentity, error)
	ListIdentities(ctx context.Context) ([]*CanonicalIdentity, error)
	ListByAlias(ctx context.Context, alias string) ([]*CanonicalIdentity, error)
	UpsertIdentity(ctx context.Context, id *CanonicalIdentity) error
	DeleteIdentity(ctx context.Context, canonicalID string) error

	AppendLog(ctx context.Context, entry MergeLogEntry) error
	ListLog(ctx context.Context, limit int) ([]MergeLogEntry, error)

	CreateCase(ctx context.Context, c PendingReviewCase) error
	GetCase(ctx context.Context, caseID string) (*PendingReviewCase, error)
	UpdateCase(ctx context.Context, c PendingReviewCase) error
	ListPendingCases(ctx context.Context) ([]PendingReviewCase, error)

	ListBlocklist(ctx context.Context) ([]BlocklistEntry, error)
	AddBlocklistEntry(ctx context.Context, b BlocklistEntry) error

	// RemapAttendance repoints attendance rows from one identity to another,
	// as part of a merge transaction.
	RemapAttendance(ctx context.Context, fromID, toID string) error

	// Snapshot materializes the store for the engine.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Apply persists a batch of engine mutations as one atomic unit.
	Apply(ctx context.Context, muts []Mutation) error
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[string]*CanonicalIdentity
	log        []MergeLogEntry
	cases      map[string]PendingReviewCase
	blocklist  []BlocklistEntry
	attendance map[string][]string // canonicalID → session IDs
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]*CanonicalIdentity),
		cases:      make(map[string]PendingReviewCase),
		attendance: make(map[string][]string),
	}
}

// GetIdentity returns the identity or ErrNotFound.
func (m *MemoryStore) GetIdentity(ctx context.Context, canonicalID string) (*CanonicalIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.identities[canonicalID]
	if !ok {
		return nil, funnelerrors.ErrNotFound
	}
	cp := *id
	return &cp, nil
}

// ListIdentities returns all identities sorted by canonical name.
func (m *MemoryStore) ListIdentities(ctx context.Context) ([]*CanonicalIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*CanonicalIdentity, 0, len(m.identities))
	for _, id := range m.identities {
		cp := *id
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CanonicalName < out[j].CanonicalName
	})
	return out, nil
}

// ListByAlias returns identities carrying the alias (normalized comparison).
func (m *MemoryStore) ListByAlias(ctx context.Context, alias string) ([]*CanonicalIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := names.Normalize(alias)
	var out []*CanonicalIdentity
	for _, id := range m.identities {
		if names.Normalize(id.CanonicalName) == key || id.HasAlias(alias) {
			cp := *id
			out = append(out, &cp)
		}
	}
	return out, nil
}

// UpsertIdentity inserts or replaces an identity.
func (m *MemoryStore) UpsertIdentity(ctx context.Context, id *CanonicalIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *id
	m.identities[id.CanonicalID] = &cp
	return nil
}

// DeleteIdentity removes an identity.
func (m *MemoryStore) DeleteIdentity(ctx context.Context, canonicalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[canonicalID]; !ok {
		return funnelerrors.ErrNotFound
	}
	delete(m.identities, canonicalID)
	return nil
}

// AppendLog appends to the audit trail.
func (m *MemoryStore) AppendLog(ctx context.Context, entry MergeLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, entry)
	return nil
}

// ListLog returns the newest limit entries (all when limit <= 0).
func (m *MemoryStore) ListLog(ctx context.Context, limit int) ([]MergeLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]MergeLogEntry(nil), m.log...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// CreateCase stores a new review case.
func (m *MemoryStore) CreateCase(ctx context.Context, c PendingReviewCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.CaseID]; ok {
		return funnelerrors.ErrAlreadyExists
	}
	m.cases[c.CaseID] = c
	return nil
}

// GetCase returns a review case or ErrNotFound.
func (m *MemoryStore) GetCase(ctx context.Context, caseID string) (*PendingReviewCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[caseID]
	if !ok {
		return nil, funnelerrors.ErrNotFound
	}
	return &c, nil
}

// UpdateCase replaces a review case.
func (m *MemoryStore) UpdateCase(ctx context.Context, c PendingReviewCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[c.CaseID]; !ok {
		return funnelerrors.ErrNotFound
	}
	m.cases[c.CaseID] = c
	return nil
}

// ListPendingCases returns non-terminal cases sorted by creation time.
func (m *MemoryStore) ListPendingCases(ctx context.Context) ([]PendingReviewCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PendingReviewCase
	for _, c := range m.cases {
		if !c.Status.Terminal() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListBlocklist returns all blocklist entries.
func (m *MemoryStore) ListBlocklist(ctx context.Context) ([]BlocklistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]BlocklistEntry(nil), m.blocklist...), nil
}

// AddBlocklistEntry records a blocklist entry.
func (m *MemoryStore) AddBlocklistEntry(ctx context.Context, b BlocklistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocklist = append(m.blocklist, b)
	return nil
}

// RecordAttendance associates a session with an identity. Test helper used
// to verify merge remapping.
func (m *MemoryStore) RecordAttendance(canonicalID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[canonicalID] = append(m.attendance[canonicalID], sessionID)
}

// AttendanceFor returns the session IDs attributed to an identity.
func (m *MemoryStore) AttendanceFor(canonicalID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.attendance[canonicalID]...)
}

// RemapAttendance moves attendance rows from one identity to another.
func (m *MemoryStore) RemapAttendance(ctx context.Context, fromID, toID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rows, ok := m.attendance[fromID]; ok {
		m.attendance[toID] = append(m.attendance[toID], rows...)
		delete(m.attendance, fromID)
	}
	return nil
}

// Snapshot materializes the store for the engine.
func (m *MemoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &Snapshot{
		Blocklist: append([]BlocklistEntry(nil), m.blocklist...),
	}
	for _, id := range m.identities {
		cp := *id
		snap.Identities = append(snap.Identities, &cp)
	}
	sort.Slice(snap.Identities, func(i, j int) bool {
		return snap.Identities[i].CanonicalID < snap.Identities[j].CanonicalID
	})
	for _, c := range m.cases {
		snap.Pending = append(snap.Pending, c)
	}
	return snap, nil
}

// Apply persists a mutation batch. The memory store applies sequentially
// under one lock, which gives the batch the required all-or-nothing shape
// since none of the individual applications can fail except case conflicts.
func (m *MemoryStore) Apply(ctx context.Context, muts []Mutation) error {
	for _, mut := range muts {
		var err error
		switch mut.Kind {
		case MutationUpsertIdentity:
			err = m.UpsertIdentity(ctx, mut.Identity)
		case MutationDeleteIdentity:
			err = m.DeleteIdentity(ctx, mut.DeleteID)
		case MutationAppendLog:
			err = m.AppendLog(ctx, *mut.Log)
		case MutationCreateCase:
			err = m.CreateCase(ctx, *mut.Case)
		case MutationRemapAttendance:
			err = m.RemapAttendance(ctx, mut.RemapFromID, mut.RemapToID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// matchesQuery is a small helper for CLI listing.
func matchesQuery(id *CanonicalIdentity, query string) bool {
	if query == "" {
		return true
	}
	q := names.Normalize(query)
	if strings.Contains(names.Normalize(id.CanonicalName), q) {
		return true
	}
	for _, a := range id.NameAliases {
		if strings.Contains(names.Normalize(a), q) {
			return true
		}
	}
	return false
}

var _ Store = (*MemoryStore)(nil)

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

func seedIdentity(t *testing.T, store *MemoryStore, id, name string, appearances int, aliases ...string) *CanonicalIdentity {
	t.Helper()
	ident := &CanonicalIdentity{
		CanonicalID:      id,
		CanonicalName:    name,
		NameAliases:      append([]string{name}, aliases...),
		TotalAppearances: appearances,
		FirstSeenDate:    "2025-05-01",
	}
	require.NoError(t, store.UpsertIdentity(context.Background(), ident))
	return ident
}

func TestMergeConservation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())

	seedIdentity(t, store, "a", "Emil Bakiyev", 7, "Emil")
	seedIdentity(t, store, "b", "Emile Bakiyev", 3, "E. Bakiyev")
	store.RecordAttendance("b", "session-1")
	store.RecordAttendance("b", "session-2")

	merged, err := svc.Merge(ctx, "a", "b", "operator decision")
	require.NoError(t, err)

	// Appearance count is conserved, aliases are unioned, B is gone.
	assert.Equal(t, 10, merged.TotalAppearances)
	assert.True(t, merged.HasAlias("Emile Bakiyev"))
	assert.True(t, merged.HasAlias("E. Bakiyev"))
	assert.True(t, merged.HasAlias("Emil"))
	assert.Contains(t, merged.MergedFrom, "b")

	_, err = store.GetIdentity(ctx, "b")
	assert.True(t, funnelerrors.IsNotFound(err))

	// Attendance remapped to A.
	assert.ElementsMatch(t, []string{"session-1", "session-2"}, store.AttendanceFor("a"))
	assert.Empty(t, store.AttendanceFor("b"))

	// A manual_merge entry lands in the audit trail.
	log, err := store.ListLog(ctx, 0)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, ActionManualMerge, log[0].Action)
	assert.Equal(t, "a", log[0].TargetCanonicalID)
}

// batchRecordingStore counts Apply batches and standalone RemapAttendance
// calls so tests can assert a merge lands as one atomic unit.
type batchRecordingStore struct {
	*MemoryStore
	applyBatches [][]Mutation
	remapCalls   int
}

func (s *batchRecordingStore) Apply(ctx context.Context, muts []Mutation) error {
	s.applyBatches = append(s.applyBatches, muts)
	return s.MemoryStore.Apply(ctx, muts)
}

func (s *batchRecordingStore) RemapAttendance(ctx context.Context, fromID, toID string) error {
	s.remapCalls++
	return s.MemoryStore.RemapAttendance(ctx, fromID, toID)
}

func TestMergeAppliesAsSingleBatch(t *testing.T) {
	ctx := context.Background()
	store := &batchRecordingStore{MemoryStore: NewMemoryStore()}
	svc := NewService(store, logging.NewNopLogger())

	seedIdentity(t, store.MemoryStore, "a", "Emil Bakiyev", 7)
	seedIdentity(t, store.MemoryStore, "b", "Emile Bakiyev", 3)
	store.MemoryStore.RecordAttendance("b", "session-1")

	_, err := svc.Merge(ctx, "a", "b", "operator decision")
	require.NoError(t, err)

	// Everything a merge does, attendance remap included, arrives in one
	// Apply batch; no store write happens outside it.
	require.Len(t, store.applyBatches, 1)
	assert.Equal(t, 0, store.remapCalls)

	kinds := make([]MutationKind, 0, len(store.applyBatches[0]))
	for _, mut := range store.applyBatches[0] {
		kinds = append(kinds, mut.Kind)
	}
	assert.Contains(t, kinds, MutationUpsertIdentity)
	assert.Contains(t, kinds, MutationRemapAttendance)
	assert.Contains(t, kinds, MutationDeleteIdentity)
	assert.Contains(t, kinds, MutationAppendLog)

	assert.ElementsMatch(t, []string{"session-1"}, store.AttendanceFor("a"))
}

func TestMergeSelfRejected(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())
	seedIdentity(t, store, "a", "Emil Bakiyev", 1)

	_, err := svc.Merge(context.Background(), "a", "a", "oops")
	assert.True(t, funnelerrors.IsValidation(err))
}

func TestMergeMissingSource(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())
	seedIdentity(t, store, "a", "Emil Bakiyev", 1)

	_, err := svc.Merge(context.Background(), "a", "ghost", "")
	assert.True(t, funnelerrors.IsNotFound(err))
}

func TestRenameKeepsAliases(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())
	seedIdentity(t, store, "a", "Emil Bakiyev", 5, "Emil")

	renamed, err := svc.Rename(ctx, "a", "Emil E. Bakiyev")
	require.NoError(t, err)

	assert.Equal(t, "Emil E. Bakiyev", renamed.CanonicalName)
	assert.True(t, renamed.HasAlias("Emil"))
	assert.True(t, renamed.HasAlias("Emil Bakiyev"))
	assert.Equal(t, 5, renamed.TotalAppearances)

	log, _ := store.ListLog(ctx, 0)
	require.Len(t, log, 1)
	assert.Equal(t, ActionNameOverride, log[0].Action)
}

func TestResolveCaseMerge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())

	seedIdentity(t, store, "a", "John Smith", 4)
	seedIdentity(t, store, "b", "Jon Smith", 2)
	require.NoError(t, store.CreateCase(ctx, PendingReviewCase{
		CaseID:     "case-1",
		CandidateA: "a",
		CandidateB: "b",
		Confidence: 88,
		Status:     CaseStatusPending,
		CreatedAt:  time.Now(),
	}))

	require.NoError(t, svc.ResolveCase(ctx, "case-1", ResolveMerge))

	c, err := store.GetCase(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(t, CaseStatusMerged, c.Status)
	assert.NotNil(t, c.ResolvedAt)

	a, err := store.GetIdentity(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 6, a.TotalAppearances)

	_, err = store.GetIdentity(ctx, "b")
	assert.True(t, funnelerrors.IsNotFound(err))
}

func TestResolveCaseKeepSeparate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())

	seedIdentity(t, store, "a", "John Smith", 4)
	seedIdentity(t, store, "b", "Jon Smith", 2)
	require.NoError(t, store.CreateCase(ctx, PendingReviewCase{
		CaseID: "case-1", CandidateA: "a", CandidateB: "b",
		Status: CaseStatusPending, CreatedAt: time.Now(),
	}))

	require.NoError(t, svc.ResolveCase(ctx, "case-1", ResolveKeepSeparate))

	// No data changes; both identities intact.
	a, _ := store.GetIdentity(ctx, "a")
	b, _ := store.GetIdentity(ctx, "b")
	assert.Equal(t, 4, a.TotalAppearances)
	assert.Equal(t, 2, b.TotalAppearances)

	c, _ := store.GetCase(ctx, "case-1")
	assert.Equal(t, CaseStatusKeptSeparate, c.Status)
}

func TestResolveCaseMarkNotetaker(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())

	seedIdentity(t, store, "a", "John Smith", 4)
	seedIdentity(t, store, "b", "Meeting Assistant", 2)
	require.NoError(t, store.CreateCase(ctx, PendingReviewCase{
		CaseID: "case-1", CandidateA: "a", CandidateB: "b",
		Status: CaseStatusPending, CreatedAt: time.Now(),
	}))

	require.NoError(t, svc.ResolveCase(ctx, "case-1", ResolveMarkNotetaker))

	b, err := store.GetIdentity(ctx, "b")
	require.NoError(t, err)
	assert.True(t, b.IsNoteTaker)

	c, _ := store.GetCase(ctx, "case-1")
	assert.Equal(t, CaseStatusMarkedNotetaker, c.Status)
}

func TestResolveCaseTerminalNotReopened(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())

	seedIdentity(t, store, "a", "John Smith", 4)
	seedIdentity(t, store, "b", "Jon Smith", 2)
	require.NoError(t, store.CreateCase(ctx, PendingReviewCase{
		CaseID: "case-1", CandidateA: "a", CandidateB: "b",
		Status: CaseStatusKeptSeparate, CreatedAt: time.Now(),
	}))

	err := svc.ResolveCase(ctx, "case-1", ResolveMerge)
	assert.True(t, funnelerrors.IsInvalidState(err))
}

func TestSearchByAlias(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, logging.NewNopLogger())

	seedIdentity(t, store, "a", "Emil Bakiyev", 1, "Emil")
	seedIdentity(t, store, "b", "Lori Smith", 1)

	got, err := svc.Search(ctx, "emil")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Emil Bakiyev", got[0].CanonicalName)

	all, err := svc.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

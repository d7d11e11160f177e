package identity

import (
	"context"
	"fmt"
	"time"

	funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

// Service wraps a Store with the operator-facing identity operations:
// manual merge, name override, and review-case resolution. Each operation
// is applied as a single unit; a merge that fails partway is not complete.
type Service struct {
	store  Store
	logger logging.Logger
	now    func() time.Time
}

// NewService creates an identity service over the given store.
func NewService(store Store, logger logging.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With(logging.F("component", "identity_service")),
		now:    time.Now,
	}
}

// CaseResolution is an operator's decision on a pending review case.
type CaseResolution string

const (
	ResolveMerge         CaseResolution = "merge"
	ResolveKeepSeparate  CaseResolution = "keep_separate"
	ResolveMarkNotetaker CaseResolution = "mark_notetaker"
)

// Merge folds identity sourceID into identity targetID: the alias set and
// external-ID set are unioned, appearance counts are summed (conserved),
// attendance rows are remapped, the source record is deleted, and a
// manual_merge log entry is appended.
func (s *Service) Merge(ctx context.Context, targetID, sourceID, reason string) (*CanonicalIdentity, error) {
	if targetID == sourceID {
		return nil, fmt.Errorf("%w: cannot merge an identity into itself", funnelerrors.ErrValidation)
	}

	target, err := s.store.GetIdentity(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("load merge target: %w", err)
	}
	source, err := s.store.GetIdentity(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load merge source: %w", err)
	}

	target.TotalAppearances += source.TotalAppearances
	target.AddAlias(source.CanonicalName)
	for _, a := range source.NameAliases {
		target.AddAlias(a)
	}
	for _, e := range source.ExternalUserIDs {
		target.AddExternalID(e)
	}
	if target.Email == "" {
		target.Email = source.Email
	}
	if target.FirstSeenDate == "" ||
		(source.FirstSeenDate != "" && source.FirstSeenDate < target.FirstSeenDate) {
		target.FirstSeenDate = source.FirstSeenDate
	}
	target.MergedFrom = append(target.MergedFrom, source.CanonicalID)
	target.UpdatedAt = s.now()

	muts := []Mutation{
		{Kind: MutationUpsertIdentity, Identity: target},
		{Kind: MutationRemapAttendance, RemapFromID: source.CanonicalID, RemapToID: target.CanonicalID},
		{Kind: MutationDeleteIdentity, DeleteID: source.CanonicalID},
		{Kind: MutationAppendLog, Log: &MergeLogEntry{
			Action:              ActionManualMerge,
			SourceName:          source.CanonicalName,
			TargetCanonicalID:   target.CanonicalID,
			TargetCanonicalName: target.CanonicalName,
			Confidence:          100,
			Reason:              reason,
			Timestamp:           s.now(),
		}},
	}

	if err := s.store.Apply(ctx, muts); err != nil {
		return nil, fmt.Errorf("apply merge: %w", err)
	}

	s.logger.Info("Merged identities",
		logging.F("source", source.CanonicalName),
		logging.F("target", target.CanonicalName),
		logging.F("appearances", target.TotalAppearances))

	return target, nil
}

// Rename overrides an identity's canonical name without touching the alias
// set, and logs name_override.
func (s *Service) Rename(ctx context.Context, canonicalID, newName string) (*CanonicalIdentity, error) {
	if newName == "" {
		return nil, fmt.Errorf("%w: new name must not be empty", funnelerrors.ErrValidation)
	}

	id, err := s.store.GetIdentity(ctx, canonicalID)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	oldName := id.CanonicalName
	id.CanonicalName = newName
	id.UpdatedAt = s.now()

	muts := []Mutation{
		{Kind: MutationUpsertIdentity, Identity: id},
		{Kind: MutationAppendLog, Log: &MergeLogEntry{
			Action:              ActionNameOverride,
			SourceName:          oldName,
			TargetCanonicalID:   id.CanonicalID,
			TargetCanonicalName: newName,
			Confidence:          100,
			Reason:              fmt.Sprintf("renamed from %q", oldName),
			Timestamp:           s.now(),
		}},
	}
	if err := s.store.Apply(ctx, muts); err != nil {
		return nil, fmt.Errorf("apply rename: %w", err)
	}

	return id, nil
}

// ResolveCase applies an operator decision to a pending review case.
// Terminal cases are never re-opened; resolving one is an error.
func (s *Service) ResolveCase(ctx context.Context, caseID string, resolution CaseResolution) error {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return fmt.Errorf("load case: %w", err)
	}
	if c.Status.Terminal() {
		return fmt.Errorf("%w: case %s already resolved as %s",
			funnelerrors.ErrInvalidState, caseID, c.Status)
	}

	switch resolution {
	case ResolveMerge:
		if _, err := s.Merge(ctx, c.CandidateA, c.CandidateB, "review case "+caseID); err != nil {
			return err
		}
		c.Status = CaseStatusMerged

	case ResolveKeepSeparate:
		// No data changes. Future sightings may open a new case if the
		// similarity persists; that is accepted.
		c.Status = CaseStatusKeptSeparate

	case ResolveMarkNotetaker:
		if err := s.MarkNoteTaker(ctx, c.CandidateB); err != nil {
			return err
		}
		c.Status = CaseStatusMarkedNotetaker

	default:
		return fmt.Errorf("%w: unknown resolution %q", funnelerrors.ErrValidation, resolution)
	}

	now := s.now()
	c.ResolvedAt = &now
	if err := s.store.UpdateCase(ctx, *c); err != nil {
		return fmt.Errorf("update case: %w", err)
	}

	s.logger.Info("Resolved review case",
		logging.F("case_id", caseID),
		logging.F("resolution", string(resolution)))

	return nil
}

// MarkNoteTaker flags an identity as a note-taker. The record is retained
// for audit but excluded from all attendance counts going forward.
func (s *Service) MarkNoteTaker(ctx context.Context, canonicalID string) error {
	id, err := s.store.GetIdentity(ctx, canonicalID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	id.IsNoteTaker = true
	id.UpdatedAt = s.now()

	muts := []Mutation{
		{Kind: MutationUpsertIdentity, Identity: id},
		{Kind: MutationAppendLog, Log: &MergeLogEntry{
			Action:              ActionNoteTakerRemoved,
			SourceName:          id.CanonicalName,
			TargetCanonicalID:   id.CanonicalID,
			TargetCanonicalName: id.CanonicalName,
			Confidence:          100,
			Reason:              "marked as note-taker",
			Timestamp:           s.now(),
		}},
	}
	return s.store.Apply(ctx, muts)
}

// Search returns identities whose canonical name or aliases contain the
// query (normalized). An empty query returns everything.
func (s *Service) Search(ctx context.Context, query string) ([]*CanonicalIdentity, error) {
	all, err := s.store.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	var out []*CanonicalIdentity
	for _, id := range all {
		if matchesQuery(id, query) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Package pipeline ties the roster, identity, and attribution layers
// together: raw session rosters are deduplicated, resolved against the
// identity store, and aggregated into the daily show-up rows the attribution
// engine consumes.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	"github.com/otherjamesbrown/funnel-cli/pkg/identity"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
	"github.com/otherjamesbrown/funnel-cli/pkg/names"
	"github.com/otherjamesbrown/funnel-cli/pkg/observability"
	"github.com/otherjamesbrown/funnel-cli/pkg/roster"
)

// CasePublisher receives pending-review mutations as they are created, on
// top of their persistence in the store. Publishing is best effort.
type CasePublisher interface {
	PublishMutations(ctx context.Context, muts []identity.Mutation) error
}

// attendanceRecorder is implemented by stores that keep per-session
// attendance rows.
type attendanceRecorder interface {
	RecordAttendance(ctx context.Context, sessionID, dateKey, canonicalID, groupLabel string) error
}

// Resolver runs session rosters through identity resolution.
type Resolver struct {
	deduper   *roster.Deduper
	engine    *identity.Engine
	store     identity.Store
	aliases   names.AliasMap
	logger    logging.Logger
	metrics   *observability.Metrics
	publisher CasePublisher
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithAliases sets the alias map applied during canonicalization.
func WithAliases(aliases names.AliasMap) ResolverOption {
	return func(r *Resolver) { r.aliases = aliases }
}

// WithMetrics attaches resolution metrics.
func WithMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithCasePublisher forwards new pending-review cases to a queue.
func WithCasePublisher(p CasePublisher) ResolverOption {
	return func(r *Resolver) { r.publisher = p }
}

// NewResolver creates a pipeline resolver.
func NewResolver(deduper *roster.Deduper, engine *identity.Engine, store identity.Store, logger logging.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		deduper: deduper,
		engine:  engine,
		store:   store,
		aliases: names.AliasMap{},
		logger:  logger.With(logging.F("component", "pipeline")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result summarizes one resolution run.
type Result struct {
	Sessions      int                          `json:"sessions"`
	Sightings     int                          `json:"sightings"`
	ShowUpDaily   []attribution.ShowUpDailyRow `json:"show_up_daily"`
	PendingCases  int                          `json:"pending_cases"`
	NewIdentities int                          `json:"new_identities"`
}

// ProcessSessions resolves every session against the identity store and
// returns the daily show-up aggregates. Sessions are processed in
// (date, session id) order so earlier sightings shape later decisions
// deterministically. Each sighting's mutations are applied as one batch.
func (r *Resolver) ProcessSessions(ctx context.Context, sessions []roster.SessionRecord) (*Result, error) {
	ordered := append([]roster.SessionRecord(nil), sessions...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].DateKey != ordered[j].DateKey {
			return ordered[i].DateKey < ordered[j].DateKey
		}
		return ordered[i].SessionID < ordered[j].SessionID
	})

	snap, err := r.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("materializing identity snapshot: %w", err)
	}

	type dayKey struct {
		dateKey string
		funnel  attribution.Funnel
	}
	type dayAgg struct {
		attendees map[string]bool
		newOnes   map[string]bool
		sessions  int
	}
	days := map[dayKey]*dayAgg{}
	result := &Result{}

	for _, session := range ordered {
		attendees := r.deduper.DedupeDetailed(session.RawParticipants, r.aliases)
		funnel := funnelForGroup(session.GroupLabel)

		key := dayKey{dateKey: session.DateKey, funnel: funnel}
		agg := days[key]
		if agg == nil {
			agg = &dayAgg{attendees: map[string]bool{}, newOnes: map[string]bool{}}
			days[key] = agg
		}
		agg.sessions++
		result.Sessions++

		for _, attendee := range attendees {
			sighting := identity.Sighting{
				SessionID:     session.SessionID,
				DateKey:       session.DateKey,
				CanonicalName: attendee.CanonicalName,
				Email:         attendee.Email,
			}
			result.Sightings++

			muts := r.engine.Observe(snap, sighting)
			if err := r.store.Apply(ctx, muts); err != nil {
				return nil, fmt.Errorf("applying mutations for session %s: %w", session.SessionID, err)
			}
			r.countMutations(muts, result)

			if r.publisher != nil {
				if err := r.publisher.PublishMutations(ctx, muts); err != nil {
					r.logger.Warn("Publishing review cases failed", logging.Err(err))
				}
			}

			resolved := findByName(snap, attendee.CanonicalName)
			if resolved == nil || resolved.IsNoteTaker {
				continue
			}

			if rec, ok := r.store.(attendanceRecorder); ok {
				if err := rec.RecordAttendance(ctx, session.SessionID, session.DateKey, resolved.CanonicalID, session.GroupLabel); err != nil {
					return nil, fmt.Errorf("recording attendance for session %s: %w", session.SessionID, err)
				}
			}

			agg.attendees[resolved.CanonicalID] = true
			if resolved.FirstSeenDate == session.DateKey {
				agg.newOnes[resolved.CanonicalID] = true
			}
		}
	}

	rows := make([]attribution.ShowUpDailyRow, 0, len(days))
	for key, agg := range days {
		rows = append(rows, attribution.ShowUpDailyRow{
			DateKey:    key.dateKey,
			Funnel:     key.funnel,
			ShowUps:    len(agg.attendees),
			NewShowUps: len(agg.newOnes),
			Sessions:   agg.sessions,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DateKey != rows[j].DateKey {
			return rows[i].DateKey < rows[j].DateKey
		}
		return rows[i].Funnel < rows[j].Funnel
	})
	result.ShowUpDaily = rows

	r.logger.Info("Sessions resolved",
		logging.F("sessions", result.Sessions),
		logging.F("sightings", result.Sightings),
		logging.F("pending_cases", result.PendingCases))
	return result, nil
}

func (r *Resolver) countMutations(muts []identity.Mutation, result *Result) {
	for _, mut := range muts {
		switch mut.Kind {
		case identity.MutationCreateCase:
			result.PendingCases++
			if r.metrics != nil {
				r.metrics.PendingReviewCases.Inc()
			}
		case identity.MutationAppendLog:
			if mut.Log == nil {
				continue
			}
			if mut.Log.Action == identity.ActionNewRecord {
				result.NewIdentities++
			}
			if r.metrics != nil {
				r.metrics.ResolutionsTotal.WithLabelValues(string(mut.Log.Action)).Inc()
				r.metrics.ResolutionConfidence.Observe(float64(mut.Log.Confidence))
			}
		}
	}
}

// findByName locates the identity a sighting resolved to, by canonical name
// or alias. The engine guarantees one exists after Observe unless the
// sighting was blocklisted or empty.
func findByName(snap *identity.Snapshot, name string) *identity.CanonicalIdentity {
	key := names.Normalize(name)
	for _, id := range snap.Identities {
		if names.Normalize(id.CanonicalName) == key || id.HasAlias(name) {
			return id
		}
	}
	return nil
}

// funnelForGroup maps a session's group label to a funnel key. Phoenix
// cohorts carry the program name in the label; everything else is the free
// funnel.
func funnelForGroup(groupLabel string) attribution.Funnel {
	if strings.Contains(strings.ToLower(groupLabel), "phoenix") {
		return attribution.FunnelPhoenix
	}
	return attribution.FunnelFree
}

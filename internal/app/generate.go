package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"social_dining/internal/adapters/observability"
	"social_dining/internal/domain"
)

// Results beyond this are dropped even if the model ignores the limit.
const maxRecommendations = 3

// Columns added by a later migration; older schemas reject them.
var optionalRecommendationColumns = []string{"why_picked", "trade_offs"}

type RecommendationService struct {
	store     domain.RecordStore
	recs      domain.Recommender
	conflicts *ConflictAnalyzer
	cache     domain.Cache
}

func NewRecommendationService(store domain.RecordStore, recs domain.Recommender, conflicts *ConflictAnalyzer, cache domain.Cache) *RecommendationService {
	return &RecommendationService{store: store, recs: recs, conflicts: conflicts, cache: cache}
}

// Generate runs the full pipeline for one session: aggregate preferences,
// analyze conflicts, fetch recommendations and persist the top picks.
func (s *RecommendationService) Generate(ctx context.Context, sessionID string) (domain.GenerateOutcome, error) {
	session, err := loadSession(ctx, s.store, sessionID)
	if err != nil {
		return domain.GenerateOutcome{}, err
	}
	participants, err := loadParticipants(ctx, s.store, sessionID)
	if err != nil {
		return domain.GenerateOutcome{}, err
	}
	if len(participants) == 0 {
		return domain.GenerateOutcome{}, domain.ErrNoParticipants
	}

	prompt := buildPrompt(session.Location, participants)

	analysis := s.conflicts.Analyze(ctx, participants)
	if err := s.store.Update(ctx, domain.TableSessions,
		domain.Record{"conflict_analysis": analysis},
		domain.Record{"id": sessionID}); err != nil {
		// recommendations still load without it
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to save conflict_analysis")
	}

	recs := s.recs.GenerateWithRetry(ctx, prompt)
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}

	saved := 0
	for _, rec := range recs {
		ok, err := s.persist(ctx, sessionID, rec)
		if err != nil {
			// rows already written stay; a retried generate appends a fresh batch
			invalidateSession(ctx, s.cache, sessionID)
			log.Error().Err(err).Str("session_id", sessionID).Int("saved", saved).Msg("store outage during generate")
			return domain.GenerateOutcome{}, fmt.Errorf("persist recommendation %s after %d saved: %w", rec.BusinessID, saved, err)
		}
		if ok {
			saved++
		}
	}

	invalidateSession(ctx, s.cache, sessionID)

	log.Info().Str("session_id", sessionID).
		Int("participants", len(participants)).
		Int("saved", saved).
		Bool("has_conflicts", analysis.HasConflicts).
		Msg("recommendations generated")

	return domain.GenerateOutcome{
		Status:    "completed",
		Message:   "Recommendations generated",
		Saved:     saved,
		Conflicts: analysis,
	}, nil
}

// persist inserts one recommendation. A schema mismatch is retried once
// without the optional AI columns; a second failure drops the record.
func (s *RecommendationService) persist(ctx context.Context, sessionID string, rec domain.Recommendation) (bool, error) {
	row := recommendationRecord(sessionID, rec)
	err := s.store.Insert(ctx, domain.TableRecommendations, row)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, domain.ErrSchemaMismatch) {
		return false, err
	}
	log.Warn().Err(err).Str("business_id", rec.BusinessID).Msg("insert rejected; retrying without AI fields")

	for _, col := range optionalRecommendationColumns {
		delete(row, col)
	}
	if err := s.store.Insert(ctx, domain.TableRecommendations, row); err != nil {
		observability.ObservePersistRetry("dropped")
		log.Error().Err(err).Str("business_id", rec.BusinessID).Msg("recommendation dropped")
		return false, nil
	}
	observability.ObservePersistRetry("ok")
	return true, nil
}

func buildPrompt(location string, participants []domain.Participant) string {
	cuisines, dietary, vibes := aggregatePreferences(participants)

	var b strings.Builder
	fmt.Fprintf(&b, "Find restaurants in %s for a group of %d. ", location, len(participants))
	fmt.Fprintf(&b, "Preferences: %s. ", strings.Join(cuisines, ", "))
	fmt.Fprintf(&b, "Dietary Constraints: %s. ", strings.Join(dietary, ", "))
	fmt.Fprintf(&b, "Vibe: %s. ", strings.Join(vibes, ", "))
	b.WriteString("IMPORTANT: For each restaurant, include a summary starting with 'Why Picked:' explaining why it fits the group " +
		"and 'Trade-offs:' listing any downsides (e.g. distance, price). " +
		"Limit to the top 3 best options.")
	return b.String()
}

// aggregatePreferences returns the distinct non-empty values, sorted.
func aggregatePreferences(participants []domain.Participant) (cuisines, dietary, vibes []string) {
	c, d, v := map[string]struct{}{}, map[string]struct{}{}, map[string]struct{}{}
	for _, p := range participants {
		if p.CuisinePreferences != "" {
			c[p.CuisinePreferences] = struct{}{}
		}
		if p.DietaryRestrictions != "" {
			d[p.DietaryRestrictions] = struct{}{}
		}
		if p.Vibe != "" {
			v[p.Vibe] = struct{}{}
		}
	}
	return sortedKeys(c), sortedKeys(d), sortedKeys(v)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func loadSession(ctx context.Context, store domain.RecordStore, id string) (domain.Session, error) {
	rows, err := store.Select(ctx, domain.TableSessions, domain.Record{"id": id})
	if err != nil {
		return domain.Session{}, err
	}
	if len(rows) == 0 {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return sessionFromRecord(rows[0]), nil
}

func loadParticipants(ctx context.Context, store domain.RecordStore, sessionID string) ([]domain.Participant, error) {
	rows, err := store.Select(ctx, domain.TableParticipants, domain.Record{"session_id": sessionID})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, participantFromRecord(r))
	}
	return out, nil
}

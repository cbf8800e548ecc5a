package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"social_dining/internal/domain"
)

type QueryService struct {
	store    domain.RecordStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(s domain.RecordStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl}
}

func sessionKey(id string) string { return "session:" + id }

// invalidateSession drops the cached view after any write to the session.
func invalidateSession(ctx context.Context, c domain.Cache, id string) {
	if c == nil {
		return
	}
	if err := c.Del(ctx, sessionKey(id)); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("cache invalidation failed")
	}
}

// GetSession returns the session with its participants and recommendations,
// each recommendation carrying the summed vote score and vote count.
func (s *QueryService) GetSession(ctx context.Context, id string) (domain.SessionView, error) {
	key := sessionKey(id)
	var sv domain.SessionView
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &sv); ok {
			return sv, nil
		}
	}

	session, err := loadSession(ctx, s.store, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	participants, err := loadParticipants(ctx, s.store, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	recRows, err := s.store.Select(ctx, domain.TableRecommendations, domain.Record{"session_id": id})
	if err != nil {
		return domain.SessionView{}, err
	}
	voteRows, err := s.store.Select(ctx, domain.TableVotes, domain.Record{"session_id": id})
	if err != nil {
		return domain.SessionView{}, err
	}

	type tally struct{ score, count int }
	tallies := map[string]tally{}
	for _, r := range voteRows {
		v := voteFromRecord(r)
		t := tallies[v.VenueID]
		t.score += v.Score
		t.count++
		tallies[v.VenueID] = t
	}

	recs := make([]domain.Recommendation, 0, len(recRows))
	for _, r := range recRows {
		rec := recommendationFromRecord(r)
		t := tallies[rec.BusinessID]
		rec.Score, rec.VoteCount = t.score, t.count
		recs = append(recs, rec)
	}

	sv = domain.SessionView{Session: session, Participants: participants, Recommendations: recs}

	// optional size guard
	if s.cache != nil {
		if b, _ := json.Marshal(sv); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, sv, int(s.cacheTTL.Seconds()))
		}
	}
	return sv, nil
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"social_dining/internal/domain"
)

const (
	maxParticipants    = 10
	sessionLifetime    = 24 * time.Hour
	defaultPartySize   = 2
	defaultBookingTime = "7:00 PM"
)

// SessionService owns the write side of a session: creation, joining,
// voting and booking.
type SessionService struct {
	store   domain.RecordStore
	booker  domain.Booker
	cache   domain.Cache
	baseURL string
	now     func() time.Time
}

func NewSessionService(store domain.RecordStore, booker domain.Booker, cache domain.Cache, baseURL string) *SessionService {
	return &SessionService{store: store, booker: booker, cache: cache, baseURL: baseURL, now: time.Now}
}

// WithClock replaces the time source (tests).
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

func (s *SessionService) Create(ctx context.Context, in domain.SessionCreate) (domain.Session, error) {
	now := s.now()
	id := uuid.NewString()
	sess := domain.Session{
		ID:            id,
		HostName:      in.HostName,
		Location:      in.Location,
		ScheduledTime: in.ScheduledTime,
		Status:        "created",
		CreatedAt:     now.Format(time.RFC3339),
		ExpiresAt:     now.Add(sessionLifetime).Format(time.RFC3339),
		InviteLink:    fmt.Sprintf("%s/session/%s", s.baseURL, id),
	}
	if err := s.store.Insert(ctx, domain.TableSessions, sessionRecord(sess)); err != nil {
		return domain.Session{}, err
	}
	log.Info().Str("session_id", id).Str("location", in.Location).Msg("session created")
	return sess, nil
}

// Join adds a participant. The first one in becomes host.
func (s *SessionService) Join(ctx context.Context, sessionID string, in domain.ParticipantCreate) (domain.Participant, error) {
	if _, err := loadSession(ctx, s.store, sessionID); err != nil {
		return domain.Participant{}, err
	}
	current, err := loadParticipants(ctx, s.store, sessionID)
	if err != nil {
		return domain.Participant{}, err
	}
	if len(current) >= maxParticipants {
		return domain.Participant{}, fmt.Errorf("max %d users: %w", maxParticipants, domain.ErrSessionFull)
	}

	p := domain.Participant{
		ID:                  uuid.NewString(),
		SessionID:           sessionID,
		Name:                in.Name,
		DietaryRestrictions: in.DietaryRestrictions,
		CuisinePreferences:  in.CuisinePreferences,
		BudgetTier:          in.BudgetTier,
		Vibe:                in.Vibe,
		IsHost:              len(current) == 0,
	}
	if err := s.store.Insert(ctx, domain.TableParticipants, participantRecord(p)); err != nil {
		return domain.Participant{}, err
	}
	invalidateSession(ctx, s.cache, sessionID)
	return p, nil
}

func (s *SessionService) Vote(ctx context.Context, sessionID string, in domain.VoteCreate) error {
	if in.Score < -1 || in.Score > 1 {
		return fmt.Errorf("score %d: %w", in.Score, domain.ErrInvalidInput)
	}
	if _, err := loadSession(ctx, s.store, sessionID); err != nil {
		return err
	}
	v := domain.Vote{
		SessionID:     sessionID,
		ParticipantID: in.ParticipantID,
		VenueID:       in.VenueID,
		Score:         in.Score,
		CreatedAt:     s.now().Format(time.RFC3339),
	}
	if err := s.store.Insert(ctx, domain.TableVotes, voteRecord(v)); err != nil {
		return err
	}
	invalidateSession(ctx, s.cache, sessionID)
	return nil
}

// Book asks the booking agent for a table at one of the session's
// recommended venues and records the outcome on the session.
func (s *SessionService) Book(ctx context.Context, sessionID, businessID string) (domain.BookingResult, error) {
	sess, err := loadSession(ctx, s.store, sessionID)
	if err != nil {
		return domain.BookingResult{}, err
	}
	participants, err := loadParticipants(ctx, s.store, sessionID)
	if err != nil {
		return domain.BookingResult{}, err
	}
	partySize := len(participants)
	if partySize == 0 {
		partySize = defaultPartySize
	}

	recs, err := s.store.Select(ctx, domain.TableRecommendations,
		domain.Record{"session_id": sessionID, "business_id": businessID})
	if err != nil {
		return domain.BookingResult{}, err
	}
	if len(recs) == 0 {
		return domain.BookingResult{}, fmt.Errorf("restaurant %s not in recommendations: %w", businessID, domain.ErrNotFound)
	}
	venue := recommendationFromRecord(recs[0]).Name

	at := defaultBookingTime
	if sess.ScheduledTime != nil && *sess.ScheduledTime != "" {
		at = *sess.ScheduledTime
	}

	res := s.booker.BookReservation(ctx, venue, at, partySize)

	set := domain.Record{
		"booking_status":    res.Status,
		"booking_reference": nil,
		"booking_message":   res.Message,
	}
	if res.Reference != "" {
		set["booking_reference"] = res.Reference
	}
	if err := s.store.Update(ctx, domain.TableSessions, set, domain.Record{"id": sessionID}); err != nil {
		return domain.BookingResult{}, err
	}
	invalidateSession(ctx, s.cache, sessionID)

	log.Info().Str("session_id", sessionID).Str("venue", venue).Str("status", res.Status).Msg("booking attempted")
	return res, nil
}

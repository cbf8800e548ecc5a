package app

import (
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"social_dining/internal/domain"
	"social_dining/internal/shared"
)

/********** record -> typed **********/

func sessionFromRecord(r domain.Record) domain.Session {
	s := domain.Session{
		ID:               shared.ToString(r["id"]),
		HostName:         shared.ToString(r["host_name"]),
		Location:         shared.ToString(r["location"]),
		ScheduledTime:    optStr(r["scheduled_time"]),
		Status:           shared.ToString(r["status"]),
		CreatedAt:        shared.ToString(r["created_at"]),
		ExpiresAt:        shared.ToString(r["expires_at"]),
		InviteLink:       shared.ToString(r["invite_link"]),
		BookingStatus:    optStr(r["booking_status"]),
		BookingReference: optStr(r["booking_reference"]),
		BookingMessage:   optStr(r["booking_message"]),
	}
	if v := r["conflict_analysis"]; v != nil {
		var ca domain.ConflictAnalysis
		if err := decodeField(v, &ca); err != nil {
			log.Warn().Err(err).Str("session_id", s.ID).Msg("unreadable conflict_analysis")
		} else {
			if ca.Conflicts == nil {
				ca.Conflicts = []string{}
			}
			s.ConflictAnalysis = &ca
		}
	}
	return s
}

func participantFromRecord(r domain.Record) domain.Participant {
	return domain.Participant{
		ID:                  shared.ToString(r["id"]),
		SessionID:           shared.ToString(r["session_id"]),
		Name:                shared.ToString(r["name"]),
		DietaryRestrictions: shared.ToString(r["dietary_restrictions"]),
		CuisinePreferences:  shared.ToString(r["cuisine_preferences"]),
		BudgetTier:          shared.ToString(r["budget_tier"]),
		Vibe:                shared.ToString(r["vibe"]),
		IsHost:              shared.ToBool(r["is_host"]),
	}
}

func recommendationFromRecord(r domain.Record) domain.Recommendation {
	rating, _ := shared.ToFloat(r["rating"])
	return domain.Recommendation{
		ID:          optStr(r["id"]),
		SessionID:   shared.ToString(r["session_id"]),
		BusinessID:  shared.ToString(r["business_id"]),
		Name:        shared.ToString(r["name"]),
		Rating:      rating,
		Price:       shared.ToString(r["price"]),
		ImageURL:    optStr(r["image_url"]),
		Categories:  stringList(r["categories"]),
		AIReasoning: shared.ToString(r["ai_reasoning"]),
		WhyPicked:   shared.ToString(r["why_picked"]),
		TradeOffs:   stringList(r["trade_offs"]),
	}
}

func voteFromRecord(r domain.Record) domain.Vote {
	return domain.Vote{
		SessionID:     shared.ToString(r["session_id"]),
		ParticipantID: shared.ToString(r["participant_id"]),
		VenueID:       shared.ToString(r["venue_id"]),
		Score:         shared.ToInt(r["score"]),
		CreatedAt:     shared.ToString(r["created_at"]),
	}
}

/********** typed -> record **********/

func sessionRecord(s domain.Session) domain.Record {
	return domain.Record{
		"id":             s.ID,
		"host_name":      s.HostName,
		"location":       s.Location,
		"scheduled_time": nullable(s.ScheduledTime),
		"status":         s.Status,
		"created_at":     s.CreatedAt,
		"expires_at":     s.ExpiresAt,
		"invite_link":    s.InviteLink,
	}
}

func participantRecord(p domain.Participant) domain.Record {
	return domain.Record{
		"id":                   p.ID,
		"session_id":           p.SessionID,
		"name":                 p.Name,
		"dietary_restrictions": p.DietaryRestrictions,
		"cuisine_preferences":  p.CuisinePreferences,
		"budget_tier":          p.BudgetTier,
		"vibe":                 p.Vibe,
		"is_host":              p.IsHost,
	}
}

// recommendationRecord drops the computed score/vote_count and leaves id
// unset when absent so the store assigns one.
func recommendationRecord(sessionID string, rec domain.Recommendation) domain.Record {
	r := domain.Record{
		"session_id":   sessionID,
		"business_id":  rec.BusinessID,
		"name":         rec.Name,
		"rating":       rec.Rating,
		"price":        rec.Price,
		"image_url":    nullable(rec.ImageURL),
		"categories":   nonNil(rec.Categories),
		"ai_reasoning": rec.AIReasoning,
		"why_picked":   rec.WhyPicked,
		"trade_offs":   nonNil(rec.TradeOffs),
	}
	if rec.ID != nil && *rec.ID != "" {
		r["id"] = *rec.ID
	}
	return r
}

func voteRecord(v domain.Vote) domain.Record {
	return domain.Record{
		"session_id":     v.SessionID,
		"participant_id": v.ParticipantID,
		"venue_id":       v.VenueID,
		"score":          v.Score,
		"created_at":     v.CreatedAt,
	}
}

/********** tiny helpers **********/

func optStr(v any) *string {
	s := shared.ToString(v)
	if s == "" {
		return nil
	}
	return &s
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// stringList accepts the in-memory []string, a decoded []any, or the JSON
// text a SQL store hands back.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		var out []string
		if err := json.Unmarshal([]byte(t), &out); err != nil {
			log.Warn().Err(err).Msg("unreadable string list column")
			return []string{}
		}
		return nonNil(out)
	}
	return []string{}
}

// decodeField fills dst from a JSON column value (text, bytes, or an
// in-memory value of any shape).
func decodeField(v any, dst any) error {
	switch t := v.(type) {
	case string:
		return json.Unmarshal([]byte(t), dst)
	case []byte:
		return json.Unmarshal(t, dst)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

package domain

// Table names understood by every RecordStore.
const (
	TableSessions        = "sessions"
	TableParticipants    = "participants"
	TableRecommendations = "recommendations"
	TableVotes           = "votes"
)

// Record is one row of a RecordStore table, keyed by column name.
type Record map[string]any

type Session struct {
	ID               string            `json:"id"`
	HostName         string            `json:"host_name"`
	Location         string            `json:"location"`
	ScheduledTime    *string           `json:"scheduled_time"`
	Status           string            `json:"status"`
	CreatedAt        string            `json:"created_at"`
	ExpiresAt        string            `json:"expires_at"`
	InviteLink       string            `json:"invite_link"`
	ConflictAnalysis *ConflictAnalysis `json:"conflict_analysis,omitempty"`
	BookingStatus    *string           `json:"booking_status,omitempty"`
	BookingReference *string           `json:"booking_reference,omitempty"`
	BookingMessage   *string           `json:"booking_message,omitempty"`
}

type Participant struct {
	ID                  string `json:"id"`
	SessionID           string `json:"session_id"`
	Name                string `json:"name"`
	DietaryRestrictions string `json:"dietary_restrictions,omitempty"`
	CuisinePreferences  string `json:"cuisine_preferences,omitempty"`
	BudgetTier          string `json:"budget_tier,omitempty"`
	Vibe                string `json:"vibe,omitempty"`
	IsHost              bool   `json:"is_host"`
}

type Vote struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	VenueID       string `json:"venue_id"`
	Score         int    `json:"score"` // 1 like, -1 dislike, 0 neutral
	CreatedAt     string `json:"created_at"`
}

// Write-side inputs

type SessionCreate struct {
	HostName      string  `json:"host_name" validate:"required,max=100"`
	Location      string  `json:"location" validate:"required,max=200"`
	ScheduledTime *string `json:"scheduled_time,omitempty"`
}

type ParticipantCreate struct {
	Name                string `json:"name" validate:"required,max=100"`
	DietaryRestrictions string `json:"dietary_restrictions,omitempty" validate:"max=200"`
	CuisinePreferences  string `json:"cuisine_preferences,omitempty" validate:"max=200"`
	BudgetTier          string `json:"budget_tier,omitempty" validate:"max=10"`
	Vibe                string `json:"vibe,omitempty" validate:"max=200"`
}

type VoteCreate struct {
	ParticipantID string `json:"participant_id" validate:"required,uuid"`
	VenueID       string `json:"venue_id" validate:"required"`
	Score         int    `json:"score" validate:"oneof=-1 0 1"`
}

// Read model

type SessionView struct {
	Session         Session          `json:"session"`
	Participants    []Participant    `json:"participants"`
	Recommendations []Recommendation `json:"recommendations"`
}

package domain

// Recommendation is one venue surfaced to a session by the AI pipeline.
// Score and VoteCount are computed on read and never persisted.
type Recommendation struct {
	ID          *string  `json:"id,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
	BusinessID  string   `json:"business_id"`
	Name        string   `json:"name"`
	Rating      float64  `json:"rating"`
	Price       string   `json:"price"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Categories  []string `json:"categories"`
	AIReasoning string   `json:"ai_reasoning"`
	WhyPicked   string   `json:"why_picked"`
	TradeOffs   []string `json:"trade_offs"`
	Score       int      `json:"score"`
	VoteCount   int      `json:"vote_count"`
}

type ConflictAnalysis struct {
	HasConflicts bool     `json:"has_conflicts"`
	Conflicts    []string `json:"conflicts"`
	Resolution   string   `json:"resolution"`
}

type BookingResult struct {
	Status    string `json:"status"` // busy|booked
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message"`
}

const (
	BookingBusy   = "busy"
	BookingBooked = "booked"
)

type GenerateOutcome struct {
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	Saved     int              `json:"saved"`
	Conflicts ConflictAnalysis `json:"conflict_analysis"`
}

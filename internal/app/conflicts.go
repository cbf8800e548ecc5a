package app

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"social_dining/internal/domain"
	"social_dining/internal/shared"
)

const (
	resolutionNoPrefs    = "No specific preferences provided."
	resolutionFailed     = "Analysis failed"
	resolutionNoText     = "Could not parse analysis."
	resolutionFormatFail = "Analysis format error."
)

// Reply fields that may carry the model's text, in lookup order.
var replyTextKeys = []string{
	"response", "message", "text", "answer", "reply", "content", "output", "chat_response.text",
}

var conflictSchema = mustSchema(`{
  "type": "object",
  "properties": {
    "has_conflicts": {"type": ["boolean", "null"]},
    "conflicts":     {"type": ["array", "null"], "items": {"type": "string"}},
    "resolution":    {"type": ["string", "null"]}
  }
}`)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}

// ConflictAnalyzer asks the AI endpoint whether the group's preferences clash.
// It never fails; every problem collapses to a safe default analysis.
type ConflictAnalyzer struct {
	ai domain.AIQuerier
}

func NewConflictAnalyzer(ai domain.AIQuerier) *ConflictAnalyzer {
	return &ConflictAnalyzer{ai: ai}
}

func (a *ConflictAnalyzer) Analyze(ctx context.Context, participants []domain.Participant) domain.ConflictAnalysis {
	prefs := describeParticipants(participants)
	if len(prefs) == 0 {
		return noConflicts(resolutionNoPrefs)
	}

	reply, err := a.ai.Query(ctx, conflictPrompt(prefs))
	if err != nil {
		log.Warn().Err(err).Msg("conflict analysis failed")
		return noConflicts(resolutionFailed)
	}

	text := shared.FirstNonEmpty(reply, replyTextKeys...)
	if text == "" {
		log.Warn().Msg("conflict analysis reply carried no text")
		return noConflicts(resolutionNoText)
	}

	ca, err := parseConflictText(text)
	if err != nil {
		log.Warn().Err(err).Msg("conflict analysis not valid JSON")
		return noConflicts(resolutionFormatFail)
	}
	return ca
}

// describeParticipants renders "Name (Diet: x, Cuisine: y, Budget: z)" for
// everyone who stated at least one preference.
func describeParticipants(participants []domain.Participant) []string {
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		var details []string
		if p.DietaryRestrictions != "" {
			details = append(details, "Diet: "+p.DietaryRestrictions)
		}
		if p.CuisinePreferences != "" {
			details = append(details, "Cuisine: "+p.CuisinePreferences)
		}
		if p.BudgetTier != "" {
			details = append(details, "Budget: "+p.BudgetTier)
		}
		if len(details) > 0 {
			out = append(out, fmt.Sprintf("%s (%s)", p.Name, strings.Join(details, ", ")))
		}
	}
	return out
}

func conflictPrompt(prefs []string) string {
	return fmt.Sprintf("Analyze these dining preferences for a group: %s. ", strings.Join(prefs, "; ")) +
		"Identify any major conflicts (e.g. Vegan vs Steakhouse, Budget mismatch). " +
		"Return a raw JSON object (no markdown) with keys: " +
		"'has_conflicts' (bool), 'conflicts' (list of strings), 'resolution' (string suggestion). " +
		"If no conflicts, set has_conflicts to false."
}

// parseConflictText decodes the (possibly fenced) JSON the model returned.
// Missing keys default; keys of the wrong type are a format error.
func parseConflictText(text string) (domain.ConflictAnalysis, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "```", ""))

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return domain.ConflictAnalysis{}, err
	}
	if doc == nil {
		return domain.ConflictAnalysis{}, fmt.Errorf("not a JSON object")
	}
	res, err := conflictSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return domain.ConflictAnalysis{}, err
	}
	if !res.Valid() {
		return domain.ConflictAnalysis{}, fmt.Errorf("unexpected shape: %v", res.Errors())
	}

	ca := noConflicts("")
	ca.HasConflicts, _ = doc["has_conflicts"].(bool)
	ca.Resolution, _ = doc["resolution"].(string)
	if list, ok := doc["conflicts"].([]any); ok {
		for _, c := range list {
			if s, ok := c.(string); ok {
				ca.Conflicts = append(ca.Conflicts, s)
			}
		}
	}
	return ca, nil
}

func noConflicts(resolution string) domain.ConflictAnalysis {
	return domain.ConflictAnalysis{HasConflicts: false, Conflicts: []string{}, Resolution: resolution}
}

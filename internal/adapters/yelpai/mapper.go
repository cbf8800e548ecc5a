package yelpai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"social_dining/internal/domain"
	"social_dining/internal/shared"
)

const (
	defaultName      = "Unknown Restaurant"
	defaultPrice     = "$$"
	defaultReasoning = "Recommended based on your preferences."
	defaultWhyPicked = "Great choice for the group."
)

// Markers are matched case-insensitively and across newlines.
var (
	whyPickedRe = regexp.MustCompile(`(?is)Why Picked:\s*(.*?)\s*(?:Trade-offs:|$)`)
	tradeOffsRe = regexp.MustCompile(`(?is)Trade-offs:\s*(.*)$`)
	tradeOffSep = regexp.MustCompile(`[,;\n]`)
)

// ParseResponse maps an AI chat reply to recommendations. It reads
// entities[0].businesses; a reply without businesses yields an empty slice.
// Entries that cannot be mapped are skipped, never the whole batch.
func ParseResponse(payload map[string]any) []domain.Recommendation {
	out := []domain.Recommendation{}

	entities, _ := payload["entities"].([]any)
	if len(entities) == 0 {
		log.Warn().Msg("no entities in AI response")
		return out
	}
	first, _ := entities[0].(map[string]any)
	businesses, _ := first["businesses"].([]any)
	if len(businesses) == 0 {
		log.Warn().Msg("no businesses in AI response entities")
		return out
	}

	for i, raw := range businesses {
		biz, ok := raw.(map[string]any)
		if !ok {
			log.Warn().Int("index", i).Msg("skipping non-object business entry")
			continue
		}
		rec, err := mapBusiness(biz)
		if err != nil {
			log.Warn().Err(err).
				Int("index", i).
				Str("name", shared.LookupStr(biz, "name")).
				Msg("failed to map business")
			continue
		}
		out = append(out, rec)
	}
	return out
}

func mapBusiness(biz map[string]any) (rec domain.Recommendation, err error) {
	// a malformed nested shape must cost one entry, not the batch
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("map business: %v", r)
		}
	}()

	id := shared.LookupStr(biz, "id")
	if id == "" {
		return rec, fmt.Errorf("business id missing")
	}

	rating, err := shared.ToFloat(biz["rating"])
	if err != nil {
		return rec, fmt.Errorf("rating: %w", err)
	}

	categories := []string{}
	if cats, ok := biz["categories"].([]any); ok {
		for _, c := range cats {
			m, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if title, ok := m["title"]; ok {
				categories = append(categories, shared.ToString(title))
			}
		}
	}

	summary := shared.FirstNonEmpty(biz, "summaries.short", "summaries.medium")
	if summary == "" {
		summary = defaultReasoning
	}

	var image *string
	if photos, ok := shared.LookupAny(biz, "contextual_info.photos").([]any); ok && len(photos) > 0 {
		if p, ok := photos[0].(map[string]any); ok {
			if u := shared.LookupStr(p, "original_url"); u != "" {
				image = &u
			}
		}
	}

	price := shared.LookupStr(biz, "price")
	if price == "" {
		price = defaultPrice
	}
	name := shared.LookupStr(biz, "name")
	if name == "" {
		name = defaultName
	}

	return domain.Recommendation{
		BusinessID:  id,
		Name:        name,
		Rating:      rating,
		Price:       price,
		ImageURL:    image,
		Categories:  categories,
		AIReasoning: summary,
		WhyPicked:   extractWhyPicked(summary),
		TradeOffs:   extractTradeOffs(summary),
	}, nil
}

func extractWhyPicked(text string) string {
	m := whyPickedRe.FindStringSubmatch(text)
	if m == nil {
		return defaultWhyPicked
	}
	if s := strings.TrimSpace(m[1]); s != "" {
		return s
	}
	return defaultWhyPicked
}

func extractTradeOffs(text string) []string {
	out := []string{}
	m := tradeOffsRe.FindStringSubmatch(text)
	if m == nil {
		return out
	}
	for _, part := range tradeOffSep.Split(m[1], -1) {
		if s := strings.Trim(part, " \t\r\n-*•"); s != "" {
			out = append(out, s)
		}
	}
	return out
}

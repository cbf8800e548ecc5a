package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social_dining/internal/app"
	"social_dining/internal/domain"
	"social_dining/internal/storage/memstore"
)

func rec(id string) domain.Recommendation {
	return domain.Recommendation{
		BusinessID:  id,
		Name:        "Venue " + id,
		Rating:      4.5,
		Price:       "$$",
		Categories:  []string{"Thai"},
		AIReasoning: "Why Picked: close. Trade-offs: loud",
		WhyPicked:   "close.",
		TradeOffs:   []string{"loud"},
		Score:       7,
		VoteCount:   9,
	}
}

// seed creates a session in Lisbon with the given participants.
func seed(t *testing.T, store domain.RecordStore, ps ...domain.ParticipantCreate) string {
	t.Helper()
	svc := app.NewSessionService(store, &fakeBooker{}, nil, "http://localhost:3000")
	s, err := svc.Create(context.Background(), domain.SessionCreate{HostName: "Ana", Location: "Lisbon"})
	require.NoError(t, err)
	for _, p := range ps {
		_, err := svc.Join(context.Background(), s.ID, p)
		require.NoError(t, err)
	}
	return s.ID
}

func TestGenerate_TruncatesAndPersists(t *testing.T) {
	store := memstore.New()
	id := seed(t, store,
		domain.ParticipantCreate{Name: "Ana", CuisinePreferences: "thai", DietaryRestrictions: "vegan", Vibe: "cozy"},
		domain.ParticipantCreate{Name: "Ben", CuisinePreferences: "italian", Vibe: "cozy"},
		domain.ParticipantCreate{Name: "Cy", CuisinePreferences: "thai"},
	)
	ai := &fakeAI{reply: map[string]any{"response": `{"has_conflicts": true, "conflicts": ["vegan vs steak"], "resolution": "mixed menu"}`}}
	recs := &fakeRecommender{recs: []domain.Recommendation{rec("a"), rec("b"), rec("c"), rec("d"), rec("e")}}
	cache := &fakeCache{}
	svc := app.NewRecommendationService(store, recs, app.NewConflictAnalyzer(ai), cache)

	out, err := svc.Generate(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "Recommendations generated", out.Message)
	assert.Equal(t, 3, out.Saved)
	assert.True(t, out.Conflicts.HasConflicts)
	assert.Contains(t, cache.dels, "session:"+id)

	assert.Contains(t, recs.prompt, "Find restaurants in Lisbon for a group of 3. ")
	assert.Contains(t, recs.prompt, "Preferences: italian, thai. ")
	assert.Contains(t, recs.prompt, "Dietary Constraints: vegan. ")
	assert.Contains(t, recs.prompt, "Vibe: cozy. ")
	assert.Contains(t, recs.prompt, "'Why Picked:'")
	assert.Contains(t, recs.prompt, "Limit to the top 3 best options.")

	rows, err := store.Select(context.Background(), domain.TableRecommendations, domain.Record{"session_id": id})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, rows[i]["business_id"])
		assert.NotContains(t, rows[i], "score")
		assert.NotContains(t, rows[i], "vote_count")
		assert.Equal(t, "close.", rows[i]["why_picked"])
	}

	view, err := app.NewQueryService(store, nil, 0).GetSession(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, view.Session.ConflictAnalysis)
	assert.Equal(t, []string{"vegan vs steak"}, view.Session.ConflictAnalysis.Conflicts)
}

func TestGenerate_RetriesWithoutAIFieldsOnSchemaMismatch(t *testing.T) {
	store := memstore.New()
	id := seed(t, store, domain.ParticipantCreate{Name: "Ana"})
	store.WithColumns(domain.TableRecommendations,
		"id", "session_id", "business_id", "name", "rating", "price", "image_url", "categories", "ai_reasoning")

	svc := app.NewRecommendationService(store, &fakeRecommender{recs: []domain.Recommendation{rec("a"), rec("b")}},
		app.NewConflictAnalyzer(&fakeAI{}), nil)

	out, err := svc.Generate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Saved)

	rows, _ := store.Select(context.Background(), domain.TableRecommendations, domain.Record{"session_id": id})
	require.Len(t, rows, 2)
	assert.NotContains(t, rows[0], "why_picked")
	assert.NotContains(t, rows[0], "trade_offs")
	assert.Equal(t, "Why Picked: close. Trade-offs: loud", rows[0]["ai_reasoning"])
}

func TestGenerate_DropsRecordWhenRetryAlsoFails(t *testing.T) {
	store := memstore.New()
	id := seed(t, store, domain.ParticipantCreate{Name: "Ana"})
	store.WithColumns(domain.TableRecommendations, "id")

	svc := app.NewRecommendationService(store, &fakeRecommender{recs: []domain.Recommendation{rec("a")}},
		app.NewConflictAnalyzer(&fakeAI{}), nil)

	out, err := svc.Generate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Saved)
}

func TestGenerate_StoreOutageIsReturned(t *testing.T) {
	mem := memstore.New()
	id := seed(t, mem, domain.ParticipantCreate{Name: "Ana"})
	store := &failingStore{RecordStore: mem, table: domain.TableRecommendations}

	svc := app.NewRecommendationService(store, &fakeRecommender{recs: []domain.Recommendation{rec("a")}},
		app.NewConflictAnalyzer(&fakeAI{}), nil)

	_, err := svc.Generate(context.Background(), id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errOutage))
}

func TestGenerate_OutageMidBatchKeepsEarlierRowsAndInvalidates(t *testing.T) {
	mem := memstore.New()
	id := seed(t, mem, domain.ParticipantCreate{Name: "Ana"})
	store := &failingStore{RecordStore: mem, table: domain.TableRecommendations, okInserts: 1}
	cache := &fakeCache{store: map[string]any{"session:" + id: domain.SessionView{}}}

	svc := app.NewRecommendationService(store,
		&fakeRecommender{recs: []domain.Recommendation{rec("a"), rec("b"), rec("c")}},
		app.NewConflictAnalyzer(&fakeAI{}), cache)

	_, err := svc.Generate(context.Background(), id)
	require.ErrorIs(t, err, errOutage)
	assert.Contains(t, err.Error(), "persist recommendation b after 1 saved")

	rows, _ := mem.Select(context.Background(), domain.TableRecommendations, domain.Record{"session_id": id})
	require.Len(t, rows, 1, "rows written before the outage stay")
	assert.Equal(t, "a", rows[0]["business_id"])
	assert.Contains(t, cache.dels, "session:"+id)
}

func TestGenerate_EmptyResultsStillComplete(t *testing.T) {
	store := memstore.New()
	id := seed(t, store, domain.ParticipantCreate{Name: "Ana"})

	svc := app.NewRecommendationService(store, &fakeRecommender{recs: []domain.Recommendation{}},
		app.NewConflictAnalyzer(&fakeAI{}), nil)

	out, err := svc.Generate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, 0, out.Saved)
	assert.Equal(t, "No specific preferences provided.", out.Conflicts.Resolution)
}

func TestGenerate_Errors(t *testing.T) {
	store := memstore.New()
	empty := seed(t, store)
	svc := app.NewRecommendationService(store, &fakeRecommender{}, app.NewConflictAnalyzer(&fakeAI{}), nil)

	_, err := svc.Generate(context.Background(), empty)
	assert.ErrorIs(t, err, domain.ErrNoParticipants)

	_, err = svc.Generate(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerate_PromptHasEmptySectionsWithoutPreferences(t *testing.T) {
	store := memstore.New()
	var ps []domain.ParticipantCreate
	for i := 0; i < 4; i++ {
		ps = append(ps, domain.ParticipantCreate{Name: fmt.Sprintf("p%d", i)})
	}
	id := seed(t, store, ps...)
	recs := &fakeRecommender{}
	svc := app.NewRecommendationService(store, recs, app.NewConflictAnalyzer(&fakeAI{}), nil)

	_, err := svc.Generate(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, recs.prompt, "for a group of 4. Preferences: . Dietary Constraints: . Vibe: . IMPORTANT:")
}

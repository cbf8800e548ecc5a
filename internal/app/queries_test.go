package app_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"social_dining/internal/app"
	"social_dining/internal/domain"
	"social_dining/internal/storage/memstore"
)

func TestGetSession_AggregatesVotes(t *testing.T) {
	store := memstore.New()
	id := seed(t, store, domain.ParticipantCreate{Name: "Ana"}, domain.ParticipantCreate{Name: "Ben"})
	ctx := context.Background()
	for _, biz := range []string{"a", "b"} {
		if err := store.Insert(ctx, domain.TableRecommendations, domain.Record{
			"session_id": id, "business_id": biz, "name": "Venue " + biz, "rating": 4.0,
			"categories": `["Thai","Bars"]`,
		}); err != nil {
			t.Fatalf("seed rec: %v", err)
		}
	}
	sessions := app.NewSessionService(store, &fakeBooker{}, nil, "")
	for _, v := range []domain.VoteCreate{
		{ParticipantID: "p1", VenueID: "a", Score: 1},
		{ParticipantID: "p2", VenueID: "a", Score: 1},
		{ParticipantID: "p3", VenueID: "a", Score: -1},
		{ParticipantID: "p1", VenueID: "b", Score: 0},
	} {
		if err := sessions.Vote(ctx, id, v); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}

	sv, err := app.NewQueryService(store, nil, time.Minute).GetSession(ctx, id)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if sv.Session.ID != id || sv.Session.Location != "Lisbon" {
		t.Fatalf("unexpected session: %+v", sv.Session)
	}
	if len(sv.Participants) != 2 || !sv.Participants[0].IsHost || sv.Participants[1].IsHost {
		t.Fatalf("unexpected participants: %+v", sv.Participants)
	}
	if len(sv.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(sv.Recommendations))
	}
	a, b := sv.Recommendations[0], sv.Recommendations[1]
	if a.Score != 1 || a.VoteCount != 3 {
		t.Fatalf("venue a: score=%d count=%d", a.Score, a.VoteCount)
	}
	if b.Score != 0 || b.VoteCount != 1 {
		t.Fatalf("venue b: score=%d count=%d", b.Score, b.VoteCount)
	}
	if len(a.Categories) != 2 || a.Categories[1] != "Bars" {
		t.Fatalf("categories not decoded: %v", a.Categories)
	}
	if a.TradeOffs == nil {
		t.Fatalf("trade_offs should never be nil")
	}
}

func TestGetSession_CacheMissThenHit(t *testing.T) {
	store := memstore.New()
	id := seed(t, store)
	cache := &fakeCache{}
	q := app.NewQueryService(store, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	sv, err := q.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if sv.Session.HostName != "Ana" {
		t.Fatalf("unexpected session: %+v", sv.Session)
	}

	// Mutate store to ensure second read indeed comes from cache
	_ = store.Update(context.Background(), domain.TableSessions,
		domain.Record{"host_name": "SHOULD NOT SEE THIS"}, domain.Record{"id": id})

	sv2, err := q.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if sv2.Session.HostName != "Ana" {
		t.Fatalf("expected cached host, got %s", sv2.Session.HostName)
	}

	// A join invalidates the view
	sessions := app.NewSessionService(store, &fakeBooker{}, cache, "")
	if _, err := sessions.Join(context.Background(), id, domain.ParticipantCreate{Name: "Ben"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	sv3, _ := q.GetSession(context.Background(), id)
	if sv3.Session.HostName != "SHOULD NOT SEE THIS" || len(sv3.Participants) != 1 {
		t.Fatalf("expected fresh view after join, got %+v", sv3)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	q := app.NewQueryService(memstore.New(), &fakeCache{}, time.Minute)
	if _, err := q.GetSession(context.Background(), "missing"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestGetSession_NonFiniteStoredRatingReadsAsZero(t *testing.T) {
	store := memstore.New()
	id := seed(t, store)
	if err := store.Insert(context.Background(), domain.TableRecommendations, domain.Record{
		"session_id": id, "business_id": "a", "name": "Venue a", "rating": math.Inf(1),
	}); err != nil {
		t.Fatalf("seed rec: %v", err)
	}

	sv, err := app.NewQueryService(store, nil, time.Minute).GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(sv.Recommendations) != 1 || sv.Recommendations[0].Rating != 0 {
		t.Fatalf("expected rating 0, got %+v", sv.Recommendations)
	}
	if _, err := json.Marshal(sv); err != nil {
		t.Fatalf("view must encode: %v", err)
	}
}

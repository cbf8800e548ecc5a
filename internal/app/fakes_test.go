package app_test

import (
	"context"
	"errors"

	"social_dining/internal/domain"
)

type fakeAI struct {
	reply   map[string]any
	err     error
	calls   int
	prompts []string
}

func (f *fakeAI) Query(ctx context.Context, prompt string) (map[string]any, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeRecommender struct {
	recs   []domain.Recommendation
	prompt string
}

func (f *fakeRecommender) GenerateWithRetry(ctx context.Context, prompt string) []domain.Recommendation {
	f.prompt = prompt
	return f.recs
}

type fakeBooker struct {
	res                 domain.BookingResult
	venue, at           string
	partySize, numCalls int
}

func (f *fakeBooker) BookReservation(ctx context.Context, venue, at string, partySize int) domain.BookingResult {
	f.numCalls++
	f.venue, f.at, f.partySize = venue, at, partySize
	return f.res
}

type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.SessionView:
		*d = v.(domain.SessionView)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

// failingStore wraps a RecordStore and fails inserts into one table once
// okInserts rows have gone in.
type failingStore struct {
	domain.RecordStore
	table     string
	okInserts int
}

var errOutage = errors.New("connection refused")

func (s *failingStore) Insert(ctx context.Context, table string, rec domain.Record) error {
	if table == s.table {
		if s.okInserts <= 0 {
			return errOutage
		}
		s.okInserts--
	}
	return s.RecordStore.Insert(ctx, table, rec)
}

func ptr[T any](v T) *T { return &v }

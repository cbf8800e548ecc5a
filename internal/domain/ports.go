package domain

import "context"

// RecordStore is the persistence collaborator: named tables, equality filters.
type RecordStore interface {
	Insert(ctx context.Context, table string, rec Record) error
	Select(ctx context.Context, table string, where Record) ([]Record, error)
	Update(ctx context.Context, table string, set, where Record) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// AIQuerier sends one prompt to the AI endpoint and returns the raw reply.
type AIQuerier interface {
	Query(ctx context.Context, prompt string) (map[string]any, error)
}

// Recommender never fails: exhausted retries degrade to a fallback search.
type Recommender interface {
	GenerateWithRetry(ctx context.Context, prompt string) []Recommendation
}

type Booker interface {
	BookReservation(ctx context.Context, venue, at string, partySize int) BookingResult
}

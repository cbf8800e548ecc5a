// Command refresher regenerates recommendations for the session ids given
// as arguments, a few sessions at a time.
package main

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"social_dining/internal/adapters/observability"
	redisad "social_dining/internal/adapters/redis"
	"social_dining/internal/adapters/yelpai"
	"social_dining/internal/app"
	"social_dining/internal/domain"
	"social_dining/internal/shared"
	"social_dining/internal/storage"
)

func main() { os.Exit(run(os.Args[1:])) }

// run returns the process exit code: 2 for usage errors, 1 for failures.
func run(args []string) int {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ids := dedupe(args)
	if len(ids) == 0 {
		log.Error().Msg("usage: refresher <session-id>...")
		return 2
	}
	log.Info().
		Str("endpoint", cfg.YelpEndpoint).
		Int("workers", cfg.RefreshWorkers).
		Int("sessions", len(ids)).
		Msg("refresher starting")

	store, closeStore, err := storage.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Error().Err(err).Msg("storage open failed")
		return 1
	}
	defer closeStore()

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}

	ai, err := yelpai.New(yelpai.Config{
		Endpoint:        cfg.YelpEndpoint,
		APIKey:          cfg.YelpKey,
		Timeout:         cfg.AITimeout,
		RPS:             cfg.AIRPS,
		BreakerFailures: cfg.BreakerFailures,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize Yelp AI client")
		return 1
	}
	svc := app.NewRecommendationService(store, ai, app.NewConflictAnalyzer(ai), cache)

	workers := cfg.RefreshWorkers
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed atomic.Int32

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Msg("semaphore acquire failed")
			wg.Wait()
			return 1
		}

		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			defer sem.Release(1)

			out, err := svc.Generate(ctx, sessionID)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("session_id", sessionID).Err(err).Msg("refresh failed")
				return
			}
			log.Info().Str("session_id", sessionID).Int("saved", out.Saved).Msg("refresh ok")
		}(id)
	}

	wg.Wait()
	log.Info().Int32("failed", failed.Load()).Msg("refresh completed")
	if failed.Load() > 0 {
		return 1
	}
	return 0
}

// dedupe keeps the first occurrence of each id; one run per session.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	server "social_dining/internal/adapters/http_server"
	"social_dining/internal/adapters/observability"
	redisad "social_dining/internal/adapters/redis"
	"social_dining/internal/adapters/yelpai"
	"social_dining/internal/app"
	"social_dining/internal/domain"
	"social_dining/internal/shared"
	"social_dining/internal/storage"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// store
	store, closeStore, err := storage.Open(context.Background(), cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("storage open failed")
	}
	defer closeStore()

	// cache is optional
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}

	// ai
	ai, err := yelpai.New(yelpai.Config{
		Endpoint:        cfg.YelpEndpoint,
		APIKey:          cfg.YelpKey,
		Timeout:         cfg.AITimeout,
		RPS:             cfg.AIRPS,
		BreakerFailures: cfg.BreakerFailures,
		BookingDelay:    cfg.BookingDelay,
		BusyProbability: cfg.BusyProbability,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Yelp AI client")
	}

	q := app.NewQueryService(store, cache, cfg.CacheTTL)
	s := app.NewSessionService(store, ai, cache, cfg.BaseURL)
	r := app.NewRecommendationService(store, ai, app.NewConflictAnalyzer(ai), cache)

	// http
	srv := server.New(server.Options{AllowedOrigins: cfg.CORSOrigins, Timeout: cfg.HTTPTimeout})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, S: s, R: r})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

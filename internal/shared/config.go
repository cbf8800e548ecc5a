package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	HTTPTimeout time.Duration
	MetricsAddr string
	BaseURL     string
	CORSOrigins []string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	YelpEndpoint    string
	YelpKey         string
	AITimeout       time.Duration
	AIRPS           int
	BreakerFailures int
	BookingDelay    time.Duration
	BusyProbability float64

	RefreshWorkers int
}

func Load() Config {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		HTTPTimeout: time.Duration(atoi("HTTP_TIMEOUT_SECONDS", 90)) * time.Second,
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		BaseURL:     strings.TrimRight(env("APP_BASE_URL", "http://localhost:3000"), "/"),
		CORSOrigins: splitList(env("CORS_ORIGINS", "http://localhost:3000")),
		MySQLDSN:    env("MYSQL_DSN", ""),
		RedisAddr:   env("REDIS_ADDR", ""),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 30)) * time.Second,

		YelpEndpoint:    env("YELP_AI_ENDPOINT", "https://api.yelp.com/ai/chat/v2"),
		YelpKey:         env("YELP_API_KEY", ""),
		AITimeout:       time.Duration(atoi("AI_TIMEOUT_SECONDS", 20)) * time.Second,
		AIRPS:           atoi("AI_RPS", 5),
		BreakerFailures: atoi("AI_BREAKER_FAILURES", 5),
		BookingDelay:    time.Duration(atoi("BOOKING_DELAY_MS", 3000)) * time.Millisecond,
		BusyProbability: atof("BOOKING_BUSY_PROBABILITY", 0.3),

		RefreshWorkers: atoi("REFRESH_WORKERS", 4),
	}
	if c.YelpKey == "" {
		log.Warn().Msg("YELP_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

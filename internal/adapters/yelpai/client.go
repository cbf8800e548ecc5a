// internal/adapters/yelpai/client.go
package yelpai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"social_dining/internal/adapters/observability"
	"social_dining/internal/domain"
)

const (
	service      = "yelp_ai"
	endpointName = "chat"
	maxAttempts  = 3
)

var (
	ErrNoAPIKey    = errors.New("yelpai: no API key configured")
	ErrBreakerOpen = errors.New("yelpai: circuit open")
)

// RequestError is a transport failure: the endpoint was unreachable, answered
// with a non-2xx status, or returned a body that is not a JSON object.
type RequestError struct {
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("yelpai: status %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("yelpai: status %d", e.StatusCode)
	}
	return fmt.Sprintf("yelpai: request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Fallback is the degraded, non-AI search used once retries are exhausted.
type Fallback interface {
	Search(ctx context.Context, prompt string) []domain.Recommendation
}

type FallbackFunc func(ctx context.Context, prompt string) []domain.Recommendation

func (f FallbackFunc) Search(ctx context.Context, prompt string) []domain.Recommendation {
	return f(ctx, prompt)
}

// EmptyFallback stands in for a keyword search integration that does not exist yet.
var EmptyFallback = FallbackFunc(func(ctx context.Context, prompt string) []domain.Recommendation {
	log.Info().Msg("fallback search has no backing integration, returning no results")
	return []domain.Recommendation{}
})

type Config struct {
	Endpoint        string
	APIKey          string
	Timeout         time.Duration // per attempt
	RPS             int
	BreakerFailures int
	BookingDelay    time.Duration
	BusyProbability float64
}

type Option func(*Client)

func WithFallback(f Fallback) Option { return func(c *Client) { c.fallback = f } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithRand injects the random source used by BookReservation; it must return [0,1).
func WithRand(fn func() float64) Option { return func(c *Client) { c.rnd = fn } }

type Client struct {
	endpoint string
	key      string
	timeout  time.Duration
	hc       *http.Client
	rl       *rate.Limiter
	// recommendation and conflict traffic trip independently
	recsCB   *gobreaker.CircuitBreaker[map[string]any]
	queryCB  *gobreaker.CircuitBreaker[map[string]any]
	fallback Fallback

	bookingDelay time.Duration
	busyProb     float64
	rnd          func() float64
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("AI endpoint is required")
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("AI client has no API key; calls will degrade to fallback")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	c := &Client{
		endpoint:     cfg.Endpoint,
		key:          cfg.APIKey,
		timeout:      cfg.Timeout,
		hc:           &http.Client{},
		rl:           rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		fallback:     EmptyFallback,
		bookingDelay: cfg.BookingDelay,
		busyProb:     cfg.BusyProbability,
		rnd:          defaultRand,
	}
	c.recsCB = newBreaker(service+"_recommendations", cfg.BreakerFailures)
	c.queryCB = newBreaker(service+"_query", cfg.BreakerFailures)
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func newBreaker(name string, failures int) *gobreaker.CircuitBreaker[map[string]any] {
	limit := uint32(failures)
	return gobreaker.NewCircuitBreaker[map[string]any](gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= limit
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

// Query performs one POST {"query": prompt} and decodes the JSON object reply.
// It is used for free-form prompts such as conflict analysis.
func (c *Client) Query(ctx context.Context, prompt string) (map[string]any, error) {
	return c.query(ctx, c.queryCB, prompt)
}

func (c *Client) query(ctx context.Context, cb *gobreaker.CircuitBreaker[map[string]any], prompt string) (map[string]any, error) {
	if c.key == "" {
		return nil, &RequestError{Err: ErrNoAPIKey}
	}
	if err := c.rl.Wait(ctx); err != nil {
		return nil, &RequestError{Err: err}
	}
	out, err := cb.Execute(func() (map[string]any, error) { return c.post(ctx, prompt) })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &RequestError{Err: fmt.Errorf("%w: %v", ErrBreakerOpen, err)}
	}
	return out, err
}

// Generate is a single recommendation attempt. An empty result is a success.
func (c *Client) Generate(ctx context.Context, prompt string) ([]domain.Recommendation, error) {
	data, err := c.query(ctx, c.recsCB, prompt)
	if err != nil {
		return nil, err
	}
	return ParseResponse(data), nil
}

// GenerateWithRetry makes up to three immediate attempts, then returns the
// fallback search result. It never fails.
func (c *Client) GenerateWithRetry(ctx context.Context, prompt string) []domain.Recommendation {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		recs, err := c.Generate(ctx, prompt)
		if err == nil {
			observability.ObserveGeneration("ai")
			return recs
		}
		ev := log.Warn().Err(err).Str("err_type", observability.LabelErr(errors.Unwrap(err))).
			Int("attempt", attempt).Int("max_attempts", maxAttempts)
		if attempt < maxAttempts {
			ev.Msg("recommendation attempt failed, retrying")
			continue
		}
		ev.Msg("recommendation attempt failed")
	}

	log.Warn().Msg("all recommendation attempts failed, falling back to search")
	observability.ObserveGeneration("fallback")
	recs := c.fallback.Search(ctx, prompt)
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	return recs
}

func (c *Client) post(ctx context.Context, prompt string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"query": prompt})
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "social-dining/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, endpointName, 0, time.Since(start))
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, endpointName, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if out == nil {
		out = map[string]any{}
	}
	log.Debug().Int("status", resp.StatusCode).Int("keys", len(out)).Msg("AI response received")
	return out, nil
}

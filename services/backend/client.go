package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"betting-bff-go/cache"
	"betting-bff-go/circuitbreaker"
	"betting-bff-go/logcolors"
	"betting-bff-go/stats"

	log "github.com/sirupsen/logrus"
)

// eventsCachePrefix covers every cached event read (list, detail, stats).
// Mutating bet operations invalidate it so totals are not served stale.
const eventsCachePrefix = "GET /api/events"

// Client is the single point of contact with the upstream sports-betting API.
// It owns cache lookups, timeout handling, the retry policy for transient
// failures, circuit breaking, and response normalization.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	cache        *cache.Store
	stats        *stats.Stats
	breaker      *circuitbreaker.CircuitBreaker
	cacheTTL     time.Duration
	retryBackoff time.Duration
	cacheEnabled bool
}

// Options configures a Client. Cache and Stats are required.
type Options struct {
	BaseURL          string
	Timeout          time.Duration
	Cache            *cache.Store
	Stats            *stats.Stats
	CacheTTL         time.Duration
	RetryBackoff     time.Duration
	EnableCache      bool
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// New creates a backend client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}

	return &Client{
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: opts.Timeout},
		cache:        opts.Cache,
		stats:        opts.Stats,
		cacheTTL:     opts.CacheTTL,
		retryBackoff: opts.RetryBackoff,
		cacheEnabled: opts.EnableCache,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:      "upstream-api",
			Threshold: opts.BreakerThreshold,
			Cooldown:  opts.BreakerCooldown,
		}),
	}
}

// Call describes a single logical operation against the upstream API.
type Call struct {
	Op        string // logical operation name, for logs and errors
	Method    string
	Path      string
	Query     url.Values
	Body      interface{}
	Token     string // bearer token forwarded upstream; disables caching
	Cacheable bool   // only honored for token-less GET requests
}

// CacheKey derives the deterministic cache key for a request: method, path,
// and the query parameters in sorted order. Parameter order in the original
// request does not matter.
func CacheKey(method, path string, query url.Values) string {
	key := strings.ToUpper(method) + " " + path
	if len(query) > 0 {
		key += "?" + query.Encode() // Encode sorts by key
	}
	return key
}

// Do executes one upstream call, consulting the cache first for eligible
// requests. Only token-less GET calls marked Cacheable are ever cached;
// everything carrying a bearer token goes upstream so user-specific data can
// never leak through the shared cache. GET calls get a single retry with a
// short backoff on transient network failure; mutating calls are never
// retried to avoid duplicate side effects.
func (c *Client) Do(ctx context.Context, call Call) (json.RawMessage, error) {
	method := strings.ToUpper(call.Method)

	cacheable := c.cacheEnabled && call.Cacheable && method == http.MethodGet && call.Token == ""
	var key string
	if cacheable {
		key = CacheKey(method, call.Path, call.Query)
		if body, ok := c.cache.Get(key); ok {
			if json.Valid(body) {
				c.stats.RecordCacheHit()
				log.Debugf("%s Cache hit for %s", logcolors.LogBackend, key)
				return body, nil
			}
			// Corrupt entry: evict and fall through to upstream
			c.cache.Invalidate(key)
			log.Warnf("%s Evicted corrupt cache entry for %s", logcolors.LogCache, key)
		}
	}

	var payload []byte
	if call.Body != nil {
		var err error
		payload, err = json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request body: %w", call.Op, err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Warnf("%s Retrying %s after transient failure: %v", logcolors.LogRetry, call.Op, lastErr)
			select {
			case <-time.After(c.retryBackoff):
			case <-ctx.Done():
				return nil, &BackendUnavailableError{Op: call.Op, Err: ctx.Err()}
			}
		}

		if !c.breaker.Allow() {
			c.stats.RecordError()
			return nil, &BackendUnavailableError{Op: call.Op, Err: circuitbreaker.ErrCircuitOpen}
		}

		body, status, err := c.roundTrip(ctx, method, call, payload)
		if err != nil {
			c.stats.RecordError()
			c.breaker.RecordFailure()
			lastErr = err
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			continue
		}

		if status >= 200 && status < 300 {
			c.breaker.RecordSuccess()
			if cacheable {
				c.cache.Set(key, body, c.cacheTTL)
				log.Debugf("%s Cached response for %s", logcolors.LogBackend, key)
			}
			return body, nil
		}

		// Upstream answered with an error status; pass it through untouched.
		// Only 5xx counts toward the circuit breaker, a 4xx is a healthy
		// upstream rejecting a bad request.
		if status >= 500 {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		c.stats.RecordError()
		log.Warnf("%s %s returned status %d for %s", logcolors.LogBackend, call.Op, status, call.Path)
		return nil, &UpstreamError{Op: call.Op, StatusCode: status, Body: body}
	}

	return nil, &BackendUnavailableError{Op: call.Op, Err: lastErr}
}

// roundTrip performs one HTTP attempt and records it in stats.
func (c *Client) roundTrip(ctx context.Context, method string, call Call, payload []byte) ([]byte, int, error) {
	u := c.baseURL + call.Path
	if len(call.Query) > 0 {
		u += "?" + call.Query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if call.Token != "" {
		req.Header.Set("Authorization", "Bearer "+call.Token)
	}

	c.stats.RecordUpstreamCall()
	log.Infof("%s %s %s %s", logcolors.LogBackend, call.Op, method, call.Path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.stats.RecordUpstreamLatency(time.Since(start))
	if err != nil {
		log.Errorf("%s %s failed: %v", logcolors.LogBackend, call.Op, err)
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// unwrap strips the upstream {success, message, data} envelope when present.
func unwrap(raw json.RawMessage) json.RawMessage {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data
	}
	return raw
}

// === Authentication ===

// RegisterUser registers a new user upstream. Never cached, never retried.
func (c *Client) RegisterUser(ctx context.Context, req RegisterRequest) (*AuthData, error) {
	raw, err := c.Do(ctx, Call{Op: "register_user", Method: http.MethodPost, Path: "/api/auth/register", Body: req})
	if err != nil {
		return nil, err
	}
	var auth AuthData
	if err := json.Unmarshal(unwrap(raw), &auth); err != nil {
		return nil, fmt.Errorf("parse register response: %w", err)
	}
	return &auth, nil
}

// LoginUser authenticates a user upstream. Never cached, never retried.
func (c *Client) LoginUser(ctx context.Context, req LoginRequest) (*AuthData, error) {
	raw, err := c.Do(ctx, Call{Op: "login_user", Method: http.MethodPost, Path: "/api/auth/login", Body: req})
	if err != nil {
		return nil, err
	}
	var auth AuthData
	if err := json.Unmarshal(unwrap(raw), &auth); err != nil {
		return nil, fmt.Errorf("parse login response: %w", err)
	}
	return &auth, nil
}

// GetUserProfile fetches the authenticated user's profile. Token-bound, so
// never cached.
func (c *Client) GetUserProfile(ctx context.Context, token string) (*UserProfile, error) {
	raw, err := c.Do(ctx, Call{Op: "get_user_profile", Method: http.MethodGet, Path: "/api/auth/profile", Token: token})
	if err != nil {
		return nil, err
	}
	var profile UserProfile
	if err := json.Unmarshal(unwrap(raw), &profile); err != nil {
		return nil, fmt.Errorf("parse profile response: %w", err)
	}
	return &profile, nil
}

// === Events ===

// GetEvents fetches the public event listing. Cacheable.
func (c *Client) GetEvents(ctx context.Context) ([]Event, error) {
	raw, err := c.Do(ctx, Call{Op: "get_events", Method: http.MethodGet, Path: "/api/events", Cacheable: true})
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := json.Unmarshal(unwrap(raw), &events); err != nil {
		return nil, fmt.Errorf("parse events response: %w", err)
	}
	return events, nil
}

// GetEventByID fetches a single event. Cacheable.
func (c *Client) GetEventByID(ctx context.Context, eventID int) (*Event, error) {
	raw, err := c.Do(ctx, Call{
		Op:        "get_event",
		Method:    http.MethodGet,
		Path:      "/api/events/" + strconv.Itoa(eventID),
		Cacheable: true,
	})
	if err != nil {
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(unwrap(raw), &event); err != nil {
		return nil, fmt.Errorf("parse event response: %w", err)
	}
	return &event, nil
}

// GetEventStats fetches betting statistics for an event. Cacheable.
func (c *Client) GetEventStats(ctx context.Context, eventID int) (*EventStats, error) {
	raw, err := c.Do(ctx, Call{
		Op:        "get_event_stats",
		Method:    http.MethodGet,
		Path:      "/api/events/" + strconv.Itoa(eventID) + "/stats",
		Cacheable: true,
	})
	if err != nil {
		return nil, err
	}
	var es EventStats
	if err := json.Unmarshal(unwrap(raw), &es); err != nil {
		return nil, fmt.Errorf("parse event stats response: %w", err)
	}
	return &es, nil
}

// === Bets ===

// CreateBet places a bet upstream, then invalidates cached event reads so
// bet totals are not served stale. Never retried.
func (c *Client) CreateBet(ctx context.Context, bet BetCreation, token string) (*Bet, error) {
	raw, err := c.Do(ctx, Call{Op: "create_bet", Method: http.MethodPost, Path: "/api/bets", Body: bet, Token: token})
	if err != nil {
		return nil, err
	}
	c.cache.InvalidatePrefix(eventsCachePrefix)

	var created Bet
	if err := json.Unmarshal(unwrap(raw), &created); err != nil {
		return nil, fmt.Errorf("parse create bet response: %w", err)
	}
	return &created, nil
}

// PreviewBet asks upstream what a bet would look like before placing it.
func (c *Client) PreviewBet(ctx context.Context, bet BetCreation, token string) (*BetPreview, error) {
	raw, err := c.Do(ctx, Call{Op: "preview_bet", Method: http.MethodPost, Path: "/api/bets/preview", Body: bet, Token: token})
	if err != nil {
		return nil, err
	}
	var preview BetPreview
	if err := json.Unmarshal(unwrap(raw), &preview); err != nil {
		return nil, fmt.Errorf("parse bet preview response: %w", err)
	}
	return &preview, nil
}

// GetBet fetches a single bet belonging to the token's user.
func (c *Client) GetBet(ctx context.Context, betID int, token string) (*Bet, error) {
	raw, err := c.Do(ctx, Call{
		Op:     "get_bet",
		Method: http.MethodGet,
		Path:   "/api/bets/" + strconv.Itoa(betID),
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var bet Bet
	if err := json.Unmarshal(unwrap(raw), &bet); err != nil {
		return nil, fmt.Errorf("parse bet response: %w", err)
	}
	return &bet, nil
}

// GetUserBets fetches the user's bets with optional upstream filters.
// Token-bound, so never cached.
func (c *Client) GetUserBets(ctx context.Context, token string, query url.Values) ([]Bet, error) {
	raw, err := c.Do(ctx, Call{Op: "get_user_bets", Method: http.MethodGet, Path: "/api/bets/my-bets", Query: query, Token: token})
	if err != nil {
		return nil, err
	}
	var bets []Bet
	if err := json.Unmarshal(unwrap(raw), &bets); err != nil {
		return nil, fmt.Errorf("parse user bets response: %w", err)
	}
	return bets, nil
}

// GetUserBetStats fetches the user's aggregate betting statistics.
func (c *Client) GetUserBetStats(ctx context.Context, token string) (*BetStats, error) {
	raw, err := c.Do(ctx, Call{Op: "get_user_bet_stats", Method: http.MethodGet, Path: "/api/bets/my-stats", Token: token})
	if err != nil {
		return nil, err
	}
	var bs BetStats
	if err := json.Unmarshal(unwrap(raw), &bs); err != nil {
		return nil, fmt.Errorf("parse bet stats response: %w", err)
	}
	return &bs, nil
}

// CancelBet cancels a bet upstream and invalidates cached event reads.
// Never retried.
func (c *Client) CancelBet(ctx context.Context, betID int, token string) (json.RawMessage, error) {
	raw, err := c.Do(ctx, Call{
		Op:     "cancel_bet",
		Method: http.MethodDelete,
		Path:   "/api/bets/" + strconv.Itoa(betID),
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	c.cache.InvalidatePrefix(eventsCachePrefix)
	return unwrap(raw), nil
}

// === Health ===

// HealthCheck probes the upstream health endpoint and records the result.
// A failure marks the backend unhealthy but never fails the local process.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Do(ctx, Call{Op: "health_check", Method: http.MethodGet, Path: "/health"})
	if err != nil {
		c.stats.SetBackendHealthy(false)
		log.Warnf("%s Upstream health check failed: %v", logcolors.LogHealth, err)
		return err
	}
	c.stats.SetBackendHealthy(true)
	return nil
}

// BreakerState exposes circuit breaker state for the stats endpoint.
func (c *Client) BreakerState() (state string, failures int, timeUntilRetry time.Duration) {
	return c.breaker.State().String(), c.breaker.Failures(), c.breaker.TimeUntilRetry()
}

// ResetBreaker manually closes the circuit breaker.
func (c *Client) ResetBreaker() {
	c.breaker.Reset()
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"betting-bff-go/cache"
	"betting-bff-go/circuitbreaker"
	"betting-bff-go/stats"
)

func newTestClient(serverURL string) (*Client, *stats.Stats, *cache.Store) {
	st := stats.New()
	store := cache.New(100, time.Minute)
	client := New(Options{
		BaseURL:      serverURL,
		Timeout:      2 * time.Second,
		Cache:        store,
		Stats:        st,
		CacheTTL:     time.Minute,
		RetryBackoff: 10 * time.Millisecond,
		EnableCache:  true,
	})
	return client, st, store
}

func TestCacheKey_Deterministic(t *testing.T) {
	q1 := url.Values{}
	q1.Set("status", "upcoming")
	q1.Set("limit", "10")

	q2 := url.Values{}
	q2.Set("limit", "10")
	q2.Set("status", "upcoming")

	k1 := CacheKey("GET", "/api/events", q1)
	k2 := CacheKey("get", "/api/events", q2)
	if k1 != k2 {
		t.Errorf("Expected identical keys regardless of parameter order, got %q and %q", k1, k2)
	}

	k3 := CacheKey("GET", "/api/events", nil)
	if k3 != "GET /api/events" {
		t.Errorf("Expected key without query suffix, got %q", k3)
	}
	if k1 == k3 {
		t.Error("Expected different keys for different query parameters")
	}
}

func TestDo_CachesIdenticalGets(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[{"id":1,"name":"El Clasico"}]}`))
	}))
	defer server.Close()

	client, st, _ := newTestClient(server.URL)

	for i := 0; i < 3; i++ {
		if _, err := client.GetEvents(context.Background()); err != nil {
			t.Fatalf("GetEvents failed on call %d: %v", i, err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 upstream call for 3 identical GETs, got %d", got)
	}
	if got := st.CacheHits.Load(); got != 2 {
		t.Errorf("Expected 2 cache hits, got %d", got)
	}
	if got := st.RequestsMade.Load(); got != 1 {
		t.Errorf("Expected requests_made=1, got %d", got)
	}
}

func TestDo_TokenRequestsNeverCached(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			t.Errorf("Expected bearer token to be forwarded, got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"success":true,"data":{"id":7,"email":"a@b.com","balance":100}}`))
	}))
	defer server.Close()

	client, _, store := newTestClient(server.URL)

	for i := 0; i < 2; i++ {
		if _, err := client.GetUserProfile(context.Background(), "secret-token"); err != nil {
			t.Fatalf("GetUserProfile failed: %v", err)
		}
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("Expected every token-bearing GET to hit upstream, got %d calls", got)
	}
	if store.Size() != 0 {
		t.Errorf("Expected nothing cached for token-bearing requests, found %d entries", store.Size())
	}
}

func TestDo_CacheExpiry(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer server.Close()

	st := stats.New()
	client := New(Options{
		BaseURL:     server.URL,
		Cache:       cache.New(100, time.Minute),
		Stats:       st,
		CacheTTL:    30 * time.Millisecond,
		EnableCache: true,
	})

	if _, err := client.GetEvents(context.Background()); err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := client.GetEvents(context.Background()); err != nil {
		t.Fatalf("GetEvents failed after expiry: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("Expected expired entry to trigger a fresh upstream call, got %d calls", got)
	}
}

func TestDo_CorruptCacheEntryTreatedAsMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"id":1}]}`))
	}))
	defer server.Close()

	client, _, store := newTestClient(server.URL)

	key := CacheKey(http.MethodGet, "/api/events", nil)
	store.Set(key, []byte("{not valid json"), time.Minute)

	events, err := client.GetEvents(context.Background())
	if err != nil {
		t.Fatalf("Expected corrupt entry to fall through to upstream, got error: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Expected 1 event from upstream, got %d", len(events))
	}

	// The corrupt entry must have been replaced with the fresh response
	if cached, ok := store.Get(key); !ok || !json.Valid(cached) {
		t.Error("Expected corrupt entry to be replaced by a valid cached response")
	}
}

func TestDo_RetriesTransientGetOnce(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Drop the connection mid-request to simulate a transient failure
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Fatalf("Hijack failed: %v", err)
			}
			conn.Close()
			return
		}
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer server.Close()

	client, st, _ := newTestClient(server.URL)

	if _, err := client.GetEvents(context.Background()); err != nil {
		t.Fatalf("Expected retry to recover from transient failure, got: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("Expected exactly 2 attempts, got %d", got)
	}
	if got := st.RequestsMade.Load(); got != 2 {
		t.Errorf("Expected requests_made=2 (one per attempt), got %d", got)
	}
	if got := st.Errors.Load(); got != 1 {
		t.Errorf("Expected errors=1 for the failed attempt, got %d", got)
	}
}

func TestDo_MutatingCallsNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Fatalf("Hijack failed: %v", err)
		}
		conn.Close()
	}))
	defer server.Close()

	client, st, _ := newTestClient(server.URL)

	_, err := client.CreateBet(context.Background(), BetCreation{EventID: 1, SelectedTeam: "Real Madrid", Amount: 50}, "token")
	if err == nil {
		t.Fatal("Expected error for failed POST")
	}

	var unavailable *BackendUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected BackendUnavailableError, got %T: %v", err, err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 attempt for a mutating call, got %d", got)
	}
	if got := st.RequestsMade.Load(); got != 1 {
		t.Errorf("Expected requests_made=1, got %d", got)
	}
}

func TestDo_UpstreamErrorPreservesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"Event not found"}`))
	}))
	defer server.Close()

	client, st, _ := newTestClient(server.URL)

	_, err := client.GetEventByID(context.Background(), 999)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %T: %v", err, err)
	}
	if upstream.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", upstream.StatusCode)
	}
	if string(upstream.Body) != `{"success":false,"message":"Event not found"}` {
		t.Errorf("Expected original body preserved, got %s", upstream.Body)
	}
	if got := st.Errors.Load(); got != 1 {
		t.Errorf("Expected errors=1, got %d", got)
	}
}

func TestDo_CircuitOpenBlocksCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	st := stats.New()
	client := New(Options{
		BaseURL:          server.URL,
		Cache:            cache.New(100, time.Minute),
		Stats:            st,
		EnableCache:      true,
		BreakerThreshold: 1,
		BreakerCooldown:  time.Hour,
	})

	if _, err := client.GetEvents(context.Background()); err == nil {
		t.Fatal("Expected error for 500 response")
	}

	before := st.RequestsMade.Load()
	_, err := client.GetEvents(context.Background())
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("Expected circuit open error, got: %v", err)
	}
	if got := st.RequestsMade.Load(); got != before {
		t.Errorf("Expected no upstream call while circuit is open, requests went %d -> %d", before, got)
	}
}

func TestCreateBet_InvalidatesEventCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"success":true,"data":[{"id":1,"totalBetsCount":5}]}`))
		case http.MethodPost:
			w.Write([]byte(`{"success":true,"data":{"id":42,"eventId":1,"amount":50}}`))
		}
	}))
	defer server.Close()

	client, _, store := newTestClient(server.URL)

	if _, err := client.GetEvents(context.Background()); err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if store.Size() != 1 {
		t.Fatalf("Expected 1 cached entry, got %d", store.Size())
	}

	if _, err := client.CreateBet(context.Background(), BetCreation{EventID: 1, SelectedTeam: "Real Madrid", Amount: 50}, "token"); err != nil {
		t.Fatalf("CreateBet failed: %v", err)
	}

	if store.Size() != 0 {
		t.Errorf("Expected event cache invalidated after bet creation, %d entries remain", store.Size())
	}
}

func TestHealthCheck_TracksBackendHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	}))

	client, st, _ := newTestClient(server.URL)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed against healthy server: %v", err)
	}
	if !st.BackendHealthy() {
		t.Error("Expected backend marked healthy")
	}

	server.Close()
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("Expected HealthCheck to fail against closed server")
	}
	if st.BackendHealthy() {
		t.Error("Expected backend marked unhealthy after failed check")
	}
}

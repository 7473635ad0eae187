package aggregate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"betting-bff-go/cache"
	"betting-bff-go/services/backend"
	"betting-bff-go/stats"
)

// fakeUpstream serves the endpoints the aggregator fans out to. Handlers can
// be overridden per test to inject failures.
type fakeUpstream struct {
	profile http.HandlerFunc
	bets    http.HandlerFunc
	myStats http.HandlerFunc
	events  http.HandlerFunc
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func fail500(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"success":false,"message":"internal error"}`))
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		profile: respond(`{"success":true,"data":{"id":1,"email":"a@b.com","fullName":"Test User","balance":500}}`),
		bets:    respond(`{"success":true,"data":[{"id":10,"eventId":1,"amount":25,"status":"active"}]}`),
		myStats: respond(`{"success":true,"data":{"totalBets":3,"activeBets":1,"winRate":50}}`),
		events: respond(`{"success":true,"data":[
			{"id":1,"name":"Quiet Match","teamA":"Getafe","teamB":"Osasuna","totalBetsCount":2,"totalBetsAmount":100,"eventDate":"2099-01-08T12:00:00Z"},
			{"id":2,"name":"El Clasico","teamA":"Real Madrid","teamB":"Barcelona","totalBetsCount":80,"totalBetsAmount":9000,"eventDate":"2099-01-08T12:00:00Z"}
		]}`),
	}
}

func (f *fakeUpstream) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) { f.profile(w, r) })
	mux.HandleFunc("/api/bets/my-bets", func(w http.ResponseWriter, r *http.Request) { f.bets(w, r) })
	mux.HandleFunc("/api/bets/my-stats", func(w http.ResponseWriter, r *http.Request) { f.myStats(w, r) })
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) { f.events(w, r) })
	return httptest.NewServer(mux)
}

func newTestAggregator(serverURL string) (*Aggregator, *stats.Stats) {
	st := stats.New()
	client := backend.New(backend.Options{
		BaseURL:     serverURL,
		Timeout:     2 * time.Second,
		Cache:       cache.New(100, time.Minute),
		Stats:       st,
		EnableCache: true,
	})
	return New(client, st), st
}

func TestDashboard_AllSectionsPresent(t *testing.T) {
	server := newFakeUpstream().server()
	defer server.Close()

	agg, st := newTestAggregator(server.URL)

	dashboard, err := agg.Dashboard(context.Background(), "token")
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}

	if dashboard.User == nil || dashboard.User.Email != "a@b.com" {
		t.Errorf("Expected user profile, got %+v", dashboard.User)
	}
	if len(dashboard.RecentBets) != 1 {
		t.Errorf("Expected 1 recent bet, got %d", len(dashboard.RecentBets))
	}
	if dashboard.BetStats == nil || dashboard.BetStats.TotalBets != 3 {
		t.Errorf("Expected bet stats, got %+v", dashboard.BetStats)
	}
	if len(dashboard.TrendingEvents) != 2 {
		t.Errorf("Expected 2 trending events, got %d", len(dashboard.TrendingEvents))
	}
	if len(dashboard.Metadata.PartialSections) != 0 {
		t.Errorf("Expected no partial sections, got %v", dashboard.Metadata.PartialSections)
	}
	if st.PartialFailures.Load() != 0 {
		t.Errorf("Expected no partial failures recorded, got %d", st.PartialFailures.Load())
	}
	if dashboard.Metadata.GeneratedAt.IsZero() {
		t.Error("Expected generated_at timestamp")
	}
}

func TestDashboard_NonCriticalFailureDegrades(t *testing.T) {
	fake := newFakeUpstream()
	fake.myStats = fail500
	fake.events = fail500
	server := fake.server()
	defer server.Close()

	agg, st := newTestAggregator(server.URL)

	dashboard, err := agg.Dashboard(context.Background(), "token")
	if err != nil {
		t.Fatalf("Expected partial dashboard, got error: %v", err)
	}

	if dashboard.User == nil {
		t.Error("Expected user profile despite partial failures")
	}
	if dashboard.BetStats != nil {
		t.Error("Expected nil bet stats after upstream failure")
	}
	if dashboard.TrendingEvents != nil {
		t.Error("Expected nil trending events after upstream failure")
	}

	// PartialSections is sorted, so the order is deterministic
	want := []string{"bet_stats", "trending_events"}
	if len(dashboard.Metadata.PartialSections) != len(want) {
		t.Fatalf("Expected partial sections %v, got %v", want, dashboard.Metadata.PartialSections)
	}
	for i, section := range want {
		if dashboard.Metadata.PartialSections[i] != section {
			t.Errorf("Expected partial section %s at index %d, got %s", section, i, dashboard.Metadata.PartialSections[i])
		}
	}
	if st.PartialFailures.Load() != 2 {
		t.Errorf("Expected 2 partial failures recorded, got %d", st.PartialFailures.Load())
	}
}

func TestDashboard_CriticalFailureFailsWhole(t *testing.T) {
	fake := newFakeUpstream()
	fake.profile = fail500
	server := fake.server()
	defer server.Close()

	agg, _ := newTestAggregator(server.URL)

	if _, err := agg.Dashboard(context.Background(), "token"); err == nil {
		t.Fatal("Expected dashboard to fail when the profile call fails")
	}
}

func TestTrendingEvents_RankedByPopularity(t *testing.T) {
	server := newFakeUpstream().server()
	defer server.Close()

	agg, _ := newTestAggregator(server.URL)

	trending, err := agg.TrendingEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("TrendingEvents failed: %v", err)
	}
	if len(trending) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(trending))
	}

	// The marquee matchup with more bets must rank first
	if trending[0].ID != 2 {
		t.Errorf("Expected event 2 ranked first, got event %d", trending[0].ID)
	}
	if trending[0].TrendingRank != 1 || trending[1].TrendingRank != 2 {
		t.Errorf("Expected ranks 1 and 2, got %d and %d", trending[0].TrendingRank, trending[1].TrendingRank)
	}
	if trending[0].Popularity.Value <= trending[1].Popularity.Value {
		t.Errorf("Expected descending popularity, got %.2f then %.2f",
			trending[0].Popularity.Value, trending[1].Popularity.Value)
	}
}

func TestTrendingEvents_LimitApplied(t *testing.T) {
	server := newFakeUpstream().server()
	defer server.Close()

	agg, _ := newTestAggregator(server.URL)

	trending, err := agg.TrendingEvents(context.Background(), 1)
	if err != nil {
		t.Fatalf("TrendingEvents failed: %v", err)
	}
	if len(trending) != 1 {
		t.Errorf("Expected limit of 1 applied, got %d events", len(trending))
	}
}

func TestEventDetail_StatisticsDegrade(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events/1", respond(`{"success":true,"data":{"id":1,"name":"Final","teamA":"Liverpool","teamB":"Barcelona","totalBetsCount":40,"totalBetsAmount":2000,"eventDate":"2099-01-08T12:00:00Z"}}`))
	mux.HandleFunc("/api/events/1/stats", fail500)
	server := httptest.NewServer(mux)
	defer server.Close()

	agg, st := newTestAggregator(server.URL)

	detail, err := agg.EventDetail(context.Background(), 1)
	if err != nil {
		t.Fatalf("EventDetail failed: %v", err)
	}
	if detail.Event.ID != 1 {
		t.Errorf("Expected event 1, got %d", detail.Event.ID)
	}
	if detail.Statistics != nil {
		t.Error("Expected nil statistics after upstream failure")
	}
	if detail.Popularity.Value <= 0 {
		t.Errorf("Expected positive popularity for marquee matchup, got %.2f", detail.Popularity.Value)
	}
	if st.PartialFailures.Load() != 1 {
		t.Errorf("Expected 1 partial failure recorded, got %d", st.PartialFailures.Load())
	}
}

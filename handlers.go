package main

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"betting-bff-go/cache"
	"betting-bff-go/config"
	"betting-bff-go/logcolors"
	"betting-bff-go/services/aggregate"
	"betting-bff-go/services/backend"
	"betting-bff-go/services/scoring"
	"betting-bff-go/stats"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50

	similarBetLookback = 24 * time.Hour
)

// server holds the wired dependencies for all handlers. Nothing here is
// global; everything is constructed in main and injected.
type server struct {
	conf       config.Config
	cache      *cache.Store
	stats      *stats.Stats
	backend    *backend.Client
	aggregator *aggregate.Aggregator
}

func newServer(conf config.Config, store *cache.Store, st *stats.Stats, client *backend.Client, agg *aggregate.Aggregator) *server {
	return &server{
		conf:       conf,
		cache:      store,
		stats:      st,
		backend:    client,
		aggregator: agg,
	}
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// === Auth handlers ===

func (s *server) registerUser(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("auth")

	var req backend.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Respond(w, r, s.stats).Failure(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var errs []string
	if req.Email == "" {
		errs = append(errs, "email is required")
	}
	if len(req.Password) < 6 {
		errs = append(errs, "password must be at least 6 characters")
	}
	if strings.TrimSpace(req.FullName) == "" {
		errs = append(errs, "fullName is required")
	}
	if len(errs) > 0 {
		Respond(w, r, s.stats).FromError(&backend.ValidationError{Errors: errs})
		return
	}

	auth, err := s.backend.RegisterUser(r.Context(), req)
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	log.Infof("%s Registered user %s", logcolors.LogAuth, auth.Email)
	Respond(w, r, s.stats).Success("User registered successfully", auth)
}

func (s *server) loginUser(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("auth")

	var req backend.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Respond(w, r, s.stats).Failure(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	auth, err := s.backend.LoginUser(r.Context(), req)
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	log.Infof("%s User %s logged in", logcolors.LogAuth, hashToken(auth.Token))
	Respond(w, r, s.stats).Success("Login successful", auth)
}

func (s *server) getProfile(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("auth")

	token := bearerToken(r)
	if token == "" {
		Respond(w, r, s.stats).Failure(http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
		return
	}

	profile, err := s.backend.GetUserProfile(r.Context(), token)
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}
	Respond(w, r, s.stats).Success("Profile retrieved", profile)
}

// === Event handlers ===

func (s *server) getEvents(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("events")

	events, err := s.backend.GetEvents(r.Context())
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	filtered := filterEvents(events, r.URL.Query())

	now := time.Now().UTC()
	enriched := make([]EnrichedEvent, 0, len(filtered))
	for _, event := range filtered {
		enriched = append(enriched, EnrichedEvent{
			Event:      event,
			Popularity: popularityFor(event, now),
		})
	}
	sortEvents(enriched, now)

	if limit := queryInt(r, "limit", 0); limit > 0 && len(enriched) > limit {
		enriched = enriched[:limit]
	}

	log.Infof("%s Returning %d of %d events", logcolors.LogEvents, len(enriched), len(events))
	Respond(w, r, s.stats).Success("Events retrieved", EventListResult{
		Events: enriched,
		Count:  len(enriched),
	})
}

func (s *server) getEventDetail(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("events")

	eventID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || eventID <= 0 {
		Respond(w, r, s.stats).Failure(http.StatusBadRequest, "VALIDATION_ERROR", "Event id must be a positive integer", nil)
		return
	}

	detail, err := s.aggregator.EventDetail(r.Context(), eventID)
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	Respond(w, r, s.stats).Success("Event retrieved", EventDetailResult{
		Event:           detail.Event,
		Statistics:      detail.Statistics,
		Popularity:      detail.Popularity,
		Recommendations: buildRecommendations(detail.Event, detail.Popularity),
		Metadata:        detail.Metadata,
	})
}

func (s *server) getTrendingEvents(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("events")

	trending, err := s.aggregator.TrendingEvents(r.Context(), queryInt(r, "limit", 5))
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	Respond(w, r, s.stats).Success("Trending events retrieved", TrendingResult{
		Events: trending,
		Count:  len(trending),
	})
}

// === Bet handlers ===

func (s *server) previewBet(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("bets")

	token := bearerToken(r)
	if token == "" {
		Respond(w, r, s.stats).Failure(http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
		return
	}

	var bet backend.BetCreation
	if err := json.NewDecoder(r.Body).Decode(&bet); err != nil {
		Respond(w, r, s.stats).Failure(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return
	}
	if err := s.validateBet(bet); err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	preview, err := s.backend.PreviewBet(r.Context(), bet, token)
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	risk := scoring.AssessRisk(scoring.RiskInput{
		Amount:            preview.Amount,
		Balance:           preview.CurrentBalance,
		Odds:              preview.CurrentOdds,
		SimilarRecentBets: s.countSimilarRecentBets(r.Context(), token, bet.EventID),
	})

	Respond(w, r, s.stats).Success("Bet preview generated", BetPreviewResult{
		Preview: *preview,
		Risk:    risk,
	})
}

func (s *server) createBet(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("bets")
	start := time.Now()

	token := bearerToken(r)
	if token == "" {
		Respond(w, r, s.stats).Failure(http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
		return
	}

	var bet backend.BetCreation
	if err := json.NewDecoder(r.Body).Decode(&bet); err != nil {
		Respond(w, r, s.stats).Failure(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return
	}
	if err := s.validateBet(bet); err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	transactionID := newTransactionID()
	created, err := s.backend.CreateBet(r.Context(), bet, token)
	if err != nil {
		auditLog("create_bet_failed", transactionID, hashToken(token), log.Fields{"event_id": bet.EventID})
		Respond(w, r, s.stats).FromError(err)
		return
	}

	auditLog("create_bet", transactionID, hashToken(token), log.Fields{
		"bet_id":   created.ID,
		"event_id": created.EventID,
		"amount":   created.Amount,
	})

	Respond(w, r, s.stats).Success("Bet placed successfully", BetConfirmation{
		Bet:              *created,
		ConfirmationCode: confirmationCode(created.ID),
		TransactionID:    transactionID,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

func (s *server) getMyBets(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("bets")

	token := bearerToken(r)
	if token == "" {
		Respond(w, r, s.stats).Failure(http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
		return
	}

	upstreamQuery := url.Values{}
	if status := r.URL.Query().Get("status"); status != "" {
		upstreamQuery.Set("status", status)
	}

	bets, err := s.backend.GetUserBets(r.Context(), token, upstreamQuery)
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	now := time.Now().UTC()
	enriched := make([]EnrichedBet, 0, len(bets))
	for _, bet := range bets {
		enriched = append(enriched, enrichBet(bet, now))
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", defaultPageSize)
	paged, pagination := paginate(enriched, page, pageSize)

	log.Infof("%s Returning page %d (%d of %d bets)", logcolors.LogBets, pagination.Page, len(paged), pagination.Total)

	result := PagedBets{Bets: paged, Pagination: pagination}
	if r.URL.Query().Get("include_stats") == "true" {
		// Best effort: statistics are a bonus, their failure never hides bets
		if betStats, err := s.backend.GetUserBetStats(r.Context(), token); err == nil {
			result.Statistics = betStats
		}
	}

	Respond(w, r, s.stats).Success("Bets retrieved", result)
}

func (s *server) getDashboard(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("dashboard")

	token := bearerToken(r)
	if token == "" {
		Respond(w, r, s.stats).Failure(http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
		return
	}

	dashboard, err := s.aggregator.Dashboard(r.Context(), token)
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}

	Respond(w, r, s.stats).Success("Dashboard assembled", DashboardResult{
		User:           dashboard.User,
		RecentBets:     dashboard.RecentBets,
		BetStats:       dashboard.BetStats,
		TrendingEvents: dashboard.TrendingEvents,
		Notifications:  buildNotifications(dashboard),
		Metadata:       dashboard.Metadata,
	})
}

func (s *server) cancelBet(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("bets")

	token := bearerToken(r)
	if token == "" {
		Respond(w, r, s.stats).Failure(http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
		return
	}

	betID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || betID <= 0 {
		Respond(w, r, s.stats).Failure(http.StatusBadRequest, "VALIDATION_ERROR", "Bet id must be a positive integer", nil)
		return
	}

	// Verify cancellability first so the user gets a clear conflict instead
	// of an opaque upstream rejection
	bet, err := s.backend.GetBet(r.Context(), betID, token)
	if err != nil {
		Respond(w, r, s.stats).FromError(err)
		return
	}
	if !bet.CanBeCancelled {
		Respond(w, r, s.stats).Failure(http.StatusConflict, "BET_NOT_CANCELLABLE", "This bet can no longer be cancelled", nil)
		return
	}

	transactionID := newTransactionID()
	result, err := s.backend.CancelBet(r.Context(), betID, token)
	if err != nil {
		auditLog("cancel_bet_failed", transactionID, hashToken(token), log.Fields{"bet_id": betID})
		Respond(w, r, s.stats).FromError(err)
		return
	}

	auditLog("cancel_bet", transactionID, hashToken(token), log.Fields{"bet_id": betID})
	Respond(w, r, s.stats).Success("Bet cancelled", CancelResult{
		BetID:         betID,
		TransactionID: transactionID,
		Result:        result,
	})
}

// === Operational handlers ===

func (s *server) getHealthStatus(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("other")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	if err := s.backend.HealthCheck(ctx); err != nil {
		status = "degraded"
	}

	Respond(w, r, s.stats).Success("Health check complete", HealthResult{
		Status:         status,
		BackendHealthy: s.stats.BackendHealthy(),
		Uptime:         s.stats.Uptime().String(),
		CacheEntries:   s.cache.Size(),
	})
}

func (s *server) getStats(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("other")

	breakerState, breakerFailures, retryIn := s.backend.BreakerState()

	snapshot := s.stats.Snapshot()
	snapshot["cache"] = map[string]interface{}{
		"entries":  s.cache.Size(),
		"hits":     s.cache.Hits(),
		"misses":   s.cache.Misses(),
		"hit_rate": s.cache.HitRate(),
	}
	snapshot["circuit_breaker"] = map[string]interface{}{
		"state":    breakerState,
		"failures": breakerFailures,
		"retry_in": retryIn.String(),
	}

	Respond(w, r, s.stats).Success("Service statistics", snapshot)
}

func (s *server) getCacheDump(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("other")

	if s.conf.Configuration.CacheAccessToken == "" ||
		r.Header.Get("Authorization") != s.conf.Configuration.CacheAccessToken {
		Respond(w, r, s.stats).Failure(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid cache access token", nil)
		return
	}

	keys := s.cache.Keys()
	sort.Strings(keys)
	log.Infof("%s Dumping %d cache keys", logcolors.LogCacheDump, len(keys))

	Respond(w, r, s.stats).Success("Cache dump", CacheDumpResult{
		NumberOfKeys: len(keys),
		Keys:         keys,
		HitRate:      s.cache.HitRate(),
	})
}

func (s *server) helpHandler(w http.ResponseWriter, r *http.Request) {
	s.stats.RecordRequest("other")
	Respond(w, r, s.stats).Success("Sports betting BFF", map[string]interface{}{
		"endpoints": []string{
			"POST /api/auth/register",
			"POST /api/auth/login",
			"GET /api/auth/profile",
			"GET /api/events",
			"GET /api/events/{id}",
			"GET /api/events/trending/popular",
			"POST /api/bets",
			"POST /api/bets/preview",
			"GET /api/bets/my-bets",
			"GET /api/bets/dashboard",
			"DELETE /api/bets/{id}",
			"GET /health",
			"GET /stats",
		},
	})
}

// === Helpers ===

// validateBet enforces local betting rules before any upstream I/O.
func (s *server) validateBet(bet backend.BetCreation) error {
	cfg := s.conf.Configuration
	var errs []string

	if bet.EventID <= 0 {
		errs = append(errs, "eventId must be a positive integer")
	}

	team := strings.TrimSpace(bet.SelectedTeam)
	if team == "" {
		errs = append(errs, "selectedTeam is required")
	} else if strings.ContainsAny(team, `<>&"'`) {
		errs = append(errs, "selectedTeam contains invalid characters")
	}

	if bet.Amount < cfg.MinBetAmount {
		errs = append(errs, "amount must be at least $"+strconv.FormatFloat(cfg.MinBetAmount, 'f', -1, 64))
	}
	if bet.Amount > cfg.MaxBetAmount {
		errs = append(errs, "amount exceeds the maximum of $"+strconv.FormatFloat(cfg.MaxBetAmount, 'f', -1, 64))
	}
	if math.Abs(bet.Amount*100-math.Round(bet.Amount*100)) > 1e-9 {
		errs = append(errs, "amount can have at most 2 decimal places")
	}

	if len(errs) > 0 {
		return &backend.ValidationError{Errors: errs}
	}
	return nil
}

// countSimilarRecentBets counts the user's recent bets on the same event.
// Best effort: a failure here just means no history signal for the risk check.
func (s *server) countSimilarRecentBets(ctx context.Context, token string, eventID int) int {
	bets, err := s.backend.GetUserBets(ctx, token, nil)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-similarBetLookback)
	count := 0
	for _, bet := range bets {
		if bet.EventID == eventID && bet.CreatedAt.After(cutoff) {
			count++
		}
	}
	return count
}

func popularityFor(event backend.Event, now time.Time) scoring.PopularityScore {
	return scoring.Popularity(scoring.PopularityInput{
		EventID:     event.ID,
		TotalBets:   event.TotalBetsCount,
		TotalAmount: event.TotalBetsAmount,
		EventDate:   event.EventDate,
		TeamA:       event.TeamA,
		TeamB:       event.TeamB,
		Now:         now,
	})
}

// filterEvents applies the listing filters the upstream API does not support.
func filterEvents(events []backend.Event, query url.Values) []backend.Event {
	team := strings.ToLower(query.Get("team"))
	dateFrom, _ := time.Parse(time.RFC3339, query.Get("date_from"))
	dateTo, _ := time.Parse(time.RFC3339, query.Get("date_to"))

	filtered := make([]backend.Event, 0, len(events))
	for _, event := range events {
		if team != "" &&
			!strings.Contains(strings.ToLower(event.TeamA), team) &&
			!strings.Contains(strings.ToLower(event.TeamB), team) {
			continue
		}
		if !dateFrom.IsZero() && event.EventDate.Before(dateFrom) {
			continue
		}
		if !dateTo.IsZero() && event.EventDate.After(dateTo) {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}

// sortEvents orders events by popularity, then proximity, then money on the
// board. Ties break by ID so the order is stable across runs.
func sortEvents(events []EnrichedEvent, now time.Time) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Popularity.Value != b.Popularity.Value {
			return a.Popularity.Value > b.Popularity.Value
		}
		ad, bd := a.EventDate.Sub(now), b.EventDate.Sub(now)
		if ad != bd {
			return ad < bd
		}
		if a.TotalBetsAmount != b.TotalBetsAmount {
			return a.TotalBetsAmount > b.TotalBetsAmount
		}
		return a.ID < b.ID
	})
}

// enrichBet adds the derived fields clients want alongside each bet.
func enrichBet(bet backend.Bet, now time.Time) EnrichedBet {
	enriched := EnrichedBet{Bet: bet}
	switch bet.Status {
	case "won":
		enriched.ProfitLoss = bet.PotentialWin - bet.Amount
		enriched.IsWinning = true
	case "lost":
		enriched.ProfitLoss = -bet.Amount
	}
	enriched.TimeRemaining = timeRemaining(bet.EventDate, now)
	return enriched
}

// paginate cuts a local page out of the full upstream list.
func paginate(bets []EnrichedBet, page, pageSize int) ([]EnrichedBet, Pagination) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total := len(bets)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start >= total {
		return []EnrichedBet{}, Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return bets[start:end], Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// buildRecommendations derives simple betting suggestions for an event.
func buildRecommendations(event backend.Event, popularity scoring.PopularityScore) []BetRecommendation {
	var recommendations []BetRecommendation

	if event.TeamAOdds > event.TeamBOdds {
		recommendations = append(recommendations, BetRecommendation{
			Type:       "underdog",
			Team:       event.TeamA,
			Reason:     "Higher odds, potential for bigger win",
			Confidence: 0.7,
		})
	} else if event.TeamBOdds > event.TeamAOdds {
		recommendations = append(recommendations, BetRecommendation{
			Type:       "underdog",
			Team:       event.TeamB,
			Reason:     "Higher odds, potential for bigger win",
			Confidence: 0.7,
		})
	}

	if popularity.Value > 50 {
		recommendations = append(recommendations, BetRecommendation{
			Type:       "popular",
			Reason:     "High user interest in this event",
			Confidence: 0.8,
		})
	}

	return recommendations
}

// buildNotifications derives dashboard notifications from aggregate data.
func buildNotifications(dashboard *aggregate.Dashboard) []string {
	var notifications []string

	now := time.Now().UTC()
	for _, bet := range dashboard.RecentBets {
		if bet.Status == "active" && !bet.EventDate.IsZero() && bet.EventDate.Sub(now) > 0 && bet.EventDate.Sub(now) <= 24*time.Hour {
			notifications = append(notifications, "Your bet on "+bet.EventName+" starts within 24 hours")
		}
	}

	if dashboard.BetStats != nil && dashboard.BetStats.WinRate > 60 && dashboard.BetStats.TotalBets >= 5 {
		notifications = append(notifications, "You're on a winning streak: "+strconv.FormatFloat(dashboard.BetStats.WinRate, 'f', 0, 64)+"% win rate")
	}

	return notifications
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

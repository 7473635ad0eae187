package main

import (
	"encoding/json"
	"strconv"
	"time"

	"betting-bff-go/services/aggregate"
	"betting-bff-go/services/backend"
	"betting-bff-go/services/scoring"
)

// EnrichedBet is an upstream bet annotated with derived fields clients would
// otherwise compute themselves.
type EnrichedBet struct {
	backend.Bet
	ProfitLoss    float64 `json:"profit_loss"`
	IsWinning     bool    `json:"is_winning"`
	TimeRemaining string  `json:"time_remaining,omitempty"`
}

// EnrichedEvent is an upstream event annotated with its popularity score.
type EnrichedEvent struct {
	backend.Event
	Popularity scoring.PopularityScore `json:"popularity"`
}

// BetConfirmation wraps a created bet with audit metadata.
type BetConfirmation struct {
	Bet              backend.Bet `json:"bet"`
	ConfirmationCode string      `json:"confirmation_code"`
	TransactionID    string      `json:"transaction_id"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
}

// BetPreviewResult is an upstream preview merged with the risk assessment.
type BetPreviewResult struct {
	Preview backend.BetPreview     `json:"preview"`
	Risk    scoring.RiskAssessment `json:"risk"`
}

// Pagination describes a page of results cut locally from the upstream list.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PagedBets is a page of enriched bets, optionally with user statistics.
type PagedBets struct {
	Bets       []EnrichedBet     `json:"bets"`
	Pagination Pagination        `json:"pagination"`
	Statistics *backend.BetStats `json:"statistics,omitempty"`
}

// EventListResult is the payload for the event listing endpoint.
type EventListResult struct {
	Events []EnrichedEvent `json:"events"`
	Count  int             `json:"count"`
}

// EventDetailResult is the payload for the event detail endpoint.
type EventDetailResult struct {
	Event           backend.Event           `json:"event"`
	Statistics      *backend.EventStats     `json:"statistics"`
	Popularity      scoring.PopularityScore `json:"popularity"`
	Recommendations []BetRecommendation     `json:"recommendations"`
	Metadata        aggregate.Metadata      `json:"metadata"`
}

// TrendingResult is the payload for the trending events endpoint.
type TrendingResult struct {
	Events []aggregate.TrendingEvent `json:"events"`
	Count  int                       `json:"count"`
}

// DashboardResult is the payload for the dashboard endpoint.
type DashboardResult struct {
	User           *backend.UserProfile      `json:"user"`
	RecentBets     []backend.Bet             `json:"recent_bets"`
	BetStats       *backend.BetStats         `json:"bet_stats"`
	TrendingEvents []aggregate.TrendingEvent `json:"trending_events"`
	Notifications  []string                  `json:"notifications"`
	Metadata       aggregate.Metadata        `json:"metadata"`
}

// CancelResult is the payload for a successful bet cancellation.
type CancelResult struct {
	BetID         int             `json:"bet_id"`
	TransactionID string          `json:"transaction_id"`
	Result        json.RawMessage `json:"result,omitempty"`
}

// HealthResult is the payload for the health endpoint.
type HealthResult struct {
	Status         string `json:"status"`
	BackendHealthy bool   `json:"backend_healthy"`
	Uptime         string `json:"uptime"`
	CacheEntries   int    `json:"cache_entries"`
}

// CacheDumpResult is the payload for the token-protected cache dump.
type CacheDumpResult struct {
	NumberOfKeys int      `json:"number_of_keys"`
	Keys         []string `json:"keys"`
	HitRate      float64  `json:"hit_rate"`
}

// BetRecommendation is a per-event betting suggestion derived from odds and
// popularity.
type BetRecommendation struct {
	Type       string  `json:"type"`
	Team       string  `json:"team,omitempty"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// timeRemaining renders a coarse human-readable duration until the event.
func timeRemaining(eventDate, now time.Time) string {
	if eventDate.IsZero() || !eventDate.After(now) {
		return ""
	}
	d := eventDate.Sub(now)
	switch {
	case d >= 24*time.Hour:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return strconv.Itoa(days) + " days"
	case d >= time.Hour:
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return strconv.Itoa(hours) + " hours"
	default:
		minutes := int(d / time.Minute)
		if minutes <= 1 {
			return "starting soon"
		}
		return strconv.Itoa(minutes) + " minutes"
	}
}

// Package aggregate composes multiple upstream calls into single responses,
// dispatching them concurrently and merging the results with derived scores.
package aggregate

import (
	"context"
	"sort"
	"sync"
	"time"

	"betting-bff-go/logcolors"
	"betting-bff-go/services/backend"
	"betting-bff-go/services/scoring"
	"betting-bff-go/stats"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	recentBetsLimit      = 5
	trendingEventsLimit  = 5
	trendingScoreMinimum = 0.0
)

// Aggregator fans out independent backend calls and merges their results.
// It is stateless; all data comes from the backend client per request.
type Aggregator struct {
	backend *backend.Client
	stats   *stats.Stats
}

// New creates an Aggregator.
func New(client *backend.Client, st *stats.Stats) *Aggregator {
	return &Aggregator{backend: client, stats: st}
}

// TrendingEvent is an event annotated with its popularity score and rank.
type TrendingEvent struct {
	backend.Event
	Popularity   scoring.PopularityScore `json:"popularity"`
	TrendingRank int                     `json:"trending_rank"`
}

// Metadata describes how an aggregate response was assembled.
type Metadata struct {
	GeneratedAt      time.Time `json:"generated_at"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	DataSources      []string  `json:"data_sources"`
	PartialSections  []string  `json:"partial_sections,omitempty"`
}

// Dashboard is the merged per-user dashboard payload. Sections that failed
// non-critically are nil and listed in Metadata.PartialSections.
type Dashboard struct {
	User           *backend.UserProfile `json:"user"`
	RecentBets     []backend.Bet        `json:"recent_bets"`
	BetStats       *backend.BetStats    `json:"bet_stats"`
	TrendingEvents []TrendingEvent      `json:"trending_events"`
	Metadata       Metadata             `json:"metadata"`
}

// Dashboard fetches the user profile, recent bets, bet statistics, and
// trending events concurrently and merges them. The profile is critical:
// if it fails, the whole aggregate fails. Every other section degrades to
// nil on failure, with the failure recorded in stats.
func (a *Aggregator) Dashboard(ctx context.Context, token string) (*Dashboard, error) {
	start := time.Now()
	dashboard := &Dashboard{}

	var mu sync.Mutex
	partial := func(section string, err error) {
		a.stats.RecordPartialFailure()
		log.Warnf("%s Section %s failed, returning partial dashboard: %v", logcolors.LogDashboard, section, err)
		mu.Lock()
		dashboard.Metadata.PartialSections = append(dashboard.Metadata.PartialSections, section)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := a.backend.GetUserProfile(gctx, token)
		if err != nil {
			return err // critical: no dashboard without the user
		}
		dashboard.User = profile
		return nil
	})

	g.Go(func() error {
		bets, err := a.backend.GetUserBets(gctx, token, nil)
		if err != nil {
			partial("recent_bets", err)
			return nil
		}
		if len(bets) > recentBetsLimit {
			bets = bets[:recentBetsLimit]
		}
		dashboard.RecentBets = bets
		return nil
	})

	g.Go(func() error {
		betStats, err := a.backend.GetUserBetStats(gctx, token)
		if err != nil {
			partial("bet_stats", err)
			return nil
		}
		dashboard.BetStats = betStats
		return nil
	})

	g.Go(func() error {
		trending, err := a.TrendingEvents(gctx, trendingEventsLimit)
		if err != nil {
			partial("trending_events", err)
			return nil
		}
		dashboard.TrendingEvents = trending
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(dashboard.Metadata.PartialSections)
	dashboard.Metadata.GeneratedAt = time.Now().UTC()
	dashboard.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()
	dashboard.Metadata.DataSources = []string{"user_profile", "user_bets", "bet_stats", "events"}

	log.Infof("%s Assembled dashboard in %dms (%d partial sections)",
		logcolors.LogDashboard, dashboard.Metadata.ProcessingTimeMs, len(dashboard.Metadata.PartialSections))
	return dashboard, nil
}

// EventDetail is an event merged with its betting statistics and popularity.
type EventDetail struct {
	Event      backend.Event           `json:"event"`
	Statistics *backend.EventStats     `json:"statistics"`
	Popularity scoring.PopularityScore `json:"popularity"`
	Metadata   Metadata                `json:"metadata"`
}

// EventDetail fetches an event and its statistics concurrently. The event
// itself is critical; statistics degrade to nil on failure.
func (a *Aggregator) EventDetail(ctx context.Context, eventID int) (*EventDetail, error) {
	start := time.Now()
	detail := &EventDetail{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		event, err := a.backend.GetEventByID(gctx, eventID)
		if err != nil {
			return err
		}
		detail.Event = *event
		return nil
	})

	g.Go(func() error {
		es, err := a.backend.GetEventStats(gctx, eventID)
		if err != nil {
			a.stats.RecordPartialFailure()
			log.Warnf("%s Event stats unavailable for event %d: %v", logcolors.LogDashboard, eventID, err)
			detail.Metadata.PartialSections = []string{"statistics"}
			return nil
		}
		detail.Statistics = es
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail.Popularity = scorePopularity(detail.Event, time.Now().UTC())
	detail.Metadata.GeneratedAt = time.Now().UTC()
	detail.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()
	detail.Metadata.DataSources = []string{"events", "event_stats"}
	return detail, nil
}

// TrendingEvents fetches all events, scores them, and returns the top ones
// ranked by popularity. Ties break by event ID so the order is deterministic
// regardless of upstream ordering.
func (a *Aggregator) TrendingEvents(ctx context.Context, limit int) ([]TrendingEvent, error) {
	if limit <= 0 {
		limit = trendingEventsLimit
	}

	events, err := a.backend.GetEvents(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	trending := make([]TrendingEvent, 0, len(events))
	for _, event := range events {
		score := scorePopularity(event, now)
		if score.Value < trendingScoreMinimum {
			continue
		}
		trending = append(trending, TrendingEvent{Event: event, Popularity: score})
	}

	sort.Slice(trending, func(i, j int) bool {
		if trending[i].Popularity.Value != trending[j].Popularity.Value {
			return trending[i].Popularity.Value > trending[j].Popularity.Value
		}
		return trending[i].ID < trending[j].ID
	})

	if len(trending) > limit {
		trending = trending[:limit]
	}
	for i := range trending {
		trending[i].TrendingRank = i + 1
	}
	return trending, nil
}

func scorePopularity(event backend.Event, now time.Time) scoring.PopularityScore {
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

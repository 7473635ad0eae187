// Package scoring computes derived scores from normalized upstream data.
// Everything here is pure: no I/O, no clocks, no shared state. Callers supply
// all inputs including the reference time.
package scoring

import (
	"math"
	"time"
)

// Popularity formula weights. Each component is normalized to a 0-100 scale
// before weighting so the factors are comparable.
const (
	BetCountWeight  = 0.30
	BetAmountWeight = 0.40
	TimeWeight      = 0.20
	TeamWeight      = 0.10

	// Normalization caps
	betCountCap    = 100.0
	betAmountScale = 100.0 // dollars per normalized point
	betAmountCap   = 100.0

	// Business-rule bonuses carried over from the original ranking rules.
	// Kept as named constants rather than folded into the weights.
	NearTermBonus    = 20.0 // events starting within one day
	MarqueeTeamBonus = 5.0  // per participating marquee team

	// Base popularity assigned to marquee teams in the lookup table
	marqueeTeamBase = 50.0
)

// marqueeTeams are the teams that receive both a base popularity entry and
// the fixed marquee bonus.
var marqueeTeams = map[string]bool{
	"Real Madrid":       true,
	"Barcelona":         true,
	"Manchester United": true,
	"Liverpool":         true,
}

// PopularityInput is the normalized event data the popularity formula needs.
type PopularityInput struct {
	EventID     int
	TotalBets   int
	TotalAmount float64
	EventDate   time.Time
	TeamA       string
	TeamB       string
	Now         time.Time // reference time, injected for determinism
}

// PopularityFactors breaks the final score down into its weighted components.
type PopularityFactors struct {
	BetCount  float64 `json:"bet_count_component"`
	BetAmount float64 `json:"bet_amount_component"`
	Time      float64 `json:"time_component"`
	Team      float64 `json:"team_component"`
}

// PopularityScore is the derived ranking signal for one event. ZeroFilled
// lists the factors whose inputs were missing or invalid and therefore
// contributed nothing, so callers can tell a genuine zero from a defaulted one.
type PopularityScore struct {
	EventID    int               `json:"event_id"`
	Value      float64           `json:"value"`
	Factors    PopularityFactors `json:"factors"`
	ZeroFilled []string          `json:"zero_filled,omitempty"`
}

// Popularity computes the popularity score for an event. Malformed numeric
// inputs (negative counts, NaN amounts, zero dates) contribute zero and are
// recorded in ZeroFilled rather than causing an error. The result is
// non-negative and has no upper bound.
func Popularity(in PopularityInput) PopularityScore {
	score := PopularityScore{EventID: in.EventID}

	// Bet count: capped, then weighted
	if in.TotalBets < 0 {
		score.ZeroFilled = append(score.ZeroFilled, "bet_count_component")
	} else {
		score.Factors.BetCount = math.Min(float64(in.TotalBets), betCountCap) * BetCountWeight
	}

	// Bet amount: scaled to points, capped, then weighted
	if in.TotalAmount < 0 || math.IsNaN(in.TotalAmount) || math.IsInf(in.TotalAmount, 0) {
		score.ZeroFilled = append(score.ZeroFilled, "bet_amount_component")
	} else {
		score.Factors.BetAmount = math.Min(in.TotalAmount/betAmountScale, betAmountCap) * BetAmountWeight
	}

	// Time proximity: inverse of days until the event, saturating at 100 as
	// the event date approaches. Past or unknown dates contribute zero.
	if in.EventDate.IsZero() || in.Now.IsZero() {
		score.ZeroFilled = append(score.ZeroFilled, "time_component")
	} else if days := daysUntil(in.Now, in.EventDate); days < 0 {
		score.ZeroFilled = append(score.ZeroFilled, "time_component")
	} else {
		proximity := 100.0 / (1.0 + float64(days))
		score.Factors.Time = proximity * TimeWeight
		if days <= 1 {
			score.Factors.Time += NearTermBonus
		}
	}

	// Team popularity: base lookup plus the marquee bonus per team
	teamBase := teamBasePopularity(in.TeamA) + teamBasePopularity(in.TeamB)
	score.Factors.Team = teamBase * TeamWeight
	if marqueeTeams[in.TeamA] {
		score.Factors.Team += MarqueeTeamBonus
	}
	if marqueeTeams[in.TeamB] {
		score.Factors.Team += MarqueeTeamBonus
	}

	total := score.Factors.BetCount + score.Factors.BetAmount + score.Factors.Time + score.Factors.Team
	score.Value = math.Max(round2(total), 0)
	return score
}

// daysUntil returns whole days from now to the event date, negative if the
// event is in the past.
func daysUntil(now, eventDate time.Time) int {
	d := eventDate.Sub(now)
	if d < 0 {
		return -1
	}
	return int(d / (24 * time.Hour))
}

func teamBasePopularity(team string) float64 {
	if marqueeTeams[team] {
		return marqueeTeamBase
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package scoring

// Risk levels for a bet preview.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Balance-ratio thresholds. Strictly greater-than: a ratio of exactly 0.50
// classifies as medium and exactly 0.10 as low.
const (
	HighRiskRatio   = 0.50
	MediumRiskRatio = 0.10
)

// Odds outside this band are flagged as unusual.
const (
	minReasonableOdds = 1.2
	maxReasonableOdds = 10.0
)

// Betting more often than this on similar events inside the caller's
// lookback window is flagged as a pattern.
const similarBetFrequencyLimit = 5

// riskConfidence is fixed: this is a rule-based classifier, not a model.
const riskConfidence = 0.75

// RiskInput is everything the classifier needs, supplied by the caller.
// SimilarRecentBets is the count of comparable bets the same user placed in
// the caller's lookback window; this component never fetches history itself.
type RiskInput struct {
	Amount            float64
	Balance           float64
	Odds              float64
	SimilarRecentBets int
}

// RiskAssessment is the classification of a single bet preview.
type RiskAssessment struct {
	Level          string   `json:"level"`
	Recommendation string   `json:"recommendation"`
	Confidence     float64  `json:"confidence"`
	Flags          []string `json:"flags,omitempty"`
}

// AssessRisk classifies a bet by the amount-to-balance ratio, with odds and
// betting-frequency checks surfaced as advisory flags. Deterministic for
// identical input.
func AssessRisk(in RiskInput) RiskAssessment {
	assessment := RiskAssessment{Confidence: riskConfidence}

	var ratio float64
	if in.Balance > 0 {
		ratio = in.Amount / in.Balance
	} else if in.Amount > 0 {
		// Betting against a zero or unknown balance is always high risk
		ratio = 1.0
		assessment.Flags = append(assessment.Flags, "no_balance_data")
	}

	switch {
	case ratio > HighRiskRatio:
		assessment.Level = RiskHigh
		assessment.Recommendation = "This bet is a large share of your balance. Consider a smaller stake."
	case ratio > MediumRiskRatio:
		assessment.Level = RiskMedium
		assessment.Recommendation = "Moderate stake relative to your balance. Bet within your limits."
	default:
		assessment.Level = RiskLow
		assessment.Recommendation = "Stake is well within your balance."
	}

	if in.Odds > 0 {
		if in.Odds > maxReasonableOdds {
			assessment.Flags = append(assessment.Flags, "unusually_high_odds")
		} else if in.Odds < minReasonableOdds {
			assessment.Flags = append(assessment.Flags, "unusually_low_odds")
		}
	}

	if in.SimilarRecentBets >= similarBetFrequencyLimit {
		assessment.Flags = append(assessment.Flags, "frequent_similar_bets")
	}

	return assessment
}

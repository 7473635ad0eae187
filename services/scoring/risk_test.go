package scoring

import "testing"

func TestAssessRisk_RatioThresholds(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		balance float64
		want    string
	}{
		{"tiny stake", 1, 1000, RiskLow},
		{"exactly 0.10 is low", 10, 100, RiskLow},
		{"just above 0.10 is medium", 10.01, 100, RiskMedium},
		{"exactly 0.50 is medium", 50, 100, RiskMedium},
		{"just above 0.50 is high", 50.01, 100, RiskHigh},
		{"entire balance", 100, 100, RiskHigh},
		{"more than balance", 150, 100, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessRisk(RiskInput{Amount: tt.amount, Balance: tt.balance, Odds: 2.0})
			if got.Level != tt.want {
				t.Errorf("Expected level %s for %.2f/%.2f, got %s", tt.want, tt.amount, tt.balance, got.Level)
			}
			if got.Recommendation == "" {
				t.Error("Expected a non-empty recommendation")
			}
			if got.Confidence != 0.75 {
				t.Errorf("Expected fixed confidence 0.75, got %.2f", got.Confidence)
			}
		})
	}
}

func TestAssessRisk_ZeroBalance(t *testing.T) {
	got := AssessRisk(RiskInput{Amount: 50, Balance: 0, Odds: 2.0})
	if got.Level != RiskHigh {
		t.Errorf("Expected high risk with no balance data, got %s", got.Level)
	}
	if !hasFlag(got.Flags, "no_balance_data") {
		t.Errorf("Expected no_balance_data flag, got %v", got.Flags)
	}
}

func TestAssessRisk_OddsBand(t *testing.T) {
	tests := []struct {
		name string
		odds float64
		flag string
	}{
		{"odds in band", 2.5, ""},
		{"odds too high", 15.0, "unusually_high_odds"},
		{"odds too low", 1.05, "unusually_low_odds"},
		{"odds unknown", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessRisk(RiskInput{Amount: 5, Balance: 1000, Odds: tt.odds})
			if tt.flag == "" {
				if len(got.Flags) != 0 {
					t.Errorf("Expected no flags, got %v", got.Flags)
				}
			} else if !hasFlag(got.Flags, tt.flag) {
				t.Errorf("Expected flag %s, got %v", tt.flag, got.Flags)
			}
		})
	}
}

func TestAssessRisk_FrequentSimilarBets(t *testing.T) {
	got := AssessRisk(RiskInput{Amount: 5, Balance: 1000, Odds: 2.0, SimilarRecentBets: 4})
	if hasFlag(got.Flags, "frequent_similar_bets") {
		t.Errorf("Expected no frequency flag below the limit, got %v", got.Flags)
	}

	got = AssessRisk(RiskInput{Amount: 5, Balance: 1000, Odds: 2.0, SimilarRecentBets: 5})
	if !hasFlag(got.Flags, "frequent_similar_bets") {
		t.Errorf("Expected frequency flag at the limit, got %v", got.Flags)
	}
}

func TestAssessRisk_Deterministic(t *testing.T) {
	in := RiskInput{Amount: 30, Balance: 100, Odds: 12.0, SimilarRecentBets: 6}
	a := AssessRisk(in)
	b := AssessRisk(in)

	if a.Level != b.Level || a.Recommendation != b.Recommendation || a.Confidence != b.Confidence {
		t.Error("Expected identical assessments for identical input")
	}
	if len(a.Flags) != len(b.Flags) {
		t.Errorf("Expected identical flags, got %v and %v", a.Flags, b.Flags)
	}
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

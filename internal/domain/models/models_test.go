package models

import "testing"

func TestCategorizeRisk(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskCategory
	}{
		{0.0, RiskVeryLow},
		{0.19, RiskVeryLow},
		{0.2, RiskLow},
		{0.39, RiskLow},
		{0.4, RiskModerate},
		{0.59, RiskModerate},
		{0.6, RiskHigh},
		{0.79, RiskHigh},
		{0.8, RiskVeryHigh},
		{1.0, RiskVeryHigh},
		{2.5, RiskVeryHigh},
	}
	for _, c := range cases {
		if got := CategorizeRisk(c.score); got != c.want {
			t.Errorf("CategorizeRisk(%v) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestGrowthForecastFormatting(t *testing.T) {
	g := GrowthForecast{Prediction: 0.0234, Lower: -0.011, Upper: 0.0578}
	if got := g.FormatPrediction(); got != "2.3%" {
		t.Errorf("FormatPrediction() = %q, want %q", got, "2.3%")
	}
	if got := g.FormatInterval(); got != "-1.1% to 5.8%" {
		t.Errorf("FormatInterval() = %q, want %q", got, "-1.1% to 5.8%")
	}
}

func TestRiskForecastFormatScore(t *testing.T) {
	r := RiskForecast{Score: 0.456}
	if got := r.FormatScore(); got != "0.46" {
		t.Errorf("FormatScore() = %q, want %q", got, "0.46")
	}
}

func TestSentimentLabelScore(t *testing.T) {
	if SentimentPositive.Score() != 1 {
		t.Errorf("positive score = %v, want 1", SentimentPositive.Score())
	}
	if SentimentNegative.Score() != -1 {
		t.Errorf("negative score = %v, want -1", SentimentNegative.Score())
	}
	if SentimentNeutral.Score() != 0 {
		t.Errorf("neutral score = %v, want 0", SentimentNeutral.Score())
	}
	if SentimentLabel("garbage").Score() != 0 {
		t.Errorf("unknown label should score as neutral")
	}
}

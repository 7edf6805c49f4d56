package features

import (
	"math"
	"testing"

	"StockCast/internal/domain/models"
)

func TestSMA(t *testing.T) {
	v := []float64{1, 2, 3, 4, 5}
	got := SMA(v, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Error("warm-up positions should be NaN")
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if math.Abs(got[i+2]-w) > 1e-12 {
			t.Errorf("SMA[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}
}

func TestEMASeededBySMA(t *testing.T) {
	v := []float64{2, 4, 6, 8, 10}
	got := EMA(v, 3)
	if math.Abs(got[2]-4) > 1e-12 {
		t.Errorf("EMA seed = %v, want 4", got[2])
	}
	// alpha = 2/(3+1) = 0.5
	if math.Abs(got[3]-(0.5*8+0.5*4)) > 1e-12 {
		t.Errorf("EMA[3] = %v, want 6", got[3])
	}
}

func TestRSIExtremes(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	got := RSI(up, 3)
	if got[len(got)-1] != 100 {
		t.Errorf("RSI of monotonic gains = %v, want 100", got[len(got)-1])
	}
	down := []float64{8, 7, 6, 5, 4, 3, 2, 1}
	got = RSI(down, 3)
	if got[len(got)-1] != 0 {
		t.Errorf("RSI of monotonic losses = %v, want 0", got[len(got)-1])
	}
	flat := []float64{5, 5, 5, 5, 5, 5}
	got = RSI(flat, 3)
	if got[len(got)-1] != 50 {
		t.Errorf("RSI of flat series = %v, want 50", got[len(got)-1])
	}
}

func TestStochasticBounds(t *testing.T) {
	high := []float64{2, 3, 4, 5, 6, 7}
	low := []float64{1, 2, 3, 4, 5, 6}
	closePx := []float64{1.5, 2.5, 3.5, 4.5, 5.5, 7}
	got := Stochastic(high, low, closePx, 3)
	for i := 2; i < len(got); i++ {
		if got[i] < 0 || got[i] > 100 {
			t.Errorf("stoch[%d] = %v outside [0,100]", i, got[i])
		}
	}
	// close at the window high
	if got[len(got)-1] != 100 {
		t.Errorf("stoch at window high = %v, want 100", got[len(got)-1])
	}
}

func TestWilliamsRBounds(t *testing.T) {
	high := []float64{2, 3, 4, 5, 6}
	low := []float64{1, 2, 3, 4, 5}
	closePx := []float64{1.5, 2.5, 3.5, 4.5, 6}
	got := WilliamsR(high, low, closePx, 3)
	for i := 2; i < len(got); i++ {
		if got[i] < -100 || got[i] > 0 {
			t.Errorf("williams[%d] = %v outside [-100,0]", i, got[i])
		}
	}
}

func TestOBVAccumulates(t *testing.T) {
	closePx := []float64{10, 11, 10.5, 10.5, 12}
	volume := []float64{100, 200, 300, 400, 500}
	got := OBV(closePx, volume)
	want := []float64{0, 200, -100, -100, 400}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("OBV[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestATRPositive(t *testing.T) {
	high := []float64{11, 12, 13, 12, 14, 13, 15}
	low := []float64{9, 10, 11, 10, 12, 11, 13}
	closePx := []float64{10, 11, 12, 11, 13, 12, 14}
	got := ATR(high, low, closePx, 3)
	for i := 3; i < len(got); i++ {
		if math.IsNaN(got[i]) || got[i] <= 0 {
			t.Errorf("ATR[%d] = %v, want positive", i, got[i])
		}
	}
}

func TestRollingStdFlatIsZero(t *testing.T) {
	got := rollingStd([]float64{3, 3, 3, 3, 3}, 3)
	for i := 2; i < len(got); i++ {
		if got[i] != 0 {
			t.Errorf("rollingStd[%d] = %v, want 0", i, got[i])
		}
	}
}

func TestSentimentBlock(t *testing.T) {
	empty := sentimentBlock(nil)
	for i, v := range empty {
		if v != 0 {
			t.Errorf("empty sentiment block[%d] = %v, want 0", i, v)
		}
	}

	b := sentimentBlock([]models.SentimentRecord{
		{Label: models.SentimentPositive, Confidence: 0.9, Volume: 10},
		{Label: models.SentimentPositive, Confidence: 0.6, Volume: 20},
		{Label: models.SentimentNegative, Confidence: 0.8, Volume: 5},
	})
	if math.Abs(b[0]-(1.0/3)) > 1e-12 {
		t.Errorf("sentiment_avg = %v, want 1/3", b[0])
	}
	if math.Abs(b[4]-(2.0/3)) > 1e-12 {
		t.Errorf("positive_ratio = %v, want 2/3", b[4])
	}
	if math.Abs(b[5]-(1.0/3)) > 1e-12 {
		t.Errorf("negative_ratio = %v, want 1/3", b[5])
	}
}

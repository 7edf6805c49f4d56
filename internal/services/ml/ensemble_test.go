package ml

import (
	"math"
	"math/rand"
	"testing"
)

// syntheticData builds rows where y is a noisy linear function of the first
// two features; the third feature is pure noise.
func syntheticData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		f0 := rng.Float64()*2 - 1
		f1 := rng.Float64()*2 - 1
		f2 := rng.Float64()*2 - 1
		x[i] = []float64{f0, f1, f2}
		y[i] = 3*f0 - 2*f1 + 0.05*rng.NormFloat64()
	}
	return x, y
}

func paramsFor(kind Kind) Params {
	p := Params{Kind: kind, Trees: 30, MaxDepth: 5, MinLeaf: 2, Seed: 7}
	if kind.Boosted() {
		p.LearningRate = 0.1
	}
	if kind == KindStochasticBoost {
		p.SubsampleRows = 0.8
	}
	return p
}

func TestEnsembleFitBeatsMean(t *testing.T) {
	x, y := syntheticData(300, 1)
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	meanPred := make([]float64, len(y))
	for i := range meanPred {
		meanPred[i] = mean
	}
	baseline := RMSE(y, meanPred)

	for _, kind := range Kinds {
		reg, err := New(paramsFor(kind))
		if err != nil {
			t.Fatalf("%s: New: %v", kind, err)
		}
		if err := reg.Fit(x, y); err != nil {
			t.Fatalf("%s: Fit: %v", kind, err)
		}
		pred := make([]float64, len(y))
		for i := range y {
			pred[i] = reg.Predict(x[i])
		}
		if got := RMSE(y, pred); got >= baseline*0.5 {
			t.Errorf("%s: in-sample RMSE %v, want well under mean baseline %v", kind, got, baseline)
		}
	}
}

func TestEnsembleDeterministicForSeed(t *testing.T) {
	x, y := syntheticData(150, 2)
	for _, kind := range Kinds {
		a, _ := New(paramsFor(kind))
		b, _ := New(paramsFor(kind))
		if err := a.Fit(x, y); err != nil {
			t.Fatalf("%s: Fit: %v", kind, err)
		}
		if err := b.Fit(x, y); err != nil {
			t.Fatalf("%s: Fit: %v", kind, err)
		}
		for i := 0; i < 10; i++ {
			if pa, pb := a.Predict(x[i]), b.Predict(x[i]); pa != pb {
				t.Fatalf("%s: same seed diverged at row %d: %v vs %v", kind, i, pa, pb)
			}
		}
	}
}

func TestAttributionSumsToPrediction(t *testing.T) {
	x, y := syntheticData(200, 3)
	for _, kind := range Kinds {
		reg, _ := New(paramsFor(kind))
		if err := reg.Fit(x, y); err != nil {
			t.Fatalf("%s: Fit: %v", kind, err)
		}
		for i := 0; i < 20; i++ {
			pred := reg.Predict(x[i])
			base, contrib := reg.Attribution(x[i])
			sum := base
			for _, c := range contrib {
				sum += c
			}
			if math.Abs(sum-pred) > 1e-9 {
				t.Fatalf("%s: attribution row %d: base+sum=%v, predict=%v", kind, i, sum, pred)
			}
		}
	}
}

func TestImportanceNormalizedAndInformative(t *testing.T) {
	x, y := syntheticData(300, 4)
	reg, _ := New(paramsFor(KindRandomForest))
	if err := reg.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	imp := reg.Importance()
	if len(imp) != 3 {
		t.Fatalf("importance length = %d, want 3", len(imp))
	}
	var total float64
	for _, v := range imp {
		total += v
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("importance sums to %v, want 1", total)
	}
	// the noise feature should matter least
	if imp[2] >= imp[0] || imp[2] >= imp[1] {
		t.Errorf("noise feature importance %v not below signal features %v, %v", imp[2], imp[0], imp[1])
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	x, y := syntheticData(120, 5)
	reg, _ := New(paramsFor(KindGradientBoost))
	if err := reg.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	raw, err := Marshal(reg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		if a, b := reg.Predict(x[i]), got.Predict(x[i]); a != b {
			t.Fatalf("round-trip prediction diverged at row %d: %v vs %v", i, a, b)
		}
	}
}

func TestNewRejectsBadParams(t *testing.T) {
	if _, err := New(Params{Kind: "nope", Trees: 10, MaxDepth: 3}); err == nil {
		t.Error("unknown kind accepted")
	}
	if _, err := New(Params{Kind: KindRandomForest, Trees: 0, MaxDepth: 3}); err == nil {
		t.Error("zero trees accepted")
	}
	if _, err := New(Params{Kind: KindGradientBoost, Trees: 10, MaxDepth: 3, LearningRate: 0}); err == nil {
		t.Error("boosted kind without learning rate accepted")
	}
}

func TestMetricsEdgeCases(t *testing.T) {
	y := []float64{1, 2, 3}
	if got := RMSE(y, y); got != 0 {
		t.Errorf("RMSE of perfect fit = %v, want 0", got)
	}
	if got := MAE(y, y); got != 0 {
		t.Errorf("MAE of perfect fit = %v, want 0", got)
	}
	if got := R2(y, y); got != 1 {
		t.Errorf("R2 of perfect fit = %v, want 1", got)
	}
	constant := []float64{2, 2, 2}
	if got := R2(constant, []float64{1, 2, 3}); got != 0 {
		t.Errorf("R2 on constant target = %v, want 0", got)
	}
	if got := StdDev([]float64{5}); got != 0 {
		t.Errorf("StdDev of single value = %v, want 0", got)
	}
	if got := StdDev([]float64{1, 3}); math.Abs(got-math.Sqrt(2)) > 1e-12 {
		t.Errorf("StdDev(1,3) = %v, want sqrt(2)", got)
	}
}

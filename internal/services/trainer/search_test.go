package trainer

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"StockCast/internal/services/ml"
)

func TestOptimizerBoundedProposals(t *testing.T) {
	opt := newOptimizer(10, 1)
	seen := 0
	for {
		p, trial, ok := opt.propose()
		if !ok {
			break
		}
		seen++
		if trial != seen {
			t.Fatalf("trial ordinal = %d, want %d", trial, seen)
		}
		if !p.Kind.Valid() {
			t.Fatalf("proposed unknown kind %q", p.Kind)
		}
		if _, err := ml.New(p); err != nil {
			t.Fatalf("proposed invalid params: %v", err)
		}
	}
	if seen != 10 {
		t.Errorf("proposals = %d, want 10", seen)
	}
}

func TestOptimizerExploitsIncumbent(t *testing.T) {
	opt := newOptimizer(20, 2)
	base := opt.sample()
	opt.observe(base, 1.0, nil)

	// jittered configurations stay inside the search bounds
	for i := 0; i < 50; i++ {
		p := opt.mutateBest()
		if p.Trees < 50 || p.Trees > 300 {
			t.Fatalf("mutated trees = %d outside [50,300]", p.Trees)
		}
		if p.MaxDepth < 3 || p.MaxDepth > 10 {
			t.Fatalf("mutated depth = %d outside [3,10]", p.MaxDepth)
		}
		if p.Kind.Boosted() && (p.LearningRate < 1e-3 || p.LearningRate > 1e-1) {
			t.Fatalf("mutated learning rate = %v outside bounds", p.LearningRate)
		}
	}

	if improved := opt.observe(opt.sample(), 2.0, nil); improved {
		t.Error("worse score replaced the incumbent")
	}
	if improved := opt.observe(opt.sample(), 0.5, nil); !improved {
		t.Error("better score did not replace the incumbent")
	}
}

func TestSearchReturnsBestAndResiduals(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 120
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		f := rng.Float64()*2 - 1
		x[i] = []float64{f, rng.Float64()}
		y[i] = 2*f + 0.05*rng.NormFloat64()
	}

	best, score, resid, err := search(context.Background(), x, y, SearchOptions{
		Trials: 6, Folds: 3, Workers: 2, Seed: 4,
	}, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !best.Kind.Valid() {
		t.Errorf("winning kind %q invalid", best.Kind)
	}
	if math.IsNaN(score) || score <= 0 {
		t.Errorf("score = %v, want positive", score)
	}
	if len(resid) == 0 {
		t.Error("no held-out residuals returned")
	}
}

func TestSearchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}, {10}, {11}, {12}}
	y := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if _, _, _, err := search(ctx, x, y, SearchOptions{Trials: 5, Folds: 2, Workers: 1, Seed: 5}, nil); err == nil {
		t.Error("cancelled search reported success")
	}
}

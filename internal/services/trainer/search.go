package trainer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"StockCast/internal/services/ml"
)

// SearchOptions bounds one hyperparameter search.
type SearchOptions struct {
	Trials  int
	Folds   int
	Workers int
	Seed    int64
}

// optimizer proposes trial configurations and tracks the incumbent best.
// Proposals are serialized behind mu; evaluating a proposed trial runs off
// this critical section so other evaluations proceed concurrently.
type optimizer struct {
	mu        sync.Mutex
	rng       *rand.Rand
	issued    int
	trials    int
	hasBest   bool
	best      ml.Params
	bestScore float64
	bestResid []float64
}

func newOptimizer(trials int, seed int64) *optimizer {
	return &optimizer{
		rng:    rand.New(rand.NewSource(seed)),
		trials: trials,
	}
}

// propose returns the next trial configuration and its ordinal, or ok=false
// once the trial budget is spent. Early trials explore the space uniformly;
// the second half exploits by jittering the incumbent half of the time.
func (o *optimizer) propose() (ml.Params, int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.issued >= o.trials {
		return ml.Params{}, 0, false
	}
	o.issued++
	trial := o.issued

	if o.hasBest && trial > o.trials/2 && o.rng.Float64() < 0.5 {
		return o.mutateBest(), trial, true
	}
	return o.sample(), trial, true
}

func (o *optimizer) sample() ml.Params {
	kind := ml.Kinds[o.rng.Intn(len(ml.Kinds))]
	p := ml.Params{
		Kind:     kind,
		Trees:    50 + o.rng.Intn(251),
		MaxDepth: 3 + o.rng.Intn(8),
		MinLeaf:  2 + o.rng.Intn(9),
		Seed:     o.rng.Int63(),
	}
	switch kind {
	case ml.KindRandomForest, ml.KindExtraTrees:
		p.SubsampleCols = 0.3 + 0.7*o.rng.Float64()
	case ml.KindGradientBoost:
		p.LearningRate = logUniform(o.rng, 1e-3, 1e-1)
		p.SubsampleCols = 1
	case ml.KindStochasticBoost:
		p.LearningRate = logUniform(o.rng, 1e-3, 1e-1)
		p.SubsampleRows = 0.5 + 0.4*o.rng.Float64()
		p.SubsampleCols = 0.5 + 0.5*o.rng.Float64()
	}
	return p
}

// mutateBest jitters the incumbent configuration.
func (o *optimizer) mutateBest() ml.Params {
	p := o.best
	p.Trees += o.rng.Intn(101) - 50
	p.Trees = clampInt(p.Trees, 50, 300)
	p.MaxDepth += o.rng.Intn(3) - 1
	p.MaxDepth = clampInt(p.MaxDepth, 3, 10)
	if p.Kind.Boosted() {
		p.LearningRate *= math.Exp(0.6*o.rng.Float64() - 0.3)
		p.LearningRate = clampFloat(p.LearningRate, 1e-3, 1e-1)
	}
	p.Seed = o.rng.Int63()
	return p
}

// observe records a completed trial. Returns true when the incumbent
// improved.
func (o *optimizer) observe(p ml.Params, score float64, resid []float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.hasBest || score < o.bestScore {
		o.hasBest = true
		o.best = p
		o.bestScore = score
		o.bestResid = resid
		return true
	}
	return false
}

// trialReport is invoked for every evaluated trial.
type trialReport func(trial int, p ml.Params, score float64, improved bool)

// search runs the bounded trial loop and returns the winning configuration,
// its mean fold RMSE and the held-out residuals it produced during
// cross-validation. It fails only when no trial completed.
func search(ctx context.Context, x [][]float64, y []float64, opts SearchOptions, report trialReport) (ml.Params, float64, []float64, error) {
	folds, err := timeSeriesFolds(len(y), opts.Folds)
	if err != nil {
		return ml.Params{}, 0, nil, err
	}

	opt := newOptimizer(opts.Trials, opts.Seed)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				p, trial, ok := opt.propose()
				if !ok {
					return
				}
				score, resid, evalErr := evaluate(ctx, x, y, folds, p)
				if evalErr != nil {
					continue
				}
				improved := opt.observe(p, score, resid)
				if report != nil {
					report(trial, p, score, improved)
				}
			}
		}()
	}
	wg.Wait()

	opt.mu.Lock()
	defer opt.mu.Unlock()
	if !opt.hasBest {
		if ctx.Err() != nil {
			return ml.Params{}, 0, nil, fmt.Errorf("search aborted: %w", ctx.Err())
		}
		return ml.Params{}, 0, nil, fmt.Errorf("no trial completed out of %d", opts.Trials)
	}
	return opt.best, opt.bestScore, opt.bestResid, nil
}

// evaluate scores one configuration by time-respecting k-fold CV: the mean
// across folds of the validation RMSE. It also returns all validation
// residuals, the raw material for the prediction-uncertainty estimate.
func evaluate(ctx context.Context, x [][]float64, y []float64, folds []fold, p ml.Params) (float64, []float64, error) {
	var scoreSum float64
	resid := make([]float64, 0, len(folds)*(folds[0].valEnd-folds[0].trainEnd))
	for _, f := range folds {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		reg, err := ml.New(p)
		if err != nil {
			return 0, nil, err
		}
		if err := reg.Fit(x[:f.trainEnd], y[:f.trainEnd]); err != nil {
			return 0, nil, err
		}
		var sq float64
		for i := f.trainEnd; i < f.valEnd; i++ {
			d := y[i] - reg.Predict(x[i])
			resid = append(resid, d)
			sq += d * d
		}
		scoreSum += math.Sqrt(sq / float64(f.valEnd-f.trainEnd))
	}
	return scoreSum / float64(len(folds)), resid, nil
}

func logUniform(rng *rand.Rand, lo, hi float64) float64 {
	return math.Exp(math.Log(lo) + rng.Float64()*(math.Log(hi)-math.Log(lo)))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

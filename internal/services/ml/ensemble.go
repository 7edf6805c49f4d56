package ml

import (
	"fmt"
	"math/rand"
)

// Ensemble is the single concrete Regressor behind every Kind. Forest
// families average independent trees; boosted families sum residual trees
// scaled by the learning rate on top of Base.
type Ensemble struct {
	Params   Params  `json:"params"`
	Trees    []*Tree `json:"trees"`
	Base     float64 `json:"base"` // initial prediction for boosted kinds, 0 otherwise
	Features int     `json:"features"`
}

// Fit trains the ensemble on x, y. It is deterministic for a fixed seed.
func (e *Ensemble) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("bad training shape: %d rows, %d targets", len(x), len(y))
	}
	if len(x[0]) == 0 {
		return fmt.Errorf("no features")
	}
	e.Features = len(x[0])
	rng := rand.New(rand.NewSource(e.Params.Seed))
	if e.Params.Kind.Boosted() {
		return e.fitBoosted(x, y, rng)
	}
	return e.fitForest(x, y, rng)
}

func (e *Ensemble) fitForest(x [][]float64, y []float64, rng *rand.Rand) error {
	p := e.Params
	colFrac := p.SubsampleCols
	if colFrac <= 0 || colFrac > 1 {
		colFrac = 1
	}
	cfg := growConfig{
		maxDepth:   p.MaxDepth,
		minLeaf:    maxInt(p.MinLeaf, 1),
		colFrac:    colFrac,
		randSplits: p.Kind == KindExtraTrees,
		rng:        rng,
	}

	e.Trees = make([]*Tree, 0, p.Trees)
	n := len(x)
	for t := 0; t < p.Trees; t++ {
		idx := make([]int, n)
		if p.Kind == KindExtraTrees {
			// extra trees grow on the full sample, randomness comes from splits
			for i := range idx {
				idx[i] = i
			}
		} else {
			// bootstrap sample
			for i := range idx {
				idx[i] = rng.Intn(n)
			}
		}
		e.Trees = append(e.Trees, growTree(x, y, idx, cfg))
	}
	return nil
}

func (e *Ensemble) fitBoosted(x [][]float64, y []float64, rng *rand.Rand) error {
	p := e.Params
	colFrac := p.SubsampleCols
	if colFrac <= 0 || colFrac > 1 {
		colFrac = 1
	}
	rowFrac := 1.0
	if p.Kind == KindStochasticBoost && p.SubsampleRows > 0 && p.SubsampleRows < 1 {
		rowFrac = p.SubsampleRows
	}
	cfg := growConfig{
		maxDepth: p.MaxDepth,
		minLeaf:  maxInt(p.MinLeaf, 1),
		colFrac:  colFrac,
		rng:      rng,
	}

	n := len(x)
	var sum float64
	for _, v := range y {
		sum += v
	}
	e.Base = sum / float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = e.Base
	}
	resid := make([]float64, n)

	e.Trees = make([]*Tree, 0, p.Trees)
	for t := 0; t < p.Trees; t++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		idx := sampleRows(n, rowFrac, rng)
		tree := growTree(x, resid, idx, cfg)
		e.Trees = append(e.Trees, tree)
		for i := range pred {
			pred[i] += p.LearningRate * tree.Predict(x[i])
		}
	}
	return nil
}

// Predict evaluates the fitted ensemble on one feature row.
func (e *Ensemble) Predict(row []float64) float64 {
	if len(e.Trees) == 0 {
		return e.Base
	}
	if e.Params.Kind.Boosted() {
		out := e.Base
		for _, t := range e.Trees {
			out += e.Params.LearningRate * t.Predict(row)
		}
		return out
	}
	var sum float64
	for _, t := range e.Trees {
		sum += t.Predict(row)
	}
	return sum / float64(len(e.Trees))
}

// Importance returns normalized impurity-reduction shares per feature.
func (e *Ensemble) Importance() []float64 {
	if len(e.Trees) == 0 {
		return nil
	}
	imp := make([]float64, e.Features)
	for _, t := range e.Trees {
		t.accumulateGain(imp)
	}
	var total float64
	for _, v := range imp {
		total += v
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}

// Attribution returns an exact additive decomposition: base plus the sum of
// contrib equals Predict(row).
func (e *Ensemble) Attribution(row []float64) (float64, []float64) {
	contrib := make([]float64, len(row))
	if len(e.Trees) == 0 {
		return e.Base, contrib
	}
	if e.Params.Kind.Boosted() {
		scaled := make([]float64, len(row))
		base := e.Base
		for _, t := range e.Trees {
			for i := range scaled {
				scaled[i] = 0
			}
			root := t.attribute(row, scaled)
			base += e.Params.LearningRate * root
			for i, c := range scaled {
				contrib[i] += e.Params.LearningRate * c
			}
		}
		return base, contrib
	}
	var base float64
	per := make([]float64, len(row))
	for _, t := range e.Trees {
		for i := range per {
			per[i] = 0
		}
		base += t.attribute(row, per)
		for i, c := range per {
			contrib[i] += c
		}
	}
	inv := 1 / float64(len(e.Trees))
	base *= inv
	for i := range contrib {
		contrib[i] *= inv
	}
	return base, contrib
}

func sampleRows(n int, frac float64, rng *rand.Rand) []int {
	if frac >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(frac * float64(n))
	if k < 2 {
		k = 2
	}
	perm := rng.Perm(n)[:k]
	return perm
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

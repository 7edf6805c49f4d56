package ml

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one node of a regression tree, stored in a flat slice. Leaf nodes
// have Left == -1. Value is the mean target of the samples that reached the
// node, which makes path-walking attribution exact.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Gain      float64 `json:"g"`
	Samples   int     `json:"n"`
}

// Tree is a CART regression tree grown by variance reduction.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type growConfig struct {
	maxDepth   int
	minLeaf    int
	colFrac    float64 // fraction of features considered per split
	randSplits bool    // extra-trees style random thresholds
	rng        *rand.Rand
}

// growTree fits a tree on x[idx], y[idx] and returns it. idx may repeat
// rows (bootstrap sampling).
func growTree(x [][]float64, y []float64, idx []int, cfg growConfig) *Tree {
	t := &Tree{Nodes: make([]Node, 0, 64)}
	t.build(x, y, idx, 0, cfg)
	return t
}

// build appends a node for the sample set idx and recurses. Returns the
// node's index in the flat slice.
func (t *Tree) build(x [][]float64, y []float64, idx []int, depth int, cfg growConfig) int {
	mean, sse := meanSSE(y, idx)
	self := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Feature: -1, Left: -1, Right: -1, Value: mean, Samples: len(idx)})

	if depth >= cfg.maxDepth || len(idx) < 2*cfg.minLeaf || sse <= 1e-12 {
		return self
	}

	feat, thr, gain := t.bestSplit(x, y, idx, sse, cfg)
	if feat < 0 {
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.minLeaf || len(right) < cfg.minLeaf {
		return self
	}

	t.Nodes[self].Feature = feat
	t.Nodes[self].Threshold = thr
	t.Nodes[self].Gain = gain
	l := t.build(x, y, left, depth+1, cfg)
	r := t.build(x, y, right, depth+1, cfg)
	t.Nodes[self].Left = l
	t.Nodes[self].Right = r
	return self
}

// bestSplit searches a random feature subset for the split with the largest
// SSE reduction. Returns feature -1 when no valid split exists.
func (t *Tree) bestSplit(x [][]float64, y []float64, idx []int, parentSSE float64, cfg growConfig) (int, float64, float64) {
	nFeat := len(x[idx[0]])
	k := nFeat
	if cfg.colFrac > 0 && cfg.colFrac < 1 {
		k = int(math.Ceil(cfg.colFrac * float64(nFeat)))
		if k < 1 {
			k = 1
		}
	}
	feats := cfg.rng.Perm(nFeat)[:k]

	bestFeat := -1
	bestThr := 0.0
	bestGain := 1e-12

	for _, f := range feats {
		if cfg.randSplits {
			thr, gain, ok := randomSplitGain(x, y, idx, f, parentSSE, cfg)
			if ok && gain > bestGain {
				bestFeat, bestThr, bestGain = f, thr, gain
			}
			continue
		}
		thr, gain, ok := exhaustiveSplitGain(x, y, idx, f, parentSSE, cfg)
		if ok && gain > bestGain {
			bestFeat, bestThr, bestGain = f, thr, gain
		}
	}
	return bestFeat, bestThr, bestGain
}

// exhaustiveSplitGain scans all split points of feature f in sorted order
// using running sums.
func exhaustiveSplitGain(x [][]float64, y []float64, idx []int, f int, parentSSE float64, cfg growConfig) (float64, float64, bool) {
	ord := make([]int, len(idx))
	copy(ord, idx)
	sort.Slice(ord, func(a, b int) bool { return x[ord[a]][f] < x[ord[b]][f] })

	var totalSum float64
	for _, i := range ord {
		totalSum += y[i]
	}
	n := float64(len(ord))

	var leftSum, leftSq float64
	var totalSq float64
	for _, i := range ord {
		totalSq += y[i] * y[i]
	}

	bestGain := 0.0
	bestThr := 0.0
	found := false
	for pos := 0; pos < len(ord)-1; pos++ {
		i := ord[pos]
		leftSum += y[i]
		leftSq += y[i] * y[i]
		// only split between distinct feature values
		if x[ord[pos]][f] == x[ord[pos+1]][f] {
			continue
		}
		nl := float64(pos + 1)
		nr := n - nl
		if int(nl) < cfg.minLeaf || int(nr) < cfg.minLeaf {
			continue
		}
		leftSSE := leftSq - leftSum*leftSum/nl
		rightSum := totalSum - leftSum
		rightSSE := (totalSq - leftSq) - rightSum*rightSum/nr
		gain := parentSSE - leftSSE - rightSSE
		if gain > bestGain {
			bestGain = gain
			bestThr = (x[ord[pos]][f] + x[ord[pos+1]][f]) / 2
			found = true
		}
	}
	return bestThr, bestGain, found
}

// randomSplitGain draws one uniform threshold between the feature's min and
// max, extra-trees style, and scores it.
func randomSplitGain(x [][]float64, y []float64, idx []int, f int, parentSSE float64, cfg growConfig) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := x[i][f]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return 0, 0, false
	}
	thr := lo + cfg.rng.Float64()*(hi-lo)

	var ls, lq, rs, rq float64
	var nl, nr int
	for _, i := range idx {
		if x[i][f] <= thr {
			ls += y[i]
			lq += y[i] * y[i]
			nl++
		} else {
			rs += y[i]
			rq += y[i] * y[i]
			nr++
		}
	}
	if nl < cfg.minLeaf || nr < cfg.minLeaf {
		return 0, 0, false
	}
	leftSSE := lq - ls*ls/float64(nl)
	rightSSE := rq - rs*rs/float64(nr)
	gain := parentSSE - leftSSE - rightSSE
	if gain <= 0 {
		return 0, 0, false
	}
	return thr, gain, true
}

// Predict walks the tree to a leaf.
func (t *Tree) Predict(row []float64) float64 {
	i := 0
	for t.Nodes[i].Left >= 0 {
		n := t.Nodes[i]
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// attribute walks the tree accumulating the change in node mean at every
// split into contrib, keyed by the split feature. Returns the root value.
func (t *Tree) attribute(row []float64, contrib []float64) float64 {
	i := 0
	for t.Nodes[i].Left >= 0 {
		n := t.Nodes[i]
		var next int
		if row[n.Feature] <= n.Threshold {
			next = n.Left
		} else {
			next = n.Right
		}
		contrib[n.Feature] += t.Nodes[next].Value - n.Value
		i = next
	}
	return t.Nodes[0].Value
}

// accumulateGain adds each split's impurity reduction to imp by feature.
func (t *Tree) accumulateGain(imp []float64) {
	for _, n := range t.Nodes {
		if n.Left >= 0 {
			imp[n.Feature] += n.Gain
		}
	}
}

func meanSSE(y []float64, idx []int) (float64, float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	var sum, sq float64
	for _, i := range idx {
		sum += y[i]
		sq += y[i] * y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sq - n*mean*mean
	if sse < 0 {
		sse = 0
	}
	return mean, sse
}

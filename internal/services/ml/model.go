// Package ml implements the closed set of tree-ensemble regressors used by
// the trainer. Every kind exposes the same fit/predict/importance/attribution
// surface and serializes to JSON for artifact persistence.
package ml

import (
	"encoding/json"
	"fmt"
)

// Kind tags one of the supported ensemble families. The set is closed:
// the hyperparameter search never dispatches on free-form strings.
type Kind string

const (
	KindRandomForest    Kind = "random_forest"
	KindExtraTrees      Kind = "extra_trees"
	KindGradientBoost   Kind = "gradient_boost"
	KindStochasticBoost Kind = "stochastic_boost"
)

// Kinds lists every supported family in a stable order.
var Kinds = []Kind{KindRandomForest, KindExtraTrees, KindGradientBoost, KindStochasticBoost}

// Valid reports whether k names a supported family.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Boosted reports whether the family fits trees additively on residuals.
func (k Kind) Boosted() bool {
	return k == KindGradientBoost || k == KindStochasticBoost
}

// Params fully describes one regressor configuration.
type Params struct {
	Kind          Kind    `json:"kind"`
	Trees         int     `json:"trees"`
	MaxDepth      int     `json:"max_depth"`
	MinLeaf       int     `json:"min_leaf"`
	LearningRate  float64 `json:"learning_rate,omitempty"`  // boosting families only
	SubsampleRows float64 `json:"subsample_rows,omitempty"` // stochastic boosting, (0,1]
	SubsampleCols float64 `json:"subsample_cols,omitempty"` // feature fraction per split, (0,1]
	Seed          int64   `json:"seed"`
}

func (p Params) validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("unknown model kind %q", p.Kind)
	}
	if p.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", p.Trees)
	}
	if p.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	}
	if p.Kind.Boosted() && (p.LearningRate <= 0 || p.LearningRate > 1) {
		return fmt.Errorf("learning_rate must be in (0,1], got %g", p.LearningRate)
	}
	return nil
}

// Regressor is the uniform capability every family exposes.
type Regressor interface {
	Fit(x [][]float64, y []float64) error
	Predict(row []float64) float64
	// Importance returns per-feature impurity-reduction shares summing to 1
	// (all zeros when no split was made).
	Importance() []float64
	// Attribution decomposes Predict(row) additively: the returned base plus
	// the sum of per-feature contributions equals the prediction exactly.
	Attribution(row []float64) (base float64, contrib []float64)
}

// New builds an unfitted regressor for the given configuration.
func New(p Params) (Regressor, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Ensemble{Params: p}, nil
}

// Marshal serializes a fitted regressor together with its configuration.
func Marshal(r Regressor) ([]byte, error) {
	e, ok := r.(*Ensemble)
	if !ok {
		return nil, fmt.Errorf("unsupported regressor type %T", r)
	}
	return json.Marshal(e)
}

// Unmarshal restores a fitted regressor produced by Marshal.
func Unmarshal(b []byte) (Regressor, error) {
	var e Ensemble
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := e.Params.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

package models

import (
	"fmt"
	"time"
)

// Candle is one row of a daily OHLCV series.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// SentimentLabel is the qualitative polarity of one sentiment record.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Score maps the label to {+1, 0, -1}. Unknown labels count as neutral.
func (l SentimentLabel) Score() float64 {
	switch l {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// SentimentRecord is one qualitative observation over the lookback window.
// Order of records is irrelevant except for the momentum feature, which
// uses the supplied order as publication order.
type SentimentRecord struct {
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"` // in [0,1]
	Volume     float64        `json:"volume"`     // >= 0
}

// MarketSnapshot carries market-wide scalars. Every field defaults to 0
// when the collaborator has no value for it; zero is the documented
// default, not a sentinel.
type MarketSnapshot struct {
	Volatility        float64 `json:"volatility"`
	SectorPerformance float64 `json:"sector_performance"`
	MarketSentiment   float64 `json:"market_sentiment"`
	InterestRate      float64 `json:"interest_rate"`
	MarketVolume      float64 `json:"market_volume"`
}

// FeatureMatrix is the assembled, standardized training matrix. Columns is
// the feature schema: the ordered column names fixed at training time and
// required to match byte-identically at inference time.
type FeatureMatrix struct {
	Columns []string
	Dates   []time.Time
	Rows    [][]float64
}

// NumRows returns the row count.
func (m *FeatureMatrix) NumRows() int { return len(m.Rows) }

// HorizonTargets holds the two regression targets for one horizon,
// row-aligned with the truncated feature matrix.
type HorizonTargets struct {
	Growth []float64 // forward percent return over [t, t+h]
	Risk   []float64 // forward rolling volatility over [t, t+h]
}

// TargetSet maps horizon (trading days) to its targets. UsableRows is the
// shared row count after tail truncation by the maximum horizon.
type TargetSet struct {
	Horizons   []int
	UsableRows int
	ByHorizon  map[int]HorizonTargets
}

// TaskKind distinguishes the two regression tasks trained per horizon.
type TaskKind string

const (
	TaskGrowth TaskKind = "growth"
	TaskRisk   TaskKind = "risk"
)

// RiskCategory is the discrete label derived from a risk score.
type RiskCategory string

const (
	RiskVeryLow  RiskCategory = "Very Low"
	RiskLow      RiskCategory = "Low"
	RiskModerate RiskCategory = "Moderate"
	RiskHigh     RiskCategory = "High"
	RiskVeryHigh RiskCategory = "Very High"
)

// CategorizeRisk buckets a score with upper-bound-exclusive thresholds,
// except the top bucket: 0.2 maps to Low, 0.8 maps to Very High.
func CategorizeRisk(score float64) RiskCategory {
	switch {
	case score < 0.2:
		return RiskVeryLow
	case score < 0.4:
		return RiskLow
	case score < 0.6:
		return RiskModerate
	case score < 0.8:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// GrowthForecast is the uncertainty-aware growth prediction for one horizon.
type GrowthForecast struct {
	Prediction float64 // forward return, fraction (0.02 == 2%)
	Lower      float64 // lower bound of the ~95% interval
	Upper      float64 // upper bound of the ~95% interval
}

// FormatPrediction renders the growth prediction as a percentage to one
// decimal, e.g. "2.3%".
func (g GrowthForecast) FormatPrediction() string {
	return fmt.Sprintf("%.1f%%", g.Prediction*100)
}

// FormatInterval renders the confidence interval as "low% to high%".
func (g GrowthForecast) FormatInterval() string {
	return fmt.Sprintf("%.1f%% to %.1f%%", g.Lower*100, g.Upper*100)
}

// RiskForecast is the risk-task output for one horizon.
type RiskForecast struct {
	Score    float64
	Category RiskCategory
}

// FormatScore renders the risk score to two decimals.
func (r RiskForecast) FormatScore() string {
	return fmt.Sprintf("%.2f", r.Score)
}

// HorizonForecast is the full per-horizon output of a prediction call.
type HorizonForecast struct {
	Horizon int
	Growth  GrowthForecast
	Risk    RiskForecast
}

// PredictionResult is the ephemeral output of GetPrediction. It is never
// persisted.
type PredictionResult struct {
	Symbol    string
	Timestamp time.Time
	Horizons  map[int]HorizonForecast
}

// TaskMetrics are in-sample diagnostics of a final fit. They describe the
// full refit, not out-of-sample accuracy.
type TaskMetrics struct {
	RMSE    float64 `json:"rmse"`
	MAE     float64 `json:"mae"`
	R2      float64 `json:"r2"`
	CVScore float64 `json:"cv_score"` // mean fold RMSE of the winning config
}

// ImportanceEntry is one row of a feature-importance ranking.
type ImportanceEntry struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// HorizonReport records the training outcome for one horizon.
type HorizonReport struct {
	Horizon int          `json:"horizon"`
	OK      bool         `json:"ok"`
	Error   string       `json:"error,omitempty"`
	Growth  *TaskMetrics `json:"growth,omitempty"`
	Risk    *TaskMetrics `json:"risk,omitempty"`
}

// ModelMetadata is the per-symbol metadata document persisted alongside the
// artifact blob. Stamp must equal the artifact stamp; a mismatch on load
// means the pair is inconsistent and must not be served.
type ModelMetadata struct {
	Symbol      string                    `json:"symbol"`
	LastTrained time.Time                 `json:"last_trained"`
	Stamp       int64                     `json:"stamp"`
	Horizons    map[int]HorizonReport     `json:"horizons"`
	Importance  map[int][]ImportanceEntry `json:"importance"`  // growth-model ranking per horizon
	Attribution map[int][]float64         `json:"attribution"` // additive contributions for the last training row
	Schema      []string                  `json:"schema"`
}

// TrainReport is what TrainModel returns to the caller. Persisted reports
// whether the artifacts reached the store; a training success with
// Persisted=false means "trained but not saved".
type TrainReport struct {
	Symbol    string
	Trained   []int // horizons that produced artifacts
	Failed    map[int]string
	Metadata  *ModelMetadata
	Persisted bool
	Duration  time.Duration
}

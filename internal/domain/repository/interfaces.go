package repository

import (
	"context"
	"time"

	"StockCast/internal/domain/models"
)

// ArtifactStore persists one artifact blob and one metadata document per
// symbol, addressed by symbol name. Save must leave the pair consistent:
// a reader either sees the previous pair or the new one, never a mix. Load
// returns models.ErrNotFound (possibly wrapped) when nothing is stored.
type ArtifactStore interface {
	Save(ctx context.Context, symbol string, artifact []byte, meta *models.ModelMetadata) error
	Load(ctx context.Context, symbol string) ([]byte, *models.ModelMetadata, error)
	Metadata(ctx context.Context, symbol string) (*models.ModelMetadata, error)
	Close() error
}

// TrialEvent reports one evaluated hyperparameter trial.
type TrialEvent struct {
	Symbol  string          `json:"symbol"`
	Horizon int             `json:"horizon"`
	Task    models.TaskKind `json:"task"`
	Trial   int             `json:"trial"`
	Kind    string          `json:"kind"`
	Score   float64         `json:"score"` // mean fold RMSE
	Best    bool            `json:"best"`  // improved on the incumbent
}

// HorizonEvent reports one finished (horizon, task) training.
type HorizonEvent struct {
	Symbol   string          `json:"symbol"`
	Horizon  int             `json:"horizon"`
	Task     models.TaskKind `json:"task"`
	Kind     string          `json:"kind"`
	CVScore  float64         `json:"cv_score"`
	RMSE     float64         `json:"rmse"`
	MAE      float64         `json:"mae"`
	R2       float64         `json:"r2"`
	Duration time.Duration   `json:"duration_ns"`
	Error    string          `json:"error,omitempty"`
}

// RunEvent reports a completed training run for a symbol.
type RunEvent struct {
	Symbol    string        `json:"symbol"`
	Trained   []int         `json:"trained"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
	TrainedAt time.Time     `json:"trained_at"`
}

// ReportSink receives training telemetry. The trainer has no hard
// dependency on any backend: sinks are optional and their errors never
// fail a training run.
type ReportSink interface {
	ReportTrial(ctx context.Context, ev TrialEvent)
	ReportHorizon(ctx context.Context, ev HorizonEvent)
	ReportRun(ctx context.Context, ev RunEvent)
	Close() error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) ReportTrial(context.Context, TrialEvent)     {}
func (NopSink) ReportHorizon(context.Context, HorizonEvent) {}
func (NopSink) ReportRun(context.Context, RunEvent)         {}
func (NopSink) Close() error                                { return nil }

// Metrics records operational counters and latencies.
type Metrics interface {
	RecordTrainingRun(symbol, status string)
	RecordTrial(kind string)
	RecordPrediction(symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordTrainingRun(string, string) {}
func (NopMetrics) RecordTrial(string)               {}
func (NopMetrics) RecordPrediction(string)          {}
func (NopMetrics) RecordError(string)               {}
func (NopMetrics) RecordLatency(string, float64)    {}

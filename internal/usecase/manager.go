// Package usecase coordinates feature engineering, training, persistence and
// prediction behind per-symbol serialization.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/features"
	"StockCast/internal/services/trainer"
	applogger "StockCast/pkg/logger"
)

// Inputs is the raw material for one symbol: candle history, the sentiment
// lookback window and a market snapshot.
type Inputs struct {
	Candles   []models.Candle
	Sentiment []models.SentimentRecord
	Market    models.MarketSnapshot
}

// DataProvider supplies inputs per symbol.
type DataProvider interface {
	Inputs(ctx context.Context, symbol string) (*Inputs, error)
}

// ManagerOptions configures the manager.
type ManagerOptions struct {
	Horizons []int
	MaxAge   time.Duration // staleness threshold for RetrainIfNeeded
}

func (o ManagerOptions) withDefaults() ManagerOptions {
	if len(o.Horizons) == 0 {
		o.Horizons = []int{1, 5, 10, 20}
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 7 * 24 * time.Hour
	}
	return o
}

// Manager owns the model lifecycle for all symbols. Training for one symbol
// is serialized by a per-symbol lock; training different symbols and serving
// predictions run concurrently. Loaded bundles are cached in memory and
// swapped wholesale on retrain, so a prediction mid-retrain sees either the
// old bundle or the new one, never a mix.
type Manager struct {
	engineer *features.Engineer
	trainer  *trainer.Trainer
	store    domrepo.ArtifactStore
	data     DataProvider
	metrics  domrepo.Metrics
	log      *applogger.Logger
	opts     ManagerOptions

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	bundlesMu sync.RWMutex
	bundles   map[string]*trainer.Bundle
}

// NewManager creates a manager. The data provider may be nil when callers
// always pass inputs explicitly; nil metrics is replaced with a no-op.
func NewManager(
	engineer *features.Engineer,
	tr *trainer.Trainer,
	store domrepo.ArtifactStore,
	data DataProvider,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	opts ManagerOptions,
) *Manager {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &Manager{
		engineer: engineer,
		trainer:  tr,
		store:    store,
		data:     data,
		metrics:  metrics,
		log:      log,
		opts:     opts.withDefaults(),
		locks:    make(map[string]*sync.Mutex),
		bundles:  make(map[string]*trainer.Bundle),
	}
}

// TrainModel runs the full pipeline for one symbol: features, targets,
// per-horizon training, persistence. A persistence failure does not erase
// the training outcome: the report is returned alongside the error and the
// in-memory bundle still serves predictions.
func (m *Manager) TrainModel(ctx context.Context, symbol string, in *Inputs) (*models.TrainReport, error) {
	lock := m.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	if min := features.MinHistory(m.opts.Horizons); len(in.Candles) < min {
		m.metrics.RecordError("features")
		return nil, models.Featuref("insufficient history for %s: %d candles, need %d", symbol, len(in.Candles), min)
	}

	matrix, scaler, err := m.engineer.PrepareFeatures(in.Candles, in.Sentiment, in.Market)
	if err != nil {
		m.metrics.RecordError("features")
		return nil, err
	}
	targets, err := m.engineer.BuildTargets(in.Candles, m.opts.Horizons)
	if err != nil {
		m.metrics.RecordError("features")
		return nil, err
	}

	res, err := m.trainer.Train(ctx, symbol, matrix, targets)
	if err != nil {
		m.metrics.RecordError("training")
		return nil, err
	}

	stamp := time.Now().UnixNano()
	bundle := &trainer.Bundle{
		Symbol:    symbol,
		Stamp:     stamp,
		TrainedAt: time.Now().UTC(),
		Schema:    matrix.Columns,
		Scaler:    scaler,
		Horizons:  res.Horizons,
	}
	meta := &models.ModelMetadata{
		Symbol:      symbol,
		LastTrained: bundle.TrainedAt,
		Stamp:       stamp,
		Horizons:    res.Reports,
		Importance:  res.Importance,
		Attribution: res.Attribution,
		Schema:      matrix.Columns,
	}
	report := &models.TrainReport{
		Symbol:   symbol,
		Trained:  res.Trained,
		Failed:   res.Failed,
		Metadata: meta,
		Duration: time.Since(start),
	}

	m.setBundle(symbol, bundle)

	raw, err := trainer.EncodeBundle(bundle)
	if err != nil {
		return report, &models.PersistenceError{Op: "save", Err: err}
	}
	if err := m.store.Save(ctx, symbol, raw, meta); err != nil {
		m.metrics.RecordError("persistence")
		if m.log != nil {
			m.log.Error("trained but not saved",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return report, err
	}
	report.Persisted = true

	if m.log != nil {
		m.log.Info("model trained",
			applogger.String("symbol", symbol),
			applogger.Any("horizons", res.Trained),
			applogger.Int("failed", len(res.Failed)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return report, nil
}

// TrainSymbol pulls inputs from the data provider and trains.
func (m *Manager) TrainSymbol(ctx context.Context, symbol string) (*models.TrainReport, error) {
	in, err := m.inputs(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return m.TrainModel(ctx, symbol, in)
}

// GetPrediction evaluates the stored model on the latest feature row. The
// result is ephemeral and never persisted.
func (m *Manager) GetPrediction(ctx context.Context, symbol string, in *Inputs, horizons []int) (*models.PredictionResult, error) {
	if len(horizons) == 0 {
		horizons = m.opts.Horizons
	}

	bundle, err := m.bundle(ctx, symbol)
	if err != nil {
		return nil, err
	}

	row, schema, err := m.engineer.PrepareLatest(in.Candles, in.Sentiment, in.Market, bundle.Scaler)
	if err != nil {
		m.metrics.RecordError("features")
		return nil, err
	}

	res, err := trainer.Predict(bundle, row, schema, horizons)
	if err != nil {
		m.metrics.RecordError("prediction")
		return nil, err
	}
	m.metrics.RecordPrediction(symbol)
	return res, nil
}

// PredictSymbol pulls inputs from the data provider and predicts.
func (m *Manager) PredictSymbol(ctx context.Context, symbol string, horizons []int) (*models.PredictionResult, error) {
	in, err := m.inputs(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return m.GetPrediction(ctx, symbol, in, horizons)
}

// Explain returns the growth model's additive feature contributions on the
// latest row for one horizon: base plus contributions sum to the prediction.
func (m *Manager) Explain(ctx context.Context, symbol string, in *Inputs, horizon int) (float64, []models.ImportanceEntry, error) {
	bundle, err := m.bundle(ctx, symbol)
	if err != nil {
		return 0, nil, err
	}
	row, schema, err := m.engineer.PrepareLatest(in.Candles, in.Sentiment, in.Market, bundle.Scaler)
	if err != nil {
		return 0, nil, err
	}
	if !features.SchemaEqual(bundle.Schema, schema) {
		return 0, nil, &models.PredictionError{Symbol: symbol, Reason: "feature schema mismatch"}
	}
	return trainer.Explain(bundle, row, horizon)
}

// RetrainIfNeeded trains only when no model exists or the stored one is
// older than MaxAge. Returns whether a retrain ran and, when it did not,
// the age of the current model.
func (m *Manager) RetrainIfNeeded(ctx context.Context, symbol string) (bool, time.Duration, *models.TrainReport, error) {
	meta, err := m.store.Metadata(ctx, symbol)
	switch {
	case err == nil:
		if age := time.Since(meta.LastTrained); age < m.opts.MaxAge {
			return false, age, nil, nil
		}
	case errors.Is(err, models.ErrNotFound):
		// no model yet, train
	default:
		return false, 0, nil, err
	}

	report, err := m.TrainSymbol(ctx, symbol)
	return true, 0, report, err
}

// Metadata returns the stored metadata document for a symbol.
func (m *Manager) Metadata(ctx context.Context, symbol string) (*models.ModelMetadata, error) {
	return m.store.Metadata(ctx, symbol)
}

// Close releases the store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// bundle returns the in-memory bundle or loads it from the store.
func (m *Manager) bundle(ctx context.Context, symbol string) (*trainer.Bundle, error) {
	m.bundlesMu.RLock()
	b, ok := m.bundles[symbol]
	m.bundlesMu.RUnlock()
	if ok {
		return b, nil
	}

	raw, meta, err := m.store.Load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	b, err = trainer.DecodeBundle(raw)
	if err != nil {
		return nil, &models.PersistenceError{Op: "load", Err: err}
	}
	if b.Stamp != meta.Stamp {
		return nil, &models.PersistenceError{
			Op:  "load",
			Err: fmt.Errorf("stamp mismatch for %s: bundle %d, metadata %d", symbol, b.Stamp, meta.Stamp),
		}
	}
	m.setBundle(symbol, b)
	return b, nil
}

func (m *Manager) setBundle(symbol string, b *trainer.Bundle) {
	m.bundlesMu.Lock()
	m.bundles[symbol] = b
	m.bundlesMu.Unlock()
}

func (m *Manager) symbolLock(symbol string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[symbol] = lock
	}
	return lock
}

func (m *Manager) inputs(ctx context.Context, symbol string) (*Inputs, error) {
	if m.data == nil {
		return nil, fmt.Errorf("no data provider configured")
	}
	return m.data.Inputs(ctx, symbol)
}

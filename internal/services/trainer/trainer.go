// Package trainer fits per-horizon growth and risk regressors over a
// prepared feature matrix: bounded hyperparameter search under
// time-respecting cross-validation, final refit, diagnostics,
// explainability and residual-based uncertainty.
package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/internal/services/features"
	"StockCast/internal/services/ml"
	"StockCast/pkg/logger"
)

// Artifact is one fitted regressor plus the uncertainty estimate carried
// from its cross-validated search.
type Artifact struct {
	Model       *ml.Ensemble `json:"model"`
	ResidualStd float64      `json:"residual_std"` // held-out fold residual dispersion
	CVScore     float64      `json:"cv_score"`
}

// HorizonModels pairs the two task artifacts for one horizon.
type HorizonModels struct {
	Growth *Artifact `json:"growth"`
	Risk   *Artifact `json:"risk"`
}

// Bundle is the per-symbol artifact blob: everything prediction needs.
// Immutable once built; a retrain produces a new bundle that supersedes the
// old one wholesale.
type Bundle struct {
	Symbol    string                 `json:"symbol"`
	Stamp     int64                  `json:"stamp"`
	TrainedAt time.Time              `json:"trained_at"`
	Schema    []string               `json:"schema"`
	Scaler    *features.Scaler       `json:"scaler"`
	Horizons  map[int]*HorizonModels `json:"horizons"`
}

// EncodeBundle serializes a bundle for the artifact store.
func EncodeBundle(b *Bundle) ([]byte, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return raw, nil
}

// DecodeBundle restores a bundle written by EncodeBundle.
func DecodeBundle(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// Options configures training. Zero values fall back to the defaults.
type Options struct {
	Horizons      []int
	Trials        int
	Folds         int
	Workers       int // bound on concurrent (horizon, task) jobs and trial evaluations
	SearchTimeout time.Duration
	Seed          int64
	MinRows       int // minimum usable rows per horizon after truncation
}

func (o Options) withDefaults() Options {
	if len(o.Horizons) == 0 {
		o.Horizons = []int{1, 5, 10, 20}
	}
	if o.Trials <= 0 {
		o.Trials = 50
	}
	if o.Folds <= 0 {
		o.Folds = 5
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 10 * time.Minute
	}
	if o.MinRows <= 0 {
		o.MinRows = 40
	}
	return o
}

// Result is the in-memory outcome of one training run.
type Result struct {
	Horizons    map[int]*HorizonModels
	Reports     map[int]models.HorizonReport
	Importance  map[int][]models.ImportanceEntry
	Attribution map[int][]float64
	Trained     []int
	Failed      map[int]string
}

// Trainer runs training jobs. The sink and metrics are optional reporting
// surfaces; neither can fail a run.
type Trainer struct {
	opts    Options
	sink    repository.ReportSink
	metrics repository.Metrics
	log     *logger.Logger
}

// New creates a Trainer. Nil sink, metrics or logger are replaced with
// no-ops.
func New(opts Options, sink repository.ReportSink, metrics repository.Metrics, log *logger.Logger) *Trainer {
	if sink == nil {
		sink = repository.NopSink{}
	}
	if metrics == nil {
		metrics = repository.NopMetrics{}
	}
	return &Trainer{opts: opts.withDefaults(), sink: sink, metrics: metrics, log: log}
}

// Options returns the effective (defaulted) options.
func (t *Trainer) Options() Options { return t.opts }

type taskJob struct {
	horizon int
	task    models.TaskKind
	targets []float64
}

type taskOutcome struct {
	horizon  int
	task     models.TaskKind
	artifact *Artifact
	metrics  *models.TaskMetrics
	err      error
}

// Train fits growth and risk regressors for every configured horizon.
// A (horizon, task) failure is recorded against its horizon only; siblings
// keep training. The run fails outright only when no horizon produced a
// complete artifact pair.
func (t *Trainer) Train(ctx context.Context, symbol string, matrix *models.FeatureMatrix, targets *models.TargetSet) (*Result, error) {
	start := time.Now()
	if targets.UsableRows > matrix.NumRows() {
		return nil, fmt.Errorf("targets cover %d rows but matrix has %d", targets.UsableRows, matrix.NumRows())
	}
	x := matrix.Rows[:targets.UsableRows]

	jobs := make([]taskJob, 0, 2*len(t.opts.Horizons))
	for _, h := range t.opts.Horizons {
		ht, ok := targets.ByHorizon[h]
		if !ok {
			return nil, fmt.Errorf("no targets for horizon %d", h)
		}
		jobs = append(jobs, taskJob{horizon: h, task: models.TaskGrowth, targets: ht.Growth})
		jobs = append(jobs, taskJob{horizon: h, task: models.TaskRisk, targets: ht.Risk})
	}

	// Bounded worker pool over (horizon, task) jobs. The matrix is the only
	// shared input and it is read-only.
	outcomes := make([]taskOutcome, len(jobs))
	sem := make(chan struct{}, t.opts.Workers)
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job taskJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			art, tm, err := t.trainTask(ctx, symbol, x, job)
			outcomes[i] = taskOutcome{horizon: job.horizon, task: job.task, artifact: art, metrics: tm, err: err}
		}(i, job)
	}
	wg.Wait()

	res := &Result{
		Horizons:    make(map[int]*HorizonModels),
		Reports:     make(map[int]models.HorizonReport),
		Importance:  make(map[int][]models.ImportanceEntry),
		Attribution: make(map[int][]float64),
		Failed:      make(map[int]string),
	}
	byHorizon := make(map[int]map[models.TaskKind]taskOutcome)
	for _, out := range outcomes {
		if byHorizon[out.horizon] == nil {
			byHorizon[out.horizon] = make(map[models.TaskKind]taskOutcome)
		}
		byHorizon[out.horizon][out.task] = out
	}

	lastRow := x[len(x)-1]
	for _, h := range t.opts.Horizons {
		growth := byHorizon[h][models.TaskGrowth]
		risk := byHorizon[h][models.TaskRisk]
		report := models.HorizonReport{Horizon: h}

		if growth.err != nil || risk.err != nil {
			report.OK = false
			report.Error = firstErr(growth.err, risk.err).Error()
			res.Reports[h] = report
			res.Failed[h] = report.Error
			if t.log != nil {
				t.log.Warn("horizon training failed",
					logger.String("symbol", symbol),
					logger.Int("horizon", h),
					logger.String("reason", report.Error),
				)
			}
			continue
		}

		report.OK = true
		report.Growth = growth.metrics
		report.Risk = risk.metrics
		res.Reports[h] = report
		res.Horizons[h] = &HorizonModels{Growth: growth.artifact, Risk: risk.artifact}
		res.Trained = append(res.Trained, h)

		res.Importance[h] = rankImportance(matrix.Columns, growth.artifact.Model.Importance())
		_, contrib := growth.artifact.Model.Attribution(lastRow)
		res.Attribution[h] = contrib
	}
	sort.Ints(res.Trained)

	if len(res.Trained) == 0 {
		t.metrics.RecordTrainingRun(symbol, "error")
		return nil, fmt.Errorf("all horizons failed for %s", symbol)
	}

	t.metrics.RecordTrainingRun(symbol, "success")
	t.metrics.RecordLatency("train", time.Since(start).Seconds())
	t.sink.ReportRun(ctx, repository.RunEvent{
		Symbol:    symbol,
		Trained:   res.Trained,
		Failed:    len(res.Failed),
		Duration:  time.Since(start),
		TrainedAt: time.Now().UTC(),
	})
	return res, nil
}

// trainTask searches, refits and measures one (horizon, task) regressor.
func (t *Trainer) trainTask(ctx context.Context, symbol string, x [][]float64, job taskJob) (*Artifact, *models.TaskMetrics, error) {
	y := job.targets
	if len(y) < t.opts.MinRows {
		return nil, nil, &models.TrainingError{
			Horizon: job.horizon, Task: job.task,
			Err: fmt.Errorf("insufficient rows after truncation: %d < %d", len(y), t.opts.MinRows),
		}
	}
	if degenerate(y) {
		return nil, nil, &models.TrainingError{
			Horizon: job.horizon, Task: job.task,
			Err: fmt.Errorf("degenerate target: zero variance over %d rows", len(y)),
		}
	}

	searchCtx, cancel := context.WithTimeout(ctx, t.opts.SearchTimeout)
	defer cancel()

	start := time.Now()
	seed := t.opts.Seed + int64(job.horizon)*1000 + taskSeedOffset(job.task)
	best, cvScore, resid, err := search(searchCtx, x, y, SearchOptions{
		Trials:  t.opts.Trials,
		Folds:   t.opts.Folds,
		Workers: t.opts.Workers,
		Seed:    seed,
	}, func(trial int, p ml.Params, score float64, improved bool) {
		t.metrics.RecordTrial(string(p.Kind))
		t.sink.ReportTrial(ctx, repository.TrialEvent{
			Symbol: symbol, Horizon: job.horizon, Task: job.task,
			Trial: trial, Kind: string(p.Kind), Score: score, Best: improved,
		})
	})
	if err != nil {
		return nil, nil, &models.TrainingError{Horizon: job.horizon, Task: job.task, Err: err}
	}

	// refit the winning configuration on the full training set
	reg, err := ml.New(best)
	if err != nil {
		return nil, nil, &models.TrainingError{Horizon: job.horizon, Task: job.task, Err: err}
	}
	if err := reg.Fit(x, y); err != nil {
		return nil, nil, &models.TrainingError{Horizon: job.horizon, Task: job.task, Err: err}
	}

	pred := make([]float64, len(y))
	for i := range y {
		pred[i] = reg.Predict(x[i])
	}
	// In-sample diagnostics of the full refit, not out-of-sample accuracy.
	tm := &models.TaskMetrics{
		RMSE:    ml.RMSE(y, pred),
		MAE:     ml.MAE(y, pred),
		R2:      ml.R2(y, pred),
		CVScore: cvScore,
	}

	art := &Artifact{
		Model:       reg.(*ml.Ensemble),
		ResidualStd: ml.StdDev(resid),
		CVScore:     cvScore,
	}

	t.sink.ReportHorizon(ctx, repository.HorizonEvent{
		Symbol: symbol, Horizon: job.horizon, Task: job.task,
		Kind: string(best.Kind), CVScore: cvScore,
		RMSE: tm.RMSE, MAE: tm.MAE, R2: tm.R2,
		Duration: time.Since(start),
	})
	if t.log != nil {
		t.log.Info("task trained",
			logger.String("symbol", symbol),
			logger.Int("horizon", job.horizon),
			logger.String("task", string(job.task)),
			logger.String("kind", string(best.Kind)),
			logger.Any("cv_rmse", cvScore),
			logger.Duration("duration_ms", time.Since(start)),
		)
	}
	return art, tm, nil
}

// rankImportance zips columns with importance shares and sorts descending.
func rankImportance(columns []string, importance []float64) []models.ImportanceEntry {
	n := len(columns)
	if len(importance) < n {
		n = len(importance)
	}
	out := make([]models.ImportanceEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.ImportanceEntry{Feature: columns[i], Importance: importance[i]})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

func degenerate(y []float64) bool {
	first := y[0]
	for _, v := range y[1:] {
		if v != first {
			return false
		}
	}
	return true
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func taskSeedOffset(task models.TaskKind) int64 {
	if task == models.TaskRisk {
		return 1
	}
	return 0
}

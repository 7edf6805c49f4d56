package repository

import (
	"context"
	"database/sql"
	"time"

	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

// reportSchema creates the telemetry tables. Idempotent.
var reportSchema = []string{
	`CREATE TABLE IF NOT EXISTS stockcast.training_trials (
        ts       DateTime64(3) DEFAULT now64(3),
        symbol   LowCardinality(String),
        horizon  UInt16,
        task     LowCardinality(String),
        trial    UInt32,
        kind     LowCardinality(String),
        score    Float64,
        best     UInt8
    ) ENGINE = MergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS stockcast.training_horizons (
        ts          DateTime64(3) DEFAULT now64(3),
        symbol      LowCardinality(String),
        horizon     UInt16,
        task        LowCardinality(String),
        kind        LowCardinality(String),
        cv_score    Float64,
        rmse        Float64,
        mae         Float64,
        r2          Float64,
        duration_ms UInt64,
        error       String
    ) ENGINE = MergeTree ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS stockcast.training_runs (
        ts          DateTime64(3) DEFAULT now64(3),
        symbol      LowCardinality(String),
        trained     Array(UInt16),
        failed      UInt16,
        duration_ms UInt64,
        trained_at  DateTime64(3)
    ) ENGINE = MergeTree ORDER BY (symbol, ts)`,
}

// CHSink implements ReportSink backed by ClickHouse. Insert errors are
// logged and swallowed: telemetry must never fail a training run.
type CHSink struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewCHSink creates the sink and ensures the telemetry tables exist.
func NewCHSink(ctx context.Context, ch *pkgch.Client, l *applogger.Logger) (*CHSink, error) {
	if err := ch.InitSchema(ctx, reportSchema); err != nil {
		return nil, err
	}
	return &CHSink{db: ch.DB(), l: l}, nil
}

func (s *CHSink) ReportTrial(ctx context.Context, ev domrepo.TrialEvent) {
	const q = `INSERT INTO stockcast.training_trials
        (symbol, horizon, task, trial, kind, score, best)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	best := uint8(0)
	if ev.Best {
		best = 1
	}
	if _, err := s.db.ExecContext(ctx, q,
		ev.Symbol, uint16(ev.Horizon), string(ev.Task), uint32(ev.Trial), ev.Kind, ev.Score, best,
	); err != nil {
		s.warn("clickhouse trial insert failed", ev.Symbol, err)
	}
}

func (s *CHSink) ReportHorizon(ctx context.Context, ev domrepo.HorizonEvent) {
	const q = `INSERT INTO stockcast.training_horizons
        (symbol, horizon, task, kind, cv_score, rmse, mae, r2, duration_ms, error)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		ev.Symbol, uint16(ev.Horizon), string(ev.Task), ev.Kind,
		ev.CVScore, ev.RMSE, ev.MAE, ev.R2,
		uint64(ev.Duration/time.Millisecond), ev.Error,
	); err != nil {
		s.warn("clickhouse horizon insert failed", ev.Symbol, err)
	}
}

func (s *CHSink) ReportRun(ctx context.Context, ev domrepo.RunEvent) {
	const q = `INSERT INTO stockcast.training_runs
        (symbol, trained, failed, duration_ms, trained_at)
        VALUES (?, ?, ?, ?, ?)`
	trained := make([]uint16, len(ev.Trained))
	for i, h := range ev.Trained {
		trained[i] = uint16(h)
	}
	if _, err := s.db.ExecContext(ctx, q,
		ev.Symbol, trained, uint16(ev.Failed),
		uint64(ev.Duration/time.Millisecond), ev.TrainedAt,
	); err != nil {
		s.warn("clickhouse run insert failed", ev.Symbol, err)
	}
}

func (s *CHSink) Close() error { return nil }

func (s *CHSink) warn(msg, symbol string, err error) {
	if s.l != nil {
		s.l.Warn(msg, applogger.String("symbol", symbol), applogger.Error(err))
	}
}

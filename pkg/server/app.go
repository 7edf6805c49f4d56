// Package server runs the application lifecycle: an initial training pass
// over the configured symbols, a staleness ticker that retrains aging
// models, an optional Prometheus endpoint and graceful shutdown.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StockCast/internal/service/datafile"
	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg     *config.Config
	manager *usecase.Manager
	loader  *datafile.Loader
	l       *applogger.Logger

	metricsSrv *http.Server
	closers    []func() error
}

// New creates an App.
func New(cfg *config.Config, manager *usecase.Manager, loader *datafile.Loader, l *applogger.Logger) *App {
	return &App{cfg: cfg, manager: manager, loader: loader, l: l}
}

// OnShutdown registers a closer invoked during shutdown, after the ticker
// stops and before the manager closes.
func (a *App) OnShutdown(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.cfg.Metrics.Enabled {
		a.startMetricsServer()
	}

	symbols, err := a.symbols()
	if err != nil {
		return err
	}
	a.l.Info("starting", applogger.Strings("symbols", symbols))

	a.trainAll(ctx, symbols)

	ticker := time.NewTicker(a.cfg.Data.CheckInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			a.retrainStale(ctx, symbols)
		case <-sigCh:
			a.l.Info("shutdown signal received")
			cancel()
			return a.shutdown()
		}
	}
}

// trainAll trains every symbol that has no fresh model yet.
func (a *App) trainAll(ctx context.Context, symbols []string) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.cfg.Models.Workers)
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ran, age, report, err := a.manager.RetrainIfNeeded(ctx, symbol)
			switch {
			case err != nil:
				a.l.Error("training failed", applogger.String("symbol", symbol), applogger.Error(err))
				if report != nil && !report.Persisted {
					a.l.Warn("model trained but not persisted", applogger.String("symbol", symbol))
				}
			case ran:
				a.l.Info("model ready",
					applogger.String("symbol", symbol),
					applogger.Any("horizons", report.Trained),
				)
			default:
				a.l.Debug("model fresh, skipping",
					applogger.String("symbol", symbol),
					applogger.Duration("age_ms", age),
				)
			}
		}(symbol)
	}
	wg.Wait()
}

func (a *App) retrainStale(ctx context.Context, symbols []string) {
	a.l.Debug("staleness check", applogger.Int("symbols", len(symbols)))
	a.trainAll(ctx, symbols)
}

func (a *App) symbols() ([]string, error) {
	if len(a.cfg.Data.Symbols) > 0 {
		return a.cfg.Data.Symbols, nil
	}
	return a.loader.Symbols()
}

func (a *App) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, promhttp.Handler())
	a.metricsSrv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.l.Error("metrics server error", applogger.Error(err))
		}
	}()
	a.l.Info("metrics server started", applogger.String("addr", a.cfg.Metrics.Addr))
}

// shutdown stops the metrics server and closes registered resources.
func (a *App) shutdown() error {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.l.Warn("metrics shutdown error", applogger.Error(err))
		}
	}

	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
		}
	}

	if err := a.manager.Close(); err != nil {
		a.l.Warn("manager close error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
	return nil
}

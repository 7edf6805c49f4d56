// Package datafile loads per-symbol input files from a local directory.
// Each symbol owns one JSON document holding its candle history, sentiment
// window and market snapshot.
package datafile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"StockCast/internal/domain/models"
	"StockCast/internal/usecase"
	applogger "StockCast/pkg/logger"
)

// Loader implements usecase.DataProvider over a directory of JSON files
// named <SYMBOL>.json.
type Loader struct {
	dir string
	l   *applogger.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, l *applogger.Logger) *Loader {
	return &Loader{dir: dir, l: l}
}

type symbolFile struct {
	Candles   []models.Candle          `json:"candles"`
	Sentiment []models.SentimentRecord `json:"sentiment"`
	Market    models.MarketSnapshot    `json:"market"`
}

// Inputs reads and decodes the symbol's input file. Candles are sorted by
// date; sentiment and market are optional and default to empty/zero.
func (l *Loader) Inputs(ctx context.Context, symbol string) (*usecase.Inputs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(l.dir, strings.ToUpper(symbol)+".json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no input file for %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("read input for %s: %w", symbol, err)
	}

	var sf symbolFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("decode input for %s: %w", symbol, err)
	}
	sort.Slice(sf.Candles, func(i, j int) bool {
		return sf.Candles[i].Date.Before(sf.Candles[j].Date)
	})

	if l.l != nil {
		l.l.Debug("inputs loaded",
			applogger.String("symbol", symbol),
			applogger.Int("candles", len(sf.Candles)),
			applogger.Int("sentiment", len(sf.Sentiment)),
		)
	}
	return &usecase.Inputs{Candles: sf.Candles, Sentiment: sf.Sentiment, Market: sf.Market}, nil
}

// Symbols lists the symbols that have input files in the directory.
func (l *Loader) Symbols() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(out)
	return out, nil
}

package datafile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"StockCast/internal/domain/models"
)

const sampleInput = `{
  "candles": [
    {"date": "2024-01-03T00:00:00Z", "open": 101, "high": 103, "low": 100, "close": 102, "volume": 1200},
    {"date": "2024-01-02T00:00:00Z", "open": 100, "high": 102, "low": 99, "close": 101, "volume": 1000}
  ],
  "sentiment": [
    {"label": "positive", "confidence": 0.9, "volume": 12}
  ],
  "market": {"volatility": 0.2, "interest_rate": 0.05}
}`

func TestLoaderInputs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "AAPL.json"), []byte(sampleInput), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	l := NewLoader(dir, nil)
	in, err := l.Inputs(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	if len(in.Candles) != 2 {
		t.Fatalf("candles = %d, want 2", len(in.Candles))
	}
	// out-of-order candles are sorted by date
	if !in.Candles[0].Date.Before(in.Candles[1].Date) {
		t.Error("candles not sorted by date")
	}
	if len(in.Sentiment) != 1 || in.Sentiment[0].Label != models.SentimentPositive {
		t.Errorf("sentiment = %+v", in.Sentiment)
	}
	if in.Market.Volatility != 0.2 {
		t.Errorf("market volatility = %v", in.Market.Volatility)
	}
}

func TestLoaderMissingSymbol(t *testing.T) {
	l := NewLoader(t.TempDir(), nil)
	if _, err := l.Inputs(context.Background(), "GHOST"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestLoaderMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "BAD.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	l := NewLoader(dir, nil)
	if _, err := l.Inputs(context.Background(), "BAD"); err == nil {
		t.Error("malformed file accepted")
	}
}

func TestLoaderSymbols(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"MSFT.json", "AAPL.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	l := NewLoader(dir, nil)
	syms, err := l.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) != 2 || syms[0] != "AAPL" || syms[1] != "MSFT" {
		t.Errorf("Symbols = %v", syms)
	}
}

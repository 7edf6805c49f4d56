// Package features turns raw candle series, sentiment records and a market
// snapshot into the fixed-schema numeric matrix the trainer consumes. The
// transformation is deterministic and side-effect free; the column order it
// produces is the feature schema shared between training and inference.
package features

import (
	"fmt"
	"math"
	"time"

	"StockCast/internal/domain/models"
)

// Fixed indicator windows. Changing any of these changes the feature
// schema, which invalidates every persisted model.
const (
	trendShort     = 20
	trendMid       = 50
	trendLong      = 200
	oscWindow      = 14
	cciWindow      = 20
	bollingerK     = 2.0
	distanceWindow = 20

	// baseLookback is the history needed beyond the max horizon before the
	// rolling price features stop being pure warm-up.
	baseLookback = 60
)

// priceWindows is the fixed window set for rolling price features.
var priceWindows = []int{5, 10, 20, 50}

// Engineer builds feature matrices and targets.
type Engineer struct{}

// NewEngineer returns a feature engineer.
func NewEngineer() *Engineer { return &Engineer{} }

// MinHistory is the minimum candle count required to train with the given
// horizon set.
func MinHistory(horizons []int) int {
	return baseLookback + maxHorizon(horizons)
}

func maxHorizon(horizons []int) int {
	m := 0
	for _, h := range horizons {
		if h > m {
			m = h
		}
	}
	return m
}

// Validate checks the raw series invariants: strictly increasing dates, no
// duplicates, positive prices.
func Validate(candles []models.Candle) error {
	for i, c := range candles {
		if c.Close <= 0 || c.High <= 0 || c.Low <= 0 || c.Open <= 0 {
			return models.Featuref("non-positive price at row %d", i)
		}
		if i > 0 && !candles[i-1].Date.Before(c.Date) {
			return models.Featuref("dates not strictly increasing at row %d (%s then %s)",
				i, candles[i-1].Date.Format("2006-01-02"), c.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// PrepareFeatures assembles the full standardized matrix and the scaler fit
// on it. Missing warm-up values are filled forward then backward; a column
// with no defined value at all defaults to 0. Two calls on the same input
// produce identical schemas and values.
func (e *Engineer) PrepareFeatures(candles []models.Candle, sentiment []models.SentimentRecord, market models.MarketSnapshot) (*models.FeatureMatrix, *Scaler, error) {
	if err := Validate(candles); err != nil {
		return nil, nil, err
	}
	if len(candles) < baseLookback {
		return nil, nil, models.Featuref("insufficient history: %d rows, need at least %d", len(candles), baseLookback)
	}

	columns, cols := e.rawColumns(candles, sentiment, market)
	fillColumns(cols)

	n := len(candles)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(cols))
		for j, col := range cols {
			row[j] = col[i]
		}
		rows[i] = row
	}

	scaler := fitScaler(columns, rows)
	if err := scaler.transform(rows); err != nil {
		return nil, nil, models.Featuref("standardize: %v", err)
	}

	dates := make([]time.Time, n)
	for i, c := range candles {
		dates[i] = c.Date
	}
	return &models.FeatureMatrix{Columns: columns, Dates: dates, Rows: rows}, scaler, nil
}

// PrepareLatest rebuilds the feature row for the most recent candle using a
// scaler fit at training time. The returned schema must be compared against
// the training schema by the caller; this function never pads or drops
// columns.
func (e *Engineer) PrepareLatest(candles []models.Candle, sentiment []models.SentimentRecord, market models.MarketSnapshot, scaler *Scaler) ([]float64, []string, error) {
	if err := Validate(candles); err != nil {
		return nil, nil, err
	}
	if len(candles) < baseLookback {
		return nil, nil, models.Featuref("insufficient history for inference: %d rows, need %d", len(candles), baseLookback)
	}

	columns, cols := e.rawColumns(candles, sentiment, market)
	fillColumns(cols)

	last := len(candles) - 1
	row := make([]float64, len(cols))
	for j, col := range cols {
		row[j] = col[last]
	}
	if err := scaler.TransformRow(row); err != nil {
		return nil, nil, models.Featuref("standardize inference row: %v", err)
	}
	return row, columns, nil
}

// BuildTargets computes forward return and forward realized volatility per
// horizon. Rows without a full lookahead window are dropped: UsableRows is
// len(candles) minus the maximum horizon.
func (e *Engineer) BuildTargets(candles []models.Candle, horizons []int) (*models.TargetSet, error) {
	if len(horizons) == 0 {
		return nil, models.Featuref("no horizons configured")
	}
	maxH := maxHorizon(horizons)
	usable := len(candles) - maxH
	if usable < 2 {
		return nil, models.Featuref("insufficient history for targets: %d rows, max horizon %d", len(candles), maxH)
	}

	returns := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		returns[i] = candles[i].Close/candles[i-1].Close - 1
	}

	set := &models.TargetSet{
		Horizons:   horizons,
		UsableRows: usable,
		ByHorizon:  make(map[int]models.HorizonTargets, len(horizons)),
	}
	for _, h := range horizons {
		growth := make([]float64, usable)
		risk := make([]float64, usable)
		for t := 0; t < usable; t++ {
			growth[t] = candles[t+h].Close/candles[t].Close - 1
			risk[t] = forwardVolatility(returns, t, h)
		}
		set.ByHorizon[h] = models.HorizonTargets{Growth: growth, Risk: risk}
	}
	return set, nil
}

// forwardVolatility is the realized volatility of returns over (t, t+h].
// A one-day horizon has a single return, so its "volatility" is the
// magnitude of that return.
func forwardVolatility(returns []float64, t, h int) float64 {
	if h == 1 {
		return math.Abs(returns[t+1])
	}
	var sum float64
	for i := t + 1; i <= t+h; i++ {
		sum += returns[i]
	}
	mean := sum / float64(h)
	var sq float64
	for i := t + 1; i <= t+h; i++ {
		d := returns[i] - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(h-1))
}

// rawColumns builds the unstandardized feature columns in schema order:
// technical, price, broadcast sentiment, broadcast market.
func (e *Engineer) rawColumns(candles []models.Candle, sentiment []models.SentimentRecord, market models.MarketSnapshot) ([]string, [][]float64) {
	n := len(candles)
	high := make([]float64, n)
	low := make([]float64, n)
	closePx := make([]float64, n)
	volume := make([]float64, n)
	for i, c := range candles {
		high[i] = c.High
		low[i] = c.Low
		closePx[i] = c.Close
		volume[i] = c.Volume
	}

	columns := make([]string, 0, 40)
	cols := make([][]float64, 0, 40)
	add := func(name string, col []float64) {
		columns = append(columns, name)
		cols = append(cols, col)
	}

	// technical: trend
	add("sma_20", SMA(closePx, trendShort))
	add("sma_50", SMA(closePx, trendMid))
	add("sma_200", SMA(closePx, trendLong))
	add("ema_20", EMA(closePx, trendShort))
	add("macd", MACDDiff(closePx, 12, 26, 9))
	add("adx", ADX(high, low, closePx, oscWindow))

	// technical: momentum
	add("rsi", RSI(closePx, oscWindow))
	add("stoch", Stochastic(high, low, closePx, oscWindow))
	add("cci", CCI(high, low, closePx, cciWindow))
	add("williams_r", WilliamsR(high, low, closePx, oscWindow))

	// technical: volatility
	add("bbands_width", BollingerWidth(closePx, trendShort, bollingerK))
	add("atr", ATR(high, low, closePx, oscWindow))

	// technical: volume
	add("obv", OBV(closePx, volume))
	add("mfi", MFI(high, low, closePx, volume, oscWindow))

	// price features
	returns := nanSlice(n)
	logReturns := nanSlice(n)
	for i := 1; i < n; i++ {
		returns[i] = closePx[i]/closePx[i-1] - 1
		logReturns[i] = math.Log1p(returns[i])
	}
	add("returns", returns)
	add("log_returns", logReturns)
	for _, w := range priceWindows {
		add(fmt.Sprintf("volatility_%dd", w), rollingStd(returns, w))
		add(fmt.Sprintf("momentum_%dd", w), rollingMean(returns, w))
		rngHigh := rollingMax(high, w)
		rngLow := rollingMin(low, w)
		pr := nanSlice(n)
		for i := range pr {
			if !math.IsNaN(rngHigh[i]) && !math.IsNaN(rngLow[i]) && closePx[i] != 0 {
				pr[i] = (rngHigh[i] - rngLow[i]) / closePx[i]
			}
		}
		add(fmt.Sprintf("price_range_%dd", w), pr)
	}
	distHigh := rollingMax(high, distanceWindow)
	distLow := rollingMin(low, distanceWindow)
	fromHigh := nanSlice(n)
	fromLow := nanSlice(n)
	for i := range closePx {
		if !math.IsNaN(distHigh[i]) && distHigh[i] != 0 {
			fromHigh[i] = closePx[i]/distHigh[i] - 1
		}
		if !math.IsNaN(distLow[i]) && distLow[i] != 0 {
			fromLow[i] = closePx[i]/distLow[i] - 1
		}
	}
	add("distance_from_high", fromHigh)
	add("distance_from_low", fromLow)

	// broadcast sentiment block
	sb := sentimentBlock(sentiment)
	for k, name := range sentimentColumns {
		col := make([]float64, n)
		for i := range col {
			col[i] = sb[k]
		}
		add(name, col)
	}

	// broadcast market block
	mb := marketBlock(market)
	for k, name := range marketColumns {
		col := make([]float64, n)
		for i := range col {
			col[i] = mb[k]
		}
		add(name, col)
	}

	return columns, cols
}

// fillColumns fills NaNs forward then backward per column. A column that is
// entirely NaN (indicator window longer than the history) defaults to 0.
func fillColumns(cols [][]float64) {
	for _, col := range cols {
		last := math.NaN()
		for i := range col {
			if math.IsNaN(col[i]) {
				col[i] = last
			} else {
				last = col[i]
			}
		}
		next := math.NaN()
		for i := len(col) - 1; i >= 0; i-- {
			if math.IsNaN(col[i]) {
				col[i] = next
			} else {
				next = col[i]
			}
		}
		for i := range col {
			if math.IsNaN(col[i]) {
				col[i] = 0
			}
		}
	}
}

// SchemaEqual reports whether two schemas match exactly: same length, same
// names, same order.
func SchemaEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

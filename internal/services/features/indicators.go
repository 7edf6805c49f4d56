package features

import "math"

// Indicator helpers operate on parallel OHLCV slices and return series
// aligned with the input, with NaN in warm-up positions. NaNs are filled
// during matrix assembly, never silently substituted with numbers.

var nan = math.NaN()

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}

// SMA is the simple moving average over window w.
func SMA(v []float64, w int) []float64 {
	out := nanSlice(len(v))
	if w <= 0 || len(v) < w {
		return out
	}
	var sum float64
	for i, x := range v {
		sum += x
		if i >= w {
			sum -= v[i-w]
		}
		if i >= w-1 {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// EMA is the exponential moving average with alpha 2/(w+1), seeded by the
// simple average of the first w values.
func EMA(v []float64, w int) []float64 {
	out := nanSlice(len(v))
	if w <= 0 || len(v) < w {
		return out
	}
	var seed float64
	for i := 0; i < w; i++ {
		seed += v[i]
	}
	seed /= float64(w)
	out[w-1] = seed
	alpha := 2 / float64(w+1)
	for i := w; i < len(v); i++ {
		out[i] = alpha*v[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACDDiff is the MACD histogram: (EMA(fast) - EMA(slow)) minus its own
// EMA(signal) line.
func MACDDiff(close []float64, fast, slow, signal int) []float64 {
	out := nanSlice(len(close))
	if len(close) < slow+signal {
		return out
	}
	ef := EMA(close, fast)
	es := EMA(close, slow)
	macd := make([]float64, 0, len(close)-slow+1)
	for i := slow - 1; i < len(close); i++ {
		macd = append(macd, ef[i]-es[i])
	}
	sig := EMA(macd, signal)
	for i := range macd {
		if !math.IsNaN(sig[i]) {
			out[slow-1+i] = macd[i] - sig[i]
		}
	}
	return out
}

// RSI is the relative strength index computed from Wilder-smoothed average
// gains and losses over window w.
func RSI(close []float64, w int) []float64 {
	out := nanSlice(len(close))
	if len(close) < w+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= w; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(w)
	avgLoss /= float64(w)
	out[w] = rsiValue(avgGain, avgLoss)
	for i := w + 1; i < len(close); i++ {
		d := close[i] - close[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(w-1) + gain) / float64(w)
		avgLoss = (avgLoss*float64(w-1) + loss) / float64(w)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// trueRange returns the TR series (first element uses high-low only).
func trueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR is the Wilder-smoothed average true range.
func ATR(high, low, close []float64, w int) []float64 {
	out := nanSlice(len(close))
	if len(close) < w+1 {
		return out
	}
	tr := trueRange(high, low, close)
	var sum float64
	for i := 1; i <= w; i++ {
		sum += tr[i]
	}
	prev := sum / float64(w)
	out[w] = prev
	for i := w + 1; i < len(close); i++ {
		prev = (prev*float64(w-1) + tr[i]) / float64(w)
		out[i] = prev
	}
	return out
}

// ADX is the average directional movement index over window w, with Wilder
// smoothing of +DM, -DM and TR.
func ADX(high, low, close []float64, w int) []float64 {
	out := nanSlice(len(close))
	if len(close) < 2*w+1 {
		return out
	}
	tr := trueRange(high, low, close)
	n := len(close)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	var strTR, strPlus, strMinus float64
	for i := 1; i <= w; i++ {
		strTR += tr[i]
		strPlus += plusDM[i]
		strMinus += minusDM[i]
	}
	dx := nanSlice(n)
	dx[w] = dxValue(strPlus, strMinus, strTR)
	for i := w + 1; i < n; i++ {
		strTR = strTR - strTR/float64(w) + tr[i]
		strPlus = strPlus - strPlus/float64(w) + plusDM[i]
		strMinus = strMinus - strMinus/float64(w) + minusDM[i]
		dx[i] = dxValue(strPlus, strMinus, strTR)
	}

	var sum float64
	for i := w; i < 2*w; i++ {
		sum += dx[i]
	}
	prev := sum / float64(w)
	out[2*w-1] = prev
	for i := 2 * w; i < n; i++ {
		prev = (prev*float64(w-1) + dx[i]) / float64(w)
		out[i] = prev
	}
	return out
}

func dxValue(plus, minus, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	pdi := 100 * plus / tr
	mdi := 100 * minus / tr
	if pdi+mdi == 0 {
		return 0
	}
	return 100 * math.Abs(pdi-mdi) / (pdi + mdi)
}

// Stochastic is the %K oscillator over window w.
func Stochastic(high, low, close []float64, w int) []float64 {
	out := nanSlice(len(close))
	hh := rollingMax(high, w)
	ll := rollingMin(low, w)
	for i := range close {
		if math.IsNaN(hh[i]) || math.IsNaN(ll[i]) {
			continue
		}
		span := hh[i] - ll[i]
		if span == 0 {
			out[i] = 50
			continue
		}
		out[i] = 100 * (close[i] - ll[i]) / span
	}
	return out
}

// WilliamsR is the Williams %R oscillator over window w, in [-100, 0].
func WilliamsR(high, low, close []float64, w int) []float64 {
	out := nanSlice(len(close))
	hh := rollingMax(high, w)
	ll := rollingMin(low, w)
	for i := range close {
		if math.IsNaN(hh[i]) || math.IsNaN(ll[i]) {
			continue
		}
		span := hh[i] - ll[i]
		if span == 0 {
			out[i] = -50
			continue
		}
		out[i] = -100 * (hh[i] - close[i]) / span
	}
	return out
}

// CCI is the commodity channel index over window w.
func CCI(high, low, close []float64, w int) []float64 {
	n := len(close)
	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	sma := SMA(tp, w)
	out := nanSlice(n)
	for i := w - 1; i < n; i++ {
		var dev float64
		for j := i - w + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - sma[i])
		}
		dev /= float64(w)
		if dev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - sma[i]) / (0.015 * dev)
	}
	return out
}

// BollingerWidth is (upper - lower) / middle for bands at k standard
// deviations around a w-period simple average.
func BollingerWidth(close []float64, w int, k float64) []float64 {
	mid := SMA(close, w)
	sd := rollingStd(close, w)
	out := nanSlice(len(close))
	for i := range close {
		if math.IsNaN(mid[i]) || math.IsNaN(sd[i]) || mid[i] == 0 {
			continue
		}
		out[i] = 2 * k * sd[i] / mid[i]
	}
	return out
}

// OBV is the cumulative on-balance volume.
func OBV(close, volume []float64) []float64 {
	out := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			out[i] = out[i-1] + volume[i]
		case close[i] < close[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// MFI is the money flow index over window w.
func MFI(high, low, close, volume []float64, w int) []float64 {
	n := len(close)
	out := nanSlice(n)
	if n < w+1 {
		return out
	}
	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	pos := make([]float64, n)
	neg := make([]float64, n)
	for i := 1; i < n; i++ {
		mf := tp[i] * volume[i]
		if tp[i] > tp[i-1] {
			pos[i] = mf
		} else if tp[i] < tp[i-1] {
			neg[i] = mf
		}
	}
	var sumPos, sumNeg float64
	for i := 1; i <= w; i++ {
		sumPos += pos[i]
		sumNeg += neg[i]
	}
	out[w] = mfiValue(sumPos, sumNeg)
	for i := w + 1; i < n; i++ {
		sumPos += pos[i] - pos[i-w]
		sumNeg += neg[i] - neg[i-w]
		out[i] = mfiValue(sumPos, sumNeg)
	}
	return out
}

func mfiValue(pos, neg float64) float64 {
	if neg == 0 {
		if pos == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+pos/neg)
}

// rollingMax returns the window maximum, NaN during warm-up.
func rollingMax(v []float64, w int) []float64 {
	out := nanSlice(len(v))
	for i := w - 1; i < len(v); i++ {
		m := v[i-w+1]
		for j := i - w + 2; j <= i; j++ {
			if v[j] > m {
				m = v[j]
			}
		}
		out[i] = m
	}
	return out
}

// rollingMin returns the window minimum, NaN during warm-up.
func rollingMin(v []float64, w int) []float64 {
	out := nanSlice(len(v))
	for i := w - 1; i < len(v); i++ {
		m := v[i-w+1]
		for j := i - w + 2; j <= i; j++ {
			if v[j] < m {
				m = v[j]
			}
		}
		out[i] = m
	}
	return out
}

// rollingMean averages over window w, NaN during warm-up and around NaN
// inputs.
func rollingMean(v []float64, w int) []float64 {
	out := nanSlice(len(v))
	for i := w - 1; i < len(v); i++ {
		var sum float64
		ok := true
		for j := i - w + 1; j <= i; j++ {
			if math.IsNaN(v[j]) {
				ok = false
				break
			}
			sum += v[j]
		}
		if ok {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// rollingStd is the sample standard deviation over window w.
func rollingStd(v []float64, w int) []float64 {
	out := nanSlice(len(v))
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(v); i++ {
		var sum, sq float64
		ok := true
		for j := i - w + 1; j <= i; j++ {
			if math.IsNaN(v[j]) {
				ok = false
				break
			}
			sum += v[j]
			sq += v[j] * v[j]
		}
		if !ok {
			continue
		}
		n := float64(w)
		mean := sum / n
		variance := (sq - n*mean*mean) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

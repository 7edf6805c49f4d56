package features

import (
	"math"

	"StockCast/internal/domain/models"
)

// sentimentColumns is the fixed order of the sentiment feature block.
var sentimentColumns = []string{
	"sentiment_avg",
	"sentiment_weighted",
	"sentiment_dispersion",
	"sentiment_momentum",
	"sentiment_positive_ratio",
	"sentiment_negative_ratio",
}

// sentimentBlock aggregates sentiment records into the fixed feature block.
// An empty record set yields all zeros: the documented defaults, not an
// error. Dispersion and momentum need at least two records and default to 0
// below that.
func sentimentBlock(records []models.SentimentRecord) []float64 {
	out := make([]float64, len(sentimentColumns))
	if len(records) == 0 {
		return out
	}

	n := float64(len(records))
	var sum, weightedSum, volSum float64
	var positives, negatives float64
	scores := make([]float64, len(records))
	for i, r := range records {
		s := r.Label.Score()
		scores[i] = s
		sum += s
		weightedSum += s * r.Confidence * r.Volume
		volSum += r.Volume
		if s > 0 {
			positives++
		}
		if s < 0 {
			negatives++
		}
	}

	out[0] = sum / n
	if volSum > 0 {
		out[1] = weightedSum / volSum
	}

	if len(records) > 1 {
		mean := sum / n
		var sq float64
		for _, s := range scores {
			d := s - mean
			sq += d * d
		}
		out[2] = math.Sqrt(sq / (n - 1))

		var diffSum float64
		for i := 1; i < len(scores); i++ {
			diffSum += scores[i] - scores[i-1]
		}
		out[3] = diffSum / (n - 1)
	}

	out[4] = positives / n
	out[5] = negatives / n
	return out
}

// marketColumns is the fixed order of the market feature block.
var marketColumns = []string{
	"market_volatility",
	"market_sector_performance",
	"market_sentiment",
	"market_interest_rate",
	"market_volume",
}

// marketBlock passes through the snapshot scalars; absent fields are zero
// by construction of the struct.
func marketBlock(snap models.MarketSnapshot) []float64 {
	return []float64{
		snap.Volatility,
		snap.SectorPerformance,
		snap.MarketSentiment,
		snap.InterestRate,
		snap.MarketVolume,
	}
}

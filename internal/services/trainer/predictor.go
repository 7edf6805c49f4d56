package trainer

import (
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/features"
)

// zScore95 spans a symmetric ~95% interval around the point prediction.
const zScore95 = 1.96

// Predict evaluates every horizon of a bundle on one standardized feature
// row. It fails fast with PredictionError, producing no partial result, when
// the row's schema does not match the training schema or any requested
// horizon has no artifact.
func Predict(bundle *Bundle, row []float64, schema []string, horizons []int) (*models.PredictionResult, error) {
	if !features.SchemaEqual(bundle.Schema, schema) {
		return nil, &models.PredictionError{
			Symbol: bundle.Symbol,
			Reason: fmt.Sprintf("feature schema mismatch: trained with %d columns, inference row has %d", len(bundle.Schema), len(schema)),
		}
	}

	out := &models.PredictionResult{
		Symbol:    bundle.Symbol,
		Timestamp: time.Now().UTC(),
		Horizons:  make(map[int]models.HorizonForecast, len(horizons)),
	}
	for _, h := range horizons {
		hm, ok := bundle.Horizons[h]
		if !ok || hm.Growth == nil || hm.Risk == nil {
			return nil, &models.PredictionError{
				Symbol: bundle.Symbol,
				Reason: fmt.Sprintf("no artifact for horizon %d", h),
			}
		}

		growth := hm.Growth.Model.Predict(row)
		// Uncertainty comes from held-out fold residual dispersion collected
		// during the search, a regression estimator by construction.
		std := hm.Growth.ResidualStd
		risk := hm.Risk.Model.Predict(row)

		out.Horizons[h] = models.HorizonForecast{
			Horizon: h,
			Growth: models.GrowthForecast{
				Prediction: growth,
				Lower:      growth - zScore95*std,
				Upper:      growth + zScore95*std,
			},
			Risk: models.RiskForecast{
				Score:    risk,
				Category: models.CategorizeRisk(risk),
			},
		}
	}
	return out, nil
}

// Explain returns the growth model's feature attribution for one row:
// base plus per-column contributions summing exactly to the prediction.
func Explain(bundle *Bundle, row []float64, horizon int) (float64, []models.ImportanceEntry, error) {
	hm, ok := bundle.Horizons[horizon]
	if !ok || hm.Growth == nil {
		return 0, nil, &models.PredictionError{
			Symbol: bundle.Symbol,
			Reason: fmt.Sprintf("no artifact for horizon %d", horizon),
		}
	}
	base, contrib := hm.Growth.Model.Attribution(row)
	entries := make([]models.ImportanceEntry, 0, len(contrib))
	for i, c := range contrib {
		name := fmt.Sprintf("f%d", i)
		if i < len(bundle.Schema) {
			name = bundle.Schema[i]
		}
		entries = append(entries, models.ImportanceEntry{Feature: name, Importance: c})
	}
	return base, entries, nil
}

package features

import (
	"fmt"
	"math"
)

// Scaler holds standardization statistics fit once at training time and
// reused identically at inference. A constant column gets Std 1, so its
// standardized value is exactly 0.
type Scaler struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Std     []float64 `json:"std"`
}

// fitScaler computes column means and sample standard deviations over rows.
func fitScaler(columns []string, rows [][]float64) *Scaler {
	d := len(columns)
	s := &Scaler{
		Columns: columns,
		Mean:    make([]float64, d),
		Std:     make([]float64, d),
	}
	n := float64(len(rows))
	if n == 0 {
		for j := range s.Std {
			s.Std[j] = 1
		}
		return s
	}
	for j := 0; j < d; j++ {
		var sum float64
		for _, row := range rows {
			sum += row[j]
		}
		mean := sum / n
		var sq float64
		for _, row := range rows {
			dlt := row[j] - mean
			sq += dlt * dlt
		}
		std := 0.0
		if n > 1 {
			std = math.Sqrt(sq / (n - 1))
		}
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return s
}

// TransformRow standardizes one row in place.
func (s *Scaler) TransformRow(row []float64) error {
	if len(row) != len(s.Mean) {
		return fmt.Errorf("scaler width %d, row width %d", len(s.Mean), len(row))
	}
	for j := range row {
		row[j] = (row[j] - s.Mean[j]) / s.Std[j]
	}
	return nil
}

// transform standardizes all rows in place.
func (s *Scaler) transform(rows [][]float64) error {
	for _, row := range rows {
		if err := s.TransformRow(row); err != nil {
			return err
		}
	}
	return nil
}

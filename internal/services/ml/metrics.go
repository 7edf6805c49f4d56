package ml

import "math"

// RMSE is the root-mean-squared error between targets and predictions.
func RMSE(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for i := range y {
		d := y[i] - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(y)))
}

// MAE is the mean absolute error.
func MAE(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for i := range y {
		sum += math.Abs(y[i] - pred[i])
	}
	return sum / float64(len(y))
}

// R2 is the coefficient of determination. A constant target yields 0.
func R2(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	mean := sum / float64(len(y))
	var ssRes, ssTot float64
	for i := range y {
		d := y[i] - pred[i]
		ssRes += d * d
		t := y[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// StdDev is the sample standard deviation, 0 for fewer than two values.
func StdDev(v []float64) float64 {
	n := len(v)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(n)
	var sq float64
	for _, x := range v {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

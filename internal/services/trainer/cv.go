package trainer

import "fmt"

// fold is one time-respecting cross-validation split. Rows [0, trainEnd)
// train, rows [trainEnd, valEnd) validate; the validation window always
// follows the training window chronologically.
type fold struct {
	trainEnd int
	valEnd   int
}

// timeSeriesFolds splits n chronologically ordered rows into k folds the
// way an expanding-window splitter does: validation windows are k equal
// consecutive chunks at the tail, each trained on everything before it.
// No shuffling, no look-ahead.
func timeSeriesFolds(n, k int) ([]fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	valSize := n / (k + 1)
	if valSize < 1 {
		return nil, fmt.Errorf("%d rows cannot support %d folds", n, k)
	}
	folds := make([]fold, 0, k)
	for i := 0; i < k; i++ {
		trainEnd := n - (k-i)*valSize
		if trainEnd < 1 {
			return nil, fmt.Errorf("fold %d has empty training window", i)
		}
		folds = append(folds, fold{trainEnd: trainEnd, valEnd: trainEnd + valSize})
	}
	return folds, nil
}

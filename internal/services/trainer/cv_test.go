package trainer

import "testing"

func TestTimeSeriesFolds(t *testing.T) {
	folds, err := timeSeriesFolds(120, 5)
	if err != nil {
		t.Fatalf("timeSeriesFolds: %v", err)
	}
	if len(folds) != 5 {
		t.Fatalf("got %d folds, want 5", len(folds))
	}
	valSize := 120 / 6
	prevEnd := 0
	for i, f := range folds {
		if f.trainEnd <= 0 {
			t.Fatalf("fold %d has empty training window", i)
		}
		if f.valEnd-f.trainEnd != valSize {
			t.Errorf("fold %d validation size = %d, want %d", i, f.valEnd-f.trainEnd, valSize)
		}
		// validation always follows training; windows are consecutive
		if i > 0 && f.trainEnd != prevEnd {
			t.Errorf("fold %d trainEnd = %d, want %d (previous valEnd)", i, f.trainEnd, prevEnd)
		}
		prevEnd = f.valEnd
	}
	if folds[len(folds)-1].valEnd != 120 {
		t.Errorf("last fold valEnd = %d, want 120", folds[len(folds)-1].valEnd)
	}
}

func TestTimeSeriesFoldsRejectsBadInput(t *testing.T) {
	if _, err := timeSeriesFolds(100, 1); err == nil {
		t.Error("single fold accepted")
	}
	if _, err := timeSeriesFolds(3, 5); err == nil {
		t.Error("more folds than rows accepted")
	}
}

package utils

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"scaled identical", []float32{1, 2, 3}, []float32{2, 4, 6}, 1.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", nil, nil, 0.0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if v == nil {
		t.Fatal("Normalize() returned nil for non-zero vector")
	}
	if math.Abs(Magnitude(v)-1.0) > 1e-6 {
		t.Errorf("Magnitude(Normalize(v)) = %v, want 1.0", Magnitude(v))
	}

	if Normalize(nil) != nil {
		t.Error("Normalize(nil) should be nil")
	}
	if Normalize([]float32{0, 0}) != nil {
		t.Error("Normalize(zero vector) should be nil")
	}
}

func TestRound(t *testing.T) {
	if got := Round(0.123456, 4); got != 0.1235 {
		t.Errorf("Round(0.123456, 4) = %v, want 0.1235", got)
	}
	if got := Round(0.999999, 5); got != 1.0 {
		t.Errorf("Round(0.999999, 5) = %v, want 1.0", got)
	}
}

func TestTopKByScore(t *testing.T) {
	items := []ScoredItem[string]{
		{Item: "a", Score: 0.1},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
		{Item: "d", Score: 0.7},
	}

	top := TopKByScore(items, 2)
	if len(top) != 2 {
		t.Fatalf("TopKByScore() returned %d items, want 2", len(top))
	}
	if top[0].Item != "b" || top[1].Item != "d" {
		t.Errorf("TopKByScore() = %v, want [b d]", top)
	}

	all := TopKByScore(items, 10)
	if len(all) != 4 {
		t.Fatalf("TopKByScore() with k > n returned %d items, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Score > all[i-1].Score {
			t.Errorf("TopKByScore() not descending at %d: %v", i, all)
		}
	}

	if TopKByScore(items, 0) != nil {
		t.Error("TopKByScore() with k=0 should be nil")
	}
}

func TestTopKIndicesByScore(t *testing.T) {
	scores := []float64{0.2, 0.8, 0.4}
	idx := TopKIndicesByScore(scores, 2)
	if len(idx) != 2 || idx[0] != 1 || idx[1] != 2 {
		t.Errorf("TopKIndicesByScore() = %v, want [1 2]", idx)
	}
}

package classifier

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ppiankov/wordlist/internal/model"
)

func separable(n int, seed int64) ([]model.Vector, []int) {
	rng := rand.New(rand.NewSource(seed))
	var x []model.Vector
	var y []int
	for i := 0; i < n; i++ {
		jitter := func() float32 { return float32(rng.Float64() - 0.5) }
		x = append(x, model.Vector{3 + jitter(), 2 + jitter(), jitter()})
		y = append(y, Positive)
		x = append(x, model.Vector{-3 + jitter(), -2 + jitter(), jitter()})
		y = append(y, Negative)
	}
	return x, y
}

func TestPegasos_SeparatesLinearData(t *testing.T) {
	x, y := separable(40, 1)

	m, err := NewPegasosTrainer(0, 0, 42).Train(context.Background(), x, y)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	acc, err := Accuracy(m, x, y)
	if err != nil {
		t.Fatalf("Accuracy: %v", err)
	}
	if acc < 0.99 {
		t.Errorf("Expected near-perfect accuracy, got %.2f", acc)
	}

	pos, _ := m.Decision(model.Vector{3, 2, 0})
	neg, _ := m.Decision(model.Vector{-3, -2, 0})
	if pos <= neg {
		t.Errorf("Positive example scored below negative: %f <= %f", pos, neg)
	}
}

func TestPegasos_Deterministic(t *testing.T) {
	x, y := separable(20, 7)
	tr := NewPegasosTrainer(0.01, 5, 42)

	a, _ := tr.Train(context.Background(), x, y)
	b, _ := tr.Train(context.Background(), x, y)

	da, _ := a.Decision(x[0])
	db, _ := b.Decision(x[0])
	if da != db {
		t.Errorf("Same seed gave different models: %f vs %f", da, db)
	}
}

func TestPegasos_NeedsBothClasses(t *testing.T) {
	x := []model.Vector{{1, 2}, {2, 3}}
	y := []int{Positive, Positive}

	_, err := NewPegasosTrainer(0, 0, 42).Train(context.Background(), x, y)
	if !errors.Is(err, model.ErrInsufficientTrainingData) {
		t.Errorf("Expected ErrInsufficientTrainingData, got %v", err)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	x, y := separable(10, 3)
	m, err := NewPegasosTrainer(0, 0, 42).Train(context.Background(), x, y)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	blob, err := m.Blob()
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	loaded, err := Load(blob)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, v := range x {
		want, _ := m.Decision(v)
		got, _ := loaded.Decision(v)
		if want != got {
			t.Fatalf("Decision changed after round trip: %f vs %f", want, got)
		}
	}
}

func TestLoad_Corrupt(t *testing.T) {
	cases := map[string]string{
		"not json":     `garbage`,
		"unknown kind": `{"kind": "forest", "data": {}}`,
		"empty model":  `{"kind": "linear_svm", "data": {"weights": []}}`,
		"zero scale":   `{"kind": "linear_svm", "data": {"mean": [0], "scale": [0], "weights": [1]}}`,
	}
	for name, blob := range cases {
		if _, err := Load([]byte(blob)); !errors.Is(err, model.ErrModelCorrupt) {
			t.Errorf("%s: expected ErrModelCorrupt, got %v", name, err)
		}
	}
}

func TestDecision_DimensionMismatch(t *testing.T) {
	m := &LinearSVM{Mean: []float64{0, 0}, Scale: []float64{1, 1}, Weights: []float64{1, 1}}
	if _, err := m.Decision(model.Vector{1}); !errors.Is(err, model.ErrModelCorrupt) {
		t.Errorf("Expected ErrModelCorrupt, got %v", err)
	}
}

func TestPegasos_HeldOutAccuracy(t *testing.T) {
	// One informative axis and a constant feature, two points held out per class
	var train, test []model.Vector
	var trainY, testY []int
	for i := 0; i < 6; i++ {
		off := float32(i) / 10
		pos := model.Vector{1 + off, 0.1}
		neg := model.Vector{-1 - off, 0.1}
		if i%3 == 0 {
			test = append(test, pos, neg)
			testY = append(testY, Positive, Negative)
			continue
		}
		train = append(train, pos, neg)
		trainY = append(trainY, Positive, Negative)
	}

	for seed := int64(0); seed < 10; seed++ {
		m, err := NewPegasosTrainer(0, 0, seed).Train(context.Background(), train, trainY)
		if err != nil {
			t.Fatalf("Train: %v", err)
		}
		acc, err := Accuracy(m, test, testY)
		if err != nil {
			t.Fatalf("Accuracy: %v", err)
		}
		if acc != 1 {
			t.Errorf("seed %d: held-out accuracy %.2f, model %+v", seed, acc, m)
		}

		svm := m.(*LinearSVM)
		if math.Abs(svm.Bias) >= math.Abs(svm.Weights[0]) {
			t.Errorf("seed %d: bias %f dominates weight %f", seed, svm.Bias, svm.Weights[0])
		}
	}
}

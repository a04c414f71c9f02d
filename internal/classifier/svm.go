package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/ppiankov/wordlist/internal/model"
)

const kindLinearSVM = "linear_svm"

// LinearSVM is a standardized linear SVM: Decision(x) = w·((x-mean)/scale) + b
type LinearSVM struct {
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Decision returns the margin of x
func (m *LinearSVM) Decision(x model.Vector) (float64, error) {
	if len(x) != len(m.Weights) {
		return 0, fmt.Errorf("%w: vector dimension %d, model expects %d", model.ErrModelCorrupt, len(x), len(m.Weights))
	}
	d := m.Bias
	for i, w := range m.Weights {
		d += w * (float64(x[i]) - m.Mean[i]) / m.Scale[i]
	}
	return d, nil
}

// Blob serializes the model
func (m *LinearSVM) Blob() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: kindLinearSVM, Data: data})
}

func (m *LinearSVM) check() error {
	n := len(m.Weights)
	if n == 0 || len(m.Mean) != n || len(m.Scale) != n {
		return fmt.Errorf("%w: inconsistent linear model dimensions", model.ErrModelCorrupt)
	}
	for _, s := range m.Scale {
		if s == 0 || math.IsNaN(s) {
			return fmt.Errorf("%w: invalid scale", model.ErrModelCorrupt)
		}
	}
	return nil
}

// PegasosTrainer fits a LinearSVM by stochastic sub-gradient descent on the
// hinge loss, with classes weighted inversely to their frequency
type PegasosTrainer struct {
	Lambda float64
	Epochs int
	Seed   int64
}

// NewPegasosTrainer fills zero fields with defaults
func NewPegasosTrainer(lambda float64, epochs int, seed int64) *PegasosTrainer {
	if lambda <= 0 {
		lambda = 1e-4
	}
	if epochs <= 0 {
		epochs = 20
	}
	return &PegasosTrainer{Lambda: lambda, Epochs: epochs, Seed: seed}
}

// Params returns the hyper-parameters
func (t *PegasosTrainer) Params() map[string]string {
	return map[string]string{
		"classifier": kindLinearSVM,
		"lambda":     strconv.FormatFloat(t.Lambda, 'g', -1, 64),
		"epochs":     strconv.Itoa(t.Epochs),
		"seed":       strconv.FormatInt(t.Seed, 10),
	}
}

// Train fits the model; y holds Positive or Negative per row
func (t *PegasosTrainer) Train(ctx context.Context, x []model.Vector, y []int) (Model, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d vectors, %d labels", model.ErrInsufficientTrainingData, len(x), len(y))
	}
	dim := len(x[0])
	var pos, neg int
	for i := range x {
		if len(x[i]) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(x[i]), dim)
		}
		switch y[i] {
		case Positive:
			pos++
		case Negative:
			neg++
		default:
			return nil, fmt.Errorf("invalid label %d", y[i])
		}
	}
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("%w: need both classes (approved %d, rejected %d)", model.ErrInsufficientTrainingData, pos, neg)
	}

	m := &LinearSVM{
		Mean:    make([]float64, dim),
		Scale:   make([]float64, dim),
		Weights: make([]float64, dim),
	}
	standardize(m, x)

	scaled := make([][]float64, len(x))
	for i, v := range x {
		row := make([]float64, dim)
		for j := range row {
			row[j] = (float64(v[j]) - m.Mean[j]) / m.Scale[j]
		}
		scaled[i] = row
	}

	n := float64(len(x))
	classWeight := map[int]float64{
		Positive: n / (2 * float64(pos)),
		Negative: n / (2 * float64(neg)),
	}

	// w and b stay inside the ball of radius 1/sqrt(lambda); the model is the
	// running average of every iterate
	radius := 1 / math.Sqrt(t.Lambda)
	w := make([]float64, dim)
	var b float64

	rng := rand.New(rand.NewSource(t.Seed))
	order := rng.Perm(len(x))
	step := 0
	for epoch := 0; epoch < t.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for _, i := range order {
			step++
			eta := 1 / (t.Lambda * float64(step))
			yi := float64(y[i])

			margin := b
			for j := range w {
				margin += w[j] * scaled[i][j]
			}

			shrink := 1 - eta*t.Lambda
			for j := range w {
				w[j] *= shrink
			}
			if yi*margin < 1 {
				g := eta * yi * classWeight[y[i]]
				for j := range w {
					w[j] += g * scaled[i][j]
				}
				b += g
			}
			project(w, &b, radius)

			k := float64(step)
			for j := range w {
				m.Weights[j] += (w[j] - m.Weights[j]) / k
			}
			m.Bias += (b - m.Bias) / k
		}
	}

	return m, nil
}

func project(w []float64, b *float64, radius float64) {
	norm := *b * *b
	for _, v := range w {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm <= radius {
		return
	}
	f := radius / norm
	for j := range w {
		w[j] *= f
	}
	*b *= f
}

// standardize computes per-feature mean and standard deviation; constant
// features get scale 1
func standardize(m *LinearSVM, x []model.Vector) {
	n := float64(len(x))
	for _, v := range x {
		for j, f := range v {
			m.Mean[j] += float64(f)
		}
	}
	for j := range m.Mean {
		m.Mean[j] /= n
	}
	for _, v := range x {
		for j, f := range v {
			d := float64(f) - m.Mean[j]
			m.Scale[j] += d * d
		}
	}
	for j := range m.Scale {
		m.Scale[j] = math.Sqrt(m.Scale[j] / n)
		if m.Scale[j] < 1e-12 {
			m.Scale[j] = 1
		}
	}
}

// Package classifier trains and evaluates the binary word classifier.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/wordlist/internal/model"
)

// Labels used for training targets
const (
	Positive = 1  // approved
	Negative = -1 // rejected
)

// Trainer fits a Model from labeled vectors
type Trainer interface {
	Train(ctx context.Context, x []model.Vector, y []int) (Model, error)

	// Params returns the hyper-parameters recorded on the artifact
	Params() map[string]string
}

// Model is a fitted classifier
type Model interface {
	// Decision returns the signed distance to the separating hyperplane;
	// larger means more likely approved
	Decision(x model.Vector) (float64, error)

	// Blob serializes the model into an opaque artifact payload
	Blob() ([]byte, error)
}

// Predict maps a decision value to Positive or Negative
func Predict(m Model, x model.Vector) (int, error) {
	d, err := m.Decision(x)
	if err != nil {
		return 0, err
	}
	if d >= 0 {
		return Positive, nil
	}
	return Negative, nil
}

// Accuracy is the share of x classified as y
func Accuracy(m Model, x []model.Vector, y []int) (float64, error) {
	if len(x) == 0 {
		return 0, nil
	}
	correct := 0
	for i := range x {
		p, err := Predict(m, x[i])
		if err != nil {
			return 0, err
		}
		if p == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x)), nil
}

type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Load decodes a blob produced by Model.Blob
func Load(blob []byte) (Model, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrModelCorrupt, err)
	}

	switch env.Kind {
	case kindLinearSVM:
		var m LinearSVM
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrModelCorrupt, err)
		}
		if err := m.check(); err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: unknown classifier kind %q", model.ErrModelCorrupt, env.Kind)
	}
}

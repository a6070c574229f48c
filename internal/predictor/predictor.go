package predictor

import (
	"errors"

	"github.com/go-sod/bandsense/pkg/math/vector"
)

var (
	// ErrNotFitted is returned when no class has statistics yet
	ErrNotFitted = errors.New("predictor: model is not fitted")
	// ErrDimension is returned when a vector does not match the fitted width
	ErrDimension = errors.New("predictor: feature dimension mismatch")
	// ErrInvalidFolds is returned for a fold count below two
	ErrInvalidFolds = errors.New("predictor: invalid number of folds")
)

type ProvideFn func() (Predictor, error)

type Predictor interface {
	Reset()
	// Number of examples the model was fitted on
	Len() int
	Fit(examples []vector.V, labels []int) error
	Predict(features vector.V) (int, error)
	Score(examples []vector.V, labels []int) float64
}

// Diagnoser exposes model statistics for reporting.
type Diagnoser interface {
	ClassPriors() []ClassPrior
	DiscriminativePower() []float64
}

type ClassPrior struct {
	Label int     `json:"label"`
	Count int     `json:"count"`
	Prior float64 `json:"prior"`
}

// Score returns the fraction of examples p labels correctly. Failed predictions
// count as misses.
func Score(p Predictor, examples []vector.V, labels []int) float64 {
	if len(examples) == 0 || len(examples) != len(labels) {
		return 0
	}
	var hits int
	for i := range examples {
		label, err := p.Predict(examples[i])
		if err == nil && label == labels[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(examples))
}

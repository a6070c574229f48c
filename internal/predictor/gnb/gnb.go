// Package gnb implements a Gaussian Naive Bayes classifier over band-power
// feature vectors.
package gnb

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/go-sod/bandsense/internal/predictor"
	"github.com/go-sod/bandsense/pkg/math/vector"
)

// minVariance keeps the likelihood finite for constant features.
const minVariance = 1e-12

var (
	_ predictor.Predictor = (*GNB)(nil)
	_ predictor.Diagnoser = (*GNB)(nil)
)

type Option func(*GNB)

// WithVarSmoothing adds a fraction of the largest feature variance to every
// class variance.
func WithVarSmoothing(eps float64) Option {
	return func(g *GNB) {
		g.varSmoothing = eps
	}
}

func New(opts ...Option) (*GNB, error) {
	g := &GNB{varSmoothing: 1e-9}
	for _, f := range opts {
		f(g)
	}
	if g.varSmoothing < 0 {
		return nil, fmt.Errorf("gnb: negative variance smoothing %v", g.varSmoothing)
	}
	return g, nil
}

type class struct {
	label    int
	count    int
	prior    float64
	logPrior float64
	mean     []float64
	variance []float64
}

type GNB struct {
	mtx sync.RWMutex

	varSmoothing float64
	dim          int
	total        int
	// sorted by label
	classes []class
}

func (g *GNB) Reset() {
	g.mtx.Lock()
	g.dim, g.total, g.classes = 0, 0, nil
	g.mtx.Unlock()
}

func (g *GNB) Len() int {
	g.mtx.RLock()
	defer g.mtx.RUnlock()
	return g.total
}

// Fit replaces the model with per-class statistics of the given examples.
// An empty set leaves the current model untouched.
func (g *GNB) Fit(examples []vector.V, labels []int) error {
	if len(examples) != len(labels) {
		return fmt.Errorf("gnb: %d examples, %d labels", len(examples), len(labels))
	}
	if len(examples) == 0 {
		return nil
	}

	dim := len(examples[0])
	if dim == 0 {
		return fmt.Errorf("gnb: empty feature vector: %w", predictor.ErrDimension)
	}
	byLabel := map[int][]vector.V{}
	for i, x := range examples {
		if len(x) != dim {
			return fmt.Errorf("gnb: example %d has %d features, expected %d: %w", i, len(x), dim, predictor.ErrDimension)
		}
		byLabel[labels[i]] = append(byLabel[labels[i]], x)
	}

	// smoothing is relative to the spread of the whole set
	column := make([]float64, len(examples))
	var maxVar float64
	for j := 0; j < dim; j++ {
		for i := range examples {
			column[i] = examples[i][j]
		}
		_, v := stat.PopMeanVariance(column, nil)
		maxVar = math.Max(maxVar, v)
	}
	epsilon := g.varSmoothing*maxVar + minVariance

	classes := make([]class, 0, len(byLabel))
	for label, xs := range byLabel {
		c := class{
			label:    label,
			count:    len(xs),
			prior:    float64(len(xs)) / float64(len(examples)),
			mean:     make([]float64, dim),
			variance: make([]float64, dim),
		}
		c.logPrior = math.Log(c.prior)
		values := make([]float64, len(xs))
		for j := 0; j < dim; j++ {
			for i := range xs {
				values[i] = xs[i][j]
			}
			m, v := stat.PopMeanVariance(values, nil)
			c.mean[j] = m
			c.variance[j] = v + epsilon
		}
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].label < classes[j].label
	})

	g.mtx.Lock()
	g.dim, g.total, g.classes = dim, len(examples), classes
	g.mtx.Unlock()

	return nil
}

// Predict returns the label with the largest joint log likelihood. Ties go to
// the lowest label.
func (g *GNB) Predict(features vector.V) (int, error) {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	if len(g.classes) == 0 {
		return 0, predictor.ErrNotFitted
	}
	if len(features) != g.dim {
		return 0, fmt.Errorf("gnb: got %d features, expected %d: %w", len(features), g.dim, predictor.ErrDimension)
	}

	best, bestLL := g.classes[0].label, math.Inf(-1)
	for _, c := range g.classes {
		ll := c.logPrior
		for j, x := range features {
			d := x - c.mean[j]
			ll -= 0.5*math.Log(2*math.Pi*c.variance[j]) + d*d/(2*c.variance[j])
		}
		if ll > bestLL {
			best, bestLL = c.label, ll
		}
	}

	return best, nil
}

func (g *GNB) Score(examples []vector.V, labels []int) float64 {
	return predictor.Score(g, examples, labels)
}

func (g *GNB) ClassPriors() []predictor.ClassPrior {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	priors := make([]predictor.ClassPrior, len(g.classes))
	for i, c := range g.classes {
		priors[i] = predictor.ClassPrior{Label: c.label, Count: c.count, Prior: c.prior}
	}
	return priors
}

// DiscriminativePower returns, per feature, the largest standardized distance
// between the means of any two classes. It is zero with fewer than two classes.
func (g *GNB) DiscriminativePower() []float64 {
	g.mtx.RLock()
	defer g.mtx.RUnlock()

	power := make([]float64, g.dim)
	for a := 0; a < len(g.classes); a++ {
		for b := a + 1; b < len(g.classes); b++ {
			ca, cb := g.classes[a], g.classes[b]
			for j := range power {
				pooled := math.Sqrt((ca.variance[j] + cb.variance[j]) / 2)
				power[j] = math.Max(power[j], math.Abs(ca.mean[j]-cb.mean[j])/pooled)
			}
		}
	}
	return power
}

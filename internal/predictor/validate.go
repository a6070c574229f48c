package predictor

import (
	"context"
	"fmt"

	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"

	"github.com/go-sod/bandsense/pkg/math/vector"
)

// Fold describes one held-out chunk of a cross-validation run.
type Fold struct {
	Train int     `json:"train"`
	Test  int     `json:"test"`
	Score float64 `json:"score"`
}

type Validation struct {
	// Mean of the fold scores
	Score float64 `json:"score"`
	Folds []Fold  `json:"folds"`
}

// Shuffle returns a random permutation of [0, n).
func Shuffle(n int, rng *fastrand.RNG) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(rng.Uint32n(uint32(i + 1)))
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

// Partition splits shuffled indices for fold i of k. The test chunk is
// [i*chunk, i*chunk+chunk) with chunk = len/k, so the len%k trailing indices
// always train.
func Partition(shuffled []int, k, i int) (train, test []int) {
	chunk := len(shuffled) / k
	lo, hi := i*chunk, i*chunk+chunk
	for j, idx := range shuffled {
		if j >= lo && j < hi {
			test = append(test, idx)
		} else {
			train = append(train, idx)
		}
	}
	return train, test
}

// CrossValidate runs k-fold cross-validation after a single shuffle. Every
// fold is fitted on a fresh predictor, folds run concurrently.
func CrossValidate(
	ctx context.Context,
	provide ProvideFn,
	examples []vector.V,
	labels []int,
	k int,
	rng *fastrand.RNG,
) (*Validation, error) {
	if len(examples) != len(labels) {
		return nil, fmt.Errorf("cross validate: %d examples, %d labels", len(examples), len(labels))
	}
	if len(examples) == 0 {
		return &Validation{}, nil
	}
	if k < 2 {
		return nil, fmt.Errorf("cross validate: k=%d: %w", k, ErrInvalidFolds)
	}

	shuffled := Shuffle(len(examples), rng)
	folds := make([]Fold, k)

	grp, ctx := errgroup.WithContext(ctx)
	for i := 0; i < k; i++ {
		i := i
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trainIdx, testIdx := Partition(shuffled, k, i)

			p, err := provide()
			if err != nil {
				return fmt.Errorf("can not create predictor instance: %w", err)
			}
			trainX, trainY := gather(examples, labels, trainIdx)
			if err := p.Fit(trainX, trainY); err != nil {
				return fmt.Errorf("fold %d: %w", i, err)
			}
			testX, testY := gather(examples, labels, testIdx)
			folds[i] = Fold{Train: len(trainIdx), Test: len(testIdx), Score: p.Score(testX, testY)}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var sum float64
	for _, f := range folds {
		sum += f.Score
	}

	return &Validation{Score: sum / float64(k), Folds: folds}, nil
}

func gather(examples []vector.V, labels []int, idx []int) ([]vector.V, []int) {
	x := make([]vector.V, len(idx))
	y := make([]int, len(idx))
	for i, j := range idx {
		x[i] = examples[j]
		y[i] = labels[j]
	}
	return x, y
}

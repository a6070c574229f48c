package predictor

import (
	"fmt"

	"github.com/go-sod/bandsense/pkg/pqueue"
)

type RankedFeature struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Power float64 `json:"power"`
}

// RankFeatures orders features by decreasing discriminative power and keeps the
// first top of them. A non-positive top keeps all.
func RankFeatures(power []float64, names []string, top int) []RankedFeature {
	opts := []pqueue.Option{pqueue.WithOrderDesc()}
	if top > 0 {
		opts = append(opts, pqueue.WithCap(uint(top)))
	}
	q := pqueue.New(opts...)
	for i, p := range power {
		name := fmt.Sprintf("f%d", i)
		if i < len(names) {
			name = names[i]
		}
		q.Push(RankedFeature{Index: i, Name: name, Power: p}, p)
	}

	ranked := make([]RankedFeature, 0, q.Len())
	for _, v := range q.PopAll() {
		ranked = append(ranked, v.(RankedFeature))
	}
	return ranked
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type Prediction struct {
	Seq      uint64    `json:"seq"`
	Label    int       `json:"label"`
	Features []float64 `json:"features"`
	At       time.Time `json:"at"`
}

// Batch holds predictions not yet delivered to a target.
type Batch struct {
	ID          uuid.UUID    `json:"id"`
	Target      string       `json:"target"`
	Predictions []Prediction `json:"predictions"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func NewBatch(target string, predictions []Prediction) Batch {
	return Batch{
		ID:          uuid.New(),
		Target:      target,
		Predictions: predictions,
		CreatedAt:   time.Now(),
	}
}

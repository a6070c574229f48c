package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/go-sod/bandsense/pkg/math/vector"
)

func NewExample(sessionID string, label int, features vector.V, createdAt time.Time) Example {
	return Example{
		ID:        uuid.New(),
		SessionID: sessionID,
		Label:     label,
		Features:  features,
		CreatedAt: createdAt,
	}
}

// Example is one labelled feature vector collected from a window.
type Example struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"sessionId"`
	Label     int       `json:"label"`
	Features  vector.V  `json:"features"`
	CreatedAt time.Time `json:"createdAt"`
}

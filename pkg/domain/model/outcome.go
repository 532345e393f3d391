package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// Outcome is an observation about an entity that feeds the learning
// engine, e.g. a deal won or a prospect disqualified.
type Outcome struct {
	ID          types.OutcomeID  `json:"id"`
	EntityType  types.EntityType `json:"entityType"`
	EntityID    string           `json:"entityId"`
	OutcomeType string           `json:"outcomeType"`
	Date        time.Time        `json:"date"`
	Value       float64          `json:"value,omitempty"`
	Context     string           `json:"context,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

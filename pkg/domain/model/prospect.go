package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// Prospect is a pre-deal opportunity with firmographics and a score
// derived from its signals. Conversion creates a Deal and records the
// back-reference.
type Prospect struct {
	ID              types.ProspectID     `json:"id"`
	CompanyName     string               `json:"companyName"`
	Industry        string               `json:"industry,omitempty"`
	EmployeeCount   int                  `json:"employeeCount,omitempty"`
	Location        string               `json:"location,omitempty"`
	Website         string               `json:"website,omitempty"`
	Tier            types.Tier           `json:"tier"`
	Score           float64              `json:"score"`
	Status          types.ProspectStatus `json:"status"`
	Notes           string               `json:"notes,omitempty"`
	ConvertedDealID types.DealID         `json:"convertedDealId,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// ProspectSignal is a weighted qualification signal attached to a
// prospect. Weight 0 means "use the calibrated or default weight".
type ProspectSignal struct {
	ID         int64            `json:"id"`
	ProspectID types.ProspectID `json:"prospectId"`
	SignalType string           `json:"signalType"`
	Value      string           `json:"value,omitempty"`
	Weight     float64          `json:"weight"`
	Source     string           `json:"source,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// ProspectContact is a named contact at a prospect company
type ProspectContact struct {
	ID         types.ContactID  `json:"id"`
	ProspectID types.ProspectID `json:"prospectId"`
	Name       string           `json:"name"`
	Role       string           `json:"role,omitempty"`
	Email      string           `json:"email,omitempty"`
	Phone      string           `json:"phone,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// ScoreBreakdown itemizes how one signal contributed to a prospect score
type ScoreBreakdown struct {
	SignalType      string  `json:"signalType"`
	Value           string  `json:"value,omitempty"`
	EffectiveWeight float64 `json:"effectiveWeight"`
	WeightSource    string  `json:"weightSource"`
}

// ScoreResult is the outcome of scoring a single prospect
type ScoreResult struct {
	ProspectID   types.ProspectID `json:"prospectId"`
	Score        float64          `json:"score"`
	Tier         types.Tier       `json:"tier"`
	PreviousTier types.Tier       `json:"previousTier"`
	Breakdown    []ScoreBreakdown `json:"breakdown"`
}

// TierChanged reports whether scoring moved the prospect across bands
func (r *ScoreResult) TierChanged() bool {
	return r.Tier != r.PreviousTier
}

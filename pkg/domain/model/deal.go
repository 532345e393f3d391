package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// Deal is a qualified opportunity. Every deal owns exactly eight
// MEDDPICC elements, created with status=unknown when the deal is
// created.
type Deal struct {
	ID             types.DealID     `json:"id"`
	CompanyName    string           `json:"companyName"`
	Status         types.DealStatus `json:"status"`
	Value          float64          `json:"value,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	ExpectedClose  *time.Time       `json:"expectedClose,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	LastActivityAt time.Time        `json:"lastActivityAt"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// MeddpiccElement is one letter of a deal's qualification state,
// identified by (deal, letter).
type MeddpiccElement struct {
	DealID        types.DealID         `json:"dealId"`
	Letter        types.MeddpiccLetter `json:"letter"`
	Status        types.ElementStatus  `json:"status"`
	Evidence      string               `json:"evidence,omitempty"`
	SourceSegment types.SegmentID      `json:"sourceSegment,omitempty"`
	Confidence    float64              `json:"confidence"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// NewMeddpiccElements builds the eight unknown elements for a new deal
func NewMeddpiccElements(dealID types.DealID) []*MeddpiccElement {
	letters := types.AllMeddpiccLetters()
	elements := make([]*MeddpiccElement, 0, len(letters))
	for _, letter := range letters {
		elements = append(elements, &MeddpiccElement{
			DealID: dealID,
			Letter: letter,
			Status: types.ElementUnknown,
		})
	}
	return elements
}

// Readiness computes the qualification readiness score in [0,1]:
// (identified + 0.5 * partial) / 8.
func Readiness(elements []*MeddpiccElement) float64 {
	var score float64
	for _, e := range elements {
		switch e.Status {
		case types.ElementIdentified:
			score += 1
		case types.ElementPartial:
			score += 0.5
		}
	}
	return score / float64(len(types.AllMeddpiccLetters()))
}

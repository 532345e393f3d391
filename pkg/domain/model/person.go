package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// Person is an independent entity resolved by the entity linker.
// Segments reference people through join records and survive deletion.
type Person struct {
	ID           types.PersonID     `json:"id"`
	Name         string             `json:"name"`
	Role         string             `json:"role,omitempty"`
	Company      string             `json:"company,omitempty"`
	Relationship types.Relationship `json:"relationship"`
	Notes        string             `json:"notes,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// OutreachEntry is one activity in a prospect's outreach log
type OutreachEntry struct {
	ID           types.OutreachID        `json:"id"`
	ProspectID   types.ProspectID        `json:"prospectId"`
	Date         time.Time               `json:"date"`
	Method       string                  `json:"method"`
	Direction    types.OutreachDirection `json:"direction"`
	Outcome      types.OutreachOutcome   `json:"outcome"`
	Notes        string                  `json:"notes,omitempty"`
	NextFollowup *time.Time              `json:"nextFollowup,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// CadenceStep is one step of a per-tier outreach cadence template
type CadenceStep struct {
	Day    int    `json:"day" toml:"day"`
	Method string `json:"method" toml:"method"`
	Note   string `json:"note,omitempty" toml:"note"`
}

// CadenceTemplate is the recommended outreach sequence for a tier
type CadenceTemplate struct {
	Tier  types.Tier    `json:"tier" toml:"tier"`
	Name  string        `json:"name" toml:"name"`
	Steps []CadenceStep `json:"steps" toml:"steps"`
}

package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// Segment is an ordered chunk of a source with its knowledge
// classification. Segments belong to exactly one source and are replaced
// atomically when the source is reprocessed.
type Segment struct {
	ID         types.SegmentID     `json:"id"`
	SourceID   types.SourceID      `json:"sourceId"`
	Position   int                 `json:"position"`
	Content    string              `json:"content"`
	Speaker    string              `json:"speaker,omitempty"`
	StartTime  string              `json:"startTime,omitempty"`
	EndTime    string              `json:"endTime,omitempty"`
	Knowledge  types.KnowledgeType `json:"knowledgeType"`
	Confidence float64             `json:"confidence"`
	Summary    string              `json:"summary,omitempty"`
	Tags       []string            `json:"tags,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// HasTag reports whether the segment carries the given free-form tag
func (s *Segment) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SegmentPersonLink joins a segment to a person, optionally recording
// the role the person played within that segment.
type SegmentPersonLink struct {
	SegmentID types.SegmentID `json:"segmentId"`
	PersonID  types.PersonID  `json:"personId"`
	Role      string          `json:"role,omitempty"`
}

// SegmentDealLink joins a segment to a deal
type SegmentDealLink struct {
	SegmentID types.SegmentID `json:"segmentId"`
	DealID    types.DealID    `json:"dealId"`
}

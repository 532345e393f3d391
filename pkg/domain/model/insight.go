package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// Insight is a machine-produced hypothesis. Supersession forms a linked
// list; at most one insight per type is active at a time.
type Insight struct {
	ID           types.InsightID       `json:"id"`
	Type         types.InsightType     `json:"type"`
	Category     string                `json:"category,omitempty"`
	Title        string                `json:"title"`
	Hypothesis   string                `json:"hypothesis"`
	Confidence   float64               `json:"confidence"`
	Evidence     string                `json:"evidence,omitempty"`
	SampleSize   int                   `json:"sampleSize"`
	Status       types.InsightStatus   `json:"status"`
	SupersededBy types.InsightID       `json:"supersededBy,omitempty"`
	Feedback     types.InsightFeedback `json:"feedback,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// InsightSnapshot preserves the confidence and evidence of an insight
// at a point in time, kept when an insight is superseded or refreshed.
type InsightSnapshot struct {
	ID         int64           `json:"id"`
	InsightID  types.InsightID `json:"insightId"`
	Confidence float64         `json:"confidence"`
	Evidence   string          `json:"evidence,omitempty"`
	SampleSize int             `json:"sampleSize"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// SignalWeight holds the default and learned weight for a signal type.
// LearnedWeight is nil until the calibrator has produced one.
type SignalWeight struct {
	SignalType    string    `json:"signalType"`
	DefaultWeight float64   `json:"defaultWeight"`
	LearnedWeight *float64  `json:"learnedWeight,omitempty"`
	Confidence    float64   `json:"confidence"`
	SampleSize    int       `json:"sampleSize"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

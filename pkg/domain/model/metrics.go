package model

import (
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// QuestionBreakdown categorizes the questions asked during a call
type QuestionBreakdown struct {
	Total         int `json:"total"`
	OpenEnded     int `json:"openEnded"`
	ClosedEnded   int `json:"closedEnded"`
	Discovery     int `json:"discovery"`
	Clarifying    int `json:"clarifying"`
	NextStepFocus int `json:"nextStepFocus"`
}

// CallMetrics is the per-source conversation analysis produced by the
// metrics stage of the processor.
type CallMetrics struct {
	SourceID         types.SourceID    `json:"sourceId"`
	TalkRatio        float64           `json:"talkRatio"`
	Questions        QuestionBreakdown `json:"questions"`
	ListeningScore   float64           `json:"listeningScore"`
	DiscoveryDepth   map[string]int    `json:"discoveryDepth,omitempty"`
	StrongMoments    []string          `json:"strongMoments,omitempty"`
	ImprovementAreas []string          `json:"improvementAreas,omitempty"`
	ObjectionNotes   string            `json:"objectionNotes,omitempty"`
	NextStepsSet     bool              `json:"nextStepsSet"`
	CreatedAt        time.Time         `json:"createdAt"`
}

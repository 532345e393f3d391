package types

// InsightType classifies the analysis that produced an insight
type InsightType string

const (
	InsightICP      InsightType = "icp"
	InsightPattern  InsightType = "pattern"
	InsightCoaching InsightType = "coaching"
)

// AllInsightTypes returns all valid insight types
func AllInsightTypes() []InsightType {
	return []InsightType{InsightICP, InsightPattern, InsightCoaching}
}

// IsValid checks if the insight type is valid
func (t InsightType) IsValid() bool {
	switch t {
	case InsightICP, InsightPattern, InsightCoaching:
		return true
	default:
		return false
	}
}

func (t InsightType) String() string { return string(t) }

// InsightStatus is the lifecycle state of an insight
type InsightStatus string

const (
	InsightActive      InsightStatus = "active"
	InsightSuperseded  InsightStatus = "superseded"
	InsightInvalidated InsightStatus = "invalidated"
)

// IsValid checks if the insight status is valid
func (s InsightStatus) IsValid() bool {
	switch s {
	case InsightActive, InsightSuperseded, InsightInvalidated:
		return true
	default:
		return false
	}
}

func (s InsightStatus) String() string { return string(s) }

// InsightFeedback is the user's verdict on an insight
type InsightFeedback string

const (
	FeedbackHelpful    InsightFeedback = "helpful"
	FeedbackNotHelpful InsightFeedback = "not_helpful"
	FeedbackIncorrect  InsightFeedback = "incorrect"
)

// IsValid checks if the feedback value is valid
func (f InsightFeedback) IsValid() bool {
	switch f {
	case FeedbackHelpful, FeedbackNotHelpful, FeedbackIncorrect:
		return true
	default:
		return false
	}
}

func (f InsightFeedback) String() string { return string(f) }

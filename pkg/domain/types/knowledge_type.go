package types

// KnowledgeType classifies a segment into the closed knowledge taxonomy
type KnowledgeType string

const (
	KnowledgeProduct      KnowledgeType = "product_knowledge"
	KnowledgeProcess      KnowledgeType = "process_knowledge"
	KnowledgePeople       KnowledgeType = "people_context"
	KnowledgeSalesInsight KnowledgeType = "sales_insight"
	KnowledgeAdvice       KnowledgeType = "advice_received"
	KnowledgeDecision     KnowledgeType = "decision_rationale"
	KnowledgeCompetitive  KnowledgeType = "competitive_intel"
	KnowledgeSmallTalk    KnowledgeType = "small_talk"
	KnowledgeUnknown      KnowledgeType = "unknown"
)

// AllKnowledgeTypes returns all valid knowledge types
func AllKnowledgeTypes() []KnowledgeType {
	return []KnowledgeType{
		KnowledgeProduct,
		KnowledgeProcess,
		KnowledgePeople,
		KnowledgeSalesInsight,
		KnowledgeAdvice,
		KnowledgeDecision,
		KnowledgeCompetitive,
		KnowledgeSmallTalk,
		KnowledgeUnknown,
	}
}

// IsValid checks if the knowledge type is one of the closed set
func (k KnowledgeType) IsValid() bool {
	switch k {
	case KnowledgeProduct, KnowledgeProcess, KnowledgePeople,
		KnowledgeSalesInsight, KnowledgeAdvice, KnowledgeDecision,
		KnowledgeCompetitive, KnowledgeSmallTalk, KnowledgeUnknown:
		return true
	default:
		return false
	}
}

// Normalize maps unrecognized values onto KnowledgeUnknown
func (k KnowledgeType) Normalize() KnowledgeType {
	if !k.IsValid() {
		return KnowledgeUnknown
	}
	return k
}

func (k KnowledgeType) String() string { return string(k) }

package types

// EntityType identifies the subject kind of a living section or outcome
type EntityType string

const (
	EntityDeal     EntityType = "deal"
	EntityPerson   EntityType = "person"
	EntityProspect EntityType = "prospect"
	EntityGlobal   EntityType = "global"
)

// IsValid checks if the entity type is valid
func (e EntityType) IsValid() bool {
	switch e {
	case EntityDeal, EntityPerson, EntityProspect, EntityGlobal:
		return true
	default:
		return false
	}
}

func (e EntityType) String() string { return string(e) }

// SectionType identifies a living section kind, grouped by entity type
type SectionType string

const (
	// Deal sections
	SectionDealSummary      SectionType = "deal_summary"
	SectionMeddpiccAnalysis SectionType = "meddpicc_analysis"
	SectionRiskAssessment   SectionType = "risk_assessment"
	SectionNextActions      SectionType = "next_actions"

	// Person sections
	SectionPersonSummary         SectionType = "person_summary"
	SectionInteractionHighlights SectionType = "interaction_highlights"
	SectionTalkingPoints         SectionType = "talking_points"

	// Global sections
	SectionWeeklyDigest   SectionType = "weekly_digest"
	SectionCoachingReport SectionType = "coaching_report"
	SectionICPUpdate      SectionType = "icp_update"
)

// SectionsFor returns the section types available for an entity type
func SectionsFor(entity EntityType) []SectionType {
	switch entity {
	case EntityDeal:
		return []SectionType{
			SectionDealSummary,
			SectionMeddpiccAnalysis,
			SectionRiskAssessment,
			SectionNextActions,
		}
	case EntityPerson:
		return []SectionType{
			SectionPersonSummary,
			SectionInteractionHighlights,
			SectionTalkingPoints,
		}
	case EntityGlobal:
		return []SectionType{
			SectionWeeklyDigest,
			SectionCoachingReport,
			SectionICPUpdate,
		}
	default:
		return nil
	}
}

// ValidFor checks whether the section type belongs to the entity type
func (s SectionType) ValidFor(entity EntityType) bool {
	for _, candidate := range SectionsFor(entity) {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s SectionType) String() string { return string(s) }

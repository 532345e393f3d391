package types

// ProspectStatus represents the lifecycle state of a prospect
type ProspectStatus string

const (
	ProspectStatusActive       ProspectStatus = "active"
	ProspectStatusConverted    ProspectStatus = "converted"
	ProspectStatusDisqualified ProspectStatus = "disqualified"
	ProspectStatusArchived     ProspectStatus = "archived"
)

// AllProspectStatuses returns all valid prospect statuses
func AllProspectStatuses() []ProspectStatus {
	return []ProspectStatus{
		ProspectStatusActive,
		ProspectStatusConverted,
		ProspectStatusDisqualified,
		ProspectStatusArchived,
	}
}

// IsValid checks if the prospect status is valid
func (s ProspectStatus) IsValid() bool {
	switch s {
	case ProspectStatusActive, ProspectStatusConverted,
		ProspectStatusDisqualified, ProspectStatusArchived:
		return true
	default:
		return false
	}
}

// Normalize treats empty as ProspectStatusActive
func (s ProspectStatus) Normalize() ProspectStatus {
	if s == "" {
		return ProspectStatusActive
	}
	return s
}

func (s ProspectStatus) String() string { return string(s) }

// Tier is the coarse priority band of a prospect, derived from score
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// IsValid checks if the tier is one of the three bands
func (t Tier) IsValid() bool {
	return t >= Tier1 && t <= Tier3
}

package types

// Relationship classifies how a person relates to the user
type Relationship string

const (
	RelationshipProspect          Relationship = "prospect"
	RelationshipColleague         Relationship = "colleague"
	RelationshipMentor            Relationship = "mentor"
	RelationshipCompetitorContact Relationship = "competitor_contact"
	RelationshipCustomer          Relationship = "customer"
	RelationshipOther             Relationship = "other"
)

// AllRelationships returns all valid relationship types
func AllRelationships() []Relationship {
	return []Relationship{
		RelationshipProspect,
		RelationshipColleague,
		RelationshipMentor,
		RelationshipCompetitorContact,
		RelationshipCustomer,
		RelationshipOther,
	}
}

// IsValid checks if the relationship is valid
func (r Relationship) IsValid() bool {
	switch r {
	case RelationshipProspect, RelationshipColleague, RelationshipMentor,
		RelationshipCompetitorContact, RelationshipCustomer, RelationshipOther:
		return true
	default:
		return false
	}
}

// Normalize treats empty or unknown values as RelationshipOther
func (r Relationship) Normalize() Relationship {
	if !r.IsValid() {
		return RelationshipOther
	}
	return r
}

func (r Relationship) String() string { return string(r) }

package types

import "github.com/google/uuid"

// SourceID identifies an ingested transcript or document
type SourceID string

// NewSourceID generates a new random SourceID
func NewSourceID() SourceID {
	return SourceID(uuid.NewString())
}

func (id SourceID) String() string { return string(id) }

// SegmentID identifies a knowledge segment of a source
type SegmentID string

func NewSegmentID() SegmentID {
	return SegmentID(uuid.NewString())
}

func (id SegmentID) String() string { return string(id) }

// PersonID identifies a person record
type PersonID string

func NewPersonID() PersonID {
	return PersonID(uuid.NewString())
}

func (id PersonID) String() string { return string(id) }

// DealID identifies a deal record
type DealID string

func NewDealID() DealID {
	return DealID(uuid.NewString())
}

func (id DealID) String() string { return string(id) }

// ProspectID identifies a pre-deal prospect record
type ProspectID string

func NewProspectID() ProspectID {
	return ProspectID(uuid.NewString())
}

func (id ProspectID) String() string { return string(id) }

// OutreachID identifies an outreach activity entry
type OutreachID string

func NewOutreachID() OutreachID {
	return OutreachID(uuid.NewString())
}

func (id OutreachID) String() string { return string(id) }

// OutcomeID identifies a recorded outcome observation
type OutcomeID string

func NewOutcomeID() OutcomeID {
	return OutcomeID(uuid.NewString())
}

func (id OutcomeID) String() string { return string(id) }

// InsightID identifies a machine-produced insight
type InsightID string

func NewInsightID() InsightID {
	return InsightID(uuid.NewString())
}

func (id InsightID) String() string { return string(id) }

// QueryID identifies a query history entry
type QueryID string

func NewQueryID() QueryID {
	return QueryID(uuid.NewString())
}

func (id QueryID) String() string { return string(id) }

// ContactID identifies a prospect contact
type ContactID string

func NewContactID() ContactID {
	return ContactID(uuid.NewString())
}

func (id ContactID) String() string { return string(id) }

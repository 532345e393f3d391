package types

// OutreachOutcome represents the result of a single outreach activity
type OutreachOutcome string

const (
	OutreachPending       OutreachOutcome = "pending"
	OutreachPositive      OutreachOutcome = "positive"
	OutreachNegative      OutreachOutcome = "negative"
	OutreachReplied       OutreachOutcome = "replied"
	OutreachMeetingBooked OutreachOutcome = "meeting_booked"
	OutreachNoResponse    OutreachOutcome = "no_response"
)

// AllOutreachOutcomes returns all valid outreach outcomes
func AllOutreachOutcomes() []OutreachOutcome {
	return []OutreachOutcome{
		OutreachPending,
		OutreachPositive,
		OutreachNegative,
		OutreachReplied,
		OutreachMeetingBooked,
		OutreachNoResponse,
	}
}

// IsValid checks if the outreach outcome is valid
func (o OutreachOutcome) IsValid() bool {
	switch o {
	case OutreachPending, OutreachPositive, OutreachNegative,
		OutreachReplied, OutreachMeetingBooked, OutreachNoResponse:
		return true
	default:
		return false
	}
}

// Normalize treats empty as OutreachPending
func (o OutreachOutcome) Normalize() OutreachOutcome {
	if o == "" {
		return OutreachPending
	}
	return o
}

func (o OutreachOutcome) String() string { return string(o) }

// OutreachDirection distinguishes outbound activity from inbound replies
type OutreachDirection string

const (
	DirectionOutbound OutreachDirection = "outbound"
	DirectionInbound  OutreachDirection = "inbound"
)

// IsValid checks if the direction is valid
func (d OutreachDirection) IsValid() bool {
	return d == DirectionOutbound || d == DirectionInbound
}

// Normalize treats empty as DirectionOutbound
func (d OutreachDirection) Normalize() OutreachDirection {
	if d == "" {
		return DirectionOutbound
	}
	return d
}

func (d OutreachDirection) String() string { return string(d) }

package types

// DealStatus represents the lifecycle state of a deal
type DealStatus string

const (
	DealStatusActive  DealStatus = "active"
	DealStatusWon     DealStatus = "won"
	DealStatusLost    DealStatus = "lost"
	DealStatusStalled DealStatus = "stalled"
)

// AllDealStatuses returns all valid deal statuses
func AllDealStatuses() []DealStatus {
	return []DealStatus{
		DealStatusActive,
		DealStatusWon,
		DealStatusLost,
		DealStatusStalled,
	}
}

// IsValid checks if the deal status is valid
func (s DealStatus) IsValid() bool {
	switch s {
	case DealStatusActive, DealStatusWon, DealStatusLost, DealStatusStalled:
		return true
	default:
		return false
	}
}

// Normalize treats empty as DealStatusActive
func (s DealStatus) Normalize() DealStatus {
	if s == "" {
		return DealStatusActive
	}
	return s
}

func (s DealStatus) String() string { return string(s) }

package types

import "strings"

// MeddpiccLetter identifies one of the eight qualification elements of a
// deal: Metrics, Economic buyer, Decision criteria (D1), Decision process
// (D2), Paper process, Identify pain, Champion (C1), Competition (C2).
type MeddpiccLetter string

const (
	LetterMetrics          MeddpiccLetter = "M"
	LetterEconomicBuyer    MeddpiccLetter = "E"
	LetterDecisionCriteria MeddpiccLetter = "D1"
	LetterDecisionProcess  MeddpiccLetter = "D2"
	LetterPaperProcess     MeddpiccLetter = "P"
	LetterIdentifyPain     MeddpiccLetter = "I"
	LetterChampion         MeddpiccLetter = "C1"
	LetterCompetition      MeddpiccLetter = "C2"
)

// AllMeddpiccLetters returns the eight element codes in canonical order
func AllMeddpiccLetters() []MeddpiccLetter {
	return []MeddpiccLetter{
		LetterMetrics,
		LetterEconomicBuyer,
		LetterDecisionCriteria,
		LetterDecisionProcess,
		LetterPaperProcess,
		LetterIdentifyPain,
		LetterChampion,
		LetterCompetition,
	}
}

// IsValid checks if the letter is one of the eight element codes
func (l MeddpiccLetter) IsValid() bool {
	switch l {
	case LetterMetrics, LetterEconomicBuyer, LetterDecisionCriteria,
		LetterDecisionProcess, LetterPaperProcess, LetterIdentifyPain,
		LetterChampion, LetterCompetition:
		return true
	default:
		return false
	}
}

// Label returns the human-readable name of the element
func (l MeddpiccLetter) Label() string {
	switch l {
	case LetterMetrics:
		return "Metrics"
	case LetterEconomicBuyer:
		return "Economic Buyer"
	case LetterDecisionCriteria:
		return "Decision Criteria"
	case LetterDecisionProcess:
		return "Decision Process"
	case LetterPaperProcess:
		return "Paper Process"
	case LetterIdentifyPain:
		return "Identify Pain"
	case LetterChampion:
		return "Champion"
	case LetterCompetition:
		return "Competition"
	default:
		return string(l)
	}
}

func (l MeddpiccLetter) String() string { return string(l) }

// NormalizeMeddpiccLetter uppercases and trims a raw letter code. A bare
// "D" maps to D1 and a bare "C" maps to C1; ambiguous indicates the
// caller should log a warning for those. Invalid codes return ok=false.
func NormalizeMeddpiccLetter(raw string) (letter MeddpiccLetter, ambiguous bool, ok bool) {
	normalized := MeddpiccLetter(strings.ToUpper(strings.TrimSpace(raw)))
	switch normalized {
	case "D":
		return LetterDecisionCriteria, true, true
	case "C":
		return LetterChampion, true, true
	}
	if normalized.IsValid() {
		return normalized, false, true
	}
	return "", false, false
}

// ElementStatus is the qualification state of a single MEDDPICC element
type ElementStatus string

const (
	ElementUnknown    ElementStatus = "unknown"
	ElementPartial    ElementStatus = "partial"
	ElementIdentified ElementStatus = "identified"
)

// IsValid checks if the element status is valid
func (s ElementStatus) IsValid() bool {
	switch s {
	case ElementUnknown, ElementPartial, ElementIdentified:
		return true
	default:
		return false
	}
}

// Rank orders statuses so that upgrades can be distinguished from
// downgrades: unknown < partial < identified.
func (s ElementStatus) Rank() int {
	switch s {
	case ElementPartial:
		return 1
	case ElementIdentified:
		return 2
	default:
		return 0
	}
}

func (s ElementStatus) String() string { return string(s) }

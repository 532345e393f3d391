package types

// QueryIntent selects the retrieval strategy for a user query
type QueryIntent string

const (
	IntentDealStrategy QueryIntent = "deal_strategy"
	IntentKnowledge    QueryIntent = "knowledge_retrieval"
	IntentPeopleIntel  QueryIntent = "people_intel"
	IntentCoaching     QueryIntent = "coaching"
	IntentCompetitive  QueryIntent = "competitive"
	IntentObjection    QueryIntent = "objection"
	IntentGeneral      QueryIntent = "general"

	// IntentError is recorded in query history when a query fails
	// before or during synthesis.
	IntentError QueryIntent = "error"
)

// AllQueryIntents returns the detectable intents (IntentError excluded)
func AllQueryIntents() []QueryIntent {
	return []QueryIntent{
		IntentDealStrategy,
		IntentKnowledge,
		IntentPeopleIntel,
		IntentCoaching,
		IntentCompetitive,
		IntentObjection,
		IntentGeneral,
	}
}

// IsValid checks if the intent is a detectable intent
func (i QueryIntent) IsValid() bool {
	switch i {
	case IntentDealStrategy, IntentKnowledge, IntentPeopleIntel,
		IntentCoaching, IntentCompetitive, IntentObjection, IntentGeneral:
		return true
	default:
		return false
	}
}

func (i QueryIntent) String() string { return string(i) }

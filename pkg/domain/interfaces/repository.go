package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Source() SourceRepository
	Segment() SegmentRepository
	Person() PersonRepository
	Deal() DealRepository
	Meddpicc() MeddpiccRepository
	Prospect() ProspectRepository
	Outreach() OutreachRepository
	Outcome() OutcomeRepository
	Insight() InsightRepository
	SignalWeight() SignalWeightRepository
	QueryHistory() QueryHistoryRepository
	Section() SectionRepository
	Metrics() MetricsRepository

	Close() error
}

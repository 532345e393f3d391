package memory

import (
	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-memory implementation of interfaces.Repository,
// used for tests and development runs.
type Memory struct {
	source       *sourceRepository
	segment      *segmentRepository
	person       *personRepository
	deal         *dealRepository
	meddpicc     *meddpiccRepository
	prospect     *prospectRepository
	outreach     *outreachRepository
	outcome      *outcomeRepository
	insight      *insightRepository
	signalWeight *signalWeightRepository
	queryHistory *queryHistoryRepository
	section      *sectionRepository
	metrics      *metricsRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	segmentRepo := newSegmentRepository()
	metricsRepo := newMetricsRepository()
	meddpiccRepo := newMeddpiccRepository()
	outreachRepo := newOutreachRepository()

	return &Memory{
		source:       newSourceRepository(segmentRepo, metricsRepo),
		segment:      segmentRepo,
		person:       newPersonRepository(segmentRepo),
		deal:         newDealRepository(meddpiccRepo, segmentRepo),
		meddpicc:     meddpiccRepo,
		prospect:     newProspectRepository(outreachRepo),
		outreach:     outreachRepo,
		outcome:      newOutcomeRepository(),
		insight:      newInsightRepository(),
		signalWeight: newSignalWeightRepository(),
		queryHistory: newQueryHistoryRepository(),
		section:      newSectionRepository(),
		metrics:      metricsRepo,
	}
}

func (m *Memory) Source() interfaces.SourceRepository { return m.source }

func (m *Memory) Segment() interfaces.SegmentRepository { return m.segment }

func (m *Memory) Person() interfaces.PersonRepository { return m.person }

func (m *Memory) Deal() interfaces.DealRepository { return m.deal }

func (m *Memory) Meddpicc() interfaces.MeddpiccRepository { return m.meddpicc }

func (m *Memory) Prospect() interfaces.ProspectRepository { return m.prospect }

func (m *Memory) Outreach() interfaces.OutreachRepository { return m.outreach }

func (m *Memory) Outcome() interfaces.OutcomeRepository { return m.outcome }

func (m *Memory) Insight() interfaces.InsightRepository { return m.insight }

func (m *Memory) SignalWeight() interfaces.SignalWeightRepository { return m.signalWeight }

func (m *Memory) QueryHistory() interfaces.QueryHistoryRepository { return m.queryHistory }

func (m *Memory) Section() interfaces.SectionRepository { return m.section }

func (m *Memory) Metrics() interfaces.MetricsRepository { return m.metrics }

func (m *Memory) Close() error { return nil }

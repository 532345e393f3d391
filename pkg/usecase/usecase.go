package usecase

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
)

// Config holds application-level tuning shared by the use cases
type Config struct {
	Tier1Threshold float64
	Tier2Threshold float64
	UploadDir      string
	CadenceFile    string
}

// DefaultConfig returns the stock thresholds
func DefaultConfig() Config {
	return Config{
		Tier1Threshold: 70,
		Tier2Threshold: 40,
		UploadDir:      "uploads",
	}
}

// LearningTrigger receives corpus events that may schedule analyses.
// Implemented by the learning scheduler; a no-op stands in when no
// scheduler runs (one-shot CLI commands, tests).
type LearningTrigger interface {
	OnTranscriptProcessed(ctx context.Context)
	OnOutcomeRecorded(ctx context.Context)
}

type noopTrigger struct{}

func (noopTrigger) OnTranscriptProcessed(context.Context) {}
func (noopTrigger) OnOutcomeRecorded(context.Context)    {}

// UseCases is the composition root for application logic
type UseCases struct {
	repo    interfaces.Repository
	gateway *llm.Gateway
	config  Config
	trigger LearningTrigger

	Source    *SourceUseCase
	Processor *ProcessorUseCase
	Meddpicc  *MeddpiccUseCase
	Prospect  *ProspectUseCase
	Learning  *LearningUseCase
	Section   *SectionUseCase
	Query     *QueryUseCase
	Outreach  *OutreachUseCase
	Insight   *InsightUseCase
	Export    *ExportUseCase
}

type Option func(*UseCases)

// WithConfig overrides the default thresholds
func WithConfig(cfg Config) Option {
	return func(uc *UseCases) {
		uc.config = cfg
	}
}

// WithLearningTrigger wires the learning scheduler callbacks
func WithLearningTrigger(trigger LearningTrigger) Option {
	return func(uc *UseCases) {
		if trigger != nil {
			uc.trigger = trigger
		}
	}
}

// New builds the use case graph
func New(repo interfaces.Repository, gateway *llm.Gateway, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:    repo,
		gateway: gateway,
		config:  DefaultConfig(),
		trigger: noopTrigger{},
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Meddpicc = NewMeddpiccUseCase(repo, gateway)
	uc.Prospect = NewProspectUseCase(repo, uc.config)
	uc.Section = NewSectionUseCase(repo, gateway, uc.Meddpicc)
	uc.Processor = NewProcessorUseCase(repo, gateway, uc.Meddpicc, uc.Section, uc.trigger)
	uc.Source = NewSourceUseCase(repo, uc.Processor, uc.config)
	uc.Learning = NewLearningUseCase(repo, gateway)
	uc.Learning.trigger = uc.trigger
	uc.Query = NewQueryUseCase(repo, gateway)
	uc.Outreach = NewOutreachUseCase(repo, uc.config)
	uc.Insight = NewInsightUseCase(repo)
	uc.Export = NewExportUseCase(repo)

	return uc
}

// SetLearningTrigger rewires the corpus event callbacks after construction.
// The scheduler needs the learning use case before it can be built, so the
// serve command wires the two in separate steps.
func (uc *UseCases) SetLearningTrigger(trigger LearningTrigger) {
	if trigger == nil {
		return
	}
	uc.trigger = trigger
	uc.Learning.trigger = trigger
	uc.Processor.trigger = trigger
}

// Repository exposes the store for controllers that need direct reads
func (uc *UseCases) Repository() interfaces.Repository {
	return uc.repo
}

// Gateway exposes the LLM gateway for status probes
func (uc *UseCases) Gateway() *llm.Gateway {
	return uc.gateway
}

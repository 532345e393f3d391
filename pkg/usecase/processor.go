package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

//go:embed prompt/segment.md
var segmentPromptTmpl string

//go:embed prompt/classify.md
var classifyPromptTmpl string

//go:embed prompt/entities.md
var entitiesPromptTmpl string

//go:embed prompt/metrics.md
var metricsPromptTmpl string

var (
	segmentPrompt  = template.Must(template.New("segment").Parse(segmentPromptTmpl))
	classifyPrompt = template.Must(template.New("classify").Parse(classifyPromptTmpl))
	entitiesPrompt = template.Must(template.New("entities").Parse(entitiesPromptTmpl))
	metricsPrompt  = template.Must(template.New("metrics").Parse(metricsPromptTmpl))
)

// ProcessOptions toggles individual pipeline stages. The zero value
// runs everything.
type ProcessOptions struct {
	SkipEnhancedClassification bool
	SkipEntityExtraction       bool
	SkipMeddpicc               bool
	SkipMetrics                bool
}

// StageResult records the outcome of one pipeline stage
type StageResult struct {
	Name     string `json:"name"`
	Ran      bool   `json:"ran"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// ProcessResult is the partial-result structure of one processing run.
// A failed stage never aborts its successors.
type ProcessResult struct {
	SourceID     types.SourceID   `json:"sourceId"`
	Stages       []StageResult    `json:"stages"`
	SegmentCount int              `json:"segmentCount"`
	PeopleLinked []types.PersonID `json:"peopleLinked,omitempty"`
	DealsLinked  []types.DealID   `json:"dealsLinked,omitempty"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
}

func (r *ProcessResult) record(name string, ran, ok bool, detail string) {
	r.Stages = append(r.Stages, StageResult{Name: name, Ran: ran, OK: ok, Detail: detail})
}

// ProcessorUseCase runs the multi-stage transcript pipeline
type ProcessorUseCase struct {
	repo     interfaces.Repository
	gateway  *llm.Gateway
	meddpicc *MeddpiccUseCase
	section  *SectionUseCase
	trigger  LearningTrigger
	linker   *entityLinker
}

// NewProcessorUseCase creates the processor
func NewProcessorUseCase(repo interfaces.Repository, gateway *llm.Gateway, meddpicc *MeddpiccUseCase, section *SectionUseCase, trigger LearningTrigger) *ProcessorUseCase {
	return &ProcessorUseCase{
		repo:     repo,
		gateway:  gateway,
		meddpicc: meddpicc,
		section:  section,
		trigger:  trigger,
		linker:   newEntityLinker(repo),
	}
}

// Process runs the pipeline over a source. Stages run strictly in
// order; each failure is recorded and the rest continue.
func (uc *ProcessorUseCase) Process(ctx context.Context, sourceID types.SourceID, opts ProcessOptions) (*ProcessResult, error) {
	logger := logging.From(ctx)

	source, err := uc.repo.Source().Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{SourceID: sourceID, StartedAt: time.Now()}
	logger.Info("processing source", "source_id", sourceID, "filename", source.Filename)

	// stage: segment (includes clearing prior segments)
	segments, usedStub, err := uc.segment(ctx, source)
	if err != nil {
		// without segments nothing downstream can run
		result.record("segment", true, false, err.Error())
		result.FinishedAt = time.Now()
		return result, err
	}
	result.SegmentCount = len(segments)
	result.Stages = append(result.Stages, StageResult{
		Name: "segment", Ran: true, OK: true, Fallback: usedStub,
	})

	// stage: per-segment classification
	if opts.SkipEnhancedClassification || usedStub {
		result.record("classify", false, true, "")
	} else if err := uc.classify(ctx, source, segments); err != nil {
		result.record("classify", true, false, err.Error())
	} else {
		result.record("classify", true, true, "")
	}

	// stage: entity extraction and linking
	var linked *linkResult
	if opts.SkipEntityExtraction {
		result.record("entities", false, true, "")
	} else {
		linked, err = uc.extractEntities(ctx, source, segments)
		if err != nil {
			result.record("entities", true, false, err.Error())
		} else {
			result.record("entities", true, true, "")
			result.PeopleLinked = linked.PersonIDs()
			result.DealsLinked = linked.DealIDs()
		}
	}

	// stage: MEDDPICC extraction, only with a deal context
	switch {
	case opts.SkipMeddpicc:
		result.record("meddpicc", false, true, "")
	case linked == nil || len(linked.deals) == 0:
		result.record("meddpicc", false, true, "no deal context")
	default:
		if err := uc.extractMeddpicc(ctx, source, segments, linked.deals[0]); err != nil {
			result.record("meddpicc", true, false, err.Error())
		} else {
			result.record("meddpicc", true, true, "")
		}
	}

	// stage: call metrics
	if opts.SkipMetrics {
		result.record("metrics", false, true, "")
	} else if err := uc.analyzeMetrics(ctx, source); err != nil {
		result.record("metrics", true, false, err.Error())
	} else {
		result.record("metrics", true, true, "")
	}

	// stage: finalize
	if err := uc.finalize(ctx, source, segments); err != nil {
		result.record("finalize", true, false, err.Error())
	} else {
		result.record("finalize", true, true, "")
	}

	uc.emitStaleness(ctx, linked)
	uc.trigger.OnTranscriptProcessed(ctx)

	result.FinishedAt = time.Now()
	logger.Info("source processed",
		"source_id", sourceID,
		"segments", result.SegmentCount,
		"people", len(result.PeopleLinked),
		"deals", len(result.DealsLinked),
	)
	return result, nil
}

type segmentPayload struct {
	Segments []struct {
		Content       string `json:"content"`
		Speaker       string `json:"speaker"`
		KnowledgeType string `json:"knowledgeType"`
		Summary       string `json:"summary"`
	} `json:"segments"`
}

// segment clears prior segments and writes the new set. Returns the
// persisted segments with their final ids. usedStub reports the
// deterministic fallback path.
func (uc *ProcessorUseCase) segment(ctx context.Context, source *model.Source) ([]*model.Segment, bool, error) {
	logger := logging.From(ctx)

	var fresh []*model.Segment
	usedStub := false

	prompt, err := renderTemplate(segmentPrompt, map[string]any{"Content": source.Content})
	if err != nil {
		return nil, false, err
	}

	var payload segmentPayload
	if err := uc.gateway.GenerateJSON(ctx, prompt, &payload, llm.WithMaxTokens(4096)); err != nil {
		logger.Warn("llm segmentation failed, using stub segmenter",
			"source_id", source.ID, "error", err)
		fresh = stubSegments(source.Content)
		usedStub = true
	} else {
		for _, s := range payload.Segments {
			content := strings.TrimSpace(s.Content)
			if content == "" {
				continue
			}
			fresh = append(fresh, &model.Segment{
				Content:   content,
				Speaker:   s.Speaker,
				Knowledge: types.KnowledgeType(s.KnowledgeType).Normalize(),
				Summary:   s.Summary,
			})
		}
		if len(fresh) == 0 {
			logger.Warn("llm segmentation returned nothing, using stub segmenter",
				"source_id", source.ID)
			fresh = stubSegments(source.Content)
			usedStub = true
		}
	}

	persisted, err := uc.repo.Segment().ReplaceForSource(ctx, source.ID, fresh)
	if err != nil {
		return nil, usedStub, goerr.Wrap(err, "failed to persist segments",
			goerr.V("source_id", source.ID))
	}
	return persisted, usedStub, nil
}

type classifyPayload struct {
	KnowledgeType string   `json:"knowledgeType"`
	Confidence    float64  `json:"confidence"`
	Tags          []string `json:"tags"`
	Summary       string   `json:"summary"`
}

const defaultClassifyConfidence = 0.5

// classify refines each segment's knowledge type. The per-segment
// result wins over the bulk value; both land in the debug log.
func (uc *ProcessorUseCase) classify(ctx context.Context, source *model.Source, segments []*model.Segment) error {
	logger := logging.From(ctx)
	failures := 0

	for _, segment := range segments {
		prompt, err := renderTemplate(classifyPrompt, map[string]any{
			"Content":     segment.Content,
			"CurrentType": segment.Knowledge.String(),
		})
		if err != nil {
			return err
		}

		var payload classifyPayload
		if err := uc.gateway.GenerateJSON(ctx, prompt, &payload, llm.WithMaxTokens(512)); err != nil {
			// keep the bulk value with a default confidence
			segment.Confidence = defaultClassifyConfidence
			failures++
			logger.Debug("segment classification failed, keeping bulk value",
				"segment_id", segment.ID, "bulk", segment.Knowledge, "error", err)
		} else {
			refined := types.KnowledgeType(payload.KnowledgeType).Normalize()
			logger.Debug("segment classified",
				"segment_id", segment.ID, "bulk", segment.Knowledge, "refined", refined)
			segment.Knowledge = refined
			segment.Confidence = clamp01(payload.Confidence)
			segment.Tags = payload.Tags
			if payload.Summary != "" {
				segment.Summary = payload.Summary
			}
		}

		if _, err := uc.repo.Segment().Update(ctx, segment); err != nil {
			return goerr.Wrap(err, "failed to update classified segment",
				goerr.V("segment_id", segment.ID))
		}
	}

	if failures == len(segments) && failures > 0 {
		return goerr.New("classification failed for every segment",
			goerr.V("count", failures))
	}
	return nil
}

// extractEntities pulls people and companies out of the transcript
// with the known corpus in-prompt, then hands them to the linker
func (uc *ProcessorUseCase) extractEntities(ctx context.Context, source *model.Source, segments []*model.Segment) (*linkResult, error) {
	people, err := uc.repo.Person().List(ctx)
	if err != nil {
		return nil, err
	}
	deals, err := uc.repo.Deal().List(ctx)
	if err != nil {
		return nil, err
	}

	prompt, err := renderTemplate(entitiesPrompt, map[string]any{
		"Content": source.Content,
		"People":  people,
		"Deals":   deals,
	})
	if err != nil {
		return nil, err
	}

	var payload extractionPayload
	if err := uc.gateway.GenerateJSON(ctx, prompt, &payload, llm.WithMaxTokens(2048)); err != nil {
		return nil, err
	}

	payload.dedup()

	return uc.linker.link(ctx, payload, segments)
}

// extractMeddpicc routes findings for the matched deal through the
// MEDDPICC engine
func (uc *ProcessorUseCase) extractMeddpicc(ctx context.Context, source *model.Source, segments []*model.Segment, deal *model.Deal) error {
	var sourceSegment types.SegmentID
	if len(segments) > 0 {
		sourceSegment = segments[0].ID
	}
	return uc.meddpicc.ExtractFromTranscript(ctx, deal, source.Content, sourceSegment)
}

type metricsPayload struct {
	TalkRatio        float64                 `json:"talkRatio"`
	Questions        model.QuestionBreakdown `json:"questions"`
	ListeningScore   float64                 `json:"listeningScore"`
	DiscoveryDepth   map[string]int          `json:"discoveryDepth"`
	StrongMoments    []string                `json:"strongMoments"`
	ImprovementAreas []string                `json:"improvementAreas"`
	ObjectionNotes   string                  `json:"objectionNotes"`
	NextStepsSet     bool                    `json:"nextStepsSet"`
}

func (uc *ProcessorUseCase) analyzeMetrics(ctx context.Context, source *model.Source) error {
	prompt, err := renderTemplate(metricsPrompt, map[string]any{"Content": source.Content})
	if err != nil {
		return err
	}

	var payload metricsPayload
	if err := uc.gateway.GenerateJSON(ctx, prompt, &payload, llm.WithMaxTokens(1024)); err != nil {
		return err
	}

	return uc.repo.Metrics().Upsert(ctx, &model.CallMetrics{
		SourceID:         source.ID,
		TalkRatio:        clamp01(payload.TalkRatio),
		Questions:        payload.Questions,
		ListeningScore:   payload.ListeningScore,
		DiscoveryDepth:   payload.DiscoveryDepth,
		StrongMoments:    payload.StrongMoments,
		ImprovementAreas: payload.ImprovementAreas,
		ObjectionNotes:   payload.ObjectionNotes,
		NextStepsSet:     payload.NextStepsSet,
	})
}

// finalize stamps processed-at and derives a short summary from the
// segment summaries
func (uc *ProcessorUseCase) finalize(ctx context.Context, source *model.Source, segments []*model.Segment) error {
	lines := []string{}
	for _, segment := range segments {
		if segment.Summary != "" {
			lines = append(lines, segment.Summary)
		}
		if len(lines) >= 5 {
			break
		}
	}

	now := time.Now()
	source.ProcessedAt = &now
	source.Summary = strings.Join(lines, " / ")

	if _, err := uc.repo.Source().Update(ctx, source); err != nil {
		return goerr.Wrap(err, "failed to finalize source", goerr.V("source_id", source.ID))
	}
	return nil
}

// emitStaleness marks sections of every touched entity
func (uc *ProcessorUseCase) emitStaleness(ctx context.Context, linked *linkResult) {
	if uc.section == nil || linked == nil {
		return
	}
	for _, person := range linked.people {
		uc.section.MarkEntityStale(ctx, types.EntityPerson, string(person.ID))
	}
	for _, deal := range linked.deals {
		uc.section.MarkEntityStale(ctx, types.EntityDeal, string(deal.ID))
	}
	uc.section.MarkEntityStale(ctx, types.EntityGlobal, "global")
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt template",
			goerr.V("template", tmpl.Name()))
	}
	return buf.String(), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package usecase

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

//go:embed prompt/icp.md
var icpPromptRaw string

//go:embed prompt/patterns.md
var patternsPromptRaw string

var (
	icpPrompt      = template.Must(template.New("icp").Parse(icpPromptRaw))
	patternsPrompt = template.Must(template.New("patterns").Parse(patternsPromptRaw))
)

const (
	maxPatternsPerRun     = 5
	maxAntiPatternsPerRun = 3

	// quickSummaryMinCalls gates the non-LLM pattern summary
	quickSummaryMinCalls = 3

	// calibrationMinOutcomes is how many outcomes the weight
	// calibrator needs before it will touch learned weights
	calibrationMinOutcomes = 20

	// balanced talk ratio band used to split calls for pattern analysis
	talkRatioFloor   = 0.3
	talkRatioCeiling = 0.6
)

// LearningUseCase produces insights from accumulated outcomes, deals,
// and call metrics. It implements the scheduler's Analyzer interface.
type LearningUseCase struct {
	repo    interfaces.Repository
	gateway *llm.Gateway
	trigger LearningTrigger
}

func NewLearningUseCase(repo interfaces.Repository, gateway *llm.Gateway) *LearningUseCase {
	return &LearningUseCase{repo: repo, gateway: gateway, trigger: noopTrigger{}}
}

type icpPayload struct {
	Title              string   `json:"title"`
	Hypothesis         string   `json:"hypothesis"`
	CompanyProfile     string   `json:"companyProfile"`
	BuyingSignals      []string `json:"buyingSignals"`
	Personas           []string `json:"personas"`
	AntiPatterns       []string `json:"antiPatterns"`
	Refinements        string   `json:"refinements"`
	RecommendedActions []string `json:"recommendedActions"`
	Confidence         float64  `json:"confidence"`
}

// RefreshICP rebuilds the ideal customer profile from the full deal and
// prospect history, superseding the previous profile insight.
func (uc *LearningUseCase) RefreshICP(ctx context.Context) error {
	deals, err := uc.repo.Deal().List(ctx)
	if err != nil {
		return err
	}
	var won, lost, stalled []string
	for _, deal := range deals {
		switch deal.Status {
		case types.DealStatusWon:
			won = append(won, describeDeal(deal))
		case types.DealStatusLost:
			lost = append(lost, describeDeal(deal))
		case types.DealStatusStalled:
			stalled = append(stalled, describeDeal(deal))
		}
	}

	converted, err := uc.describeProspects(ctx, types.ProspectStatusConverted)
	if err != nil {
		return err
	}
	disqualified, err := uc.describeProspects(ctx, types.ProspectStatusDisqualified)
	if err != nil {
		return err
	}

	sampleSize := len(won) + len(lost) + len(stalled) + len(converted) + len(disqualified)
	if sampleSize == 0 {
		logging.From(ctx).Info("skipping customer profile refresh, no history yet")
		return nil
	}

	previous, err := uc.repo.Insight().GetActiveByType(ctx, types.InsightICP)
	if err != nil {
		return err
	}
	previousText := ""
	if previous != nil {
		previousText = previous.Hypothesis
	}

	prompt, err := renderTemplate(icpPrompt, map[string]any{
		"Won":          won,
		"Lost":         lost,
		"Stalled":      stalled,
		"Converted":    converted,
		"Disqualified": disqualified,
		"Previous":     previousText,
	})
	if err != nil {
		return err
	}

	var payload icpPayload
	if err := uc.gateway.GenerateJSON(ctx, prompt, &payload, llm.WithMaxTokens(2048)); err != nil {
		return goerr.Wrap(err, "customer profile analysis failed")
	}
	if strings.TrimSpace(payload.Hypothesis) == "" {
		return goerr.Wrap(types.ErrParseFailure, "customer profile analysis returned no hypothesis")
	}

	evidence, err := json.Marshal(map[string]any{
		"companyProfile":     payload.CompanyProfile,
		"buyingSignals":      payload.BuyingSignals,
		"personas":           payload.Personas,
		"antiPatterns":       payload.AntiPatterns,
		"refinements":        payload.Refinements,
		"recommendedActions": payload.RecommendedActions,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to encode profile evidence")
	}

	title := payload.Title
	if title == "" {
		title = "Ideal customer profile"
	}
	created, err := uc.repo.Insight().Create(ctx, &model.Insight{
		Type:       types.InsightICP,
		Category:   "icp",
		Title:      title,
		Hypothesis: payload.Hypothesis,
		Confidence: clamp01(payload.Confidence),
		Evidence:   string(evidence),
		SampleSize: sampleSize,
		Status:     types.InsightActive,
	})
	if err != nil {
		return err
	}

	if previous != nil {
		if err := uc.supersede(ctx, previous, created.ID); err != nil {
			return err
		}
	}

	logging.From(ctx).Info("customer profile refreshed",
		"insight_id", created.ID, "sample_size", sampleSize)
	return nil
}

// supersede archives the previous insight with a snapshot of its state
func (uc *LearningUseCase) supersede(ctx context.Context, previous *model.Insight, successor types.InsightID) error {
	snapshot := &model.InsightSnapshot{
		InsightID:  previous.ID,
		Confidence: previous.Confidence,
		Evidence:   previous.Evidence,
		SampleSize: previous.SampleSize,
	}
	if err := uc.repo.Insight().AppendSnapshot(ctx, snapshot); err != nil {
		return goerr.Wrap(err, "failed to snapshot superseded insight",
			goerr.V("insight_id", previous.ID))
	}

	previous.Status = types.InsightSuperseded
	previous.SupersededBy = successor
	if _, err := uc.repo.Insight().Update(ctx, previous); err != nil {
		return goerr.Wrap(err, "failed to mark insight superseded",
			goerr.V("insight_id", previous.ID))
	}
	return nil
}

func describeDeal(deal *model.Deal) string {
	parts := []string{deal.CompanyName}
	if deal.Value > 0 {
		parts = append(parts, fmt.Sprintf("value %.0f %s", deal.Value, deal.Currency))
	}
	if deal.Notes != "" {
		parts = append(parts, deal.Notes)
	}
	return strings.Join(parts, ", ")
}

func (uc *LearningUseCase) describeProspects(ctx context.Context, status types.ProspectStatus) ([]string, error) {
	prospects, err := uc.repo.Prospect().List(ctx, status)
	if err != nil {
		return nil, err
	}
	described := make([]string, 0, len(prospects))
	for _, prospect := range prospects {
		parts := []string{prospect.CompanyName}
		if prospect.Industry != "" {
			parts = append(parts, prospect.Industry)
		}
		if prospect.EmployeeCount > 0 {
			parts = append(parts, fmt.Sprintf("%d employees", prospect.EmployeeCount))
		}
		parts = append(parts, fmt.Sprintf("score %.0f", prospect.Score))
		described = append(described, strings.Join(parts, ", "))
	}
	return described, nil
}

type patternsPayload struct {
	Patterns []struct {
		Category    string `json:"category"`
		Description string `json:"description"`
	} `json:"patterns"`
	AntiPatterns []struct {
		Category    string `json:"category"`
		Description string `json:"description"`
	} `json:"antiPatterns"`
	Confidence float64 `json:"confidence"`
}

// RefreshPatterns compares successful and unsuccessful calls and stores
// the behavioral patterns the model finds. Calls are split heuristically
// by talk ratio and strong moments.
func (uc *LearningUseCase) RefreshPatterns(ctx context.Context) error {
	metrics, err := uc.repo.Metrics().List(ctx)
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		logging.From(ctx).Info("skipping pattern refresh, no analyzed calls yet")
		return nil
	}

	var successful, unsuccessful []string
	for _, m := range metrics {
		description := describeCall(m)
		if callLooksSuccessful(m) {
			successful = append(successful, description)
		} else {
			unsuccessful = append(unsuccessful, description)
		}
	}

	prompt, err := renderTemplate(patternsPrompt, map[string]any{
		"Successful":   successful,
		"Unsuccessful": unsuccessful,
	})
	if err != nil {
		return err
	}

	var payload patternsPayload
	if err := uc.gateway.GenerateJSON(ctx, prompt, &payload, llm.WithMaxTokens(2048)); err != nil {
		return goerr.Wrap(err, "pattern analysis failed")
	}

	stored := 0
	for i, pattern := range payload.Patterns {
		if i >= maxPatternsPerRun || strings.TrimSpace(pattern.Description) == "" {
			break
		}
		if err := uc.storePattern(ctx, pattern.Category, pattern.Description, payload.Confidence, len(metrics), false); err != nil {
			return err
		}
		stored++
	}
	for i, pattern := range payload.AntiPatterns {
		if i >= maxAntiPatternsPerRun || strings.TrimSpace(pattern.Description) == "" {
			break
		}
		if err := uc.storePattern(ctx, pattern.Category, pattern.Description, payload.Confidence, len(metrics), true); err != nil {
			return err
		}
		stored++
	}

	logging.From(ctx).Info("call patterns refreshed",
		"stored", stored, "calls", len(metrics))
	return nil
}

func (uc *LearningUseCase) storePattern(ctx context.Context, category, description string, confidence float64, sampleSize int, anti bool) error {
	title := "Pattern worth repeating"
	if anti {
		title = "Anti-pattern to avoid"
		category = "avoid:" + category
	}
	_, err := uc.repo.Insight().Create(ctx, &model.Insight{
		Type:       types.InsightPattern,
		Category:   category,
		Title:      title,
		Hypothesis: description,
		Confidence: clamp01(confidence),
		SampleSize: sampleSize,
		Status:     types.InsightActive,
	})
	return err
}

func callLooksSuccessful(m *model.CallMetrics) bool {
	if len(m.StrongMoments) > 0 {
		return true
	}
	return m.TalkRatio >= talkRatioFloor && m.TalkRatio <= talkRatioCeiling
}

func describeCall(m *model.CallMetrics) string {
	parts := []string{fmt.Sprintf("talk ratio %.2f, %d questions", m.TalkRatio, m.Questions.Total)}
	if len(m.StrongMoments) > 0 {
		parts = append(parts, "strong: "+strings.Join(m.StrongMoments, "; "))
	}
	if len(m.ImprovementAreas) > 0 {
		parts = append(parts, "improve: "+strings.Join(m.ImprovementAreas, "; "))
	}
	if m.ObjectionNotes != "" {
		parts = append(parts, "objections: "+m.ObjectionNotes)
	}
	return strings.Join(parts, " | ")
}

// LabelCount is an aggregated coaching label with its frequency
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PatternSummary is the non-LLM aggregation over analyzed calls
type PatternSummary struct {
	CallCount        int          `json:"callCount"`
	AverageTalkRatio float64      `json:"averageTalkRatio"`
	StrongMoments    []LabelCount `json:"strongMoments"`
	ImprovementAreas []LabelCount `json:"improvementAreas"`
	NextStepsRate    float64      `json:"nextStepsRate"`
}

// QuickPatternSummary aggregates strong-moment and improvement labels
// across analyzed calls without a model call. Requires at least three
// analyzed calls.
func (uc *LearningUseCase) QuickPatternSummary(ctx context.Context) (*PatternSummary, error) {
	metrics, err := uc.repo.Metrics().List(ctx)
	if err != nil {
		return nil, err
	}
	if len(metrics) < quickSummaryMinCalls {
		return nil, goerr.Wrap(types.ErrInvalidInput, "not enough analyzed calls for a summary",
			goerr.V("have", len(metrics)), goerr.V("need", quickSummaryMinCalls))
	}

	summary := &PatternSummary{CallCount: len(metrics)}
	var talkTotal float64
	nextSteps := 0
	strong := map[string]int{}
	improve := map[string]int{}
	for _, m := range metrics {
		talkTotal += m.TalkRatio
		if m.NextStepsSet {
			nextSteps++
		}
		for _, label := range m.StrongMoments {
			strong[normalizeLabel(label)]++
		}
		for _, label := range m.ImprovementAreas {
			improve[normalizeLabel(label)]++
		}
	}

	summary.AverageTalkRatio = talkTotal / float64(len(metrics))
	summary.NextStepsRate = float64(nextSteps) / float64(len(metrics))
	summary.StrongMoments = sortedLabels(strong)
	summary.ImprovementAreas = sortedLabels(improve)
	return summary, nil
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func sortedLabels(counts map[string]int) []LabelCount {
	labels := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		labels = append(labels, LabelCount{Label: label, Count: count})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Count != labels[j].Count {
			return labels[i].Count > labels[j].Count
		}
		return labels[i].Label < labels[j].Label
	})
	return labels
}

// CalibrationResult reports the state of the signal weight calibrator
type CalibrationResult struct {
	OutcomeCount     int    `json:"outcomeCount"`
	RequiredOutcomes int    `json:"requiredOutcomes"`
	Calibrated       bool   `json:"calibrated"`
	Detail           string `json:"detail"`
}

// CalibrateSignals adjusts learned signal weights from outcome
// correlation. Until enough outcomes accumulate it reports the shortfall
// and leaves all weights untouched.
func (uc *LearningUseCase) CalibrateSignals(ctx context.Context) (*CalibrationResult, error) {
	outcomes, err := uc.repo.Outcome().List(ctx, -1)
	if err != nil {
		return nil, err
	}

	result := &CalibrationResult{
		OutcomeCount:     len(outcomes),
		RequiredOutcomes: calibrationMinOutcomes,
	}
	if len(outcomes) < calibrationMinOutcomes {
		result.Detail = fmt.Sprintf("insufficient data: %d of %d outcomes recorded",
			len(outcomes), calibrationMinOutcomes)
		return result, nil
	}

	// Enough data exists but correlation-based adjustment is not
	// implemented yet; record sample sizes so the shortfall is visible.
	weights, err := uc.repo.SignalWeight().List(ctx)
	if err != nil {
		return nil, err
	}
	for _, weight := range weights {
		weight.SampleSize = len(outcomes)
		if err := uc.repo.SignalWeight().Upsert(ctx, weight); err != nil {
			return nil, err
		}
	}
	result.Detail = "calibration pass recorded sample sizes; weight adjustment pending"
	return result, nil
}

// RecordOutcome stores an observation for the learning engine
func (uc *LearningUseCase) RecordOutcome(ctx context.Context, outcome *model.Outcome) (*model.Outcome, error) {
	if outcome.EntityType == "" || outcome.EntityID == "" || outcome.OutcomeType == "" {
		return nil, goerr.Wrap(types.ErrInvalidInput, "outcome requires entity type, entity id, and outcome type")
	}
	created, err := uc.repo.Outcome().Create(ctx, outcome)
	if err != nil {
		return nil, err
	}
	uc.trigger.OnOutcomeRecorded(ctx)
	return created, nil
}

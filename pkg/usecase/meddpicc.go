package usecase

import (
	"context"
	_ "embed"
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

//go:embed prompt/meddpicc.md
var meddpiccPromptRaw string

//go:embed prompt/gap_analysis.md
var gapAnalysisPromptRaw string

var (
	meddpiccPrompt    = template.Must(template.New("meddpicc").Parse(meddpiccPromptRaw))
	gapAnalysisPrompt = template.Must(template.New("gap_analysis").Parse(gapAnalysisPromptRaw))
)

// minFindingConfidence gates LLM findings out of the qualification state
const minFindingConfidence = 0.5

// MeddpiccUseCase maintains the qualification state of deals: eight
// elements per deal, upgraded by transcript findings and edited manually.
type MeddpiccUseCase struct {
	repo    interfaces.Repository
	gateway *llm.Gateway
}

func NewMeddpiccUseCase(repo interfaces.Repository, gateway *llm.Gateway) *MeddpiccUseCase {
	return &MeddpiccUseCase{repo: repo, gateway: gateway}
}

// Get returns the eight elements of a deal in canonical letter order
func (uc *MeddpiccUseCase) Get(ctx context.Context, dealID types.DealID) ([]*model.MeddpiccElement, error) {
	if _, err := uc.repo.Deal().Get(ctx, dealID); err != nil {
		return nil, err
	}
	return uc.repo.Meddpicc().ListByDeal(ctx, dealID)
}

type meddpiccFinding struct {
	Letter     string  `json:"letter"`
	Status     string  `json:"status"`
	Evidence   string  `json:"evidence"`
	Verbatim   string  `json:"verbatim"`
	Confidence float64 `json:"confidence"`
}

type meddpiccFindings struct {
	Findings []meddpiccFinding `json:"findings"`
}

// ExtractFromTranscript asks the model for qualification findings in the
// transcript and applies the accepted ones. Findings never downgrade an
// element; manual edits go through Update instead.
func (uc *MeddpiccUseCase) ExtractFromTranscript(ctx context.Context, deal *model.Deal, content string, sourceSegment types.SegmentID) error {
	elements, err := uc.repo.Meddpicc().ListByDeal(ctx, deal.ID)
	if err != nil {
		return err
	}

	prompt, err := renderTemplate(meddpiccPrompt, map[string]any{
		"Company":  deal.CompanyName,
		"Elements": elements,
		"Content":  content,
	})
	if err != nil {
		return err
	}

	var payload meddpiccFindings
	if err := uc.gateway.GenerateJSON(ctx, prompt, &payload, llm.WithMaxTokens(1536)); err != nil {
		return err
	}

	byLetter := make(map[types.MeddpiccLetter]*model.MeddpiccElement, len(elements))
	for _, element := range elements {
		byLetter[element.Letter] = element
	}

	logger := logging.From(ctx)
	for _, finding := range payload.Findings {
		letter, ambiguous, ok := types.NormalizeMeddpiccLetter(finding.Letter)
		if !ok {
			logger.Warn("dropping finding with unknown element code",
				"letter", finding.Letter, "deal_id", deal.ID)
			continue
		}
		if ambiguous {
			logger.Warn("ambiguous element code in finding, assuming first variant",
				"letter", finding.Letter, "resolved", letter, "deal_id", deal.ID)
		}

		if strings.TrimSpace(finding.Evidence) == "" || finding.Confidence < minFindingConfidence {
			continue
		}
		status := types.ElementStatus(strings.ToLower(strings.TrimSpace(finding.Status)))
		if !status.IsValid() || status == types.ElementUnknown {
			continue
		}

		element := byLetter[letter]
		if element == nil {
			continue
		}
		if status.Rank() < element.Status.Rank() {
			// LLM findings may only confirm or upgrade
			continue
		}

		evidence := strings.TrimSpace(finding.Evidence)
		if verbatim := strings.TrimSpace(finding.Verbatim); verbatim != "" && !strings.Contains(evidence, verbatim) {
			evidence += ` ("` + verbatim + `")`
		}

		element.Status = status
		element.Evidence = evidence
		element.SourceSegment = sourceSegment
		element.Confidence = clamp01(finding.Confidence)

		if _, err := uc.repo.Meddpicc().Update(ctx, element); err != nil {
			return goerr.Wrap(err, "failed to apply qualification finding",
				goerr.V("deal_id", deal.ID), goerr.V("letter", letter))
		}
	}

	return nil
}

// UpdateInput is a manual edit to one element. Unlike transcript
// findings, manual edits may downgrade.
type UpdateInput struct {
	Status     types.ElementStatus
	Evidence   string
	Confidence float64
}

func (uc *MeddpiccUseCase) Update(ctx context.Context, dealID types.DealID, rawLetter string, input UpdateInput) (*model.MeddpiccElement, error) {
	letter, ambiguous, ok := types.NormalizeMeddpiccLetter(rawLetter)
	if !ok {
		return nil, goerr.Wrap(types.ErrInvalidInput, "unknown element code",
			goerr.V("letter", rawLetter))
	}
	if ambiguous {
		logging.From(ctx).Warn("ambiguous element code in manual update, assuming first variant",
			"letter", rawLetter, "resolved", letter)
	}
	if !input.Status.IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid element status",
			goerr.V("status", input.Status))
	}

	element, err := uc.repo.Meddpicc().Get(ctx, dealID, letter)
	if err != nil {
		return nil, err
	}

	element.Status = input.Status
	element.Evidence = input.Evidence
	element.Confidence = clamp01(input.Confidence)
	element.SourceSegment = ""

	return uc.repo.Meddpicc().Update(ctx, element)
}

// Summary is the qualification roll-up of one deal
type Summary struct {
	DealID     types.DealID             `json:"dealId"`
	Readiness  float64                  `json:"readiness"`
	Identified []types.MeddpiccLetter   `json:"identified"`
	Partial    []types.MeddpiccLetter   `json:"partial"`
	Unknown    []types.MeddpiccLetter   `json:"unknown"`
	Elements   []*model.MeddpiccElement `json:"elements"`
}

func (uc *MeddpiccUseCase) Summary(ctx context.Context, dealID types.DealID) (*Summary, error) {
	elements, err := uc.Get(ctx, dealID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		DealID:    dealID,
		Readiness: model.Readiness(elements),
		Elements:  elements,
	}
	for _, element := range elements {
		switch element.Status {
		case types.ElementIdentified:
			summary.Identified = append(summary.Identified, element.Letter)
		case types.ElementPartial:
			summary.Partial = append(summary.Partial, element.Letter)
		default:
			summary.Unknown = append(summary.Unknown, element.Letter)
		}
	}
	return summary, nil
}

// Readiness returns the qualification readiness score in [0,1]
func (uc *MeddpiccUseCase) Readiness(ctx context.Context, dealID types.DealID) (float64, error) {
	elements, err := uc.Get(ctx, dealID)
	if err != nil {
		return 0, err
	}
	return model.Readiness(elements), nil
}

// Gap is one unresolved element with its proposed discovery questions
type Gap struct {
	Letter    types.MeddpiccLetter `json:"letter"`
	Label     string               `json:"label"`
	Status    types.ElementStatus  `json:"status"`
	Priority  int                  `json:"priority"`
	Questions []string             `json:"questions"`
}

// GapAnalysisResult prioritizes the unresolved elements of a deal
type GapAnalysisResult struct {
	DealID           types.DealID         `json:"dealId"`
	Readiness        float64              `json:"readiness"`
	Gaps             []*Gap               `json:"gaps"`
	RecommendedFocus types.MeddpiccLetter `json:"recommendedFocus"`
	Rationale        string               `json:"rationale,omitempty"`
}

type gapAnalysisPayload struct {
	Gaps []struct {
		Letter    string   `json:"letter"`
		Priority  int      `json:"priority"`
		Questions []string `json:"questions"`
	} `json:"gaps"`
	RecommendedFocus string `json:"recommendedFocus"`
	Rationale        string `json:"rationale"`
}

// GapAnalysis proposes discovery questions for every unknown or partial
// element. The model provides them when available; otherwise a built-in
// question bank covers each gap.
func (uc *MeddpiccUseCase) GapAnalysis(ctx context.Context, dealID types.DealID) (*GapAnalysisResult, error) {
	deal, err := uc.repo.Deal().Get(ctx, dealID)
	if err != nil {
		return nil, err
	}
	elements, err := uc.repo.Meddpicc().ListByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	gaps := []*Gap{}
	for _, element := range elements {
		if element.Status == types.ElementIdentified {
			continue
		}
		gaps = append(gaps, &Gap{
			Letter: element.Letter,
			Label:  element.Letter.Label(),
			Status: element.Status,
		})
	}

	result := &GapAnalysisResult{
		DealID:    dealID,
		Readiness: model.Readiness(elements),
		Gaps:      gaps,
	}
	if len(gaps) == 0 {
		return result, nil
	}

	if err := uc.fillGapsFromModel(ctx, deal, elements, result); err != nil {
		logging.From(ctx).Warn("gap analysis model call failed, using built-in questions",
			"deal_id", dealID, "error", err)
		fillGapsFromBank(result)
	}

	sort.SliceStable(result.Gaps, func(i, j int) bool {
		return result.Gaps[i].Priority < result.Gaps[j].Priority
	})
	return result, nil
}

func (uc *MeddpiccUseCase) fillGapsFromModel(ctx context.Context, deal *model.Deal, elements []*model.MeddpiccElement, result *GapAnalysisResult) error {
	evidence := make(map[types.MeddpiccLetter]string, len(elements))
	for _, element := range elements {
		evidence[element.Letter] = element.Evidence
	}
	promptGaps := make([]map[string]any, 0, len(result.Gaps))
	for _, gap := range result.Gaps {
		promptGaps = append(promptGaps, map[string]any{
			"Letter":   gap.Letter,
			"Label":    gap.Label,
			"Status":   gap.Status,
			"Evidence": evidence[gap.Letter],
		})
	}

	prompt, err := renderTemplate(gapAnalysisPrompt, map[string]any{
		"Company": deal.CompanyName,
		"Gaps":    promptGaps,
	})
	if err != nil {
		return err
	}

	var payload gapAnalysisPayload
	if err := uc.gateway.GenerateJSON(ctx, prompt, &payload, llm.WithMaxTokens(1536)); err != nil {
		return err
	}

	proposed := map[types.MeddpiccLetter]struct {
		priority  int
		questions []string
	}{}
	for _, g := range payload.Gaps {
		letter, _, ok := types.NormalizeMeddpiccLetter(g.Letter)
		if !ok {
			continue
		}
		proposed[letter] = struct {
			priority  int
			questions []string
		}{g.Priority, g.Questions}
	}

	for _, gap := range result.Gaps {
		if p, ok := proposed[gap.Letter]; ok && len(p.questions) > 0 {
			gap.Priority = p.priority
			gap.Questions = p.questions
		} else {
			gap.Priority = len(result.Gaps) + 1
			gap.Questions = bankQuestions(gap.Letter)
		}
	}

	if focus, _, ok := types.NormalizeMeddpiccLetter(payload.RecommendedFocus); ok {
		result.RecommendedFocus = focus
		result.Rationale = payload.Rationale
	} else if len(result.Gaps) > 0 {
		result.RecommendedFocus = result.Gaps[0].Letter
	}
	return nil
}

// fillGapsFromBank covers every gap with stock discovery questions,
// preferring fully unknown elements as the focus.
func fillGapsFromBank(result *GapAnalysisResult) {
	priority := 1
	for _, gap := range result.Gaps {
		if gap.Status == types.ElementUnknown {
			gap.Priority = priority
			priority++
		}
	}
	for _, gap := range result.Gaps {
		if gap.Status != types.ElementUnknown {
			gap.Priority = priority
			priority++
		}
		gap.Questions = bankQuestions(gap.Letter)
	}
	if len(result.Gaps) > 0 {
		focus := result.Gaps[0]
		for _, gap := range result.Gaps {
			if gap.Priority < focus.Priority {
				focus = gap
			}
		}
		result.RecommendedFocus = focus.Letter
	}
}

func bankQuestions(letter types.MeddpiccLetter) []string {
	switch letter {
	case types.LetterMetrics:
		return []string{
			"What measurable outcome would make this project a success for you?",
			"How are you quantifying the cost of the current situation?",
		}
	case types.LetterEconomicBuyer:
		return []string{
			"Who ultimately signs off on budget for initiatives like this?",
			"What would it take to get time with that person?",
		}
	case types.LetterDecisionCriteria:
		return []string{
			"What criteria will you use to compare the options you are evaluating?",
			"Which of those criteria matters most, and why?",
		}
	case types.LetterDecisionProcess:
		return []string{
			"Walk me through the steps between choosing a vendor and going live.",
			"Who else is involved in the evaluation, and in what order?",
		}
	case types.LetterPaperProcess:
		return []string{
			"What does your procurement and legal review usually look like?",
			"Are there security or compliance reviews we should start early?",
		}
	case types.LetterIdentifyPain:
		return []string{
			"What happens if you do nothing about this for another year?",
			"Which team feels this problem most acutely today?",
		}
	case types.LetterChampion:
		return []string{
			"Who internally is pushing hardest for solving this?",
			"What do they personally gain from this project succeeding?",
		}
	case types.LetterCompetition:
		return []string{
			"What alternatives are you considering, including building in-house?",
			"How do we compare against what you have seen so far?",
		}
	default:
		return []string{"What would help you move this element forward?"}
	}
}

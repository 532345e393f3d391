package usecase

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/async"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

//go:embed prompt/section.md
var sectionPromptRaw string

var sectionPrompt = template.Must(template.New("section").Parse(sectionPromptRaw))

// hashSegmentLimit bounds how many related segments feed the input hash
// and the generation context
const hashSegmentLimit = 20

// SectionUseCase serves cached AI artifacts per entity with
// stale-while-revalidate reads.
type SectionUseCase struct {
	repo     interfaces.Repository
	gateway  *llm.Gateway
	meddpicc *MeddpiccUseCase

	mu         sync.Mutex
	refreshing map[string]bool
}

func NewSectionUseCase(repo interfaces.Repository, gateway *llm.Gateway, meddpicc *MeddpiccUseCase) *SectionUseCase {
	return &SectionUseCase{
		repo:       repo,
		gateway:    gateway,
		meddpicc:   meddpicc,
		refreshing: map[string]bool{},
	}
}

func sectionKey(entityType types.EntityType, entityID string, sectionType types.SectionType) string {
	return string(entityType) + "/" + entityID + "/" + string(sectionType)
}

// Get returns the section content, regenerating per the staleness
// matrix: fresh rows are served as-is; stale rows with content are
// served while a background refresh runs; missing or empty rows and
// forced reads generate synchronously.
func (uc *SectionUseCase) Get(ctx context.Context, entityType types.EntityType, entityID string, sectionType types.SectionType, force bool) (*model.SectionResult, error) {
	if !entityType.IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid entity type",
			goerr.V("entity_type", entityType))
	}
	if !sectionType.ValidFor(entityType) {
		return nil, goerr.Wrap(types.ErrInvalidInput, "section type does not belong to entity type",
			goerr.V("entity_type", entityType), goerr.V("section_type", sectionType))
	}

	existing, err := uc.repo.Section().Get(ctx, entityType, entityID, sectionType)
	if err != nil {
		return nil, err
	}

	if !force && existing != nil && !existing.Stale {
		return &model.SectionResult{
			Content:     existing.Content,
			GeneratedAt: existing.GeneratedAt,
		}, nil
	}

	if !force && existing != nil && existing.Stale && existing.Content != "" {
		refreshing := uc.beginRefresh(entityType, entityID, sectionType)
		if refreshing {
			async.Dispatch(ctx, func(ctx context.Context) error {
				defer uc.endRefresh(entityType, entityID, sectionType)
				if _, err := uc.generate(ctx, entityType, entityID, sectionType); err != nil {
					logging.From(ctx).Warn("background section refresh failed",
						"entity_type", entityType, "entity_id", entityID,
						"section_type", sectionType, "error", err)
				}
				return nil
			})
		}
		return &model.SectionResult{
			Content:      existing.Content,
			GeneratedAt:  existing.GeneratedAt,
			IsStale:      true,
			IsRefreshing: true,
		}, nil
	}

	section, err := uc.generate(ctx, entityType, entityID, sectionType)
	if err != nil {
		return nil, err
	}
	return &model.SectionResult{
		Content:     section.Content,
		GeneratedAt: section.GeneratedAt,
	}, nil
}

// beginRefresh reports true when this caller owns the refresh;
// a second stale read while one is in flight serves cache only.
func (uc *SectionUseCase) beginRefresh(entityType types.EntityType, entityID string, sectionType types.SectionType) bool {
	key := sectionKey(entityType, entityID, sectionType)
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.refreshing[key] {
		return false
	}
	uc.refreshing[key] = true
	return true
}

func (uc *SectionUseCase) endRefresh(entityType types.EntityType, entityID string, sectionType types.SectionType) {
	key := sectionKey(entityType, entityID, sectionType)
	uc.mu.Lock()
	delete(uc.refreshing, key)
	uc.mu.Unlock()
}

// Regenerate forces a synchronous rebuild of one section
func (uc *SectionUseCase) Regenerate(ctx context.Context, entityType types.EntityType, entityID string, sectionType types.SectionType) (*model.SectionResult, error) {
	return uc.Get(ctx, entityType, entityID, sectionType, true)
}

// ListForEntity returns all stored sections of an entity
func (uc *SectionUseCase) ListForEntity(ctx context.Context, entityType types.EntityType, entityID string) ([]*model.LivingSection, error) {
	return uc.repo.Section().ListByEntity(ctx, entityType, entityID)
}

// MarkEntityStale flags every section of the entity. Failures are
// logged; staleness marking must never fail the mutation that caused it.
func (uc *SectionUseCase) MarkEntityStale(ctx context.Context, entityType types.EntityType, entityID string) {
	if err := uc.repo.Section().MarkStale(ctx, entityType, entityID); err != nil {
		logging.From(ctx).Warn("failed to mark sections stale",
			"entity_type", entityType, "entity_id", entityID, "error", err)
	}
}

// generate rebuilds one section and stores content plus input hash
func (uc *SectionUseCase) generate(ctx context.Context, entityType types.EntityType, entityID string, sectionType types.SectionType) (*model.LivingSection, error) {
	var content, hash string
	var err error
	switch entityType {
	case types.EntityDeal:
		content, hash, err = uc.generateDealSection(ctx, types.DealID(entityID), sectionType)
	case types.EntityPerson:
		content, hash, err = uc.generatePersonSection(ctx, types.PersonID(entityID), sectionType)
	case types.EntityGlobal:
		content, hash, err = uc.generateGlobalSection(ctx, sectionType)
	default:
		return nil, goerr.Wrap(types.ErrInvalidInput, "no sections for entity type",
			goerr.V("entity_type", entityType))
	}
	if err != nil {
		return nil, err
	}

	section := &model.LivingSection{
		EntityType:  entityType,
		EntityID:    entityID,
		SectionType: sectionType,
		Content:     content,
		DataHash:    hash,
		GeneratedAt: time.Now(),
		Stale:       false,
	}
	if err := uc.repo.Section().Upsert(ctx, section); err != nil {
		return nil, goerr.Wrap(err, "failed to store generated section",
			goerr.V("section_type", sectionType))
	}
	return section, nil
}

func (uc *SectionUseCase) generateDealSection(ctx context.Context, dealID types.DealID, sectionType types.SectionType) (string, string, error) {
	deal, err := uc.repo.Deal().Get(ctx, dealID)
	if err != nil {
		return "", "", err
	}
	elements, err := uc.repo.Meddpicc().ListByDeal(ctx, dealID)
	if err != nil {
		return "", "", err
	}
	segments, err := uc.repo.Segment().ListByDeal(ctx, dealID, hashSegmentLimit)
	if err != nil {
		return "", "", err
	}

	hash := inputHash(deal.UpdatedAt, len(segments), elementsDigest(elements), segmentsDigest(segments))

	switch sectionType {
	case types.SectionRiskAssessment:
		content, err := riskAssessment(deal, elements)
		return content, hash, err
	case types.SectionMeddpiccAnalysis:
		analysis, err := uc.meddpicc.GapAnalysis(ctx, dealID)
		if err != nil {
			return "", "", err
		}
		encoded, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return "", "", goerr.Wrap(err, "failed to encode gap analysis")
		}
		return string(encoded), hash, nil
	}

	profile := dealContext(deal, elements, segments)
	var instructions string
	switch sectionType {
	case types.SectionDealSummary:
		instructions = "Write a concise briefing on this deal for the seller: where it stands, what is known, what changed recently. Plain prose, no headers."
	case types.SectionNextActions:
		instructions = `Propose the next actions for this deal. Respond with pure JSON only: {"actions": [{"action": "...", "priority": 1, "target": "M"}]} where target is the MEDDPICC letter the action advances, or "".`
	default:
		return "", "", goerr.Wrap(types.ErrInvalidInput, "unknown deal section",
			goerr.V("section_type", sectionType))
	}

	content, err := uc.synthesize(ctx, instructions, profile)
	return content, hash, err
}

func (uc *SectionUseCase) generatePersonSection(ctx context.Context, personID types.PersonID, sectionType types.SectionType) (string, string, error) {
	person, err := uc.repo.Person().Get(ctx, personID)
	if err != nil {
		return "", "", err
	}
	segments, err := uc.repo.Segment().ListByPerson(ctx, personID, hashSegmentLimit)
	if err != nil {
		return "", "", err
	}

	hash := inputHash(person.UpdatedAt, len(segments), "", segmentsDigest(segments))

	var instructions string
	switch sectionType {
	case types.SectionPersonSummary:
		instructions = "Summarize what is known about this person: who they are, how they relate to current opportunities, what they care about. Plain prose."
	case types.SectionInteractionHighlights:
		instructions = "List the most notable things this person has said or done across the recorded conversations, most important first. One line per item."
	case types.SectionTalkingPoints:
		instructions = "Plan the next conversation with this person: topics to raise, questions to ask, things to avoid. Short bullet list."
	default:
		return "", "", goerr.Wrap(types.ErrInvalidInput, "unknown person section",
			goerr.V("section_type", sectionType))
	}

	content, err := uc.synthesize(ctx, instructions, personContext(person, segments))
	return content, hash, err
}

func (uc *SectionUseCase) generateGlobalSection(ctx context.Context, sectionType types.SectionType) (string, string, error) {
	switch sectionType {
	case types.SectionCoachingReport:
		metrics, err := uc.repo.Metrics().List(ctx)
		if err != nil {
			return "", "", err
		}
		content, err := coachingReport(metrics)
		return content, inputHash(time.Time{}, len(metrics), "", metricsDigest(metrics)), err

	case types.SectionICPUpdate:
		insight, err := uc.repo.Insight().GetActiveByType(ctx, types.InsightICP)
		if err != nil {
			return "", "", err
		}
		if insight == nil {
			return "No customer profile has been learned yet. Record deal outcomes to build one.", inputHash(time.Time{}, 0, "", ""), nil
		}
		content := insight.Title + "\n\n" + insight.Hypothesis
		if insight.Evidence != "" {
			content += "\n\nEvidence:\n" + insight.Evidence
		}
		return content, inputHash(insight.UpdatedAt, insight.SampleSize, "", insight.Hypothesis), nil

	case types.SectionWeeklyDigest:
		sources, _, err := uc.repo.Source().List(ctx, 10, 0)
		if err != nil {
			return "", "", err
		}
		deals, err := uc.repo.Deal().List(ctx)
		if err != nil {
			return "", "", err
		}
		lines := []string{"Recent calls:"}
		digest := ""
		for _, source := range sources {
			lines = append(lines, "- "+source.Filename+": "+source.Summary)
			digest += string(source.ID)
		}
		lines = append(lines, "", "Open deals:")
		for _, deal := range deals {
			if deal.Status == types.DealStatusActive {
				lines = append(lines, "- "+deal.CompanyName)
			}
		}
		content, err := uc.synthesize(ctx,
			"Write a short weekly digest of this sales activity: what happened, what needs attention next week. Plain prose.",
			strings.Join(lines, "\n"))
		return content, inputHash(time.Time{}, len(sources)+len(deals), "", digest), err
	}

	return "", "", goerr.Wrap(types.ErrInvalidInput, "unknown global section",
		goerr.V("section_type", sectionType))
}

func (uc *SectionUseCase) synthesize(ctx context.Context, instructions, input string) (string, error) {
	prompt, err := renderTemplate(sectionPrompt, map[string]any{
		"Instructions": instructions,
		"Context":      input,
	})
	if err != nil {
		return "", err
	}
	content, err := uc.gateway.Generate(ctx, prompt, llm.WithMaxTokens(1024))
	if err != nil {
		return "", goerr.Wrap(err, "section synthesis failed")
	}
	return strings.TrimSpace(content), nil
}

// riskAssessment is rule-based: inactivity, unresolved elements, and
// missing economic buyer or champion raise the level.
func riskAssessment(deal *model.Deal, elements []*model.MeddpiccElement) (string, error) {
	factors := []string{}
	riskScore := 0

	if days := int(time.Since(deal.LastActivityAt).Hours() / 24); days > 14 {
		factors = append(factors, fmt.Sprintf("no activity for %d days", days))
		riskScore += 2
	} else if days > 7 {
		factors = append(factors, fmt.Sprintf("no activity for %d days", days))
		riskScore++
	}

	unknown := 0
	var buyer, champion types.ElementStatus = types.ElementUnknown, types.ElementUnknown
	for _, element := range elements {
		if element.Status == types.ElementUnknown {
			unknown++
		}
		switch element.Letter {
		case types.LetterEconomicBuyer:
			buyer = element.Status
		case types.LetterChampion:
			champion = element.Status
		}
	}
	if unknown >= 5 {
		factors = append(factors, fmt.Sprintf("%d of 8 qualification elements unknown", unknown))
		riskScore += 2
	} else if unknown >= 3 {
		factors = append(factors, fmt.Sprintf("%d of 8 qualification elements unknown", unknown))
		riskScore++
	}
	if buyer == types.ElementUnknown {
		factors = append(factors, "economic buyer not identified")
		riskScore++
	}
	if champion == types.ElementUnknown {
		factors = append(factors, "no champion identified")
		riskScore++
	}

	level := "low"
	switch {
	case riskScore >= 4:
		level = "high"
	case riskScore >= 2:
		level = "medium"
	}

	encoded, err := json.MarshalIndent(map[string]any{
		"level":   level,
		"factors": factors,
	}, "", "  ")
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode risk assessment")
	}
	return string(encoded), nil
}

// coachingReport aggregates call metrics without a model call
func coachingReport(metrics []*model.CallMetrics) (string, error) {
	if len(metrics) == 0 {
		return "No analyzed calls yet. Process a few transcripts to get coaching feedback.", nil
	}

	var talkTotal, listenTotal float64
	nextSteps := 0
	strong := map[string]int{}
	improve := map[string]int{}
	for _, m := range metrics {
		talkTotal += m.TalkRatio
		listenTotal += m.ListeningScore
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

	var b strings.Builder
	fmt.Fprintf(&b, "Across %d analyzed calls:\n", len(metrics))
	fmt.Fprintf(&b, "- average talk ratio %.0f%%\n", 100*talkTotal/float64(len(metrics)))
	fmt.Fprintf(&b, "- average listening score %.1f\n", listenTotal/float64(len(metrics)))
	fmt.Fprintf(&b, "- next steps established on %d of %d calls\n", nextSteps, len(metrics))
	if labels := sortedLabels(strong); len(labels) > 0 {
		b.WriteString("\nStrengths:\n")
		for i, label := range labels {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s (%d calls)\n", label.Label, label.Count)
		}
	}
	if labels := sortedLabels(improve); len(labels) > 0 {
		b.WriteString("\nWork on:\n")
		for i, label := range labels {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s (%d calls)\n", label.Label, label.Count)
		}
	}
	return b.String(), nil
}

func dealContext(deal *model.Deal, elements []*model.MeddpiccElement, segments []*model.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deal: %s (status %s)\n", deal.CompanyName, deal.Status)
	if deal.Value > 0 {
		fmt.Fprintf(&b, "Value: %.0f %s\n", deal.Value, deal.Currency)
	}
	if deal.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", deal.Notes)
	}
	b.WriteString("\nQualification state:\n")
	for _, element := range elements {
		fmt.Fprintf(&b, "- %s (%s): %s", element.Letter, element.Letter.Label(), element.Status)
		if element.Evidence != "" {
			fmt.Fprintf(&b, " -- %s", element.Evidence)
		}
		b.WriteString("\n")
	}
	appendSegmentContext(&b, segments)
	return b.String()
}

func personContext(person *model.Person, segments []*model.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Person: %s\n", person.Name)
	if person.Role != "" {
		fmt.Fprintf(&b, "Role: %s\n", person.Role)
	}
	if person.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", person.Company)
	}
	fmt.Fprintf(&b, "Relationship: %s\n", person.Relationship)
	if person.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", person.Notes)
	}
	appendSegmentContext(&b, segments)
	return b.String()
}

func appendSegmentContext(b *strings.Builder, segments []*model.Segment) {
	if len(segments) == 0 {
		return
	}
	b.WriteString("\nRelevant conversation excerpts:\n")
	for _, segment := range segments {
		excerpt := segment.Content
		if len(excerpt) > 300 {
			excerpt = excerpt[:300] + "..."
		}
		fmt.Fprintf(b, "- %s\n", excerpt)
	}
}

// inputHash fingerprints the inputs of a generation so staleness can be
// verified after a refresh
func inputHash(updatedAt time.Time, relatedCount int, extra, contentDigest string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%s|%s", updatedAt.UnixNano(), relatedCount, extra, contentDigest)
	return hex.EncodeToString(h.Sum(nil))
}

func elementsDigest(elements []*model.MeddpiccElement) string {
	var b strings.Builder
	for _, element := range elements {
		fmt.Fprintf(&b, "%s=%s;", element.Letter, element.Status)
	}
	return b.String()
}

func segmentsDigest(segments []*model.Segment) string {
	h := sha256.New()
	for _, segment := range segments {
		content := segment.Content
		if len(content) > 200 {
			content = content[:200]
		}
		fmt.Fprintf(h, "%s|%s;", segment.ID, content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func metricsDigest(metrics []*model.CallMetrics) string {
	var b strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&b, "%s=%.2f;", m.SourceID, m.TalkRatio)
	}
	return b.String()
}

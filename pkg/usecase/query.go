package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

const (
	// maxQuerySources caps the deduplicated context set
	maxQuerySources = 20

	// maxPromptChars bounds the assembled context before guidance
	maxPromptChars = 6000

	truncationMarker = "\n[... context truncated ...]"
)

// QueryUseCase answers natural-language questions against the corpus.
// It is read-only except for the history log.
type QueryUseCase struct {
	repo    interfaces.Repository
	gateway *llm.Gateway
}

func NewQueryUseCase(repo interfaces.Repository, gateway *llm.Gateway) *QueryUseCase {
	return &QueryUseCase{repo: repo, gateway: gateway}
}

// QueryEvent is one element of the streaming response envelope.
// Type is one of meta, token, done, error; the other fields are
// populated per type.
type QueryEvent struct {
	Type string `json:"type"`

	// meta
	Intent         types.QueryIntent     `json:"intent,omitempty"`
	Confidence     float64               `json:"confidence,omitempty"`
	Sources        []model.ContextSource `json:"sources,omitempty"`
	FollowUps      []string              `json:"followUps,omitempty"`
	Visualizations []model.Visualization `json:"visualizations,omitempty"`

	// token
	Content string `json:"content,omitempty"`

	// done
	HistoryID types.QueryID `json:"historyId,omitempty"`
	LatencyMS int64         `json:"latencyMs,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// QueryResponse is the blocking variant's assembled result
type QueryResponse struct {
	Intent         types.QueryIntent     `json:"intent"`
	Confidence     float64               `json:"confidence"`
	Response       string                `json:"response"`
	Sources        []model.ContextSource `json:"sources"`
	FollowUps      []string              `json:"followUps,omitempty"`
	Visualizations []model.Visualization `json:"visualizations,omitempty"`
	HistoryID      types.QueryID         `json:"historyId"`
	LatencyMS      int64                 `json:"latencyMs"`
}

// detectedIntent is the rule-based classification of a query
type detectedIntent struct {
	intent     types.QueryIntent
	confidence float64
	deals      []*model.Deal
	people     []*model.Person
	meddpicc   bool
}

var intentKeywords = map[types.QueryIntent][]string{
	types.IntentPeopleIntel: {"who is", "person", "contact", "relationship", "stakeholder", "about him", "about her", "about them"},
	types.IntentObjection:   {"objection", "pushback", "push back", "concern", "hesitant", "resist"},
	types.IntentCompetitive: {"competitor", "competition", "versus", " vs ", "against", "alternative"},
	types.IntentCoaching:    {"coach", "improve", "feedback", "how am i", "how did i", "talk ratio", "better at"},
	types.IntentDealStrategy: {"deal", "strategy", "close", "win", "advance", "next step", "pipeline",
		"meddpicc", "champion", "economic buyer", "decision criteria", "decision process", "paper process", "qualification"},
	types.IntentKnowledge: {"how does", "what is", "explain", "feature", "product", "pricing", "integration", "works"},
}

// detection priority; deal strategy also fires on a company-name hit
var intentPriority = []types.QueryIntent{
	types.IntentPeopleIntel,
	types.IntentObjection,
	types.IntentCompetitive,
	types.IntentCoaching,
	types.IntentDealStrategy,
	types.IntentKnowledge,
}

// detectIntent classifies without an LLM call so streaming can start
// within milliseconds.
func (uc *QueryUseCase) detectIntent(ctx context.Context, query string) (*detectedIntent, error) {
	lower := strings.ToLower(query)

	deals, err := uc.repo.Deal().List(ctx)
	if err != nil {
		return nil, err
	}
	people, err := uc.repo.Person().List(ctx)
	if err != nil {
		return nil, err
	}

	detected := &detectedIntent{}
	for _, deal := range deals {
		if company := strings.ToLower(deal.CompanyName); company != "" && strings.Contains(lower, company) {
			detected.deals = append(detected.deals, deal)
		}
	}
	for _, person := range people {
		name := strings.ToLower(person.Name)
		if name != "" && strings.Contains(lower, name) {
			detected.people = append(detected.people, person)
			continue
		}
		// last name alone still identifies a person
		if tokens := strings.Fields(name); len(tokens) >= 2 {
			if last := tokens[len(tokens)-1]; len(last) >= 4 && strings.Contains(lower, last) {
				detected.people = append(detected.people, person)
			}
		}
	}
	for _, keyword := range []string{"meddpicc", "economic buyer", "champion", "decision criteria", "decision process", "paper process", "identify pain"} {
		if strings.Contains(lower, keyword) {
			detected.meddpicc = true
			break
		}
	}

	for _, intent := range intentPriority {
		hit := false
		for _, keyword := range intentKeywords[intent] {
			if strings.Contains(lower, keyword) {
				hit = true
				break
			}
		}
		if intent == types.IntentPeopleIntel && !hit && len(detected.people) > 0 {
			hit = true
		}
		if intent == types.IntentDealStrategy && !hit && len(detected.deals) > 0 {
			hit = true
		}
		if hit {
			detected.intent = intent
			detected.confidence = 0.8
			if (intent == types.IntentDealStrategy && len(detected.deals) > 0) ||
				(intent == types.IntentPeopleIntel && len(detected.people) > 0) {
				detected.confidence = 0.9
			}
			return detected, nil
		}
	}

	detected.intent = types.IntentGeneral
	detected.confidence = 0.5
	return detected, nil
}

// promptSection is one labelled block of retrieved context
type promptSection struct {
	label string
	body  string
}

// queryContext is everything retrieval produced for one query
type queryContext struct {
	sections       []promptSection
	sources        []model.ContextSource
	sourceSeen     map[string]bool
	visualizations []model.Visualization
}

func (qc *queryContext) addSource(kind, id, label string) {
	if qc.sourceSeen == nil {
		qc.sourceSeen = map[string]bool{}
	}
	if qc.sourceSeen[id] || len(qc.sources) >= maxQuerySources {
		return
	}
	qc.sourceSeen[id] = true
	qc.sources = append(qc.sources, model.ContextSource{Type: kind, ID: id, Label: label})
}

func (qc *queryContext) addSection(label, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	qc.sections = append(qc.sections, promptSection{label: label, body: body})
}

// Ask answers a query synchronously. The history entry is written on
// every path, including failures.
func (uc *QueryUseCase) Ask(ctx context.Context, query string) (*QueryResponse, error) {
	started := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.Wrap(types.ErrInvalidInput, "query is empty")
	}

	detected, qc, prompt, err := uc.prepare(ctx, query)
	if err != nil {
		uc.recordFailure(ctx, query, err, started)
		return nil, err
	}

	response, err := uc.gateway.Generate(ctx, prompt, llm.WithMaxTokens(1536))
	if err != nil {
		uc.recordFailure(ctx, query, err, started)
		return nil, goerr.Wrap(err, "query synthesis failed")
	}

	latency := time.Since(started).Milliseconds()
	entry := uc.recordHistory(ctx, query, detected.intent, response, qc.sources, latency)

	result := &QueryResponse{
		Intent:         detected.intent,
		Confidence:     detected.confidence,
		Response:       response,
		Sources:        qc.sources,
		FollowUps:      followUps(detected),
		Visualizations: qc.visualizations,
		LatencyMS:      latency,
	}
	if entry != nil {
		result.HistoryID = entry.ID
	}
	return result, nil
}

// Stream answers a query with incremental events: one meta, then
// tokens, then done or error. The channel closes when the query ends;
// cancelling ctx aborts provider reads.
func (uc *QueryUseCase) Stream(ctx context.Context, query string) <-chan QueryEvent {
	events := make(chan QueryEvent, 16)
	started := time.Now()

	go func() {
		defer close(events)

		query := strings.TrimSpace(query)
		if query == "" {
			uc.recordFailure(ctx, query, types.ErrInvalidInput, started)
			events <- QueryEvent{Type: "error", Message: "query is empty"}
			return
		}

		detected, qc, prompt, err := uc.prepare(ctx, query)
		if err != nil {
			uc.recordFailure(ctx, query, err, started)
			events <- QueryEvent{Type: "error", Message: err.Error()}
			return
		}

		events <- QueryEvent{
			Type:           "meta",
			Intent:         detected.intent,
			Confidence:     detected.confidence,
			Sources:        qc.sources,
			FollowUps:      followUps(detected),
			Visualizations: qc.visualizations,
		}

		chunks, err := uc.gateway.Stream(ctx, prompt, llm.WithMaxTokens(1536))
		if err != nil {
			uc.recordFailure(ctx, query, err, started)
			events <- QueryEvent{Type: "error", Message: err.Error()}
			return
		}

		var response strings.Builder
		for chunk := range chunks {
			if chunk.Err != nil {
				uc.recordFailure(ctx, query, chunk.Err, started)
				events <- QueryEvent{Type: "error", Message: chunk.Err.Error()}
				return
			}
			if chunk.Text != "" {
				response.WriteString(chunk.Text)
				select {
				case events <- QueryEvent{Type: "token", Content: chunk.Text}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				break
			}
		}

		latency := time.Since(started).Milliseconds()
		entry := uc.recordHistory(ctx, query, detected.intent, response.String(), qc.sources, latency)
		done := QueryEvent{Type: "done", LatencyMS: latency}
		if entry != nil {
			done.HistoryID = entry.ID
		}
		events <- done
	}()

	return events
}

// prepare runs detection and retrieval and assembles the prompt
func (uc *QueryUseCase) prepare(ctx context.Context, query string) (*detectedIntent, *queryContext, string, error) {
	detected, err := uc.detectIntent(ctx, query)
	if err != nil {
		return nil, nil, "", err
	}
	qc, err := uc.retrieve(ctx, detected, query)
	if err != nil {
		return nil, nil, "", err
	}
	return detected, qc, buildQueryPrompt(query, detected, qc), nil
}

func (uc *QueryUseCase) retrieve(ctx context.Context, detected *detectedIntent, query string) (*queryContext, error) {
	qc := &queryContext{}

	switch detected.intent {
	case types.IntentDealStrategy:
		if err := uc.retrieveDeals(ctx, detected, qc); err != nil {
			return nil, err
		}
	case types.IntentKnowledge:
		if err := uc.retrieveSegmentsByType(ctx, qc, "Product knowledge",
			[]types.KnowledgeType{types.KnowledgeProduct, types.KnowledgeProcess}); err != nil {
			return nil, err
		}
	case types.IntentPeopleIntel:
		if err := uc.retrievePeople(ctx, detected, qc); err != nil {
			return nil, err
		}
	case types.IntentCoaching:
		if err := uc.retrieveCoaching(ctx, qc); err != nil {
			return nil, err
		}
	case types.IntentCompetitive:
		if err := uc.retrieveSegmentsByType(ctx, qc, "Competitive intel",
			[]types.KnowledgeType{types.KnowledgeCompetitive}); err != nil {
			return nil, err
		}
		for _, deal := range detected.deals {
			segments, err := uc.repo.Segment().Search(ctx, deal.CompanyName, 5)
			if err != nil {
				return nil, err
			}
			addSegments(qc, "Mentions of "+deal.CompanyName, segments)
		}
	case types.IntentObjection:
		tagged, err := uc.repo.Segment().ListByTag(ctx, "objection", 10)
		if err != nil {
			return nil, err
		}
		addSegments(qc, "Objections raised", tagged)
		if err := uc.retrieveSegmentsByType(ctx, qc, "Sales insights",
			[]types.KnowledgeType{types.KnowledgeSalesInsight}); err != nil {
			return nil, err
		}
	default:
		if err := uc.retrieveGeneral(ctx, qc); err != nil {
			return nil, err
		}
	}

	return qc, nil
}

func (uc *QueryUseCase) retrieveDeals(ctx context.Context, detected *detectedIntent, qc *queryContext) error {
	deals := detected.deals
	if len(deals) == 0 {
		all, err := uc.repo.Deal().List(ctx)
		if err != nil {
			return err
		}
		for _, deal := range all {
			if deal.Status == types.DealStatusActive {
				deals = append(deals, deal)
			}
			if len(deals) >= 5 {
				break
			}
		}
	}

	for _, deal := range deals {
		elements, err := uc.repo.Meddpicc().ListByDeal(ctx, deal.ID)
		if err != nil {
			return err
		}
		segments, err := uc.repo.Segment().ListByDeal(ctx, deal.ID, 8)
		if err != nil {
			return err
		}
		qc.addSource("deal", string(deal.ID), deal.CompanyName)
		qc.addSection("Deal: "+deal.CompanyName, dealContext(deal, elements, segments))
		for _, segment := range segments {
			qc.addSource("segment", string(segment.ID), segment.Summary)
		}
		if len(elements) > 0 {
			statuses := map[string]any{}
			for _, element := range elements {
				statuses[string(element.Letter)] = string(element.Status)
			}
			qc.visualizations = append(qc.visualizations, model.Visualization{
				Type:   "meddpicc_scorecard",
				Title:  deal.CompanyName,
				Data:   statuses,
				DealID: deal.ID,
			})
		}
	}
	return nil
}

func (uc *QueryUseCase) retrievePeople(ctx context.Context, detected *detectedIntent, qc *queryContext) error {
	people := detected.people
	if len(people) == 0 {
		all, err := uc.repo.Person().List(ctx)
		if err != nil {
			return err
		}
		if len(all) > 10 {
			all = all[:10]
		}
		people = all
	}

	for _, person := range people {
		segments, err := uc.repo.Segment().ListByPerson(ctx, person.ID, 8)
		if err != nil {
			return err
		}
		qc.addSource("person", string(person.ID), person.Name)
		qc.addSection("Person: "+person.Name, personContext(person, segments))
		for _, segment := range segments {
			qc.addSource("segment", string(segment.ID), segment.Summary)
		}
	}
	return nil
}

func (uc *QueryUseCase) retrieveCoaching(ctx context.Context, qc *queryContext) error {
	metrics, err := uc.repo.Metrics().List(ctx)
	if err != nil {
		return err
	}
	lines := []string{}
	for _, m := range metrics {
		lines = append(lines, describeCall(m))
		qc.addSource("metrics", string(m.SourceID), "call analysis")
	}
	qc.addSection("Analyzed calls", strings.Join(lines, "\n"))

	insights, err := uc.repo.Insight().List(ctx, interfaces.InsightFilter{
		Type:   types.InsightPattern,
		Status: types.InsightActive,
	})
	if err != nil {
		return err
	}
	patternLines := []string{}
	for i, insight := range insights {
		if i >= 8 {
			break
		}
		patternLines = append(patternLines, "- "+insight.Hypothesis)
		qc.addSource("insight", string(insight.ID), insight.Title)
	}
	qc.addSection("Known patterns", strings.Join(patternLines, "\n"))
	return nil
}

func (uc *QueryUseCase) retrieveSegmentsByType(ctx context.Context, qc *queryContext, label string, kinds []types.KnowledgeType) error {
	segments, err := uc.repo.Segment().ListByKnowledgeType(ctx, kinds, 10)
	if err != nil {
		return err
	}
	addSegments(qc, label, segments)
	return nil
}

func (uc *QueryUseCase) retrieveGeneral(ctx context.Context, qc *queryContext) error {
	deals, err := uc.repo.Deal().List(ctx)
	if err != nil {
		return err
	}
	people, err := uc.repo.Person().List(ctx)
	if err != nil {
		return err
	}
	prospects, err := uc.repo.Prospect().List(ctx, types.ProspectStatusActive)
	if err != nil {
		return err
	}
	sources, total, err := uc.repo.Source().List(ctx, 5, 0)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Corpus: %d transcripts, %d deals, %d people, %d active prospects\n",
		total, len(deals), len(people), len(prospects))
	b.WriteString("\nRecent calls:\n")
	for _, source := range sources {
		fmt.Fprintf(&b, "- %s: %s\n", source.Filename, source.Summary)
		qc.addSource("source", string(source.ID), source.Filename)
	}
	b.WriteString("\nDeals:\n")
	for i, deal := range deals {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s)\n", deal.CompanyName, deal.Status)
		qc.addSource("deal", string(deal.ID), deal.CompanyName)
	}
	qc.addSection("Overview", b.String())
	return nil
}

func addSegments(qc *queryContext, label string, segments []*model.Segment) {
	lines := []string{}
	for _, segment := range segments {
		content := segment.Content
		if len(content) > 400 {
			content = content[:400] + "..."
		}
		lines = append(lines, "- "+content)
		qc.addSource("segment", string(segment.ID), segment.Summary)
	}
	qc.addSection(label, strings.Join(lines, "\n"))
}

var intentGuidance = map[types.QueryIntent]string{
	types.IntentDealStrategy: "Give concrete, prioritized advice for advancing the deal. Reference the qualification gaps.",
	types.IntentKnowledge:    "Answer from the recorded knowledge only. Say so when the corpus does not cover something.",
	types.IntentPeopleIntel:  "Describe what is known about the people involved and how to work with them.",
	types.IntentCoaching:     "Give direct, specific coaching feedback grounded in the call metrics.",
	types.IntentCompetitive:  "Summarize the competitive landscape as recorded and suggest positioning.",
	types.IntentObjection:    "Suggest responses to the objections, using what worked in past calls.",
	types.IntentGeneral:      "Answer helpfully from the context. Be brief.",
}

func buildQueryPrompt(query string, detected *detectedIntent, qc *queryContext) string {
	var b strings.Builder
	b.WriteString("You are a sales intelligence assistant answering from the seller's own call corpus.\n\n")

	used := 0
	truncated := false
	for _, section := range qc.sections {
		block := "## " + section.label + "\n" + section.body + "\n\n"
		if used+len(block) > maxPromptChars {
			remaining := maxPromptChars - used
			if remaining > 80 {
				b.WriteString(block[:remaining])
			}
			truncated = true
			break
		}
		b.WriteString(block)
		used += len(block)
	}
	if truncated {
		b.WriteString(truncationMarker + "\n")
	}

	b.WriteString("\n" + intentGuidance[detected.intent] + "\n\nQuestion: " + query + "\n")
	return b.String()
}

// followUps proposes up to three next questions from the detected intent
func followUps(detected *detectedIntent) []string {
	suggestions := []string{}
	switch detected.intent {
	case types.IntentDealStrategy:
		for _, deal := range detected.deals {
			suggestions = append(suggestions, "What are the biggest qualification gaps for "+deal.CompanyName+"?")
			break
		}
		suggestions = append(suggestions,
			"Who should I talk to next to advance this?",
			"What risks should I watch on this deal?")
	case types.IntentPeopleIntel:
		suggestions = append(suggestions,
			"What should I bring up in my next conversation with them?",
			"How do they relate to my open deals?")
	case types.IntentCoaching:
		suggestions = append(suggestions,
			"What is my average talk ratio lately?",
			"Which habit should I fix first?")
	case types.IntentCompetitive:
		suggestions = append(suggestions,
			"How have I handled this competitor before?",
			"What objections come up when they are in the mix?")
	case types.IntentObjection:
		suggestions = append(suggestions,
			"What responses have worked for this objection?",
			"Which deals stalled on this objection?")
	default:
		suggestions = append(suggestions,
			"What needs my attention this week?",
			"Which deal is closest to closing?")
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

// recordHistory appends to the query log, logging rather than failing
// on a write error: answering beats bookkeeping.
func (uc *QueryUseCase) recordHistory(ctx context.Context, query string, intent types.QueryIntent, response string, sources []model.ContextSource, latency int64) *model.QueryHistoryEntry {
	entry, err := uc.repo.QueryHistory().Create(ctx, &model.QueryHistoryEntry{
		Query:     query,
		Intent:    intent,
		Response:  response,
		Sources:   sources,
		LatencyMS: latency,
	})
	if err != nil {
		logging.From(ctx).Warn("failed to record query history", "error", err)
		return nil
	}
	return entry
}

func (uc *QueryUseCase) recordFailure(ctx context.Context, query string, cause error, started time.Time) {
	uc.recordHistory(ctx, query, types.IntentError, cause.Error(), nil,
		time.Since(started).Milliseconds())
}

// History lists past queries, newest first
func (uc *QueryUseCase) History(ctx context.Context, limit, offset int) ([]*model.QueryHistoryEntry, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return uc.repo.QueryHistory().List(ctx, limit, offset)
}

// Feedback records the user's verdict on a past answer
func (uc *QueryUseCase) Feedback(ctx context.Context, id types.QueryID, feedback string) error {
	switch feedback {
	case "helpful", "not_helpful", "incorrect":
	default:
		return goerr.Wrap(types.ErrInvalidInput, "invalid feedback value",
			goerr.V("feedback", feedback))
	}
	return uc.repo.QueryHistory().UpdateFeedback(ctx, id, feedback)
}

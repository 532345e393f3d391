package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

// extractionPayload is the structured entity output of the extraction
// prompt, before resolution against existing records.
type extractionPayload struct {
	People    []extractedPerson  `json:"people"`
	Companies []extractedCompany `json:"companies"`
}

type extractedPerson struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Company      string `json:"company"`
	Relationship string `json:"relationship"`
	KeyInfo      string `json:"keyInfo"`
	ExistingID   string `json:"existingId"`
}

type extractedCompany struct {
	Name          string `json:"name"`
	IsDealContext bool   `json:"isDealContext"`
	ExistingID    string `json:"existingId"`
}

// dedup collapses duplicate extractions in place. Two people are the
// same when one name's tokens are a subset of the other's, or when they
// share a non-empty role and company. The richer record (more name
// tokens) survives and absorbs missing fields from the dropped one.
func (p *extractionPayload) dedup() {
	people := make([]extractedPerson, 0, len(p.People))
	for _, candidate := range p.People {
		if strings.TrimSpace(candidate.Name) == "" {
			continue
		}
		merged := false
		for i := range people {
			if !samePerson(people[i], candidate) {
				continue
			}
			if len(nameTokens(candidate.Name)) > len(nameTokens(people[i].Name)) {
				people[i] = absorbPerson(candidate, people[i])
			} else {
				people[i] = absorbPerson(people[i], candidate)
			}
			merged = true
			break
		}
		if !merged {
			people = append(people, candidate)
		}
	}
	p.People = people

	companies := make([]extractedCompany, 0, len(p.Companies))
	seen := map[string]int{}
	for _, candidate := range p.Companies {
		key := strings.ToLower(strings.TrimSpace(candidate.Name))
		if key == "" {
			continue
		}
		if i, ok := seen[key]; ok {
			if candidate.IsDealContext {
				companies[i].IsDealContext = true
			}
			if companies[i].ExistingID == "" {
				companies[i].ExistingID = candidate.ExistingID
			}
			continue
		}
		seen[key] = len(companies)
		companies = append(companies, candidate)
	}
	p.Companies = companies
}

func samePerson(a, b extractedPerson) bool {
	at, bt := nameTokens(a.Name), nameTokens(b.Name)
	if tokenSubset(at, bt) || tokenSubset(bt, at) {
		return true
	}
	if a.Role != "" && a.Company != "" &&
		strings.EqualFold(a.Role, b.Role) && strings.EqualFold(a.Company, b.Company) {
		return true
	}
	return false
}

// absorbPerson keeps the primary record, filling its empty fields from
// the secondary and concatenating distinct key-info fragments.
func absorbPerson(primary, secondary extractedPerson) extractedPerson {
	if primary.Role == "" {
		primary.Role = secondary.Role
	}
	if primary.Company == "" {
		primary.Company = secondary.Company
	}
	if primary.Relationship == "" {
		primary.Relationship = secondary.Relationship
	}
	if primary.ExistingID == "" {
		primary.ExistingID = secondary.ExistingID
	}
	if secondary.KeyInfo != "" && !strings.Contains(primary.KeyInfo, secondary.KeyInfo) {
		if primary.KeyInfo != "" {
			primary.KeyInfo += "; "
		}
		primary.KeyInfo += secondary.KeyInfo
	}
	return primary
}

func nameTokens(name string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(name)))
}

func tokenSubset(sub, super []string) bool {
	if len(sub) == 0 || len(sub) >= len(super) {
		return false
	}
	for _, t := range sub {
		found := false
		for _, s := range super {
			if t == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// entityLinker resolves extracted people and companies against stored
// records, merging non-destructively or creating new ones.
type entityLinker struct {
	repo interfaces.Repository
}

func newEntityLinker(repo interfaces.Repository) *entityLinker {
	return &entityLinker{repo: repo}
}

// linkResult carries the resolved entities of one processing run.
type linkResult struct {
	people []*model.Person
	deals  []*model.Deal
}

func (r *linkResult) PersonIDs() []types.PersonID {
	ids := make([]types.PersonID, 0, len(r.people))
	for _, p := range r.people {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r *linkResult) DealIDs() []types.DealID {
	ids := make([]types.DealID, 0, len(r.deals))
	for _, d := range r.deals {
		ids = append(ids, d.ID)
	}
	return ids
}

func (l *entityLinker) link(ctx context.Context, payload extractionPayload, segments []*model.Segment) (*linkResult, error) {
	existingPeople, err := l.repo.Person().List(ctx)
	if err != nil {
		return nil, err
	}
	existingDeals, err := l.repo.Deal().List(ctx)
	if err != nil {
		return nil, err
	}

	result := &linkResult{}

	for _, extracted := range payload.People {
		person, err := l.resolvePerson(ctx, extracted, existingPeople)
		if err != nil {
			return nil, err
		}
		existingPeople = append(existingPeople, person)
		result.people = append(result.people, person)
		l.joinPerson(ctx, person, extracted, segments)
	}

	for _, extracted := range payload.Companies {
		if !extracted.IsDealContext {
			continue
		}
		deal, err := l.resolveDeal(ctx, extracted, existingDeals)
		if err != nil {
			return nil, err
		}
		existingDeals = append(existingDeals, deal)
		result.deals = append(result.deals, deal)
		l.joinDeal(ctx, deal, segments)
	}

	return result, nil
}

func (l *entityLinker) resolvePerson(ctx context.Context, extracted extractedPerson, existing []*model.Person) (*model.Person, error) {
	if matched := matchPerson(extracted, existing); matched != nil {
		return l.mergePerson(ctx, matched, extracted)
	}

	relationship := types.Relationship(extracted.Relationship)
	if !relationship.IsValid() {
		relationship = types.RelationshipOther
	}
	created, err := l.repo.Person().Create(ctx, &model.Person{
		Name:         strings.TrimSpace(extracted.Name),
		Role:         extracted.Role,
		Company:      extracted.Company,
		Relationship: relationship,
		Notes:        extracted.KeyInfo,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create linked person",
			goerr.V("name", extracted.Name))
	}
	return created, nil
}

// matchPerson applies the resolution strategies in order, returning on
// the first hit.
func matchPerson(extracted extractedPerson, existing []*model.Person) *model.Person {
	if extracted.ExistingID != "" {
		for _, p := range existing {
			if string(p.ID) == extracted.ExistingID {
				return p
			}
		}
	}

	name := strings.ToLower(strings.TrimSpace(extracted.Name))
	for _, p := range existing {
		if strings.ToLower(p.Name) == name {
			return p
		}
	}

	tokens := nameTokens(extracted.Name)
	if len(tokens) >= 2 {
		for _, p := range existing {
			if tokenOverlap(tokens, nameTokens(p.Name)) >= 2 {
				return p
			}
		}
	}

	company := strings.ToLower(strings.TrimSpace(extracted.Company))
	if len(tokens) > 0 && company != "" {
		last := tokens[len(tokens)-1]
		for _, p := range existing {
			pt := nameTokens(p.Name)
			if len(pt) > 0 && pt[len(pt)-1] == last && strings.ToLower(p.Company) == company {
				return p
			}
		}
	}

	if len(tokens) >= 2 && company != "" {
		for _, p := range existing {
			pt := nameTokens(p.Name)
			if strings.ToLower(p.Company) != company {
				continue
			}
			if abbreviatedMatch(tokens, pt) || abbreviatedMatch(pt, tokens) {
				return p
			}
		}
	}

	if role := placeholderRole(extracted); role != "" && company != "" {
		for _, p := range existing {
			if strings.EqualFold(p.Role, role) && strings.ToLower(p.Company) == company {
				return p
			}
		}
	}

	return nil
}

func tokenOverlap(a, b []string) int {
	count := 0
	for _, t := range a {
		for _, s := range b {
			if t == s {
				count++
				break
			}
		}
	}
	return count
}

// abbreviatedMatch reports whether the short form abbreviates the full
// name: first names agree and the short form's last token is an initial
// of the full form's last token.
func abbreviatedMatch(short, full []string) bool {
	if len(short) < 2 || len(full) < 2 || short[0] != full[0] {
		return false
	}
	initial := strings.TrimSuffix(short[len(short)-1], ".")
	if len(initial) != 1 {
		return false
	}
	return strings.HasPrefix(full[len(full)-1], initial)
}

// placeholderRole detects extractions like "the CFO" where the name is
// really a role reference, returning the role to match on.
func placeholderRole(extracted extractedPerson) string {
	name := strings.ToLower(strings.TrimSpace(extracted.Name))
	if rest, ok := strings.CutPrefix(name, "the "); ok && rest != "" {
		return rest
	}
	if extracted.Role != "" && strings.EqualFold(name, extracted.Role) {
		return extracted.Role
	}
	return ""
}

// mergePerson fills missing fields from the extraction and appends new
// key info to notes. Existing non-empty data is never overwritten.
func (l *entityLinker) mergePerson(ctx context.Context, person *model.Person, extracted extractedPerson) (*model.Person, error) {
	changed := false
	if person.Role == "" && extracted.Role != "" {
		person.Role = extracted.Role
		changed = true
	}
	if person.Company == "" && extracted.Company != "" {
		person.Company = extracted.Company
		changed = true
	}
	if relationship := types.Relationship(extracted.Relationship); relationship.IsValid() &&
		(person.Relationship == "" || person.Relationship == types.RelationshipOther) &&
		relationship != types.RelationshipOther {
		person.Relationship = relationship
		changed = true
	}
	if extracted.KeyInfo != "" && !strings.Contains(person.Notes, extracted.KeyInfo) {
		if person.Notes != "" {
			person.Notes += "\n"
		}
		person.Notes += extracted.KeyInfo
		changed = true
	}

	if !changed {
		return person, nil
	}
	updated, err := l.repo.Person().Update(ctx, person)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to merge linked person",
			goerr.V("person_id", person.ID))
	}
	return updated, nil
}

func (l *entityLinker) resolveDeal(ctx context.Context, extracted extractedCompany, existing []*model.Deal) (*model.Deal, error) {
	if extracted.ExistingID != "" {
		for _, d := range existing {
			if string(d.ID) == extracted.ExistingID {
				return d, nil
			}
		}
	}
	company := strings.ToLower(strings.TrimSpace(extracted.Name))
	for _, d := range existing {
		if strings.ToLower(d.CompanyName) == company {
			return d, nil
		}
	}

	created, err := l.repo.Deal().Create(ctx, &model.Deal{
		CompanyName: strings.TrimSpace(extracted.Name),
		Status:      types.DealStatusActive,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create linked deal",
			goerr.V("company", extracted.Name))
	}
	return created, nil
}

// joinPerson records segment joins for every segment mentioning the
// person, or the first segment when no mention is found. Join failures
// are logged rather than aborting the run.
func (l *entityLinker) joinPerson(ctx context.Context, person *model.Person, extracted extractedPerson, segments []*model.Segment) {
	if len(segments) == 0 {
		return
	}
	targets := mentioningSegments(segments, person.Name)
	if len(targets) == 0 {
		targets = segments[:1]
	}
	for _, segment := range targets {
		link := &model.SegmentPersonLink{
			SegmentID: segment.ID,
			PersonID:  person.ID,
			Role:      extracted.Role,
		}
		if err := l.repo.Segment().LinkPerson(ctx, link); err != nil {
			logging.From(ctx).Warn("failed to link segment to person",
				"segment_id", segment.ID, "person_id", person.ID, "error", err)
		}
	}
}

func (l *entityLinker) joinDeal(ctx context.Context, deal *model.Deal, segments []*model.Segment) {
	if len(segments) == 0 {
		return
	}
	targets := mentioningSegments(segments, deal.CompanyName)
	if len(targets) == 0 {
		targets = segments[:1]
	}
	for _, segment := range targets {
		link := &model.SegmentDealLink{
			SegmentID: segment.ID,
			DealID:    deal.ID,
		}
		if err := l.repo.Segment().LinkDeal(ctx, link); err != nil {
			logging.From(ctx).Warn("failed to link segment to deal",
				"segment_id", segment.ID, "deal_id", deal.ID, "error", err)
		}
	}
}

// mentioningSegments finds segments whose content references the name,
// by full name or by any distinctive (4+ rune) token.
func mentioningSegments(segments []*model.Segment, name string) []*model.Segment {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	tokens := []string{}
	for _, t := range strings.Fields(name) {
		if len(t) >= 4 {
			tokens = append(tokens, t)
		}
	}

	matched := []*model.Segment{}
	for _, segment := range segments {
		content := strings.ToLower(segment.Content)
		if strings.Contains(content, name) {
			matched = append(matched, segment)
			continue
		}
		for _, t := range tokens {
			if strings.Contains(content, t) {
				matched = append(matched, segment)
				break
			}
		}
	}
	return matched
}

package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// defaultSignalWeight applies when a signal carries no weight and no
// calibrated weight exists for its type.
const defaultSignalWeight = 10

// recomputeConcurrency bounds the bulk rescore fan-out
const recomputeConcurrency = 4

// ProspectUseCase scores pre-deal opportunities and manages their
// lifecycle up to conversion into a deal.
type ProspectUseCase struct {
	repo   interfaces.Repository
	config Config
}

func NewProspectUseCase(repo interfaces.Repository, config Config) *ProspectUseCase {
	return &ProspectUseCase{repo: repo, config: config}
}

// CreateInput carries the firmographics of a new prospect
type CreateProspectInput struct {
	CompanyName   string
	Industry      string
	EmployeeCount int
	Location      string
	Website       string
	Notes         string
}

func (uc *ProspectUseCase) Create(ctx context.Context, input CreateProspectInput) (*model.Prospect, error) {
	if strings.TrimSpace(input.CompanyName) == "" {
		return nil, goerr.Wrap(types.ErrInvalidInput, "prospect company name is required")
	}
	return uc.repo.Prospect().Create(ctx, &model.Prospect{
		CompanyName:   strings.TrimSpace(input.CompanyName),
		Industry:      input.Industry,
		EmployeeCount: input.EmployeeCount,
		Location:      input.Location,
		Website:       input.Website,
		Tier:          types.Tier3,
		Status:        types.ProspectStatusActive,
		Notes:         input.Notes,
	})
}

func (uc *ProspectUseCase) Get(ctx context.Context, id types.ProspectID) (*model.Prospect, error) {
	return uc.repo.Prospect().Get(ctx, id)
}

func (uc *ProspectUseCase) List(ctx context.Context, status types.ProspectStatus) ([]*model.Prospect, error) {
	if status != "" && !status.IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid prospect status",
			goerr.V("status", status))
	}
	return uc.repo.Prospect().List(ctx, status)
}

func (uc *ProspectUseCase) Update(ctx context.Context, prospect *model.Prospect) (*model.Prospect, error) {
	return uc.repo.Prospect().Update(ctx, prospect)
}

func (uc *ProspectUseCase) Delete(ctx context.Context, id types.ProspectID) error {
	return uc.repo.Prospect().Delete(ctx, id)
}

// AddSignal attaches a signal and rescores the prospect
func (uc *ProspectUseCase) AddSignal(ctx context.Context, signal *model.ProspectSignal) (*model.ProspectSignal, error) {
	if strings.TrimSpace(signal.SignalType) == "" {
		return nil, goerr.Wrap(types.ErrInvalidInput, "signal type is required")
	}
	created, err := uc.repo.Prospect().AddSignal(ctx, signal)
	if err != nil {
		return nil, err
	}
	if _, err := uc.Score(ctx, signal.ProspectID); err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveSignal detaches a signal and rescores the prospect
func (uc *ProspectUseCase) RemoveSignal(ctx context.Context, prospectID types.ProspectID, signalID int64) error {
	if err := uc.repo.Prospect().RemoveSignal(ctx, prospectID, signalID); err != nil {
		return err
	}
	_, err := uc.Score(ctx, prospectID)
	return err
}

func (uc *ProspectUseCase) ListSignals(ctx context.Context, prospectID types.ProspectID) ([]*model.ProspectSignal, error) {
	return uc.repo.Prospect().ListSignals(ctx, prospectID)
}

// Score recomputes a prospect's score and tier from its signals and
// stores the result. The effective weight of a signal is the first
// defined of: calibrated learned weight for its type, the signal's own
// weight, the stock default.
func (uc *ProspectUseCase) Score(ctx context.Context, id types.ProspectID) (*model.ScoreResult, error) {
	prospect, err := uc.repo.Prospect().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	signals, err := uc.repo.Prospect().ListSignals(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &model.ScoreResult{
		ProspectID:   id,
		PreviousTier: prospect.Tier,
	}

	total := 0.0
	for _, signal := range signals {
		weight, source, err := uc.effectiveWeight(ctx, signal)
		if err != nil {
			return nil, err
		}
		total += weight
		result.Breakdown = append(result.Breakdown, model.ScoreBreakdown{
			SignalType:      signal.SignalType,
			Value:           signal.Value,
			EffectiveWeight: weight,
			WeightSource:    source,
		})
	}

	result.Score = clampScore(total)
	result.Tier = uc.tierFor(result.Score)

	prospect.Score = result.Score
	prospect.Tier = result.Tier
	if _, err := uc.repo.Prospect().Update(ctx, prospect); err != nil {
		return nil, goerr.Wrap(err, "failed to store prospect score",
			goerr.V("prospect_id", id))
	}

	return result, nil
}

func (uc *ProspectUseCase) effectiveWeight(ctx context.Context, signal *model.ProspectSignal) (float64, string, error) {
	calibrated, err := uc.repo.SignalWeight().Get(ctx, signal.SignalType)
	if err != nil {
		return 0, "", err
	}
	if calibrated != nil && calibrated.LearnedWeight != nil {
		return *calibrated.LearnedWeight, "learned", nil
	}
	if signal.Weight != 0 {
		return signal.Weight, "signal", nil
	}
	return defaultSignalWeight, "default", nil
}

func (uc *ProspectUseCase) tierFor(score float64) types.Tier {
	switch {
	case score >= uc.config.Tier1Threshold:
		return types.Tier1
	case score >= uc.config.Tier2Threshold:
		return types.Tier2
	default:
		return types.Tier3
	}
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RecomputeAll rescores every active prospect and returns the results
// of those that changed tier.
func (uc *ProspectUseCase) RecomputeAll(ctx context.Context) ([]*model.ScoreResult, error) {
	prospects, err := uc.repo.Prospect().List(ctx, types.ProspectStatusActive)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	changed := []*model.ScoreResult{}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(recomputeConcurrency)
	for _, prospect := range prospects {
		group.Go(func() error {
			result, err := uc.Score(ctx, prospect.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to rescore prospect",
					goerr.V("prospect_id", prospect.ID))
			}
			if result.TierChanged() {
				mu.Lock()
				changed = append(changed, result)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return changed, nil
}

// ConvertToDeal creates a deal from the prospect and flips its status
// to converted with a back-reference. The new deal starts with eight
// unknown qualification elements.
func (uc *ProspectUseCase) ConvertToDeal(ctx context.Context, id types.ProspectID) (*model.Deal, error) {
	prospect, err := uc.repo.Prospect().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if prospect.Status == types.ProspectStatusConverted {
		return nil, goerr.Wrap(types.ErrInvalidInput, "prospect already converted",
			goerr.V("prospect_id", id), goerr.V("deal_id", prospect.ConvertedDealID))
	}

	deal, err := uc.repo.Deal().Create(ctx, &model.Deal{
		CompanyName: prospect.CompanyName,
		Status:      types.DealStatusActive,
		Notes:       prospect.Notes,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create deal from prospect",
			goerr.V("prospect_id", id))
	}

	prospect.Status = types.ProspectStatusConverted
	prospect.ConvertedDealID = deal.ID
	if _, err := uc.repo.Prospect().Update(ctx, prospect); err != nil {
		return nil, goerr.Wrap(err, "failed to record prospect conversion",
			goerr.V("prospect_id", id))
	}

	return deal, nil
}

// Contacts

func (uc *ProspectUseCase) CreateContact(ctx context.Context, contact *model.ProspectContact) (*model.ProspectContact, error) {
	if strings.TrimSpace(contact.Name) == "" {
		return nil, goerr.Wrap(types.ErrInvalidInput, "contact name is required")
	}
	return uc.repo.Prospect().CreateContact(ctx, contact)
}

func (uc *ProspectUseCase) ListContacts(ctx context.Context, prospectID types.ProspectID) ([]*model.ProspectContact, error) {
	return uc.repo.Prospect().ListContacts(ctx, prospectID)
}

func (uc *ProspectUseCase) UpdateContact(ctx context.Context, contact *model.ProspectContact) (*model.ProspectContact, error) {
	return uc.repo.Prospect().UpdateContact(ctx, contact)
}

func (uc *ProspectUseCase) DeleteContact(ctx context.Context, id types.ContactID) error {
	return uc.repo.Prospect().DeleteContact(ctx, id)
}

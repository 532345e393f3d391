package usecase

import (
	"context"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

// OutreachUseCase manages the per-prospect activity log and the
// recommended cadence templates.
type OutreachUseCase struct {
	repo     interfaces.Repository
	cadences map[types.Tier]model.CadenceTemplate
}

func NewOutreachUseCase(repo interfaces.Repository, config Config) *OutreachUseCase {
	uc := &OutreachUseCase{
		repo:     repo,
		cadences: defaultCadences(),
	}
	if config.CadenceFile != "" {
		if err := uc.loadCadences(config.CadenceFile); err != nil {
			logging.Default().Warn("failed to load cadence file, using defaults",
				"path", config.CadenceFile, "error", err)
		}
	}
	return uc
}

// cadenceFile is the TOML shape of a cadence override file
type cadenceFile struct {
	Cadences []model.CadenceTemplate `toml:"cadences"`
}

func (uc *OutreachUseCase) loadCadences(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return goerr.Wrap(err, "failed to read cadence file")
	}
	var parsed cadenceFile
	if err := toml.Unmarshal(raw, &parsed); err != nil {
		return goerr.Wrap(err, "failed to parse cadence file")
	}
	for _, cadence := range parsed.Cadences {
		if !cadence.Tier.IsValid() || len(cadence.Steps) == 0 {
			return goerr.Wrap(types.ErrInvalidInput, "cadence needs a valid tier and at least one step",
				goerr.V("tier", cadence.Tier))
		}
		uc.cadences[cadence.Tier] = cadence
	}
	return nil
}

func defaultCadences() map[types.Tier]model.CadenceTemplate {
	return map[types.Tier]model.CadenceTemplate{
		types.Tier1: {
			Tier: types.Tier1,
			Name: "High priority",
			Steps: []model.CadenceStep{
				{Day: 0, Method: "email", Note: "personalized opener"},
				{Day: 1, Method: "linkedin", Note: "connect with note"},
				{Day: 3, Method: "call"},
				{Day: 5, Method: "email", Note: "value follow-up"},
				{Day: 8, Method: "call"},
				{Day: 12, Method: "email", Note: "breakup email"},
			},
		},
		types.Tier2: {
			Tier: types.Tier2,
			Name: "Standard",
			Steps: []model.CadenceStep{
				{Day: 0, Method: "email"},
				{Day: 4, Method: "linkedin"},
				{Day: 8, Method: "email", Note: "value follow-up"},
				{Day: 14, Method: "call"},
			},
		},
		types.Tier3: {
			Tier: types.Tier3,
			Name: "Light touch",
			Steps: []model.CadenceStep{
				{Day: 0, Method: "email"},
				{Day: 10, Method: "email", Note: "content share"},
				{Day: 30, Method: "email", Note: "check-in"},
			},
		},
	}
}

// Cadence returns the template for a tier
func (uc *OutreachUseCase) Cadence(tier types.Tier) (*model.CadenceTemplate, error) {
	if !tier.IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid tier", goerr.V("tier", tier))
	}
	cadence := uc.cadences[tier]
	return &cadence, nil
}

// Cadences returns all templates by tier
func (uc *OutreachUseCase) Cadences() []model.CadenceTemplate {
	return []model.CadenceTemplate{
		uc.cadences[types.Tier1],
		uc.cadences[types.Tier2],
		uc.cadences[types.Tier3],
	}
}

// Create records an outreach activity. The prospect must exist.
func (uc *OutreachUseCase) Create(ctx context.Context, entry *model.OutreachEntry) (*model.OutreachEntry, error) {
	if entry.Method == "" {
		return nil, goerr.Wrap(types.ErrInvalidInput, "outreach method is required")
	}
	if !entry.Outcome.Normalize().IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid outreach outcome",
			goerr.V("outcome", entry.Outcome))
	}
	if !entry.Direction.Normalize().IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid outreach direction",
			goerr.V("direction", entry.Direction))
	}
	if _, err := uc.repo.Prospect().Get(ctx, entry.ProspectID); err != nil {
		return nil, err
	}
	entry.Outcome = entry.Outcome.Normalize()
	entry.Direction = entry.Direction.Normalize()
	if entry.Date.IsZero() {
		entry.Date = time.Now()
	}
	return uc.repo.Outreach().Create(ctx, entry)
}

func (uc *OutreachUseCase) Get(ctx context.Context, id types.OutreachID) (*model.OutreachEntry, error) {
	return uc.repo.Outreach().Get(ctx, id)
}

func (uc *OutreachUseCase) List(ctx context.Context, filter interfaces.OutreachFilter) ([]*model.OutreachEntry, error) {
	return uc.repo.Outreach().List(ctx, filter)
}

func (uc *OutreachUseCase) Update(ctx context.Context, entry *model.OutreachEntry) (*model.OutreachEntry, error) {
	return uc.repo.Outreach().Update(ctx, entry)
}

func (uc *OutreachUseCase) Delete(ctx context.Context, id types.OutreachID) error {
	return uc.repo.Outreach().Delete(ctx, id)
}

// Due returns entries whose next followup falls on or before the end of
// today, oldest first.
func (uc *OutreachUseCase) Due(ctx context.Context) ([]*model.OutreachEntry, error) {
	return uc.filterByFollowup(ctx, func(followup time.Time) bool {
		return !followup.After(endOfToday())
	})
}

// Overdue returns entries whose next followup date has already passed
func (uc *OutreachUseCase) Overdue(ctx context.Context) ([]*model.OutreachEntry, error) {
	start := startOfToday()
	return uc.filterByFollowup(ctx, func(followup time.Time) bool {
		return followup.Before(start)
	})
}

// Today returns entries whose next followup is today
func (uc *OutreachUseCase) Today(ctx context.Context) ([]*model.OutreachEntry, error) {
	start, end := startOfToday(), endOfToday()
	return uc.filterByFollowup(ctx, func(followup time.Time) bool {
		return !followup.Before(start) && !followup.After(end)
	})
}

func (uc *OutreachUseCase) filterByFollowup(ctx context.Context, keep func(time.Time) bool) ([]*model.OutreachEntry, error) {
	entries, err := uc.repo.Outreach().List(ctx, interfaces.OutreachFilter{})
	if err != nil {
		return nil, err
	}
	matched := []*model.OutreachEntry{}
	for _, entry := range entries {
		if entry.NextFollowup != nil && keep(*entry.NextFollowup) {
			matched = append(matched, entry)
		}
	}
	// newest-first listing; followup views read better oldest first
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	return matched, nil
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func endOfToday() time.Time {
	return startOfToday().Add(24*time.Hour - time.Nanosecond)
}

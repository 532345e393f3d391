package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

func runProspectRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create defaults tier and status", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		prospect, err := repo.Prospect().Create(ctx, &model.Prospect{CompanyName: "Initech"})
		gt.NoError(t, err).Required()
		gt.Value(t, prospect.Tier).Equal(types.Tier3)
		gt.Value(t, prospect.Status).Equal(types.ProspectStatusActive)
	})

	t.Run("List filters by status", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Prospect().Create(ctx, &model.Prospect{CompanyName: "Active Co"})
		gt.NoError(t, err).Required()
		converted, err := repo.Prospect().Create(ctx, &model.Prospect{
			CompanyName: "Converted Co",
			Status:      types.ProspectStatusConverted,
		})
		gt.NoError(t, err).Required()

		active, err := repo.Prospect().List(ctx, types.ProspectStatusActive)
		gt.NoError(t, err).Required()
		gt.Array(t, active).Length(1)
		gt.Value(t, active[0].CompanyName).Equal("Active Co")

		all, err := repo.Prospect().List(ctx, "")
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(2)

		got, err := repo.Prospect().Get(ctx, converted.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ProspectStatusConverted)
	})

	t.Run("signals get sequential ids and can be removed", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		prospect, err := repo.Prospect().Create(ctx, &model.Prospect{CompanyName: "Globex"})
		gt.NoError(t, err).Required()

		first, err := repo.Prospect().AddSignal(ctx, &model.ProspectSignal{
			ProspectID: prospect.ID,
			SignalType: "hiring_sales",
			Weight:     25,
		})
		gt.NoError(t, err).Required()
		gt.Number(t, first.ID).Greater(0)

		second, err := repo.Prospect().AddSignal(ctx, &model.ProspectSignal{
			ProspectID: prospect.ID,
			SignalType: "funding_round",
		})
		gt.NoError(t, err).Required()
		gt.Number(t, second.ID).Greater(first.ID)

		signals, err := repo.Prospect().ListSignals(ctx, prospect.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, signals).Length(2)

		gt.NoError(t, repo.Prospect().RemoveSignal(ctx, prospect.ID, first.ID))
		remaining, err := repo.Prospect().ListSignals(ctx, prospect.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, remaining).Length(1)
		gt.Value(t, remaining[0].SignalType).Equal("funding_round")

		err = repo.Prospect().RemoveSignal(ctx, prospect.ID, first.ID)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("signal for unknown prospect is rejected", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Prospect().AddSignal(context.Background(), &model.ProspectSignal{
			ProspectID: types.NewProspectID(),
			SignalType: "hiring_sales",
		})
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("contacts round-trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		prospect, err := repo.Prospect().Create(ctx, &model.Prospect{CompanyName: "Hooli"})
		gt.NoError(t, err).Required()

		contact, err := repo.Prospect().CreateContact(ctx, &model.ProspectContact{
			ProspectID: prospect.ID,
			Name:       "Tom Park",
			Role:       "VP Engineering",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, string(contact.ID)).NotEqual("")

		contact.Email = "tom@hooli.example"
		updated, err := repo.Prospect().UpdateContact(ctx, contact)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Email).Equal("tom@hooli.example")

		contacts, err := repo.Prospect().ListContacts(ctx, prospect.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, contacts).Length(1)

		gt.NoError(t, repo.Prospect().DeleteContact(ctx, contact.ID))
		contacts, err = repo.Prospect().ListContacts(ctx, prospect.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, contacts).Length(0)
	})

	t.Run("Delete cascades to signals and contacts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		prospect, err := repo.Prospect().Create(ctx, &model.Prospect{CompanyName: "Umbrella"})
		gt.NoError(t, err).Required()

		_, err = repo.Prospect().AddSignal(ctx, &model.ProspectSignal{
			ProspectID: prospect.ID,
			SignalType: "tech_stack_fit",
		})
		gt.NoError(t, err).Required()
		_, err = repo.Prospect().CreateContact(ctx, &model.ProspectContact{
			ProspectID: prospect.ID,
			Name:       "Ada Wong",
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Prospect().Delete(ctx, prospect.ID))

		_, err = repo.Prospect().Get(ctx, prospect.ID)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()

		signals, err := repo.Prospect().ListSignals(ctx, prospect.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, signals).Length(0)

		contacts, err := repo.Prospect().ListContacts(ctx, prospect.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, contacts).Length(0)
	})
}

func TestProspectRepository_Memory(t *testing.T) {
	runProspectRepositoryTest(t, newMemoryRepository)
}

func TestProspectRepository_SQLite(t *testing.T) {
	runProspectRepositoryTest(t, newSQLiteRepository)
}

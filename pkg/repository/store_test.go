package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/memory"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/sqlite"
)

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newSQLiteRepository(t *testing.T) interfaces.Repository {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "dealbrain.db"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, store.Close())
	})
	return store
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dealbrain.db")

	store, err := sqlite.Open(path)
	gt.NoError(t, err).Required()

	deal, err := store.Deal().Create(ctx, &model.Deal{CompanyName: "Globex"})
	gt.NoError(t, err).Required()
	gt.NoError(t, store.Close())

	// migrations are versioned; a second Open must not re-apply them
	reopened, err := sqlite.Open(path)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, reopened.Close())
	})

	got, err := reopened.Deal().Get(ctx, deal.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.CompanyName).Equal("Globex")

	elements, err := reopened.Meddpicc().ListByDeal(ctx, deal.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, elements).Length(8)
}

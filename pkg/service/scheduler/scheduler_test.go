package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/memory"
	"github.com/dealbrain-lab/dealbrain/pkg/service/scheduler"
)

type mockAnalyzer struct {
	icpRuns     atomic.Int64
	patternRuns atomic.Int64
	block       chan struct{}
}

func (m *mockAnalyzer) RefreshICP(ctx context.Context) error {
	if m.block != nil {
		<-m.block
	}
	m.icpRuns.Add(1)
	return nil
}

func (m *mockAnalyzer) RefreshPatterns(ctx context.Context) error {
	if m.block != nil {
		<-m.block
	}
	m.patternRuns.Add(1)
	return nil
}

func TestRunBusy(t *testing.T) {
	repo := memory.New()
	analyzer := &mockAnalyzer{block: make(chan struct{})}
	s := scheduler.New(repo, analyzer)

	done := make(chan error, 1)
	go func() {
		done <- s.RunICP(context.Background())
	}()

	// wait for the first run to take the flag
	gt.Bool(t, eventually(func() bool { return s.Busy() }, time.Second)).True()

	err := s.RunPatterns(context.Background())
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrBusy)).True()

	close(analyzer.block)
	gt.NoError(t, <-done)
	gt.Value(t, analyzer.icpRuns.Load()).Equal(int64(1))
	gt.Value(t, analyzer.patternRuns.Load()).Equal(int64(0))
}

func TestOnTranscriptProcessed(t *testing.T) {
	repo := memory.New()
	analyzer := &mockAnalyzer{}
	s := scheduler.New(repo, analyzer)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		s.OnTranscriptProcessed(ctx)
	}
	gt.Value(t, analyzer.patternRuns.Load()).Equal(int64(0))

	s.OnTranscriptProcessed(ctx)
	gt.Bool(t, eventually(func() bool {
		return analyzer.patternRuns.Load() == 1
	}, time.Second)).True()
}

func TestOnOutcomeRecorded(t *testing.T) {
	repo := memory.New()
	analyzer := &mockAnalyzer{}
	s := scheduler.New(repo, analyzer)

	ctx := context.Background()

	record := func() {
		_, err := repo.Outcome().Create(ctx, &model.Outcome{
			EntityType:  types.EntityDeal,
			EntityID:    "deal-1",
			OutcomeType: "deal_won",
		})
		gt.NoError(t, err)
		s.OnOutcomeRecorded(ctx)
	}

	record()
	record()
	gt.Value(t, analyzer.icpRuns.Load()).Equal(int64(0))

	record()
	gt.Bool(t, eventually(func() bool {
		return analyzer.icpRuns.Load() == 1
	}, time.Second)).True()
}

func TestPeriodicCheckRefreshesMissingInsights(t *testing.T) {
	repo := memory.New()
	analyzer := &mockAnalyzer{}
	s := scheduler.New(repo, analyzer,
		scheduler.WithBootDelay(10*time.Millisecond),
		scheduler.WithTickInterval(time.Hour))

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	// no insights stored yet, so the boot check refreshes both
	gt.Bool(t, eventually(func() bool {
		return analyzer.icpRuns.Load() >= 1 && analyzer.patternRuns.Load() >= 1
	}, time.Second)).True()
}

func eventually(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

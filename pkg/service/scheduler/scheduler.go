package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/async"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

// Analyzer runs the learning analyses. Implemented by the learning
// use case; the scheduler only decides when to run.
type Analyzer interface {
	RefreshICP(ctx context.Context) error
	RefreshPatterns(ctx context.Context) error
}

const (
	defaultTickInterval  = 30 * time.Minute
	defaultBootDelay     = 60 * time.Second
	defaultICPMaxAge     = 7 * 24 * time.Hour
	defaultPatternMaxAge = 3 * 24 * time.Hour

	outcomesPerICPRun        = 3
	transcriptsPerPatternRun = 5
)

// Scheduler decides when learning analyses run. One analysis at a
// time; concurrent triggers get ErrBusy. Event triggers are
// fire-and-forget and swallow errors.
type Scheduler struct {
	repo     interfaces.Repository
	analyzer Analyzer

	tick          time.Duration
	bootDelay     time.Duration
	icpMaxAge     time.Duration
	patternMaxAge time.Duration

	busy           atomic.Bool
	processedCount atomic.Int64
	lastICPRun     atomic.Int64
	lastPatternRun atomic.Int64

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option customizes the scheduler
type Option func(*Scheduler)

// WithTickInterval overrides the periodic check interval
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithBootDelay overrides the delay before the first check
func WithBootDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.bootDelay = d
		}
	}
}

// WithMaxAges overrides how old ICP and pattern insights may get
// before a periodic check refreshes them
func WithMaxAges(icp, pattern time.Duration) Option {
	return func(s *Scheduler) {
		if icp > 0 {
			s.icpMaxAge = icp
		}
		if pattern > 0 {
			s.patternMaxAge = pattern
		}
	}
}

// New creates a scheduler
func New(repo interfaces.Repository, analyzer Analyzer, opts ...Option) *Scheduler {
	s := &Scheduler{
		repo:          repo,
		analyzer:      analyzer,
		tick:          defaultTickInterval,
		bootDelay:     defaultBootDelay,
		icpMaxAge:     defaultICPMaxAge,
		patternMaxAge: defaultPatternMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the periodic check loop. The first check runs after the
// boot delay so startup ingestion settles first.
func (s *Scheduler) Start(ctx context.Context) {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(ctx)

	logging.From(ctx).Info("learning scheduler started",
		"tick", s.tick.String(), "boot_delay", s.bootDelay.String())
}

// Stop halts the loop and waits for it to exit
func (s *Scheduler) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.stopCh = nil
}

// Busy reports whether an analysis is in flight
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	boot := time.NewTimer(s.bootDelay)
	defer boot.Stop()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-boot.C:
			s.check(ctx)
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check refreshes whichever insights have gone stale
func (s *Scheduler) check(ctx context.Context) {
	logger := logging.From(ctx)

	if stale, err := s.insightStale(ctx, types.InsightICP, s.icpMaxAge); err != nil {
		logger.Error("failed to check icp staleness", "error", err)
	} else if stale {
		s.dispatchICP(ctx)
	}

	if stale, err := s.insightStale(ctx, types.InsightPattern, s.patternMaxAge); err != nil {
		logger.Error("failed to check pattern staleness", "error", err)
	} else if stale {
		s.dispatchPatterns(ctx)
	}
}

func (s *Scheduler) insightStale(ctx context.Context, t types.InsightType, maxAge time.Duration) (bool, error) {
	insight, err := s.repo.Insight().GetActiveByType(ctx, t)
	if err != nil {
		return false, err
	}
	if insight == nil {
		return true, nil
	}
	return time.Since(insight.UpdatedAt) > maxAge, nil
}

// OnOutcomeRecorded is called after every recorded outcome. Three or
// more outcomes since the last ICP refresh trigger a new one.
func (s *Scheduler) OnOutcomeRecorded(ctx context.Context) {
	insight, err := s.repo.Insight().GetActiveByType(ctx, types.InsightICP)
	if err != nil {
		logging.From(ctx).Error("failed to load active icp insight", "error", err)
		return
	}

	since := time.Time{}
	if insight != nil {
		since = insight.UpdatedAt
	}

	count, err := s.repo.Outcome().CountSince(ctx, since)
	if err != nil {
		logging.From(ctx).Error("failed to count outcomes", "error", err)
		return
	}

	if count >= outcomesPerICPRun {
		s.dispatchICP(ctx)
	}
}

// OnTranscriptProcessed is called after every processed transcript.
// Every fifth one triggers a pattern refresh.
func (s *Scheduler) OnTranscriptProcessed(ctx context.Context) {
	n := s.processedCount.Add(1)
	if n%transcriptsPerPatternRun == 0 {
		s.dispatchPatterns(ctx)
	}
}

// RunICP runs the ICP analysis synchronously. Used by manual triggers.
func (s *Scheduler) RunICP(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return goerr.Wrap(types.ErrBusy, "analysis already in progress")
	}
	defer s.busy.Store(false)

	if err := s.analyzer.RefreshICP(ctx); err != nil {
		return err
	}
	s.lastICPRun.Store(time.Now().Unix())
	return nil
}

// RunPatterns runs the pattern analysis synchronously
func (s *Scheduler) RunPatterns(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return goerr.Wrap(types.ErrBusy, "analysis already in progress")
	}
	defer s.busy.Store(false)

	if err := s.analyzer.RefreshPatterns(ctx); err != nil {
		return err
	}
	s.lastPatternRun.Store(time.Now().Unix())
	return nil
}

func (s *Scheduler) dispatchICP(ctx context.Context) {
	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := s.RunICP(ctx); err != nil {
			// busy just means another run got there first
			if errors.Is(err, types.ErrBusy) {
				logging.From(ctx).Debug("skipping icp run, analysis in progress")
				return nil
			}
			return err
		}
		return nil
	})
}

func (s *Scheduler) dispatchPatterns(ctx context.Context) {
	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := s.RunPatterns(ctx); err != nil {
			if errors.Is(err, types.ErrBusy) {
				logging.From(ctx).Debug("skipping pattern run, analysis in progress")
				return nil
			}
			return err
		}
		return nil
	})
}

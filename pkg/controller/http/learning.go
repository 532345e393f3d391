package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
)

// handleLearningTrigger starts an analysis. With a scheduler attached
// the run is serialized against scheduled analyses; a concurrent run
// answers 409.
func (s *Server) handleLearningTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	analysis := chi.URLParam(r, "analysis")

	var err error
	switch analysis {
	case "icp":
		err = s.runICP(ctx)
	case "patterns":
		err = s.runPatterns(ctx)
	case "signals":
		_, err = s.uc.Learning.CalibrateSignals(ctx)
	case "all":
		if err = s.runICP(ctx); err == nil {
			if err = s.runPatterns(ctx); err == nil {
				_, err = s.uc.Learning.CalibrateSignals(ctx)
			}
		}
	default:
		err = goerr.Wrap(types.ErrInvalidInput, "unknown analysis",
			goerr.V("analysis", analysis))
	}
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"analysis": analysis, "status": "completed"})
}

func (s *Server) runICP(ctx context.Context) error {
	if s.scheduler != nil {
		return s.scheduler.RunICP(ctx)
	}
	return s.uc.Learning.RefreshICP(ctx)
}

func (s *Server) runPatterns(ctx context.Context) error {
	if s.scheduler != nil {
		return s.scheduler.RunPatterns(ctx)
	}
	return s.uc.Learning.RefreshPatterns(ctx)
}

func (s *Server) handleLearningStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]any{"schedulerRunning": s.scheduler != nil}
	if s.scheduler != nil {
		status["analysisInProgress"] = s.scheduler.Busy()
	}

	for _, insightType := range []types.InsightType{types.InsightICP, types.InsightPattern} {
		insight, err := s.uc.Repository().Insight().GetActiveByType(ctx, insightType)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err)
			return
		}
		if insight != nil {
			status["last_"+string(insightType)] = insight.UpdatedAt
		}
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleQuickPatterns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := s.uc.Learning.QuickPatternSummary(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

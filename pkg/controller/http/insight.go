package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
)

func (s *Server) handleInsightList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := interfaces.InsightFilter{
		Type:     types.InsightType(query.Get("type")),
		Category: query.Get("category"),
		Status:   types.InsightStatus(query.Get("status")),
	}
	if raw := query.Get("minConfidence"); raw != "" {
		if min, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinConfidence = min
		}
	}

	insights, err := s.uc.Insight.List(ctx, filter)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (s *Server) handleInsightICP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	insight, err := s.uc.Insight.CurrentICP(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	if insight == nil {
		respondJSON(w, http.StatusOK, map[string]any{"insight": nil})
		return
	}
	respondJSON(w, http.StatusOK, insight)
}

func (s *Server) handleInsightPatterns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	insights, err := s.uc.Insight.Patterns(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (s *Server) handleInsightCoaching(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	insights, err := s.uc.Insight.Coaching(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (s *Server) handleInsightSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := s.uc.Insight.Summary(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type insightFeedbackRequest struct {
	Feedback types.InsightFeedback `json:"feedback"`
}

func (s *Server) handleInsightFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req insightFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	insight, err := s.uc.Insight.Feedback(ctx, types.InsightID(chi.URLParam(r, "id")), req.Feedback)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, insight)
}

func (s *Server) handleInsightDismiss(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	insight, err := s.uc.Insight.Dismiss(ctx, types.InsightID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, insight)
}

func (s *Server) handleInsightHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshots, err := s.uc.Insight.History(ctx, types.InsightID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshots)
}

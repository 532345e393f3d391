package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
)

func (s *Server) handleMeddpiccGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	elements, err := s.uc.Meddpicc.Get(ctx, types.DealID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, elements)
}

type meddpiccUpdateRequest struct {
	Status     types.ElementStatus `json:"status"`
	Evidence   string              `json:"evidence"`
	Confidence float64             `json:"confidence"`
}

func (s *Server) handleMeddpiccUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req meddpiccUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	dealID := types.DealID(chi.URLParam(r, "id"))
	element, err := s.uc.Meddpicc.Update(ctx, dealID, chi.URLParam(r, "letter"), usecase.UpdateInput{
		Status:     req.Status,
		Evidence:   req.Evidence,
		Confidence: req.Confidence,
	})
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	s.uc.Section.MarkEntityStale(ctx, types.EntityDeal, string(dealID))
	respondJSON(w, http.StatusOK, element)
}

func (s *Server) handleMeddpiccSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := s.uc.Meddpicc.Summary(ctx, types.DealID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGapAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	analysis, err := s.uc.Meddpicc.GapAnalysis(ctx, types.DealID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

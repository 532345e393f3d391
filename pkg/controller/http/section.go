package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
)

func (s *Server) handleSectionList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityType := types.EntityType(chi.URLParam(r, "entityType"))

	sections, err := s.uc.Section.ListForEntity(ctx, entityType, chi.URLParam(r, "entityID"))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sections": sections})
}

func (s *Server) handleSectionGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	force := r.URL.Query().Get("force") == "true"

	result, err := s.uc.Section.Get(ctx,
		types.EntityType(chi.URLParam(r, "entityType")),
		chi.URLParam(r, "entityID"),
		types.SectionType(chi.URLParam(r, "sectionType")),
		force)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSectionRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.uc.Section.Regenerate(ctx,
		types.EntityType(chi.URLParam(r, "entityType")),
		chi.URLParam(r, "entityID"),
		types.SectionType(chi.URLParam(r, "sectionType")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

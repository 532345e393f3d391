package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

func (s *Server) handleOutcomeCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var outcome model.Outcome
	if err := decodeJSON(r, &outcome); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	created, err := s.uc.Learning.RecordOutcome(ctx, &outcome)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleExportPipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filename := fmt.Sprintf("pipeline-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.uc.Export.PipelineReport(ctx, w); err != nil {
		// Headers are already out; the best we can do is log.
		logging.From(ctx).Error("pipeline export failed", "error", err)
	}
}

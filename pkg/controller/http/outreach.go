package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
)

func (s *Server) handleOutreachList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := interfaces.OutreachFilter{
		ProspectID: types.ProspectID(query.Get("prospect")),
		Method:     query.Get("method"),
		Outcome:    types.OutreachOutcome(query.Get("outcome")),
	}
	if raw := query.Get("from"); raw != "" {
		if from, err := time.Parse("2006-01-02", raw); err == nil {
			filter.From = from
		}
	}
	if raw := query.Get("to"); raw != "" {
		if to, err := time.Parse("2006-01-02", raw); err == nil {
			filter.To = to
		}
	}

	entries, err := s.uc.Outreach.List(ctx, filter)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleOutreachCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var entry model.OutreachEntry
	if err := decodeJSON(r, &entry); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	created, err := s.uc.Outreach.Create(ctx, &entry)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleOutreachGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := s.uc.Outreach.Get(ctx, types.OutreachID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleOutreachUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var entry model.OutreachEntry
	if err := decodeJSON(r, &entry); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	entry.ID = types.OutreachID(chi.URLParam(r, "id"))
	updated, err := s.uc.Outreach.Update(ctx, &entry)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleOutreachDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.uc.Outreach.Delete(ctx, types.OutreachID(chi.URLParam(r, "id"))); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOutreachDue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.uc.Outreach.Due(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleOutreachOverdue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.uc.Outreach.Overdue(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleOutreachToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.uc.Outreach.Today(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCadences(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.uc.Outreach.Cadences())
}

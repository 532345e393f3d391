package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
)

// Prospects

func (s *Server) handleProspectList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := types.ProspectStatus(r.URL.Query().Get("status"))
	prospects, err := s.uc.Prospect.List(ctx, status)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, prospects)
}

func (s *Server) handleProspectCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var input usecase.CreateProspectInput
	if err := decodeJSON(r, &input); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	prospect, err := s.uc.Prospect.Create(ctx, input)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, prospect)
}

func (s *Server) handleProspectGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prospect, err := s.uc.Prospect.Get(ctx, types.ProspectID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, prospect)
}

func (s *Server) handleProspectUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var prospect model.Prospect
	if err := decodeJSON(r, &prospect); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	prospect.ID = types.ProspectID(chi.URLParam(r, "id"))
	updated, err := s.uc.Prospect.Update(ctx, &prospect)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleProspectDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.uc.Prospect.Delete(ctx, types.ProspectID(chi.URLParam(r, "id"))); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSignalAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var signal model.ProspectSignal
	if err := decodeJSON(r, &signal); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	signal.ProspectID = types.ProspectID(chi.URLParam(r, "id"))
	created, err := s.uc.Prospect.AddSignal(ctx, &signal)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleSignalList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	signals, err := s.uc.Prospect.ListSignals(ctx, types.ProspectID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, signals)
}

func (s *Server) handleSignalRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	signalID, err := strconv.ParseInt(chi.URLParam(r, "signalID"), 10, 64)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(types.ErrInvalidInput, "invalid signal id"))
		return
	}
	if err := s.uc.Prospect.RemoveSignal(ctx, types.ProspectID(chi.URLParam(r, "id")), signalID); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProspectScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := s.uc.Prospect.Score(ctx, types.ProspectID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleProspectRecompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	changed, err := s.uc.Prospect.RecomputeAll(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tierChanges": changed})
}

func (s *Server) handleProspectConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deal, err := s.uc.Prospect.ConvertToDeal(ctx, types.ProspectID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, deal)
}

func (s *Server) handleContactList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contacts, err := s.uc.Prospect.ListContacts(ctx, types.ProspectID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

func (s *Server) handleContactCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var contact model.ProspectContact
	if err := decodeJSON(r, &contact); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	contact.ProspectID = types.ProspectID(chi.URLParam(r, "id"))
	created, err := s.uc.Prospect.CreateContact(ctx, &contact)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleContactUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var contact model.ProspectContact
	if err := decodeJSON(r, &contact); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	contact.ID = types.ContactID(chi.URLParam(r, "contactID"))
	contact.ProspectID = types.ProspectID(chi.URLParam(r, "id"))
	updated, err := s.uc.Prospect.UpdateContact(ctx, &contact)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleContactDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.uc.Prospect.DeleteContact(ctx, types.ContactID(chi.URLParam(r, "contactID"))); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deals

func (s *Server) handleDealList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deals, err := s.uc.Repository().Deal().List(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, deals)
}

func (s *Server) handleDealCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var deal model.Deal
	if err := decodeJSON(r, &deal); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	if deal.CompanyName == "" {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(types.ErrInvalidInput, "deal company name is required"))
		return
	}
	deal.Status = deal.Status.Normalize()
	created, err := s.uc.Repository().Deal().Create(ctx, &deal)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDealGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deal, err := s.uc.Repository().Deal().Get(ctx, types.DealID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, deal)
}

func (s *Server) handleDealUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var deal model.Deal
	if err := decodeJSON(r, &deal); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	deal.ID = types.DealID(chi.URLParam(r, "id"))
	updated, err := s.uc.Repository().Deal().Update(ctx, &deal)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	s.uc.Section.MarkEntityStale(ctx, types.EntityDeal, string(updated.ID))
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDealDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.uc.Repository().Deal().Delete(ctx, types.DealID(chi.URLParam(r, "id"))); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// People

func (s *Server) handlePersonList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	people, err := s.uc.Repository().Person().List(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, people)
}

func (s *Server) handlePersonCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var person model.Person
	if err := decodeJSON(r, &person); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	if person.Name == "" {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(types.ErrInvalidInput, "person name is required"))
		return
	}
	if person.Relationship == "" {
		person.Relationship = types.RelationshipOther
	}
	created, err := s.uc.Repository().Person().Create(ctx, &person)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePersonGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	person, err := s.uc.Repository().Person().Get(ctx, types.PersonID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, person)
}

func (s *Server) handlePersonUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var person model.Person
	if err := decodeJSON(r, &person); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	person.ID = types.PersonID(chi.URLParam(r, "id"))
	updated, err := s.uc.Repository().Person().Update(ctx, &person)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	s.uc.Section.MarkEntityStale(ctx, types.EntityPerson, string(updated.ID))
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePersonDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.uc.Repository().Person().Delete(ctx, types.PersonID(chi.URLParam(r, "id"))); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

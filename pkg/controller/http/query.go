package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
)

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	response, err := s.uc.Query.Ask(ctx, req.Query)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, response)
}

// handleQueryStream serves the query as server-sent events. Each event
// is one JSON envelope: meta, then tokens, then done or error. The
// stream ends with the error event rather than a dropped connection.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		errutil.HandleHTTP(ctx, w, goerr.New("streaming unsupported by connection"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range s.uc.Query.Stream(ctx, req.Query) {
		payload, err := json.Marshal(event)
		if err != nil {
			return
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if _, err := w.Write(payload); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleQueryHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	entries, total, err := s.uc.Query.History(ctx, limit, offset)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": entries, "total": total})
}

type queryFeedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (s *Server) handleQueryFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req queryFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	if err := s.uc.Query.Feedback(ctx, types.QueryID(chi.URLParam(r, "id")), req.Feedback); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

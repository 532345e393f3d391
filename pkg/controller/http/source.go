package http

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
)

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (s *Server) handleSourceList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	sources, total, err := s.uc.Source.List(ctx, limit, offset)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": sources, "total": total})
}

func (s *Server) handleSourceGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source, err := s.uc.Source.Get(ctx, types.SourceID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, source)
}

func (s *Server) handleSourceSegments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	segments, err := s.uc.Source.Segments(ctx, types.SourceID(chi.URLParam(r, "id")))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, segments)
}

func (s *Server) handleSourceReprocess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var opts usecase.ProcessOptions
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &opts); err != nil {
			errutil.HandleHTTP(ctx, w, err)
			return
		}
	}

	result, err := s.uc.Source.Reprocess(ctx, types.SourceID(chi.URLParam(r, "id")), opts)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSourceDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.uc.Source.Delete(ctx, types.SourceID(chi.URLParam(r, "id"))); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSourceUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(types.ErrInvalidInput, "upload too large or malformed",
			goerr.V("cause", err.Error())))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(types.ErrInvalidInput, "missing file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read upload"))
		return
	}

	source, created, err := s.uc.Source.Upload(ctx, header.Filename, data)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, source)
}

type pasteRequest struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	CallDate *time.Time `json:"callDate,omitempty"`
}

func (s *Server) handleSourcePaste(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req pasteRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	source, created, err := s.uc.Source.Paste(ctx, req.Title, req.Content, req.CallDate)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, source)
}

type noteRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSourceNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	source, created, err := s.uc.Source.QuickNote(ctx, req.Text)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, source)
}

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/scheduler"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/errutil"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

// maxUploadBytes caps multipart transcript uploads
const maxUploadBytes = 10 << 20

type Server struct {
	router    *chi.Mux
	uc        *usecase.UseCases
	scheduler *scheduler.Scheduler
}

type Options func(*Server)

// WithScheduler wires the learning scheduler so the API can trigger and
// report analyses. Without it the learning endpoints run synchronously.
func WithScheduler(s *scheduler.Scheduler) Options {
	return func(srv *Server) {
		srv.scheduler = s
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()
	s := &Server{router: r, uc: uc}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)

	r.Route("/api/sources", func(r chi.Router) {
		r.Get("/", s.handleSourceList)
		r.Post("/upload", s.handleSourceUpload)
		r.Post("/paste", s.handleSourcePaste)
		r.Post("/note", s.handleSourceNote)
		r.Get("/{id}", s.handleSourceGet)
		r.Get("/{id}/segments", s.handleSourceSegments)
		r.Post("/{id}/reprocess", s.handleSourceReprocess)
		r.Delete("/{id}", s.handleSourceDelete)
	})

	r.Route("/api/prospects", func(r chi.Router) {
		r.Get("/", s.handleProspectList)
		r.Post("/", s.handleProspectCreate)
		r.Get("/{id}", s.handleProspectGet)
		r.Put("/{id}", s.handleProspectUpdate)
		r.Delete("/{id}", s.handleProspectDelete)
		r.Post("/{id}/signals", s.handleSignalAdd)
		r.Get("/{id}/signals", s.handleSignalList)
		r.Delete("/{id}/signals/{signalID}", s.handleSignalRemove)
		r.Post("/{id}/score", s.handleProspectScore)
		r.Post("/{id}/convert", s.handleProspectConvert)
		r.Get("/{id}/contacts", s.handleContactList)
		r.Post("/{id}/contacts", s.handleContactCreate)
		r.Put("/{id}/contacts/{contactID}", s.handleContactUpdate)
		r.Delete("/{id}/contacts/{contactID}", s.handleContactDelete)
	})
	r.Post("/api/prospects-recompute", s.handleProspectRecompute)

	r.Route("/api/deals", func(r chi.Router) {
		r.Get("/", s.handleDealList)
		r.Post("/", s.handleDealCreate)
		r.Get("/{id}", s.handleDealGet)
		r.Put("/{id}", s.handleDealUpdate)
		r.Delete("/{id}", s.handleDealDelete)
		r.Get("/{id}/meddpicc", s.handleMeddpiccGet)
		r.Put("/{id}/meddpicc/{letter}", s.handleMeddpiccUpdate)
		r.Get("/{id}/meddpicc-summary", s.handleMeddpiccSummary)
		r.Post("/{id}/gap-analysis", s.handleGapAnalysis)
	})

	r.Route("/api/people", func(r chi.Router) {
		r.Get("/", s.handlePersonList)
		r.Post("/", s.handlePersonCreate)
		r.Get("/{id}", s.handlePersonGet)
		r.Put("/{id}", s.handlePersonUpdate)
		r.Delete("/{id}", s.handlePersonDelete)
	})

	r.Route("/api/outreach", func(r chi.Router) {
		r.Get("/", s.handleOutreachList)
		r.Post("/", s.handleOutreachCreate)
		r.Get("/due", s.handleOutreachDue)
		r.Get("/overdue", s.handleOutreachOverdue)
		r.Get("/today", s.handleOutreachToday)
		r.Get("/cadences", s.handleCadences)
		r.Get("/{id}", s.handleOutreachGet)
		r.Put("/{id}", s.handleOutreachUpdate)
		r.Delete("/{id}", s.handleOutreachDelete)
	})

	r.Route("/api/insights", func(r chi.Router) {
		r.Get("/", s.handleInsightList)
		r.Get("/icp", s.handleInsightICP)
		r.Get("/patterns", s.handleInsightPatterns)
		r.Get("/coaching", s.handleInsightCoaching)
		r.Get("/summary", s.handleInsightSummary)
		r.Post("/{id}/feedback", s.handleInsightFeedback)
		r.Post("/{id}/dismiss", s.handleInsightDismiss)
		r.Get("/{id}/history", s.handleInsightHistory)
	})

	r.Route("/api/query", func(r chi.Router) {
		r.Post("/", s.handleQuery)
		r.Post("/stream", s.handleQueryStream)
		r.Get("/history", s.handleQueryHistory)
		r.Post("/history/{id}/feedback", s.handleQueryFeedback)
	})

	r.Route("/api/learning", func(r chi.Router) {
		r.Post("/trigger/{analysis}", s.handleLearningTrigger)
		r.Get("/status", s.handleLearningStatus)
		r.Get("/quick-patterns", s.handleQuickPatterns)
	})

	r.Route("/api/sections", func(r chi.Router) {
		r.Get("/{entityType}/{entityID}", s.handleSectionList)
		r.Get("/{entityType}/{entityID}/{sectionType}", s.handleSectionGet)
		r.Post("/{entityType}/{entityID}/{sectionType}/regenerate", s.handleSectionRegenerate)
	})

	r.Post("/api/outcomes", s.handleOutcomeCreate)
	r.Get("/api/export/pipeline", s.handleExportPipeline)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return goerr.Wrap(types.ErrInvalidInput, "invalid request body", goerr.V("cause", err.Error()))
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := s.uc.Gateway().Status(ctx)

	_, totalSources, err := s.uc.Source.List(ctx, 1, 0)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	deals, err := s.uc.Repository().Deal().List(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	people, err := s.uc.Repository().Person().List(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"provider": status,
		"corpus": map[string]int{
			"sources": totalSources,
			"deals":   len(deals),
			"people":  len(people),
		},
	})
}

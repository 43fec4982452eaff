// SPDX-License-Identifier: MIT

// Package api exposes the planner over HTTP: the published schedule, rule
// management, what-if previews and the cycle report.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/svoss/recplan/internal/history"
	"github.com/svoss/recplan/internal/log"
	"github.com/svoss/recplan/internal/plan"
	"github.com/svoss/recplan/internal/rules"
	"github.com/svoss/recplan/internal/sched"
)

// HistoryReader serves the recording-log endpoints.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Forget(ctx context.Context, id plan.ShowingID) error
}

// Server bundles the HTTP surface over the scheduler and rule catalog.
type Server struct {
	sched   *sched.Scheduler
	rules   *rules.Manager
	history HistoryReader
	logger  zerolog.Logger
}

// New creates the API server.
func New(s *sched.Scheduler, rm *rules.Manager, hr HistoryReader) *Server {
	return &Server{
		sched:   s,
		rules:   rm,
		history: hr,
		logger:  log.WithComponent("api"),
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/schedule", s.handleSchedule)
		r.Get("/schedule/{showingID}", s.handleScheduleShowing)
		r.Post("/schedule/{showingID}/override", s.handleSetOverride)
		r.Delete("/schedule/{showingID}/override", s.handleClearOverride)
		r.Get("/report", s.handleReport)

		r.Get("/rules", s.handleListRules)
		r.Post("/rules", s.handleAddRule)
		r.Get("/rules/{ruleID}", s.handleGetRule)
		r.Put("/rules/{ruleID}", s.handleUpdateRule)
		r.Delete("/rules/{ruleID}", s.handleDeleteRule)

		r.Get("/history", s.handleHistory)
		r.Delete("/history/{showingID}", s.handleForget)

		r.Group(func(r chi.Router) {
			// Reschedule and preview run a full planning pass; keep clients
			// from hammering them.
			r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			r.Post("/reschedule", s.handleReschedule)
			r.Post("/preview", s.handlePreview)
		})
	})

	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = chimw.GetReqID(r.Context())
		}
		ctx := log.ContextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger := log.WithContext(r.Context(), s.logger)
		logger.Info().
			Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Int("status", ww.Status()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{"status": "ok"}
	if p := s.sched.Published(); p != nil {
		status["plan_version"] = p.Version
		status["generated_at"] = p.GeneratedAt
	} else {
		status["status"] = "starting"
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	p := s.sched.Published()
	if p == nil {
		writeServiceUnavailable(w, errors.New("no plan published yet"))
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if !plan.Status(status).Valid() {
			writeError(w, errors.New("unknown status filter"))
			return
		}
		var filtered []plan.Recording
		for _, rec := range p.Recordings {
			if rec.Status == plan.Status(status) {
				filtered = append(filtered, rec)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"version":    p.Version,
			"recordings": filtered,
		})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleScheduleShowing(w http.ResponseWriter, r *http.Request) {
	p := s.sched.Published()
	if p == nil {
		writeServiceUnavailable(w, errors.New("no plan published yet"))
		return
	}
	id := plan.ShowingID(chi.URLParam(r, "showingID"))
	recs := p.ForShowing(id)
	if len(recs) == 0 {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status plan.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, err)
		return
	}
	id := plan.ShowingID(chi.URLParam(r, "showingID"))
	if err := s.sched.SetShowingOverride(id, body.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"showing_id": string(id),
		"status":     string(body.Status),
	})
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	s.sched.ClearShowingOverride(plan.ShowingID(chi.URLParam(r, "showingID")))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	p := s.sched.Published()
	if p == nil {
		writeServiceUnavailable(w, errors.New("no plan published yet"))
		return
	}
	writeJSON(w, http.StatusOK, p.Report)
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	p, err := s.sched.RunOnce(r.Context(), "api")
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":      p.Version,
		"generated_at": p.GeneratedAt,
		"recordings":   len(p.Recordings),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var edits []sched.RuleEdit
	if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.sched.Preview(r.Context(), edits)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rules.GetRules())
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.rules.GetRule(chi.URLParam(r, "ruleID"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var rule plan.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, err)
		return
	}
	id, err := s.rules.AddRule(rule)
	if err != nil {
		writeError(w, err)
		return
	}
	s.sched.Trigger("rules_changed")
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var rule plan.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "ruleID")
	if err := s.rules.UpdateRule(id, rule); err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			writeNotFound(w)
			return
		}
		writeError(w, err)
		return
	}
	s.sched.Trigger("rules_changed")
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ruleID")
	if err := s.rules.DeleteRule(id); err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			writeNotFound(w)
			return
		}
		writeError(w, err)
		return
	}
	s.sched.Trigger("rules_changed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeServiceUnavailable(w, errors.New("history disabled"))
		return
	}
	limit := 100
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeServiceUnavailable(w, errors.New("history disabled"))
		return
	}
	id := plan.ShowingID(chi.URLParam(r, "showingID"))
	if err := s.history.Forget(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	// Forgetting a recording makes its episode eligible again.
	s.sched.Trigger("history_changed")
	w.WriteHeader(http.StatusNoContent)
}

// Package api exposes the estimation pipeline over HTTP. Each request runs
// one complete fit-weigh-estimate cycle on a fresh estimator; a weighted
// semaphore caps how many run at once since a fit is CPU-bound.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"causalkit/adapters/learners/logistic"
	"causalkit/domain/causal"
	"causalkit/domain/core"
	"causalkit/estimation"
	"causalkit/internal/config"
	"causalkit/internal/diagnostics"
	"causalkit/internal/effects"
	"causalkit/ports"
)

// Server wires the HTTP surface to the estimation core.
type Server struct {
	cfg    config.Config
	ledger ports.ReportLedger
	sem    *semaphore.Weighted
	router chi.Router
}

// NewServer builds the router. A nil ledger falls back to in-memory storage.
func NewServer(cfg config.Config, ledger ports.ReportLedger) *Server {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	s := &Server{
		cfg:    cfg,
		ledger: ledger,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrentEstimations),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/estimate", s.handleEstimate)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Get("/reports/{id}/rendered", s.handleRenderReport)
	})
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if !s.sem.TryAcquire(1) {
		writeError(w, http.StatusTooManyRequests, "capacity",
			fmt.Errorf("estimation capacity exhausted; retry later"))
		return
	}
	defer s.sem.Release(1)

	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode", fmt.Errorf("decoding request body: %w", err))
		return
	}

	resp, err := s.estimate(req)
	if err != nil {
		status, kind := classify(err)
		writeError(w, status, kind, err)
		return
	}

	id := core.ReportID(core.NewID())
	resp.ReportID = id.String()
	if err := s.ledger.SaveReport(r.Context(), id, resp.Summary["estimator_name"].(string), resp.Summary); err != nil {
		writeError(w, http.StatusInternalServerError, "ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// estimate runs the full pipeline for one request.
func (s *Server) estimate(req EstimateRequest) (*EstimateResponse, error) {
	X, a, y, err := buildInputs(req)
	if err != nil {
		return nil, err
	}

	log := diagnostics.NewLog()
	clipLo, clipHi := s.cfg.ClipLow, s.cfg.ClipHigh
	if req.ClipLow != nil {
		clipLo = req.ClipLow
	}
	if req.ClipHigh != nil {
		clipHi = req.ClipHigh
	}
	stabilized := s.cfg.Stabilized
	if req.Stabilized != nil {
		stabilized = *req.Stabilized
	}

	est, err := estimation.NewIPW(logistic.New(),
		estimation.WithClipBounds(clipLo, clipHi),
		estimation.WithStabilization(stabilized),
		estimation.WithLog(log))
	if err != nil {
		return nil, err
	}
	if err := est.Fit(X, a); err != nil {
		return nil, err
	}

	aggregation := req.Aggregation
	if aggregation == "" {
		aggregation = estimation.AggregateMean
	}
	outcomes, err := est.EstimatePopulationOutcome(X, a, y, aggregation)
	if err != nil {
		return nil, err
	}

	treated, control, err := pickContrast(req, a)
	if err != nil {
		return nil, err
	}
	types := make([]effects.EffectType, len(req.EffectTypes))
	for i, t := range req.EffectTypes {
		types[i] = effects.EffectType(t)
	}
	if len(types) == 0 {
		types = []effects.EffectType{effects.Diff}
	}
	effect, err := est.EstimateEffect(outcomes[treated], outcomes[control], types...)
	if err != nil {
		return nil, err
	}

	report, err := est.Diagnostics(X, a)
	if err != nil {
		return nil, err
	}
	summary := est.Summary()
	summary["report"] = report.ToMap()

	popOut := make(map[string]float64, len(outcomes))
	for level, po := range outcomes {
		popOut[string(level)] = po.Scalar()
	}
	effOut := make(map[string]float64, len(types))
	for t, v := range effect.Population() {
		effOut[string(t)] = v
	}
	return &EstimateResponse{
		PopulationOutcomes: popOut,
		Effects:            effOut,
		Summary:            summary,
		Warnings:           log.Messages(),
	}, nil
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := core.ReportID(chi.URLParam(r, "id"))
	payload, err := s.ledger.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRenderReport(w http.ResponseWriter, r *http.Request) {
	id := core.ReportID(chi.URLParam(r, "id"))
	payload, err := s.ledger.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	html := RenderReportHTML(payload)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(html)
}

// buildInputs converts a decoded request into domain values.
func buildInputs(req EstimateRequest) (causal.Table, causal.Assignment, causal.Series, error) {
	n := len(req.Covariates)
	ids := make(causal.Index, n)
	if len(req.IDs) > 0 {
		if len(req.IDs) != n {
			return causal.Table{}, causal.Assignment{}, causal.Series{},
				core.NewAlignmentError(fmt.Sprintf("%d ids for %d covariate rows", len(req.IDs), n))
		}
		for i, id := range req.IDs {
			ids[i] = causal.SampleID(id)
		}
	} else {
		ids = causal.RangeIndex(n)
	}

	X, err := causal.NewTable(ids, req.Columns, req.Covariates)
	if err != nil {
		return causal.Table{}, causal.Assignment{}, causal.Series{}, err
	}

	levels := make([]causal.Level, len(req.Treatment))
	for i, t := range req.Treatment {
		levels[i] = causal.Level(strings.TrimSpace(t))
	}
	a, err := causal.NewAssignment(ids, levels)
	if err != nil {
		return causal.Table{}, causal.Assignment{}, causal.Series{}, err
	}

	vals := make([]float64, len(req.Outcome))
	for i, v := range req.Outcome {
		if v == nil {
			vals[i] = math.NaN()
		} else {
			vals[i] = *v
		}
	}
	y, err := causal.NewSeries(ids, vals)
	if err != nil {
		return causal.Table{}, causal.Assignment{}, causal.Series{}, err
	}
	return X, a, y, nil
}

// pickContrast resolves the treated/control pair, defaulting to the sorted
// level order with the first level as control.
func pickContrast(req EstimateRequest, a causal.Assignment) (treated, control causal.Level, err error) {
	levels := a.Levels()
	known := causal.LevelStrings(levels)
	sort.Strings(known)

	control = levels[0]
	treated = levels[len(levels)-1]
	if req.ControlLevel != "" {
		control = causal.Level(req.ControlLevel)
		if !hasLevel(levels, control) {
			return "", "", core.NewLevelNotFoundError(req.ControlLevel, known)
		}
	}
	if req.TreatedLevel != "" {
		treated = causal.Level(req.TreatedLevel)
		if !hasLevel(levels, treated) {
			return "", "", core.NewLevelNotFoundError(req.TreatedLevel, known)
		}
	}
	return treated, control, nil
}

func hasLevel(levels []causal.Level, l causal.Level) bool {
	for _, known := range levels {
		if known == l {
			return true
		}
	}
	return false
}

// classify maps domain errors to HTTP status codes and machine kinds.
func classify(err error) (int, string) {
	switch {
	case core.IsValidationError(err):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, core.ErrInvalidEffectType),
		errors.Is(err, core.ErrLevelNotFound):
		return http.StatusBadRequest, "request"
	case core.IsNumericError(err):
		return http.StatusUnprocessableEntity, "numeric"
	case errors.Is(err, core.ErrLearnerInterface),
		errors.Is(err, core.ErrNotFitted):
		return http.StatusInternalServerError, "estimator"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, ErrorResponse{Kind: kind, Message: err.Error()})
}

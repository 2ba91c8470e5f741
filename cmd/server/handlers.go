package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skillweave/skillweave"
)

type handler struct {
	engine skillweave.Engine
}

func newHandler(e skillweave.Engine) *handler {
	return &handler{engine: e}
}

// POST /api/analyze
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req skillweave.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Bound parameters.
	if req.TopK < 0 || req.TopK > 50 {
		req.TopK = 0 // use default
	}

	analysis, err := h.engine.Analyze(ctx, req)
	if err != nil {
		writeEngineError(w, err, "analyze failed")
		slog.Error("analyze error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// GET /api/match?q=...&k=5
func (h *handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	k := 0
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusBadRequest, "k must be an integer between 1 and 50")
			return
		}
		k = n
	}

	matches, err := h.engine.Match(ctx, q, k)
	if err != nil {
		writeEngineError(w, err, "match failed")
		slog.Error("match error", "query", q, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"matches": matches,
	})
}

// GET /api/occupations/{code}
func (h *handler) handleOccupation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	occ, err := h.engine.Occupation(r.Context(), code)
	if err != nil {
		writeEngineError(w, err, "lookup failed")
		if !errors.Is(err, skillweave.ErrNotFound) {
			slog.Error("occupation lookup error", "code", code, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, occ)
}

// GET /api/occupations/{code}/transitions
//
// With ?to={code} the response lists the transition paths to that target
// instead (bounded by ?depth, default 3).
func (h *handler) handleTransitions(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	// 404 for codes we have never extracted.
	if _, err := h.engine.Occupation(r.Context(), code); err != nil {
		writeEngineError(w, err, "lookup failed")
		return
	}

	if to := r.URL.Query().Get("to"); to != "" {
		depth := 3
		if v := r.URL.Query().Get("depth"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 10 {
				writeError(w, http.StatusBadRequest, "depth must be an integer between 1 and 10")
				return
			}
			depth = n
		}

		paths, err := h.engine.TransitionPaths(r.Context(), code, to, depth)
		if err != nil {
			writeEngineError(w, err, "path lookup failed")
			slog.Error("transition paths error", "from", code, "to", to, "error", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"from":  code,
			"to":    to,
			"depth": depth,
			"paths": paths,
		})
		return
	}

	transitions, err := h.engine.Transitions(r.Context(), code)
	if err != nil {
		writeEngineError(w, err, "transitions lookup failed")
		slog.Error("transitions error", "code", code, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nco_code":    code,
		"transitions": transitions,
	})
}

// GET /api/stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		slog.Error("stats error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GET /healthz
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// writeEngineError maps engine sentinel errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, skillweave.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "text is required")
	case errors.Is(err, skillweave.ErrNoMatch), errors.Is(err, skillweave.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, skillweave.ErrInvalidConfig):
		writeError(w, http.StatusServiceUnavailable, "matching unavailable: no embedding provider configured")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

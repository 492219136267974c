package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/zonefit/internal/census"
	"github.com/sells-group/zonefit/internal/scorer"
)

// ScoreRequest is the body of POST /v1/score. Zero filter fields fall back
// to the server defaults.
type ScoreRequest struct {
	Zones       []census.Record    `json:"zones"`
	Preferences scorer.Preferences `json:"preferences"`
	MinScore    *float64           `json:"min_score,omitempty"`
	Limit       int                `json:"limit,omitempty"`
}

// ScoreResponse is the body returned by POST /v1/score.
type ScoreResponse struct {
	RunID     string             `json:"run_id"`
	ScoredAt  time.Time          `json:"scored_at"`
	ZoneCount int                `json:"zone_count"`
	Passed    int                `json:"passed"`
	Results   []scorer.ZoneScore `json:"results"`
}

func (a *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Server) handleDimensions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, scorer.Catalog(a.scorer.Calculator()))
}

func (a *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Zones) == 0 {
		writeError(w, http.StatusBadRequest, "zones are required")
		return
	}
	for i, z := range req.Zones {
		if z.Zipcode == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("zone %d has no zipcode", i))
			return
		}
	}
	if err := req.Preferences.Validate(a.scorer.Calculator()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filters := scorer.ScoreFilters{
		MinScore:    a.defaults.MinScore,
		Limit:       a.defaults.Limit,
		Concurrency: a.defaults.Concurrency,
	}
	if req.MinScore != nil {
		if !(*req.MinScore >= 0 && *req.MinScore <= 1) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("min_score must be between 0 and 1, got %v", *req.MinScore))
			return
		}
		filters.MinScore = *req.MinScore
	}
	if req.Limit > 0 {
		filters.Limit = req.Limit
	}

	runID := uuid.New().String()
	results, err := a.scorer.ScoreAll(r.Context(), req.Zones, req.Preferences, filters)
	if err != nil {
		zap.L().Error("api: score request failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}

	passed := 0
	for _, res := range results {
		if res.Passed {
			passed++
		}
	}

	writeJSON(w, http.StatusOK, ScoreResponse{
		RunID:     runID,
		ScoredAt:  time.Now().UTC(),
		ZoneCount: len(req.Zones),
		Passed:    passed,
		Results:   results,
	})
}

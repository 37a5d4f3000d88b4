package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const defaultShopResults = 3

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := interfaces.EstimateOptions{
		Severity: model.Severity(q.Get("severity")),
	}
	if v := q.Get("coverage_override"); v != "" {
		coverage, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, r, goerr.Wrap(model.ErrValidation, "coverage_override must be a number", goerr.V("value", v)))
			return
		}
		opts.Coverage = &coverage
	}

	est, err := s.orch.Estimate(r.Context(), claimID(r), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// handleCompareEstimates takes a JSON array of severity names
func (s *Server) handleCompareEstimates(w http.ResponseWriter, r *http.Request) {
	var severities []model.Severity
	if err := decodeJSON(r, &severities); err != nil {
		writeError(w, r, err)
		return
	}

	claim, err := s.claims.Get(r.Context(), claimID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	comparisons, err := s.comparer.Compare(r.Context(), claim, severities)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claim_id":    claim.ID,
		"comparisons": comparisons,
	})
}

func locateOptions(r *http.Request) (interfaces.LocateOptions, error) {
	q := r.URL.Query()
	opts := interfaces.LocateOptions{
		MaxResults: defaultShopResults,
		PriceTier:  model.PriceTier(q.Get("price_preference")),
		Specialty:  chi.URLParam(r, "specialty"),
	}
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, goerr.Wrap(model.ErrValidation, "max_results must be a positive integer", goerr.V("value", v))
		}
		opts.MaxResults = n
	}
	return opts, nil
}

// handleShops serves both the plain and the specialty filtered routes
func (s *Server) handleShops(w http.ResponseWriter, r *http.Request) {
	opts, err := locateOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	set, err := s.orch.FindProviders(r.Context(), claimID(r), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

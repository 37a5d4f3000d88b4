package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

func claimID(r *http.Request) model.ClaimID {
	return model.ClaimID(chi.URLParam(r, "claimID"))
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	var opts interfaces.ListOptions
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := model.ParseClaimStatus(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		opts.Status = status
	}

	claims, err := s.claims.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if claims == nil {
		claims = []*model.Claim{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(claims),
		"claims": claims,
	})
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := s.claims.Get(r.Context(), claimID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

type statusRequest struct {
	Status string `json:"status"`
}

// handleUpdateStatus takes the status from the "status" query parameter or a JSON body
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		raw = req.Status
	}
	if raw == "" {
		writeError(w, r, goerr.Wrap(model.ErrInputMissing, "status is required"))
		return
	}

	status, err := model.ParseClaimStatus(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claim, err := s.claims.UpdateStatus(r.Context(), claimID(r), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.orch.Analyze(r.Context(), claimID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

type agentStatusResponse struct {
	ClaimID     model.ClaimID        `json:"claim_id"`
	AgentStatus model.AgentStatusMap `json:"agent_status"`
}

func (s *Server) handleGetAgentStatus(w http.ResponseWriter, r *http.Request) {
	id := claimID(r)
	writeJSON(w, http.StatusOK, agentStatusResponse{
		ClaimID:     id,
		AgentStatus: s.orch.AgentStatus(id),
	})
}

type agentStatusRequest struct {
	Agent  model.AgentName  `json:"agent"`
	Status model.AgentState `json:"status"`
}

func (s *Server) handleSetAgentStatus(w http.ResponseWriter, r *http.Request) {
	var req agentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id := claimID(r)
	if err := s.orch.SetAgentStatus(id, req.Agent, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agentStatusResponse{
		ClaimID:     id,
		AgentStatus: s.orch.AgentStatus(id),
	})
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.orch.Draft(r.Context(), claimID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	email, err := s.orch.Email(r.Context(), claimID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

func (s *Server) handleComplianceCheck(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.CheckCompliance(r.Context(), claimID(r), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package server

import (
	"net/http"
	"strings"

	"github.com/m-mizutani/claimpilot/pkg/interfaces"
	"github.com/m-mizutani/claimpilot/pkg/model"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "ClaimPilot AI",
		"version":     Version,
		"description": "Multi-agent insurance claim processing system",
		"agents":      model.Agents,
		"endpoints": map[string]string{
			"chat":   "/api/chat",
			"upload": "/api/upload",
			"claims": "/api/claims",
			"health": "/healthz",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	agents := make(map[model.AgentName]string, len(model.Agents))
	for _, a := range model.Agents {
		agents[a] = "active"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now(),
		"agents":    agents,
	})
}

type statsResponse struct {
	TotalClaims        int                        `json:"total_claims"`
	ClaimsByStatus     map[string]int             `json:"claims_by_status"`
	ClaimsByType       map[model.IncidentType]int `json:"claims_by_type"`
	ConversationLength int                        `json:"conversation_length"`
	TrackedClaims      int                        `json:"tracked_claims"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	claims, err := s.claims.List(r.Context(), interfaces.ListOptions{})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := statsResponse{
		TotalClaims: len(claims),
		ClaimsByStatus: map[string]int{
			"open":         0,
			"processing":   0,
			"closed":       0,
			"pending_info": 0,
		},
		ClaimsByType: map[model.IncidentType]int{},
	}
	for _, c := range claims {
		key := strings.ReplaceAll(strings.ToLower(string(c.Status)), " ", "_")
		resp.ClaimsByStatus[key]++
		resp.ClaimsByType[c.IncidentType]++
	}

	stats := s.orch.Stats()
	resp.ConversationLength = stats.Turns
	resp.TrackedClaims = stats.TrackedClaims

	writeJSON(w, http.StatusOK, resp)
}
